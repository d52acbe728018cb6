package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/crowdproof/crowdproof/internal/engine"
	"github.com/crowdproof/crowdproof/internal/model"
	"github.com/crowdproof/crowdproof/internal/store"
)

var (
	outJSON     string
	outMD       string
	evalTimeout time.Duration
	noFooter    bool
	llmEnabled  bool
	llmProvider string
	llmModel    string
)

// scenarioFile is the self-contained input for an evaluation: one
// event, its votes, and optionally the participants' trust scores and
// endorsements.
type scenarioFile struct {
	Event        *model.EmergencyEvent `json:"event"`
	Votes        []model.Vote          `json:"votes"`
	TrustScores  []model.TrustScore    `json:"trust_scores,omitempty"`
	Endorsements []model.Endorsement   `json:"endorsements,omitempty"`
}

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate <scenario.json>",
	Short: "Evaluate an event's votes and generate a consensus report",
	Long: `Evaluate computes the trust-weighted verdict for a single event:
- Weight each vote by the voter's trust score
- Discount votes cast far from the event location
- Flag suspicious voting patterns (the flags never change the verdict)
- Apply any resulting lifecycle transition
- Generate transparent, explainable reports

The scenario file is self-contained JSON with the event, its votes,
and optionally trust scores and endorsements.

Example:
  crowdproof evaluate scenario.json
  crowdproof evaluate scenario.json --json report.json --md report.md
  crowdproof evaluate scenario.json --llm openai --llm-model gpt-4o-mini`,
	Args: cobra.ExactArgs(1),
	RunE: runEvaluate,
}

func init() {
	rootCmd.AddCommand(evaluateCmd)

	// Output flags
	evaluateCmd.Flags().StringVar(&outJSON, "json", "report.json", "output JSON path")
	evaluateCmd.Flags().StringVar(&outMD, "md", "", "output Markdown path (optional)")
	evaluateCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")

	evaluateCmd.Flags().DurationVar(&evalTimeout, "timeout", time.Minute, "overall evaluation timeout")

	// LLM flags
	evaluateCmd.Flags().BoolVar(&llmEnabled, "llm", false, "enable LLM summary generation")
	evaluateCmd.Flags().StringVar(&llmProvider, "llm-provider", "openai", "LLM provider (openai, ollama)")
	evaluateCmd.Flags().StringVar(&llmModel, "llm-model", "gpt-4o-mini", "LLM model name")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	path := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), evalTimeout)
	defer cancel()

	scenario, err := loadScenario(path)
	if err != nil {
		return err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Evaluating: %s (%s)\n", scenario.Event.Title, scenario.Event.ID)
		fmt.Fprintf(os.Stderr, "Votes: %d\n", len(scenario.Votes))
		fmt.Fprintln(os.Stderr)
	}

	// Build configuration from flags
	cfg := model.DefaultConfig()
	cfg.Output.Verbose = verbose
	cfg.Output.IncludeFooter = !noFooter
	if llmEnabled {
		if err := configureLLM(cfg); err != nil {
			return err
		}
	}

	s, err := seedStore(scenario)
	if err != nil {
		return err
	}

	coordinator := engine.NewCoordinator(cfg, s, nil)
	report, err := coordinator.BuildReport(ctx, scenario.Event.ID)
	if err != nil {
		return fmt.Errorf("evaluate failed: %w", err)
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ Verdict: %s (confidence %.2f)\n", report.Result.Consensus, report.Result.Confidence)
		if len(report.Result.Anomalies) > 0 {
			fmt.Fprintf(os.Stderr, "✓ Flagged %d anomalies\n", len(report.Result.Anomalies))
		}
		if report.LLM != nil && report.LLM.Enabled {
			fmt.Fprintf(os.Stderr, "✓ Generated LLM summary using %s/%s\n", report.LLM.Provider, report.LLM.Model)
		}
		fmt.Fprintln(os.Stderr)
	}

	renderer := engine.NewRenderer(cfg.Output.IncludeFooter)
	if err := renderer.RenderReport(report, outJSON, outMD, verbose); err != nil {
		return fmt.Errorf("render failed: %w", err)
	}

	return nil
}

func loadScenario(path string) (*scenarioFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}

	var scenario scenarioFile
	if err := json.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if scenario.Event == nil {
		return nil, fmt.Errorf("scenario has no event")
	}
	if scenario.Event.ID == "" {
		return nil, fmt.Errorf("scenario event has no ID")
	}
	return &scenario, nil
}

// seedStore loads the scenario into a fresh in-memory store. Votes
// missing a trust weight get the voter's score from the trust_scores
// section; unknown voters keep the neutral default.
func seedStore(scenario *scenarioFile) (store.Store, error) {
	s := store.NewMemoryStore()

	scores := make(map[string]float64)
	for i := range scenario.TrustScores {
		ts := scenario.TrustScores[i]
		scores[ts.UserID] = ts.Score
		if err := s.PutTrustScore(&ts); err != nil {
			return nil, fmt.Errorf("seed trust score for %s: %w", ts.UserID, err)
		}
	}

	if scenario.Event.Status == "" {
		scenario.Event.Status = model.StatusPending
	}
	if err := s.PutEvent(scenario.Event); err != nil {
		return nil, fmt.Errorf("seed event: %w", err)
	}

	for _, vote := range scenario.Votes {
		if vote.EventID == "" {
			vote.EventID = scenario.Event.ID
		}
		if vote.TrustWeight == 0 {
			if score, ok := scores[vote.UserID]; ok {
				vote.TrustWeight = score
			} else {
				vote.TrustWeight = 0.5
			}
		}
		if err := s.PutVote(vote); err != nil {
			return nil, fmt.Errorf("seed vote from %s: %w", vote.UserID, err)
		}
	}

	for _, endorsement := range scenario.Endorsements {
		if err := s.PutEndorsement(endorsement); err != nil {
			return nil, fmt.Errorf("seed endorsement: %w", err)
		}
	}

	return s, nil
}

// configureLLM fills the LLM section from flags and environment.
func configureLLM(cfg *model.Config) error {
	cfg.LLM.Provider = llmProvider
	cfg.LLM.Model = llmModel

	switch llmProvider {
	case "openai":
		cfg.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		if cfg.LLM.APIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY environment variable not set")
		}
	case "ollama":
		// Ollama doesn't need an API key
		if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
			cfg.LLM.BaseURL = baseURL
		}
	}
	return nil
}

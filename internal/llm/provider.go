package llm

import (
	"context"
	"fmt"

	"github.com/crowdproof/crowdproof/internal/model"
)

// Provider defines the interface for LLM providers
type Provider interface {
	// Name returns the provider name
	Name() string

	// Summarize generates a narrative summary of a consensus report
	Summarize(ctx context.Context, req SummarizeRequest) (*SummarizeResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// SummarizeRequest contains the input for LLM summarization
type SummarizeRequest struct {
	// Report is the consensus report to summarize. The verdict and
	// scores in it are final; the summary describes them, never
	// changes them.
	Report model.ConsensusReport

	// Prompt is an optional custom prompt (if empty, use default)
	Prompt string

	// Model is the specific model to use (provider-specific)
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// SummarizeResponse contains the LLM's summary output
type SummarizeResponse struct {
	// Summary is the generated summary text
	Summary string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "ollama", "" (disabled)
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Provider:  "", // Disabled by default
		Model:     "",
		Timeout:   30,
		MaxTokens: 1000,
	}
}

// BuildPrompt constructs the default prompt for summarization. The
// prompt hands the model a finished verdict: the model narrates, it
// does not re-decide.
func BuildPrompt(report model.ConsensusReport) string {
	event := report.Event
	result := report.Result

	prompt := fmt.Sprintf(`You are summarizing a crowd-sourced emergency report assessment. The verdict below was computed from trust-weighted votes and is FINAL - describe it, do not second-guess it.

CRITICAL RULES:
1. Do not change, question, or re-derive the verdict or confidence.
2. Do not invent details about the event beyond what is listed here.
3. If anomalies were detected, mention them as caveats for responders.
4. Keep the tone factual and operational, not alarmist.

Assessment:
- Event: %s (%s, severity %s)
- Status: %s
- Verdict: %s (confidence %.2f)
- Votes: %d total, %d confirm / %d dispute
- Weighted support: %.3f confirm vs %.3f dispute
`, event.Title, event.Type, event.Severity, event.Status,
		result.Consensus, result.Confidence,
		result.TotalVotes, result.ConfirmVotes, result.DisputeVotes,
		result.WeightedConfirmScore, result.WeightedDisputeScore)

	if len(result.Anomalies) > 0 {
		prompt += "\nDetected anomalies:\n"
		for i, anomaly := range result.Anomalies {
			if i >= 5 {
				prompt += fmt.Sprintf("... and %d more\n", len(result.Anomalies)-5)
				break
			}
			prompt += fmt.Sprintf("- [%s] %s\n", anomaly.Severity, anomaly.Description)
		}
	}

	prompt += "\nProvide a 3-4 sentence summary for emergency responders covering the verdict, the strength of agreement, and any anomalies."

	return prompt
}

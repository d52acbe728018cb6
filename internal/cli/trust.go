package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/crowdproof/crowdproof/internal/model"
	"github.com/crowdproof/crowdproof/internal/trust"
)

// trustCmd represents the trust command
var trustCmd = &cobra.Command{
	Use:   "trust <factors.json>",
	Short: "Calculate a trust score from behavioral factors",
	Long: `Trust computes the weighted trust score for a set of behavioral
factors, exactly as the consensus engine would weight that user's
votes.

The input is a JSON file with the factor readings:

  {
    "reporting_accuracy": 0.9,
    "confirmation_accuracy": 0.85,
    "dispute_accuracy": 0.7,
    "response_time": 12,
    "location_accuracy": 0.95,
    "contribution_frequency": 4,
    "community_endorsement": 0.6,
    "penalty_score": 0
  }

Adversarial input is sanitized, not rejected: out-of-range values are
clamped, NaN and negatives collapse to zero.

Example:
  crowdproof trust factors.json
  crowdproof trust factors.json --json`,
	Args: cobra.ExactArgs(1),
	RunE: runTrust,
}

var trustOutputJSON bool

func init() {
	rootCmd.AddCommand(trustCmd)
	trustCmd.Flags().BoolVar(&trustOutputJSON, "json", false, "emit result as JSON")
}

func runTrust(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read factors: %w", err)
	}

	var raw model.TrustFactors
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("parse factors: %w", err)
	}

	factors := model.FactorsFromUntrusted(raw)
	calc := trust.Calculate(factors)

	if trustOutputJSON {
		out, err := json.MarshalIndent(struct {
			Factors model.TrustFactors     `json:"factors"`
			Result  model.TrustCalculation `json:"result"`
		}{factors, calc}, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal result: %w", err)
		}
		fmt.Println(string(out))
		return nil
	}

	fmt.Printf("Trust score: %.3f\n", calc.Score)
	fmt.Printf("Confidence:  %.3f\n", calc.Confidence)
	if verbose {
		fmt.Println("\nSanitized factors:")
		fmt.Printf("  reporting accuracy:     %.3f\n", factors.ReportingAccuracy)
		fmt.Printf("  confirmation accuracy:  %.3f\n", factors.ConfirmationAccuracy)
		fmt.Printf("  dispute accuracy:       %.3f\n", factors.DisputeAccuracy)
		fmt.Printf("  response time (min):    %.1f\n", factors.ResponseTime)
		fmt.Printf("  location accuracy:      %.3f\n", factors.LocationAccuracy)
		fmt.Printf("  contributions per week: %.1f\n", factors.ContributionFrequency)
		fmt.Printf("  community endorsement:  %.3f\n", factors.CommunityEndorsement)
		fmt.Printf("  penalty score:          %.3f\n", factors.PenaltyScore)
	}
	return nil
}

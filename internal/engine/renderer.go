package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/crowdproof/crowdproof/internal/llm"
	"github.com/crowdproof/crowdproof/internal/model"
)

// Renderer writes consensus reports as JSON and Markdown documents.
type Renderer struct {
	includeFooter bool
}

// NewRenderer creates a renderer.
func NewRenderer(includeFooter bool) *Renderer {
	return &Renderer{includeFooter: includeFooter}
}

// RenderJSON writes the full report as indented JSON.
func (r *Renderer) RenderJSON(report *model.ConsensusReport, path string) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderMarkdown writes the report as a human-readable Markdown
// document.
func (r *Renderer) RenderMarkdown(report *model.ConsensusReport, path string) error {
	md := r.Markdown(report)
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// RenderLLMMarkdown writes an already-rendered LLM summary document.
func (r *Renderer) RenderLLMMarkdown(markdown, path string) error {
	if err := os.WriteFile(path, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// Markdown renders the report body.
func (r *Renderer) Markdown(report *model.ConsensusReport) string {
	event := report.Event
	result := report.Result

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("# Consensus Report: %s\n\n", event.Title))
	sb.WriteString(fmt.Sprintf("- **Event ID**: %s\n", event.ID))
	sb.WriteString(fmt.Sprintf("- **Type**: %s\n", event.Type))
	sb.WriteString(fmt.Sprintf("- **Severity**: %s\n", event.Severity))
	sb.WriteString(fmt.Sprintf("- **Status**: %s\n", event.Status))
	sb.WriteString(fmt.Sprintf("- **Reported by**: %s at %s\n", event.ReportedBy, event.ReportedAt.Format("2006-01-02 15:04:05 UTC")))
	if event.Location != nil {
		sb.WriteString(fmt.Sprintf("- **Location**: %.5f, %.5f\n", event.Location.Latitude, event.Location.Longitude))
	}
	sb.WriteString("\n## Verdict\n\n")
	sb.WriteString(fmt.Sprintf("**%s** (confidence %.2f)\n\n", strings.ToUpper(string(result.Consensus)), result.Confidence))

	sb.WriteString("| | Confirm | Dispute |\n|---|---|---|\n")
	sb.WriteString(fmt.Sprintf("| Votes | %d | %d |\n", result.ConfirmVotes, result.DisputeVotes))
	sb.WriteString(fmt.Sprintf("| Weighted | %.3f | %.3f |\n", result.WeightedConfirmScore, result.WeightedDisputeScore))
	sb.WriteString(fmt.Sprintf("| Distance-adjusted | %.3f | %.3f |\n", result.DistanceAdjustedConfirmScore, result.DistanceAdjustedDisputeScore))

	if len(result.Anomalies) > 0 {
		sb.WriteString("\n## Anomalies\n\n")
		for _, anomaly := range result.Anomalies {
			sb.WriteString(fmt.Sprintf("- **[%s]** %s (%s)\n", anomaly.Severity, anomaly.Description, anomaly.Type))
		}
	}

	if event.DataIntegrityFlag || event.ReviewRequired {
		sb.WriteString("\n## Integrity\n\n")
		for _, note := range event.IntegrityNotes {
			sb.WriteString(fmt.Sprintf("- %s\n", note))
		}
	}

	if event.Resolution != nil {
		res := event.Resolution
		sb.WriteString("\n## Resolution\n\n")
		sb.WriteString(fmt.Sprintf("- **Resolved by**: %s\n", res.ResolvedBy))
		sb.WriteString(fmt.Sprintf("- **Casualties**: %d\n", res.Casualties))
		sb.WriteString(fmt.Sprintf("- **Response time**: %.0f minutes\n", res.ResponseMinutes))
		if len(res.ResourcesUsed) > 0 {
			sb.WriteString(fmt.Sprintf("- **Resources**: %s\n", strings.Join(res.ResourcesUsed, ", ")))
		}
		if res.Notes != "" {
			sb.WriteString(fmt.Sprintf("- **Notes**: %s\n", res.Notes))
		}
	}

	if r.includeFooter {
		sb.WriteString(fmt.Sprintf("\n---\n_Generated by crowdproof at %s_\n", report.GeneratedAt.Format("2006-01-02 15:04:05 UTC")))
	}

	return sb.String()
}

// RenderSummary prints a one-screen summary to stdout.
func (r *Renderer) RenderSummary(report *model.ConsensusReport) {
	event := report.Event
	result := report.Result

	fmt.Printf("\nEvent:      %s (%s, %s)\n", event.Title, event.Type, event.Severity)
	fmt.Printf("Status:     %s\n", event.Status)
	fmt.Printf("Verdict:    %s (confidence %.2f)\n", result.Consensus, result.Confidence)
	fmt.Printf("Votes:      %d confirm / %d dispute (weighted %.3f vs %.3f)\n",
		result.ConfirmVotes, result.DisputeVotes,
		result.WeightedConfirmScore, result.WeightedDisputeScore)
	if len(result.Anomalies) > 0 {
		fmt.Printf("Anomalies:  %d flagged\n", len(result.Anomalies))
		for _, anomaly := range result.Anomalies {
			fmt.Printf("  - [%s] %s\n", anomaly.Severity, anomaly.Description)
		}
	}
}

// RenderReport renders the report to the requested outputs. The LLM
// summary, if present, goes to a sibling .llm.md file so generated
// content never mixes with the computed verdict.
func (r *Renderer) RenderReport(report *model.ConsensusReport, jsonPath, mdPath string, verbose bool) error {
	if jsonPath != "" {
		if err := r.RenderJSON(report, jsonPath); err != nil {
			return fmt.Errorf("render JSON: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote JSON: %s\n", jsonPath)
		}
	}

	if mdPath != "" {
		if err := r.RenderMarkdown(report, mdPath); err != nil {
			return fmt.Errorf("render markdown: %w", err)
		}
		if verbose {
			fmt.Printf("✓ Wrote Markdown: %s\n", mdPath)
		}
	}

	if report.LLM != nil && report.LLM.Enabled && mdPath != "" {
		llmMdPath := strings.TrimSuffix(mdPath, ".md") + ".llm.md"
		if err := r.RenderLLMMarkdown(llm.RenderSeparateMarkdown(report.LLM), llmMdPath); err != nil {
			fmt.Printf("Warning: Failed to write LLM summary: %v\n", err)
		} else if verbose {
			fmt.Printf("✓ Wrote LLM Summary: %s\n", llmMdPath)
		}
	}

	r.RenderSummary(report)
	return nil
}

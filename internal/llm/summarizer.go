package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/crowdproof/crowdproof/internal/model"
)

// Summarizer orchestrates LLM summary generation for consensus
// reports. It degrades gracefully: provider failures produce warnings,
// never errors, so a broken LLM can never block an assessment.
type Summarizer struct {
	provider Provider
	config   Config
}

// NewSummarizer creates a summarizer from config. An empty provider
// name yields a disabled (but valid) summarizer.
func NewSummarizer(config Config) (*Summarizer, error) {
	provider, err := NewProvider(config)
	if err != nil {
		return nil, err
	}

	return &Summarizer{
		provider: provider,
		config:   config,
	}, nil
}

// IsEnabled reports whether a provider is configured.
func (s *Summarizer) IsEnabled() bool {
	return s.provider != nil
}

// ProviderName returns the configured provider name, or "" if disabled.
func (s *Summarizer) ProviderName() string {
	if s.provider == nil {
		return ""
	}
	return s.provider.Name()
}

// GenerateSummary produces an LLM summary of the report. It returns
// nil when the summarizer is disabled. Provider unavailability or
// generation errors are reported as warnings inside the summary, not
// as errors: the verdict was computed before this runs and stands
// regardless.
func (s *Summarizer) GenerateSummary(ctx context.Context, report model.ConsensusReport) (*model.LLMSummary, error) {
	if s.provider == nil {
		return nil, nil
	}

	if !s.provider.IsAvailable(ctx) {
		return &model.LLMSummary{
			Enabled:  false,
			Provider: s.provider.Name(),
			Warnings: []string{
				fmt.Sprintf("LLM provider '%s' is not available (check configuration and connectivity)", s.provider.Name()),
			},
		}, nil
	}

	resp, err := s.provider.Summarize(ctx, SummarizeRequest{
		Report:    report,
		Model:     s.config.Model,
		MaxTokens: s.config.MaxTokens,
	})
	if err != nil {
		// Graceful degradation: the assessment is complete without us.
		return &model.LLMSummary{
			Enabled:  true,
			Provider: s.provider.Name(),
			Model:    s.config.Model,
			Warnings: []string{
				fmt.Sprintf("Summary generation failed: %v", err),
			},
		}, nil
	}

	summary := &model.LLMSummary{
		Enabled:   true,
		Provider:  s.provider.Name(),
		Model:     resp.Model,
		SummaryMD: resp.Summary,
		Warnings: []string{
			fmt.Sprintf("Tokens used: %d", resp.TokensUsed),
		},
	}

	return summary, nil
}

// RenderSeparateMarkdown renders the LLM summary as a standalone
// markdown document, clearly labeled as generated content.
func RenderSeparateMarkdown(summary *model.LLMSummary) string {
	if summary == nil || !summary.Enabled {
		return ""
	}

	var sb strings.Builder

	sb.WriteString("# LLM Summary\n\n")
	sb.WriteString("> **GENERATED CONTENT** - This summary was produced by a language model.\n")
	sb.WriteString("> The verdict and confidence were determined independently by trust-weighted consensus; this text never influences them.\n\n")

	sb.WriteString(fmt.Sprintf("- **Provider**: %s\n", summary.Provider))
	if summary.Model != "" {
		sb.WriteString(fmt.Sprintf("- **Model**: %s\n", summary.Model))
	}
	sb.WriteString("\n")

	if summary.SummaryMD != "" {
		sb.WriteString(summary.SummaryMD)
		sb.WriteString("\n")
	} else {
		sb.WriteString("_No summary generated._\n")
	}

	if len(summary.Warnings) > 0 {
		sb.WriteString("\n## Notes\n\n")
		for _, warning := range summary.Warnings {
			sb.WriteString(fmt.Sprintf("- %s\n", warning))
		}
	}

	return sb.String()
}

package model

import "time"

// ConsensusReport is the complete document produced for one event:
// the event, its current verdict, and an optional LLM summary.
type ConsensusReport struct {
	Event       *EmergencyEvent `json:"event"`
	Result      ConsensusResult `json:"result"`
	GeneratedAt time.Time       `json:"generated_at"`

	// Optional LLM summary. Generated after the verdict and never
	// feeding back into it.
	LLM *LLMSummary `json:"llm,omitempty"`
}

// LLMSummary is an optional generated narrative of the consensus
// state. It is advisory output for human responders; it never affects
// verdicts or trust scores.
type LLMSummary struct {
	Enabled   bool     `json:"enabled"`
	Provider  string   `json:"provider,omitempty"`
	Model     string   `json:"model,omitempty"`
	SummaryMD string   `json:"summary_md,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
}

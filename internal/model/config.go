package model

import "time"

// Config is the complete engine configuration.
type Config struct {
	Trust       TrustConfig       `yaml:"trust" mapstructure:"trust"`
	Consensus   ConsensusConfig   `yaml:"consensus" mapstructure:"consensus"`
	Sybil       SybilConfig       `yaml:"sybil" mapstructure:"sybil"`
	Lifecycle   LifecycleConfig   `yaml:"lifecycle" mapstructure:"lifecycle"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" mapstructure:"rate_limit"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
}

// TrustWeights are the factor weights used by the pure scorer.
// PenaltyScore is subtracted, the rest are added.
type TrustWeights struct {
	ReportingAccuracy     float64 `yaml:"reporting_accuracy" mapstructure:"reporting_accuracy"`
	ConfirmationAccuracy  float64 `yaml:"confirmation_accuracy" mapstructure:"confirmation_accuracy"`
	DisputeAccuracy       float64 `yaml:"dispute_accuracy" mapstructure:"dispute_accuracy"`
	ResponseTime          float64 `yaml:"response_time" mapstructure:"response_time"`
	LocationAccuracy      float64 `yaml:"location_accuracy" mapstructure:"location_accuracy"`
	ContributionFrequency float64 `yaml:"contribution_frequency" mapstructure:"contribution_frequency"`
	CommunityEndorsement  float64 `yaml:"community_endorsement" mapstructure:"community_endorsement"`
	PenaltyScore          float64 `yaml:"penalty_score" mapstructure:"penalty_score"`
}

// TrustConfig controls the trust score engine.
type TrustConfig struct {
	Weights TrustWeights `yaml:"weights" mapstructure:"weights"`

	// Elasticity band: scores above HighScore climb slower, scores
	// below LowScore move faster in both directions.
	HighScore      float64 `yaml:"high_score" mapstructure:"high_score"`
	LowScore       float64 `yaml:"low_score" mapstructure:"low_score"`
	HighMultiplier float64 `yaml:"high_multiplier" mapstructure:"high_multiplier"`
	LowMultiplier  float64 `yaml:"low_multiplier" mapstructure:"low_multiplier"`

	// ExpertiseBonus multiplies report deltas for users with relevant
	// expertise. With ExpertiseDomainMatch set (the default), the bonus
	// applies only when an expertise area matches the event category;
	// unset, any expertise boosts any report.
	ExpertiseBonus       float64 `yaml:"expertise_bonus" mapstructure:"expertise_bonus"`
	ExpertiseDomainMatch bool    `yaml:"expertise_domain_match" mapstructure:"expertise_domain_match"`

	// PenaltyDecay is subtracted from the penalty factor per successful
	// action when PenaltyDecayEnabled is set. Off by default.
	PenaltyDecayEnabled bool    `yaml:"penalty_decay_enabled" mapstructure:"penalty_decay_enabled"`
	PenaltyDecay        float64 `yaml:"penalty_decay" mapstructure:"penalty_decay"`
}

// ConsensusConfig controls verdict aggregation.
type ConsensusConfig struct {
	// MinVotes is the minimum vote count for any verdict other than
	// undecided. A single vote, however trusted, never reaches
	// consensus.
	MinVotes int `yaml:"min_votes" mapstructure:"min_votes"`

	// TieEpsilon is the relative margin below which a split is treated
	// as a near-tie and the verdict stays undecided.
	TieEpsilon float64 `yaml:"tie_epsilon" mapstructure:"tie_epsilon"`

	// DistanceDecayMeters is the e-folding scale of the proximity
	// weight: a vote at this distance from the event contributes
	// 1/e of its trust weight. Votes without a location keep full
	// weight.
	DistanceDecayMeters float64 `yaml:"distance_decay_meters" mapstructure:"distance_decay_meters"`

	// DistanceFloor is the minimum proximity multiplier, so distant
	// votes still count somewhat.
	DistanceFloor float64 `yaml:"distance_floor" mapstructure:"distance_floor"`
}

// SybilConfig controls the collusion detector thresholds.
type SybilConfig struct {
	LowTrustThreshold float64 `yaml:"low_trust_threshold" mapstructure:"low_trust_threshold"`
	// FloodFraction is the proportion of low-trust voters above which
	// the low-trust-flood anomaly fires.
	FloodFraction float64 `yaml:"flood_fraction" mapstructure:"flood_fraction"`
	// MinVoters is the minimum population before any statistical flag
	// can fire.
	MinVoters int `yaml:"min_voters" mapstructure:"min_voters"`
	// TimingWindow is the span within which a burst of votes from
	// distinct users is treated as coordinated.
	TimingWindow time.Duration `yaml:"timing_window" mapstructure:"timing_window"`
	// LocationGridMeters buckets vote coordinates; several distinct
	// users in one bucket raise the location-cluster flag.
	LocationGridMeters float64 `yaml:"location_grid_meters" mapstructure:"location_grid_meters"`
	// MinClusterSize is the number of co-located users needed for the
	// location-cluster flag.
	MinClusterSize int `yaml:"min_cluster_size" mapstructure:"min_cluster_size"`
	// MaxCycleLength bounds endorsement-cycle search.
	MaxCycleLength int `yaml:"max_cycle_length" mapstructure:"max_cycle_length"`
}

// LifecycleConfig controls event status transitions and retention.
type LifecycleConfig struct {
	// ActivationConfidence is the minimum consensus confidence for a
	// confirm verdict to move a pending event to active.
	ActivationConfidence float64 `yaml:"activation_confidence" mapstructure:"activation_confidence"`
	// PendingExpiry is how long a pending event may sit without
	// confirmation before it auto-closes.
	PendingExpiry time.Duration `yaml:"pending_expiry" mapstructure:"pending_expiry"`
	// RetentionBySeverity and RetentionByType are archival windows for
	// resolved/closed events. When both apply, the longer one wins.
	RetentionBySeverity map[EventSeverity]time.Duration `yaml:"retention_by_severity" mapstructure:"retention_by_severity"`
	RetentionByType     map[string]time.Duration        `yaml:"retention_by_type" mapstructure:"retention_by_type"`
	// DefaultRetention applies when neither table has an entry.
	DefaultRetention time.Duration `yaml:"default_retention" mapstructure:"default_retention"`
}

// RateLimitConfig throttles per-user actions as a burst-vote guard.
type RateLimitConfig struct {
	ActionsPerMinute float64 `yaml:"actions_per_minute" mapstructure:"actions_per_minute"`
	Burst            int     `yaml:"burst" mapstructure:"burst"`
}

// CacheConfig controls the trust score read-through cache.
type CacheConfig struct {
	Enabled bool          `yaml:"enabled" mapstructure:"enabled"`
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
}

// LLMConfig configures the optional incident summarizer. The summary
// never affects scoring or verdicts.
type LLMConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // "openai" or "" (disabled)
	Model     string `yaml:"model" mapstructure:"model"`
	APIKey    string `yaml:"-" mapstructure:"api_key"`
	BaseURL   string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout   int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// OutputConfig controls CLI output.
type OutputConfig struct {
	Verbose       bool `yaml:"verbose" mapstructure:"verbose"`
	IncludeFooter bool `yaml:"include_footer" mapstructure:"include_footer"`
}

// ConcurrencyConfig controls batch processing.
type ConcurrencyConfig struct {
	BatchWorkers int `yaml:"batch_workers" mapstructure:"batch_workers"`
}

// DefaultTrustWeights returns the reference factor weights.
func DefaultTrustWeights() TrustWeights {
	return TrustWeights{
		ReportingAccuracy:     0.25,
		ConfirmationAccuracy:  0.20,
		DisputeAccuracy:       0.15,
		ResponseTime:          0.10,
		LocationAccuracy:      0.10,
		ContributionFrequency: 0.10,
		CommunityEndorsement:  0.05,
		PenaltyScore:          0.05, // subtracted
	}
}

// DefaultConfig returns the complete default configuration.
func DefaultConfig() *Config {
	return &Config{
		Trust: TrustConfig{
			Weights:              DefaultTrustWeights(),
			HighScore:            0.7,
			LowScore:             0.3,
			HighMultiplier:       0.8,
			LowMultiplier:        1.2,
			ExpertiseBonus:       1.1,
			ExpertiseDomainMatch: true,
			PenaltyDecayEnabled:  false,
			PenaltyDecay:         0.01,
		},
		Consensus: ConsensusConfig{
			MinVotes:            2,
			TieEpsilon:          0.10,
			DistanceDecayMeters: 5000,
			DistanceFloor:       0.1,
		},
		Sybil: SybilConfig{
			LowTrustThreshold:  0.3,
			FloodFraction:      0.5,
			MinVoters:          3,
			TimingWindow:       60 * time.Second,
			LocationGridMeters: 50,
			MinClusterSize:     3,
			MaxCycleLength:     6,
		},
		Lifecycle: LifecycleConfig{
			ActivationConfidence: 0.6,
			PendingExpiry:        24 * time.Hour,
			RetentionBySeverity: map[EventSeverity]time.Duration{
				SeverityLow:      30 * 24 * time.Hour,
				SeverityMedium:   45 * 24 * time.Hour,
				SeverityHigh:     60 * 24 * time.Hour,
				SeverityCritical: 90 * 24 * time.Hour,
			},
			RetentionByType: map[string]time.Duration{
				"medical":          90 * 24 * time.Hour,
				"fire":             60 * 24 * time.Hour,
				"natural_disaster": 365 * 24 * time.Hour,
			},
			DefaultRetention: 30 * 24 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			ActionsPerMinute: 10,
			Burst:            5,
		},
		Cache: CacheConfig{
			Enabled: true,
			TTL:     5 * time.Minute,
		},
		LLM: LLMConfig{
			Provider:  "", // Disabled by default
			Timeout:   30,
			MaxTokens: 1000,
		},
		Output: OutputConfig{
			Verbose:       false,
			IncludeFooter: true,
		},
		Concurrency: ConcurrencyConfig{
			BatchWorkers: 4,
		},
	}
}

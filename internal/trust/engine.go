package trust

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crowdproof/crowdproof/internal/model"
	"github.com/crowdproof/crowdproof/internal/notify"
	"github.com/crowdproof/crowdproof/internal/store"
)

// ErrInvalidActionKind is returned when an update names an action type
// the engine does not know.
var ErrInvalidActionKind = errors.New("trust: invalid action kind")

// ErrInvalidOutcome is returned when an update names an unknown
// outcome.
var ErrInvalidOutcome = errors.New("trust: invalid action outcome")

// StartingScore is the neutral score assigned to first-time users.
const StartingScore = 0.5

// Engine applies trust-affecting actions against the store. Updates to
// one user are serialized by a per-user critical section; concurrent
// updates to different users do not contend.
type Engine struct {
	store    store.Store
	notifier notify.Notifier
	cfg      model.TrustConfig

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates a trust engine over the given store.
func NewEngine(s store.Store, n notify.Notifier, cfg model.TrustConfig) *Engine {
	if n == nil {
		n = notify.Nop{}
	}
	return &Engine{
		store:    s,
		notifier: n,
		cfg:      cfg,
		locks:    make(map[string]*sync.Mutex),
	}
}

// baseDelta is the signed score change for an (action, outcome) pair.
// Cases are enumerated exhaustively so a new action type is a
// compile-visible addition here, not a silently missing map key.
func baseDelta(action model.ActionType, outcome model.ActionOutcome) (float64, error) {
	switch action {
	case model.ActionReport:
		switch outcome {
		case model.OutcomeSuccess:
			return 0.05, nil
		case model.OutcomeFailure:
			return -0.10, nil
		case model.OutcomePending:
			return 0.01, nil
		}
	case model.ActionConfirm:
		switch outcome {
		case model.OutcomeSuccess:
			return 0.03, nil
		case model.OutcomeFailure:
			return -0.05, nil
		case model.OutcomePending:
			return 0.005, nil
		}
	case model.ActionDispute:
		switch outcome {
		case model.OutcomeSuccess:
			return 0.04, nil
		case model.OutcomeFailure:
			return -0.08, nil
		case model.OutcomePending:
			return 0.008, nil
		}
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidActionKind, action)
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidOutcome, outcome)
}

// ApplyAction applies one trust-affecting action for a user. The
// caller supplies the timestamp so the computation stays deterministic
// and testable. Metadata is recorded in the history entry; the
// "event_type" key, when present, drives expertise domain matching.
func (e *Engine) ApplyAction(userID, eventID string, action model.ActionType, outcome model.ActionOutcome, metadata map[string]any, now time.Time) (*model.TrustScore, error) {
	change, err := baseDelta(action, outcome)
	if err != nil {
		return nil, err
	}

	lock := e.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	score, err := e.store.GetTrustScore(userID)
	if errors.Is(err, store.ErrNotFound) {
		score = &model.TrustScore{
			UserID:  userID,
			Score:   StartingScore,
			Factors: model.DefaultTrustFactors(),
		}
	} else if err != nil {
		return nil, fmt.Errorf("load trust score: %w", err)
	}

	// Elasticity: high scores climb slower, low scores move faster in
	// both directions.
	switch {
	case score.Score > e.cfg.HighScore:
		change *= e.cfg.HighMultiplier
	case score.Score < e.cfg.LowScore:
		change *= e.cfg.LowMultiplier
	}

	if action == model.ActionReport && e.expertiseApplies(score.Factors, metadata) {
		change *= e.cfg.ExpertiseBonus
	}

	previous := score.Score
	score.PreviousScore = previous
	score.Score = clamp01(previous + change)
	score.LastUpdated = now

	e.applyFactorEffects(score, action, outcome)

	entry := model.TrustHistoryEntry{
		ID:            uuid.NewString(),
		UserID:        userID,
		EventID:       eventID,
		ActionType:    action,
		Change:        score.Score - previous,
		PreviousScore: previous,
		NewScore:      score.Score,
		Reason:        fmt.Sprintf("%s %s", action, outcome),
		Timestamp:     now,
		Metadata:      metadata,
	}

	if err := e.store.PutTrustScore(score); err != nil {
		return nil, fmt.Errorf("save trust score: %w", err)
	}
	if err := e.store.AppendHistory(entry); err != nil {
		return nil, fmt.Errorf("append history: %w", err)
	}

	e.notifier.TrustChanged(userID, score.Score-previous, score.Score)

	return score, nil
}

// expertiseApplies decides the expertise report bonus. With domain
// matching on, the user's expertise must cover the event category
// carried in metadata; otherwise any expertise qualifies.
func (e *Engine) expertiseApplies(factors model.TrustFactors, metadata map[string]any) bool {
	if !factors.HasExpertise() {
		return false
	}
	if !e.cfg.ExpertiseDomainMatch {
		return true
	}
	category, _ := metadata["event_type"].(string)
	return factors.HasExpertiseIn(category)
}

// applyFactorEffects mutates behavioral factors as a consequence of
// the action outcome.
func (e *Engine) applyFactorEffects(score *model.TrustScore, action model.ActionType, outcome model.ActionOutcome) {
	f := &score.Factors

	if action == model.ActionReport {
		switch outcome {
		case model.OutcomeSuccess:
			f.ReportingAccuracy = clamp01(f.ReportingAccuracy + 0.02)
			f.ContributionFrequency = minFloat(f.ContributionFrequency+0.1, 10)
		case model.OutcomeFailure:
			f.ReportingAccuracy = clamp01(f.ReportingAccuracy - 0.05)
			f.PenaltyScore = clamp01(f.PenaltyScore + 0.1)
		}
	}

	if outcome == model.OutcomeSuccess && e.cfg.PenaltyDecayEnabled {
		f.PenaltyScore = clamp01(f.PenaltyScore - e.cfg.PenaltyDecay)
	}
}

// Get returns the user's current trust score, or a neutral default for
// unknown users.
func (e *Engine) Get(userID string) (*model.TrustScore, error) {
	score, err := e.store.GetTrustScore(userID)
	if errors.Is(err, store.ErrNotFound) {
		return &model.TrustScore{
			UserID:  userID,
			Score:   StartingScore,
			Factors: model.DefaultTrustFactors(),
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return score, nil
}

func (e *Engine) userLock(userID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()

	lock, ok := e.locks[userID]
	if !ok {
		lock = &sync.Mutex{}
		e.locks[userID] = lock
	}
	return lock
}

func minFloat(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

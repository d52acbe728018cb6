// Package engine wires the trust, consensus, sybil, and lifecycle
// components into a single coordinator that processes reports, votes,
// and resolutions end to end.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/crowdproof/crowdproof/internal/consensus"
	"github.com/crowdproof/crowdproof/internal/geo"
	"github.com/crowdproof/crowdproof/internal/lifecycle"
	"github.com/crowdproof/crowdproof/internal/llm"
	"github.com/crowdproof/crowdproof/internal/model"
	"github.com/crowdproof/crowdproof/internal/notify"
	"github.com/crowdproof/crowdproof/internal/store"
	"github.com/crowdproof/crowdproof/internal/sybil"
	"github.com/crowdproof/crowdproof/internal/trust"
	"github.com/crowdproof/crowdproof/internal/worker"
)

// ErrRateLimited is returned when a user exceeds the per-user action
// budget.
var ErrRateLimited = errors.New("engine: rate limited")

// ErrEventNotOpen is returned for votes and updates on resolved or
// closed events.
var ErrEventNotOpen = errors.New("engine: event is not open for participation")

// Coordinator orchestrates the full report/vote/resolve flow. All
// mutation goes through it: it snapshots trust weights into votes,
// recomputes consensus after every change, and settles trust when an
// event reaches its final status.
type Coordinator struct {
	store      store.Store
	trust      *trust.Engine
	consensus  *consensus.Engine
	detector   *sybil.Detector
	lifecycle  *lifecycle.Controller
	notifier   notify.Notifier
	limiter    *worker.Limiter
	summarizer *llm.Summarizer // Optional LLM summarizer (nil if disabled)
	cfg        *model.Config

	// now is the clock for operations whose signature carries no
	// timestamp (Recompute, BuildReport). Overridable in tests.
	now func() time.Time

	mu         sync.Mutex
	eventLocks map[string]*sync.Mutex
}

// NewCoordinator creates a coordinator over the given store. A nil
// notifier falls back to the no-op notifier.
func NewCoordinator(cfg *model.Config, s store.Store, notifier notify.Notifier) *Coordinator {
	if notifier == nil {
		notifier = notify.Nop{}
	}

	detector := sybil.NewDetector(cfg.Sybil)

	// Create LLM summarizer if configured
	var summarizer *llm.Summarizer
	if cfg.LLM.Provider != "" {
		sm, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM))
		if err != nil {
			fmt.Printf("Warning: Failed to initialize LLM provider: %v\n", err)
		} else {
			summarizer = sm
		}
	}

	return &Coordinator{
		store:      s,
		trust:      trust.NewEngine(s, notifier, cfg.Trust),
		consensus:  consensus.NewEngine(cfg.Consensus, detector),
		detector:   detector,
		lifecycle:  lifecycle.NewController(cfg.Lifecycle),
		notifier:   notifier,
		limiter:    worker.NewLimiter(cfg.RateLimit.ActionsPerMinute, cfg.RateLimit.Burst),
		summarizer: summarizer,
		cfg:        cfg,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// ReportInput is the caller-supplied portion of a new event report.
type ReportInput struct {
	UserID      string
	Type        string
	Severity    model.EventSeverity
	Title       string
	Description string
	Location    *model.Coordinates
	Address     string
}

// SubmitReport records a new emergency event. The event starts pending
// with the reporter's current trust score as its initial weight, so a
// report from a proven user carries more signal from the first second.
func (c *Coordinator) SubmitReport(ctx context.Context, in ReportInput, now time.Time) (*model.EmergencyEvent, error) {
	if in.UserID == "" {
		return nil, errors.New("engine: reporter user ID is required")
	}
	if in.Title == "" {
		return nil, errors.New("engine: event title is required")
	}
	if !in.Severity.Valid() {
		return nil, fmt.Errorf("engine: invalid severity %q", in.Severity)
	}
	if !c.limiter.Allow(in.UserID) {
		return nil, ErrRateLimited
	}

	reporter, err := c.trust.Get(in.UserID)
	if err != nil {
		return nil, fmt.Errorf("engine: load reporter trust: %w", err)
	}

	event := &model.EmergencyEvent{
		ID:          uuid.NewString(),
		Type:        in.Type,
		Severity:    in.Severity,
		Title:       in.Title,
		Description: in.Description,
		Location:    in.Location,
		Address:     in.Address,
		ReportedBy:  in.UserID,
		ReportedAt:  now,
		Status:      model.StatusPending,
		TrustWeight: reporter.Score,
	}
	c.lifecycle.Validate(event)

	if err := c.store.PutEvent(event); err != nil {
		return nil, fmt.Errorf("engine: store event: %w", err)
	}
	return event, nil
}

// CastVote records or replaces a user's vote on an event and
// recomputes consensus. The voter's trust score is snapshotted into
// the vote; later trust changes do not retroactively reweight it.
func (c *Coordinator) CastVote(ctx context.Context, userID, eventID string, voteType model.VoteType, location *model.Coordinates, now time.Time) (model.ConsensusResult, error) {
	var zero model.ConsensusResult

	if voteType != model.VoteConfirm && voteType != model.VoteDispute {
		return zero, fmt.Errorf("engine: invalid vote type %q", voteType)
	}
	if !c.limiter.Allow(userID) {
		return zero, ErrRateLimited
	}

	event, err := c.store.GetEvent(eventID)
	if err != nil {
		return zero, err
	}
	if event.Status == model.StatusResolved || event.Status == model.StatusClosed {
		return zero, ErrEventNotOpen
	}
	if userID == event.ReportedBy {
		return zero, errors.New("engine: reporter cannot vote on own event")
	}

	voter, err := c.trust.Get(userID)
	if err != nil {
		return zero, fmt.Errorf("engine: load voter trust: %w", err)
	}

	vote := model.Vote{
		UserID:      userID,
		EventID:     eventID,
		VoteType:    voteType,
		TrustWeight: voter.Score,
		Timestamp:   now,
		Location:    location,
	}
	if location != nil && location.Valid() && event.Location != nil && event.Location.Valid() {
		d := geo.Distance(*location, *event.Location)
		vote.DistanceFromEvent = &d
	}

	if err := c.store.PutVote(vote); err != nil {
		return zero, fmt.Errorf("engine: store vote: %w", err)
	}

	return c.Recompute(ctx, eventID)
}

// Recompute recalculates consensus for an event from its current vote
// set, applies any resulting lifecycle transition, and settles trust
// if the event reached a final status. Implements worker.Recomputer.
func (c *Coordinator) Recompute(ctx context.Context, eventID string) (model.ConsensusResult, error) {
	var zero model.ConsensusResult
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	lock := c.eventLock(eventID)
	lock.Lock()
	defer lock.Unlock()

	event, err := c.store.GetEvent(eventID)
	if err != nil {
		return zero, err
	}
	votes, err := c.store.GetVotes(eventID)
	if err != nil {
		return zero, err
	}

	result := c.consensus.Calculate(votes, event)

	// Endorsement rings span events, so they are checked here rather
	// than inside the per-event vote pass.
	if endorsements, err := c.store.GetEndorsements(); err == nil && len(endorsements) > 0 {
		result.Anomalies = append(result.Anomalies, c.detector.DetectEndorsementCycles(endorsements)...)
	}

	now := c.now()
	prevStatus := event.Status
	changed := c.lifecycle.Apply(event, result, now)
	if !changed {
		changed = c.lifecycle.ExpireIfDue(event, now)
	}

	if changed {
		if err := c.store.PutEvent(event); err != nil {
			return zero, fmt.Errorf("engine: store event: %w", err)
		}
		c.notifier.EventStatusChanged(event.ID, prevStatus, event.Status)

		// A dispute close is a final verdict: score everyone now.
		if event.Status == model.StatusClosed && result.Consensus == model.VerdictDispute {
			c.settle(event, votes, model.VerdictDispute, now)
		}
	}

	c.notifier.ConsensusReached(event.ID, result)
	return result, nil
}

// ResolveEvent moves an active event to resolved and settles trust for
// every participant against the final outcome: the event was real, so
// the reporter and confirmers scored a success and disputers a failure.
func (c *Coordinator) ResolveEvent(ctx context.Context, eventID string, report model.ResolutionReport, now time.Time) error {
	lock := c.eventLock(eventID)
	lock.Lock()
	defer lock.Unlock()

	event, err := c.store.GetEvent(eventID)
	if err != nil {
		return err
	}

	prevStatus := event.Status
	if err := c.lifecycle.Resolve(event, report, now); err != nil {
		return err
	}
	if err := c.store.PutEvent(event); err != nil {
		return fmt.Errorf("engine: store event: %w", err)
	}
	c.notifier.EventStatusChanged(event.ID, prevStatus, event.Status)

	votes, err := c.store.GetVotes(eventID)
	if err != nil {
		return err
	}
	c.settle(event, votes, model.VerdictConfirm, now)
	return nil
}

// settle applies trust deltas to the reporter and every voter once an
// event's outcome is known. finalVerdict confirm means the event was
// real; dispute means it was not.
func (c *Coordinator) settle(event *model.EmergencyEvent, votes []model.Vote, finalVerdict model.Verdict, now time.Time) {
	metadata := map[string]any{"event_type": event.Type}

	reporterOutcome := model.OutcomeSuccess
	if finalVerdict == model.VerdictDispute {
		reporterOutcome = model.OutcomeFailure
	}
	if _, err := c.trust.ApplyAction(event.ReportedBy, event.ID, model.ActionReport, reporterOutcome, metadata, now); err != nil {
		fmt.Printf("Warning: trust settlement for reporter %s failed: %v\n", event.ReportedBy, err)
	}

	for _, vote := range votes {
		action := model.ActionConfirm
		agreed := finalVerdict == model.VerdictConfirm
		if vote.VoteType == model.VoteDispute {
			action = model.ActionDispute
			agreed = finalVerdict == model.VerdictDispute
		}
		outcome := model.OutcomeSuccess
		if !agreed {
			outcome = model.OutcomeFailure
		}
		if _, err := c.trust.ApplyAction(vote.UserID, event.ID, action, outcome, metadata, now); err != nil {
			fmt.Printf("Warning: trust settlement for voter %s failed: %v\n", vote.UserID, err)
		}
	}
}

// CloseEvent is the administrative close: it ends an event without a
// resolution report and without trust settlement, used when an event
// is superseded or withdrawn rather than verified either way.
func (c *Coordinator) CloseEvent(ctx context.Context, eventID string, now time.Time) error {
	lock := c.eventLock(eventID)
	lock.Lock()
	defer lock.Unlock()

	event, err := c.store.GetEvent(eventID)
	if err != nil {
		return err
	}

	prevStatus := event.Status
	if err := c.lifecycle.Close(event, now); err != nil {
		return err
	}
	if err := c.store.PutEvent(event); err != nil {
		return fmt.Errorf("engine: store event: %w", err)
	}
	c.notifier.EventStatusChanged(event.ID, prevStatus, event.Status)
	return nil
}

// AddUpdate appends a free-form update to an open event and re-runs
// integrity validation over the event record.
func (c *Coordinator) AddUpdate(ctx context.Context, eventID, userID, message string, data map[string]any, now time.Time) error {
	if !c.limiter.Allow(userID) {
		return ErrRateLimited
	}

	lock := c.eventLock(eventID)
	lock.Lock()
	defer lock.Unlock()

	event, err := c.store.GetEvent(eventID)
	if err != nil {
		return err
	}
	if event.Status == model.StatusResolved || event.Status == model.StatusClosed {
		return ErrEventNotOpen
	}

	event.Updates = append(event.Updates, model.EventUpdate{
		Timestamp: now,
		UserID:    userID,
		Message:   message,
		Data:      data,
	})
	c.lifecycle.Validate(event)

	return c.store.PutEvent(event)
}

// Endorse records a directed community endorsement. Self-endorsement
// is rejected; ring detection happens at consensus time.
func (c *Coordinator) Endorse(ctx context.Context, fromUserID, toUserID string, now time.Time) error {
	if fromUserID == toUserID {
		return errors.New("engine: self-endorsement is not allowed")
	}
	if !c.limiter.Allow(fromUserID) {
		return ErrRateLimited
	}
	return c.store.PutEndorsement(model.Endorsement{
		FromUserID: fromUserID,
		ToUserID:   toUserID,
		CreatedAt:  now,
	})
}

// TrustScore returns a user's current trust score, defaulting new
// users to the neutral starting value.
func (c *Coordinator) TrustScore(userID string) (*model.TrustScore, error) {
	return c.trust.Get(userID)
}

// TrustHistory returns a user's audit trail in application order.
func (c *Coordinator) TrustHistory(userID string) ([]model.TrustHistoryEntry, error) {
	return c.store.GetHistory(userID)
}

// ExpireDue closes pending events whose expiry window has lapsed and
// returns the IDs of events it closed.
func (c *Coordinator) ExpireDue(ctx context.Context, now time.Time) ([]string, error) {
	events, err := c.store.ListEvents()
	if err != nil {
		return nil, err
	}

	var closed []string
	for _, event := range events {
		if err := ctx.Err(); err != nil {
			return closed, err
		}
		if !c.lifecycle.ExpireIfDue(event, now) {
			continue
		}
		if err := c.store.PutEvent(event); err != nil {
			return closed, fmt.Errorf("engine: store event: %w", err)
		}
		c.notifier.EventStatusChanged(event.ID, model.StatusPending, event.Status)
		closed = append(closed, event.ID)
	}
	return closed, nil
}

// ArchiveEligible lists resolved and closed events whose retention
// window has passed.
func (c *Coordinator) ArchiveEligible(now time.Time) ([]*model.EmergencyEvent, error) {
	events, err := c.store.ListEvents()
	if err != nil {
		return nil, err
	}

	var eligible []*model.EmergencyEvent
	for _, event := range events {
		if c.lifecycle.ArchiveEligible(event, now) {
			eligible = append(eligible, event)
		}
	}
	return eligible, nil
}

// BuildReport assembles the full consensus report for an event,
// including the optional LLM summary. The summary is generated after
// the verdict and never affects it.
func (c *Coordinator) BuildReport(ctx context.Context, eventID string) (*model.ConsensusReport, error) {
	result, err := c.Recompute(ctx, eventID)
	if err != nil {
		return nil, err
	}
	event, err := c.store.GetEvent(eventID)
	if err != nil {
		return nil, err
	}

	report := &model.ConsensusReport{
		Event:       event,
		Result:      result,
		GeneratedAt: c.now(),
	}

	if c.summarizer != nil && c.summarizer.IsEnabled() {
		summary, err := c.summarizer.GenerateSummary(ctx, *report)
		if err != nil {
			fmt.Printf("Warning: LLM summary generation failed: %v\n", err)
		} else if summary != nil {
			report.LLM = summary
		}
	}

	return report, nil
}

func (c *Coordinator) eventLock(eventID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.eventLocks == nil {
		c.eventLocks = make(map[string]*sync.Mutex)
	}
	lock, ok := c.eventLocks[eventID]
	if !ok {
		lock = &sync.Mutex{}
		c.eventLocks[eventID] = lock
	}
	return lock
}

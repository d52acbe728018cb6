// Package lifecycle owns event status transitions: pending events
// activate on confirmed consensus, close on dispute or expiration, and
// resolved/closed events age toward archival.
package lifecycle

import (
	"fmt"
	"math"
	"time"

	"github.com/crowdproof/crowdproof/internal/model"
)

// Controller applies status transitions driven by consensus results
// and explicit resolution actions.
type Controller struct {
	cfg model.LifecycleConfig
}

// NewController creates a lifecycle controller.
func NewController(cfg model.LifecycleConfig) *Controller {
	return &Controller{cfg: cfg}
}

// Apply folds a consensus result into the event's status. It returns
// true when the status changed. Only pending events react to
// consensus; active and resolved events change through Resolve, Close,
// or expiry.
func (c *Controller) Apply(event *model.EmergencyEvent, result model.ConsensusResult, now time.Time) bool {
	if event.Status != model.StatusPending {
		return false
	}

	switch result.Consensus {
	case model.VerdictConfirm:
		if result.Confidence < c.cfg.ActivationConfidence {
			return false
		}
		event.Status = model.StatusActive
		// The community's weighted view replaces the reporter-derived
		// initial weight.
		event.TrustWeight = result.WeightedConfirmScore
		return true

	case model.VerdictDispute:
		event.Status = model.StatusClosed
		event.ClosedAt = &now
		event.TrustWeight = result.WeightedDisputeScore
		return true
	}

	return false
}

// Resolve moves an active event to resolved, attaching the final
// report. Resolving a non-active event is a caller error.
func (c *Controller) Resolve(event *model.EmergencyEvent, report model.ResolutionReport, now time.Time) error {
	if event.Status != model.StatusActive {
		return fmt.Errorf("lifecycle: cannot resolve event in status %q", event.Status)
	}
	event.Status = model.StatusResolved
	event.ResolvedAt = &now
	event.Resolution = &report
	return nil
}

// Close moves an active or resolved event to closed (dispute-driven
// closure or administrative shutdown).
func (c *Controller) Close(event *model.EmergencyEvent, now time.Time) error {
	switch event.Status {
	case model.StatusActive, model.StatusResolved, model.StatusPending:
		event.Status = model.StatusClosed
		event.ClosedAt = &now
		return nil
	}
	return fmt.Errorf("lifecycle: cannot close event in status %q", event.Status)
}

// Expired reports whether a pending event has sat unconfirmed past the
// expiration window and should auto-close.
func (c *Controller) Expired(event *model.EmergencyEvent, now time.Time) bool {
	if event.Status != model.StatusPending {
		return false
	}
	return now.Sub(event.ReportedAt) > c.cfg.PendingExpiry
}

// ExpireIfDue closes a pending event whose window has passed. Returns
// true when the event was closed.
func (c *Controller) ExpireIfDue(event *model.EmergencyEvent, now time.Time) bool {
	if !c.Expired(event, now) {
		return false
	}
	event.Status = model.StatusClosed
	event.ClosedAt = &now
	return true
}

// ArchiveEligible is the pure retention predicate: a resolved or
// closed event becomes eligible for cold storage once the longer of
// its severity and type retention windows has passed. Archival itself
// is an external collaborator's job.
func (c *Controller) ArchiveEligible(event *model.EmergencyEvent, now time.Time) bool {
	var endedAt time.Time
	switch event.Status {
	case model.StatusResolved:
		if event.ResolvedAt == nil {
			return false
		}
		endedAt = *event.ResolvedAt
	case model.StatusClosed:
		if event.ClosedAt == nil {
			return false
		}
		endedAt = *event.ClosedAt
	default:
		return false
	}

	return now.Sub(endedAt) > c.retention(event)
}

// retention picks the effective window: the longer of the severity and
// type entries, falling back to the default when neither table knows
// the event.
func (c *Controller) retention(event *model.EmergencyEvent) time.Duration {
	var window time.Duration
	matched := false

	if d, ok := c.cfg.RetentionBySeverity[event.Severity]; ok {
		window = d
		matched = true
	}
	if d, ok := c.cfg.RetentionByType[event.Type]; ok && d > window {
		window = d
		matched = true
	}
	if !matched {
		return c.cfg.DefaultRetention
	}
	return window
}

// Validate checks an event for malformed field values and flags the
// record for review instead of rejecting it. During an emergency a
// flagged-but-present record beats a dropped one. Returns true when
// the event is clean.
func (c *Controller) Validate(event *model.EmergencyEvent) bool {
	var notes []string

	if event.Location != nil && !locationUsable(*event.Location) {
		notes = append(notes, fmt.Sprintf("malformed coordinates: %.4f,%.4f",
			event.Location.Latitude, event.Location.Longitude))
	}
	if event.TrustWeight < 0 || math.IsNaN(event.TrustWeight) {
		notes = append(notes, fmt.Sprintf("invalid trust weight: %f", event.TrustWeight))
	}
	if event.ReportedBy == "" {
		notes = append(notes, "missing reporter")
	}
	if !event.Severity.Valid() {
		notes = append(notes, fmt.Sprintf("unknown severity: %q", event.Severity))
	}

	if len(notes) == 0 {
		return true
	}

	event.DataIntegrityFlag = true
	event.ReviewRequired = true
	event.IntegrityNotes = append(event.IntegrityNotes, notes...)
	return false
}

func locationUsable(c model.Coordinates) bool {
	if math.IsNaN(c.Latitude) || math.IsNaN(c.Longitude) {
		return false
	}
	return c.Valid()
}

// Package notify carries the logical events the engines emit. An
// external dispatcher may turn these into push/SMS/email; the engines
// never depend on delivery.
package notify

import (
	"go.uber.org/zap"

	"github.com/crowdproof/crowdproof/internal/model"
)

// Notifier receives logical engine events.
type Notifier interface {
	// TrustChanged fires after a trust update is persisted.
	TrustChanged(userID string, delta, newScore float64)

	// ConsensusReached fires when an event's verdict is recomputed.
	ConsensusReached(eventID string, result model.ConsensusResult)

	// EventStatusChanged fires on a lifecycle transition.
	EventStatusChanged(eventID string, from, to model.EventStatus)
}

// Nop discards all events. Used by tests and pure-compute callers.
type Nop struct{}

func (Nop) TrustChanged(string, float64, float64)              {}
func (Nop) ConsensusReached(string, model.ConsensusResult)     {}
func (Nop) EventStatusChanged(string, model.EventStatus, model.EventStatus) {}

// ZapNotifier logs every engine event as structured output. It is the
// default sink when no external dispatcher is wired in.
type ZapNotifier struct {
	log *zap.Logger
}

// NewZapNotifier creates a notifier over the given logger.
func NewZapNotifier(log *zap.Logger) *ZapNotifier {
	return &ZapNotifier{log: log}
}

func (n *ZapNotifier) TrustChanged(userID string, delta, newScore float64) {
	n.log.Info("trust score changed",
		zap.String("user_id", userID),
		zap.Float64("delta", delta),
		zap.Float64("new_score", newScore),
	)
}

func (n *ZapNotifier) ConsensusReached(eventID string, result model.ConsensusResult) {
	n.log.Info("consensus reached",
		zap.String("event_id", eventID),
		zap.String("consensus", string(result.Consensus)),
		zap.Float64("confidence", result.Confidence),
		zap.Int("total_votes", result.TotalVotes),
		zap.Int("anomalies", len(result.Anomalies)),
	)
}

func (n *ZapNotifier) EventStatusChanged(eventID string, from, to model.EventStatus) {
	n.log.Info("event status changed",
		zap.String("event_id", eventID),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
	)
}

// Package store defines the persistence contract the engines depend
// on. The engines hold no global state; everything lives behind this
// interface so production can plug in a real database while tests use
// the in-memory implementation.
package store

import (
	"errors"

	"github.com/crowdproof/crowdproof/internal/model"
)

// ErrNotFound is returned when the requested entity does not exist.
var ErrNotFound = errors.New("store: not found")

// Store is the key/row persistence contract. Implementations must
// guarantee per-entity atomicity (one writer per user or event at a
// time); no multi-row transactional guarantees are required.
type Store interface {
	// GetTrustScore returns ErrNotFound for unknown users.
	GetTrustScore(userID string) (*model.TrustScore, error)
	PutTrustScore(score *model.TrustScore) error

	// AppendHistory appends an immutable audit record. Entries for one
	// user arrive in the order their causing actions were applied.
	AppendHistory(entry model.TrustHistoryEntry) error
	GetHistory(userID string) ([]model.TrustHistoryEntry, error)
	// ClearHistory is the only way history shrinks.
	ClearHistory(userID string) error

	GetEvent(id string) (*model.EmergencyEvent, error)
	PutEvent(event *model.EmergencyEvent) error
	ListEvents() ([]*model.EmergencyEvent, error)

	// PutVote upserts: a second vote from the same user on the same
	// event replaces the first (last-write-wins).
	PutVote(vote model.Vote) error
	GetVotes(eventID string) ([]model.Vote, error)

	PutEndorsement(e model.Endorsement) error
	GetEndorsements() ([]model.Endorsement, error)
}

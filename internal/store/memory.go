package store

import (
	"sync"

	"github.com/crowdproof/crowdproof/internal/model"
)

// MemoryStore is the in-memory Store used by tests and the CLI. A
// single RWMutex gives per-entity atomicity; vote upserts and history
// appends are serialized.
type MemoryStore struct {
	mu           sync.RWMutex
	scores       map[string]*model.TrustScore
	history      map[string][]model.TrustHistoryEntry
	events       map[string]*model.EmergencyEvent
	eventOrder   []string
	votes        map[string][]model.Vote // eventID -> votes in arrival order
	endorsements []model.Endorsement
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		scores:  make(map[string]*model.TrustScore),
		history: make(map[string][]model.TrustHistoryEntry),
		events:  make(map[string]*model.EmergencyEvent),
		votes:   make(map[string][]model.Vote),
	}
}

// GetTrustScore retrieves a user's trust score.
func (s *MemoryStore) GetTrustScore(userID string) (*model.TrustScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	score, ok := s.scores[userID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *score
	return &cp, nil
}

// PutTrustScore stores a user's trust score.
func (s *MemoryStore) PutTrustScore(score *model.TrustScore) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *score
	s.scores[score.UserID] = &cp
	return nil
}

// AppendHistory appends an audit record to the user's history.
func (s *MemoryStore) AppendHistory(entry model.TrustHistoryEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[entry.UserID] = append(s.history[entry.UserID], entry)
	return nil
}

// GetHistory returns the user's history in append order.
func (s *MemoryStore) GetHistory(userID string) ([]model.TrustHistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := s.history[userID]
	out := make([]model.TrustHistoryEntry, len(entries))
	copy(out, entries)
	return out, nil
}

// ClearHistory removes all history for a user.
func (s *MemoryStore) ClearHistory(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.history, userID)
	return nil
}

// GetEvent retrieves an event by ID.
func (s *MemoryStore) GetEvent(id string) (*model.EmergencyEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	event, ok := s.events[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *event
	return &cp, nil
}

// PutEvent stores an event.
func (s *MemoryStore) PutEvent(event *model.EmergencyEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ID]; !exists {
		s.eventOrder = append(s.eventOrder, event.ID)
	}
	cp := *event
	s.events[event.ID] = &cp
	return nil
}

// ListEvents returns all events in insertion order.
func (s *MemoryStore) ListEvents() ([]*model.EmergencyEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*model.EmergencyEvent, 0, len(s.eventOrder))
	for _, id := range s.eventOrder {
		cp := *s.events[id]
		out = append(out, &cp)
	}
	return out, nil
}

// PutVote upserts a vote. A repeat vote by the same user on the same
// event replaces the earlier one in place, keeping arrival order for
// the rest.
func (s *MemoryStore) PutVote(vote model.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	votes := s.votes[vote.EventID]
	for i, existing := range votes {
		if existing.UserID == vote.UserID {
			votes[i] = vote
			return nil
		}
	}
	s.votes[vote.EventID] = append(votes, vote)
	return nil
}

// GetVotes returns all votes for an event in arrival order.
func (s *MemoryStore) GetVotes(eventID string) ([]model.Vote, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	votes := s.votes[eventID]
	out := make([]model.Vote, len(votes))
	copy(out, votes)
	return out, nil
}

// PutEndorsement records a community endorsement.
func (s *MemoryStore) PutEndorsement(e model.Endorsement) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.endorsements = append(s.endorsements, e)
	return nil
}

// GetEndorsements returns all endorsements in arrival order.
func (s *MemoryStore) GetEndorsements() ([]model.Endorsement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Endorsement, len(s.endorsements))
	copy(out, s.endorsements)
	return out, nil
}

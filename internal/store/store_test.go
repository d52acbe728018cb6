package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/crowdproof/crowdproof/internal/cache"
	"github.com/crowdproof/crowdproof/internal/model"
)

func TestMemoryStore_TrustScoreRoundTrip(t *testing.T) {
	s := NewMemoryStore()

	if _, err := s.GetTrustScore("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown user, got %v", err)
	}

	score := &model.TrustScore{UserID: "u1", Score: 0.7, Factors: model.DefaultTrustFactors()}
	if err := s.PutTrustScore(score); err != nil {
		t.Fatalf("PutTrustScore failed: %v", err)
	}

	got, err := s.GetTrustScore("u1")
	if err != nil {
		t.Fatalf("GetTrustScore failed: %v", err)
	}
	if got.Score != 0.7 {
		t.Errorf("Expected score 0.7, got %f", got.Score)
	}

	// The store hands out copies, not aliases.
	got.Score = 0.1
	again, _ := s.GetTrustScore("u1")
	if again.Score != 0.7 {
		t.Errorf("Expected stored score unchanged after caller mutation, got %f", again.Score)
	}
}

func TestMemoryStore_HistoryAppendOrder(t *testing.T) {
	s := NewMemoryStore()

	for i, id := range []string{"h1", "h2", "h3"} {
		err := s.AppendHistory(model.TrustHistoryEntry{
			ID:        id,
			UserID:    "u1",
			Timestamp: time.Now().UTC().Add(time.Duration(i) * time.Second),
		})
		if err != nil {
			t.Fatalf("AppendHistory failed: %v", err)
		}
	}

	history, err := s.GetHistory("u1")
	if err != nil {
		t.Fatalf("GetHistory failed: %v", err)
	}
	if len(history) != 3 {
		t.Fatalf("Expected 3 entries, got %d", len(history))
	}
	for i, id := range []string{"h1", "h2", "h3"} {
		if history[i].ID != id {
			t.Errorf("Expected entry %d to be %s, got %s", i, id, history[i].ID)
		}
	}

	if err := s.ClearHistory("u1"); err != nil {
		t.Fatalf("ClearHistory failed: %v", err)
	}
	history, _ = s.GetHistory("u1")
	if len(history) != 0 {
		t.Errorf("Expected empty history after clear, got %d entries", len(history))
	}
}

func TestMemoryStore_ListEventsInsertionOrder(t *testing.T) {
	s := NewMemoryStore()

	for _, id := range []string{"e3", "e1", "e2"} {
		if err := s.PutEvent(&model.EmergencyEvent{ID: id, Title: id}); err != nil {
			t.Fatalf("PutEvent failed: %v", err)
		}
	}

	// Re-put must not duplicate.
	if err := s.PutEvent(&model.EmergencyEvent{ID: "e1", Title: "updated"}); err != nil {
		t.Fatalf("PutEvent failed: %v", err)
	}

	events, err := s.ListEvents()
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("Expected 3 events, got %d", len(events))
	}
	for i, id := range []string{"e3", "e1", "e2"} {
		if events[i].ID != id {
			t.Errorf("Expected position %d to be %s, got %s", i, id, events[i].ID)
		}
	}
	if events[1].Title != "updated" {
		t.Errorf("Expected re-put to update in place, got title %s", events[1].Title)
	}
}

func TestMemoryStore_VoteUpsert(t *testing.T) {
	s := NewMemoryStore()
	now := time.Now().UTC()

	_ = s.PutVote(model.Vote{UserID: "a", EventID: "e1", VoteType: model.VoteConfirm, Timestamp: now})
	_ = s.PutVote(model.Vote{UserID: "b", EventID: "e1", VoteType: model.VoteConfirm, Timestamp: now})
	_ = s.PutVote(model.Vote{UserID: "a", EventID: "e1", VoteType: model.VoteDispute, Timestamp: now.Add(time.Minute)})

	votes, err := s.GetVotes("e1")
	if err != nil {
		t.Fatalf("GetVotes failed: %v", err)
	}
	if len(votes) != 2 {
		t.Fatalf("Expected 2 votes after upsert, got %d", len(votes))
	}
	// Replacement keeps the original position.
	if votes[0].UserID != "a" || votes[0].VoteType != model.VoteDispute {
		t.Errorf("Expected a's vote replaced in place, got %+v", votes[0])
	}
	if votes[1].UserID != "b" {
		t.Errorf("Expected b's vote untouched, got %+v", votes[1])
	}
}

func TestFileStore_SnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "store.json")

	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	_ = fs.PutTrustScore(&model.TrustScore{UserID: "u1", Score: 0.8})
	_ = fs.AppendHistory(model.TrustHistoryEntry{ID: "h1", UserID: "u1"})
	_ = fs.PutEvent(&model.EmergencyEvent{ID: "e1", Title: "Flood", Status: model.StatusPending})
	_ = fs.PutVote(model.Vote{UserID: "u2", EventID: "e1", VoteType: model.VoteConfirm, TrustWeight: 0.6})
	_ = fs.PutEndorsement(model.Endorsement{FromUserID: "u1", ToUserID: "u2"})

	if err := fs.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("Reload failed: %v", err)
	}

	score, err := reloaded.GetTrustScore("u1")
	if err != nil || score.Score != 0.8 {
		t.Errorf("Expected trust score to survive reload, got %v / %v", score, err)
	}
	history, _ := reloaded.GetHistory("u1")
	if len(history) != 1 || history[0].ID != "h1" {
		t.Errorf("Expected history to survive reload, got %v", history)
	}
	event, err := reloaded.GetEvent("e1")
	if err != nil || event.Title != "Flood" {
		t.Errorf("Expected event to survive reload, got %v / %v", event, err)
	}
	votes, _ := reloaded.GetVotes("e1")
	if len(votes) != 1 || votes[0].TrustWeight != 0.6 {
		t.Errorf("Expected vote to survive reload, got %v", votes)
	}
	endorsements, _ := reloaded.GetEndorsements()
	if len(endorsements) != 1 || endorsements[0].ToUserID != "u2" {
		t.Errorf("Expected endorsement to survive reload, got %v", endorsements)
	}
}

func TestFileStore_MissingFileStartsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")

	fs, err := NewFileStore(path)
	if err != nil {
		t.Fatalf("NewFileStore on missing file failed: %v", err)
	}

	events, err := fs.ListEvents()
	if err != nil {
		t.Fatalf("ListEvents failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("Expected empty store, got %d events", len(events))
	}
}

func TestCachedStore_ReadThroughAndInvalidate(t *testing.T) {
	inner := NewMemoryStore()
	c := cache.NewMemoryCache(time.Minute, time.Minute)
	s := NewCachedStore(inner, c, time.Minute)

	_ = inner.PutTrustScore(&model.TrustScore{UserID: "u1", Score: 0.6})

	// First read populates the cache.
	score, err := s.GetTrustScore("u1")
	if err != nil || score.Score != 0.6 {
		t.Fatalf("Expected cached read of 0.6, got %v / %v", score, err)
	}

	// A write behind the cache's back stays invisible until invalidated.
	_ = inner.PutTrustScore(&model.TrustScore{UserID: "u1", Score: 0.9})
	score, _ = s.GetTrustScore("u1")
	if score.Score != 0.6 {
		t.Errorf("Expected stale cached value 0.6, got %f", score.Score)
	}

	// Writing through the cached store invalidates.
	if err := s.PutTrustScore(&model.TrustScore{UserID: "u1", Score: 0.3}); err != nil {
		t.Fatalf("PutTrustScore failed: %v", err)
	}
	score, _ = s.GetTrustScore("u1")
	if score.Score != 0.3 {
		t.Errorf("Expected fresh value 0.3 after invalidation, got %f", score.Score)
	}
}

func TestCachedStore_MissPassesThrough(t *testing.T) {
	s := NewCachedStore(NewMemoryStore(), cache.NewMemoryCache(time.Minute, time.Minute), time.Minute)

	if _, err := s.GetTrustScore("ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound through the cache, got %v", err)
	}
}

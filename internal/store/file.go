package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/crowdproof/crowdproof/internal/model"
)

// FileStore is a MemoryStore that can snapshot itself to a JSON file
// and load back. The snapshot format is the explicit serialize/
// deserialize boundary: in-memory maps become arrays on disk and are
// rebuilt on load, so the on-disk shape never leaks into the engines.
type FileStore struct {
	*MemoryStore
	path string
}

// snapshot is the on-disk representation. Maps are flattened into
// arrays; keys are reconstructed from the records themselves.
type snapshot struct {
	Version      int                       `json:"version"`
	Scores       []model.TrustScore        `json:"scores"`
	History      []model.TrustHistoryEntry `json:"history"`
	Events       []model.EmergencyEvent    `json:"events"`
	Votes        []model.Vote              `json:"votes"`
	Endorsements []model.Endorsement       `json:"endorsements"`
}

const snapshotVersion = 1

// NewFileStore creates a file-backed store. If the file exists, its
// snapshot is loaded; a missing file starts empty.
func NewFileStore(path string) (*FileStore, error) {
	fs := &FileStore{
		MemoryStore: NewMemoryStore(),
		path:        path,
	}
	if err := fs.load(); err != nil {
		return nil, err
	}
	return fs, nil
}

func (s *FileStore) load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read snapshot: %w", err)
	}

	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}

	for i := range snap.Scores {
		if err := s.PutTrustScore(&snap.Scores[i]); err != nil {
			return err
		}
	}
	for _, entry := range snap.History {
		if err := s.AppendHistory(entry); err != nil {
			return err
		}
	}
	for i := range snap.Events {
		if err := s.PutEvent(&snap.Events[i]); err != nil {
			return err
		}
	}
	for _, vote := range snap.Votes {
		if err := s.PutVote(vote); err != nil {
			return err
		}
	}
	for _, e := range snap.Endorsements {
		if err := s.PutEndorsement(e); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the current state to the snapshot file.
func (s *FileStore) Save() error {
	s.mu.RLock()
	snap := snapshot{Version: snapshotVersion}
	for _, score := range s.scores {
		snap.Scores = append(snap.Scores, *score)
	}
	for _, entries := range s.history {
		snap.History = append(snap.History, entries...)
	}
	for _, id := range s.eventOrder {
		snap.Events = append(snap.Events, *s.events[id])
	}
	for _, votes := range s.votes {
		snap.Votes = append(snap.Votes, votes...)
	}
	snap.Endorsements = append(snap.Endorsements, s.endorsements...)
	s.mu.RUnlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}
	if err := os.WriteFile(s.path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

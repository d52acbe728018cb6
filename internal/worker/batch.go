package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/crowdproof/crowdproof/internal/model"
)

// Recomputer recomputes consensus for a single event.
type Recomputer interface {
	Recompute(ctx context.Context, eventID string) (model.ConsensusResult, error)
}

// RecomputeJob recomputes one event's consensus.
type RecomputeJob struct {
	EventID    string
	Recomputer Recomputer
}

// Execute runs the recompute job.
func (j *RecomputeJob) Execute(ctx context.Context) Result {
	result, err := j.Recomputer.Recompute(ctx, j.EventID)
	return &RecomputeResult{
		EventID: j.EventID,
		Result:  result,
		Error:   err,
	}
}

// RecomputeResult is the outcome for one event. A failed event carries
// its error; it never blocks the rest of the batch.
type RecomputeResult struct {
	EventID string
	Result  model.ConsensusResult
	Error   error
}

// GetError returns the error from the recompute result.
func (r *RecomputeResult) GetError() error {
	return r.Error
}

// BatchProcessor recomputes consensus for many events concurrently.
type BatchProcessor struct {
	recomputer  Recomputer
	concurrency int
}

// NewBatchProcessor creates a new batch processor.
func NewBatchProcessor(recomputer Recomputer, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		recomputer:  recomputer,
		concurrency: concurrency,
	}
}

// ProcessEvents recomputes all listed events concurrently. Partial
// completion is acceptable: one event failing or being cancelled never
// blocks the verdicts of the others.
func (b *BatchProcessor) ProcessEvents(ctx context.Context, eventIDs []string) []*RecomputeResult {
	if len(eventIDs) == 0 {
		return []*RecomputeResult{}
	}

	pool := NewPool(b.concurrency)
	pool.Start()

	for _, id := range eventIDs {
		pool.Submit(&RecomputeJob{
			EventID:    id,
			Recomputer: b.recomputer,
		})
	}

	results := pool.Wait()

	out := make([]*RecomputeResult, 0, len(results))
	for _, r := range results {
		if rr, ok := r.(*RecomputeResult); ok {
			out = append(out, rr)
		}
	}
	return out
}

// ProcessFile reads event IDs from a file and recomputes them.
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*RecomputeResult, error) {
	ids, err := ReadEventIDsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read event IDs: %w", err)
	}

	return b.ProcessEvents(ctx, ids), nil
}

// ReadEventIDsFromFile reads event IDs from a file (one per line).
func ReadEventIDsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var ids []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Deduplicate IDs
		if !seen[line] {
			seen[line] = true
			ids = append(ids, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return ids, nil
}

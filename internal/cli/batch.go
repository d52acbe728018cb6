package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/crowdproof/crowdproof/internal/engine"
	"github.com/crowdproof/crowdproof/internal/model"
	"github.com/crowdproof/crowdproof/internal/store"
	"github.com/crowdproof/crowdproof/internal/worker"
)

var (
	concurrency  int
	storePath    string
	outputDir    string
	batchTimeout time.Duration
)

// batchCmd represents the batch command
var batchCmd = &cobra.Command{
	Use:   "batch <event-ids-file>",
	Short: "Recompute consensus for multiple events in parallel",
	Long: `Batch recomputes consensus for many events concurrently:
- Read event IDs from input file (one per line, # comments allowed)
- Recompute verdicts in parallel with configurable worker count
- Apply any resulting lifecycle transitions
- Write an individual report for each event

The store file holds events, votes, and trust scores; changed
statuses are saved back when the batch completes.

Example:
  crowdproof batch events.txt --store store.json
  crowdproof batch events.txt --store store.json --concurrency 10 --output-dir ./reports`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().IntVar(&concurrency, "concurrency", runtime.NumCPU(), "number of concurrent workers")
	batchCmd.Flags().StringVar(&storePath, "store", "store.json", "store snapshot file")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "./crowdproof-reports", "output directory for reports")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]
	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Crowdproof Batch Processing\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Store:        %s\n", storePath)
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", concurrency)
	fmt.Fprintf(os.Stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "  Timeout:      %v\n", batchTimeout)
	fmt.Fprintf(os.Stderr, "\n")

	cfg := model.DefaultConfig()
	cfg.Output.Verbose = verbose
	cfg.Concurrency.BatchWorkers = concurrency

	s, err := store.NewFileStore(storePath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	coordinator := engine.NewCoordinator(cfg, s, nil)
	processor := worker.NewBatchProcessor(coordinator, concurrency)

	fmt.Fprintf(os.Stderr, "⚙️  Reading event IDs from file...\n")
	results, err := processor.ProcessFile(ctx, file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Loaded %d events\n", len(results))
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "⚙️  Recomputing with %d workers...\n", concurrency)
	fmt.Fprintf(os.Stderr, "\n")

	renderer := engine.NewRenderer(cfg.Output.IncludeFooter)
	successCount := 0
	failureCount := 0

	for _, result := range results {
		if result.Error != nil {
			failureCount++
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.EventID, result.Error)
			continue
		}

		successCount++

		event, err := s.GetEvent(result.EventID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: load event: %v\n", result.EventID, err)
			continue
		}

		report := &model.ConsensusReport{
			Event:       event,
			Result:      result.Result,
			GeneratedAt: time.Now().UTC(),
		}

		slug := sanitizeFilename(result.EventID)
		jsonPath := filepath.Join(outputDir, slug+".json")
		mdPath := filepath.Join(outputDir, slug+".md")

		if err := renderer.RenderJSON(report, jsonPath); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.EventID, err)
			continue
		}
		if err := renderer.RenderMarkdown(report, mdPath); err != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: failed to write Markdown: %v\n", result.EventID, err)
			continue
		}

		fmt.Fprintf(os.Stderr, "✓ %s: %s (confidence %.2f)\n", result.EventID, result.Result.Consensus, result.Result.Confidence)
	}

	// Lifecycle transitions may have changed event statuses.
	if err := s.Save(); err != nil {
		return fmt.Errorf("save store: %w", err)
	}

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "  Batch Complete\n")
	fmt.Fprintf(os.Stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:     %d events\n", len(results))
	fmt.Fprintf(os.Stderr, "  Success:   %d\n", successCount)
	fmt.Fprintf(os.Stderr, "  Failures:  %d\n", failureCount)
	fmt.Fprintf(os.Stderr, "  Output:    %s\n", outputDir)
	fmt.Fprintf(os.Stderr, "\n")

	return nil
}

// sanitizeFilename sanitizes a string for use as a filename
func sanitizeFilename(s string) string {
	replacer := strings.NewReplacer(
		"/", "_",
		"\\", "_",
		":", "_",
		"*", "_",
		"?", "_",
		"\"", "_",
		"<", "_",
		">", "_",
		"|", "_",
		" ", "-",
	)
	s = replacer.Replace(s)

	// Limit length
	if len(s) > 100 {
		s = s[:100]
	}

	return s
}

package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"

	"github.com/openballot/ballotdedup/internal/types"
)

// IngestBatch runs the ingestion pipeline over many raw records with a
// bounded worker pool. Per-record failures are isolated: one bad record
// never aborts the batch, and every rejection, retry, and failure is
// counted in the returned summary. The run is recorded in the store's
// ingest-run log for audit.
func (e *Engine) IngestBatch(ctx context.Context, raws []*types.RawMeasure) (*types.BatchResult, error) {
	result := &types.BatchResult{
		RunID:     uuid.New().String(),
		StartedAt: time.Now().UTC(),
		Checked:   len(raws),
	}

	if err := e.store.StartIngestRun(ctx, result.RunID, "batch"); err != nil {
		return nil, err
	}

	sem := semaphore.NewWeighted(int64(e.cfg.IngestWorkers))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for i, raw := range raws {
		if err := sem.Acquire(ctx, 1); err != nil {
			// Context canceled; count the rest as failed so the
			// summary still accounts for every record.
			mu.Lock()
			for j := i; j < len(raws); j++ {
				result.Failed++
				result.Errors = append(result.Errors,
					fmt.Sprintf("record %d: %v", j, err))
			}
			mu.Unlock()
			break
		}

		wg.Add(1)
		go func(idx int, raw *types.RawMeasure) {
			defer wg.Done()
			defer sem.Release(1)

			res, err := e.Ingest(ctx, raw)

			mu.Lock()
			defer mu.Unlock()
			result.Retried += res.Retries
			switch res.Status {
			case types.StatusInserted:
				result.Inserted++
			case types.StatusUpdated:
				result.Updated++
			case types.StatusUnchanged:
				result.Unchanged++
			case types.StatusDuplicate:
				result.Duplicates++
			case types.StatusCrossSource:
				result.CrossSource++
			case types.StatusRejected:
				result.Rejected++
				result.Errors = append(result.Errors,
					fmt.Sprintf("record %d: %v", idx, err))
			case types.StatusFailed:
				result.Failed++
				result.Errors = append(result.Errors,
					fmt.Sprintf("record %d: %v", idx, err))
			}
		}(i, raw)
	}

	wg.Wait()
	result.CompletedAt = time.Now().UTC()

	// Rejections count against the run too: the audit row should never
	// read "success" when records were dropped.
	status := "success"
	var errMsg string
	if result.Failed > 0 || result.Rejected > 0 {
		status = "partial"
		errMsg = fmt.Sprintf("%d records failed, %d rejected", result.Failed, result.Rejected)
	}
	if err := e.store.FinishIngestRun(ctx, result.RunID, result, status, errMsg); err != nil {
		log.Printf("[engine] failed to finalize ingest run %s: %v", result.RunID, err)
	}

	log.Printf("[engine] ingest run %s: %d checked, %d inserted, %d updated, %d unchanged, %d duplicates, %d cross-source, %d rejected, %d failed",
		result.RunID, result.Checked, result.Inserted, result.Updated,
		result.Unchanged, result.Duplicates, result.CrossSource,
		result.Rejected, result.Failed)

	return result, nil
}

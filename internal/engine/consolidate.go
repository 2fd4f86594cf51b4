package engine

import (
	"context"
	"fmt"
	"log"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/openballot/ballotdedup/internal/types"
)

// ConsolidateAll discovers every cross-source duplicate group and
// consolidates each one: score the members, pick a master, merge the
// rest into it, and commit the whole group atomically.
//
// Groups never share records (the grouping key is the cross-source
// fingerprint, and each active record has exactly one), so distinct
// groups run in parallel. A failed group is logged and skipped; it
// stays unconsolidated rather than half-applied.
func (e *Engine) ConsolidateAll(ctx context.Context) (*types.ConsolidateResult, error) {
	fps, err := e.store.CrossSourceGroups(ctx)
	if err != nil {
		return nil, err
	}

	result := &types.ConsolidateResult{}
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.IngestWorkers)

	for _, fp := range fps {
		fp := fp
		g.Go(func() error {
			merged, cerr := e.consolidateGroup(gctx, fp)

			mu.Lock()
			defer mu.Unlock()
			if cerr != nil {
				result.GroupsFailed++
				result.Errors = append(result.Errors, fmt.Sprintf("group %s: %v", fp, cerr))
				log.Printf("[engine] consolidation of group %s failed: %v", fp, cerr)
				return nil // group errors are isolated
			}
			result.GroupsProcessed++
			result.RecordsMerged += merged
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return result, err
	}
	return result, nil
}

// consolidateGroup merges one duplicate group, returning how many
// follower records were folded into the master.
func (e *Engine) consolidateGroup(ctx context.Context, fp string) (int, error) {
	group, err := e.store.FindActiveByMeasureFingerprint(ctx, fp)
	if err != nil {
		return 0, err
	}
	if len(group) < 2 {
		// Raced with another consolidation pass; nothing to do.
		return 0, nil
	}

	master := e.selector.SelectMaster(group)

	updates, err := e.merger.Merge(fp, group, master)
	if err != nil {
		return 0, err
	}

	followerIDs := make([]int64, 0, len(group)-1)
	for _, m := range group {
		if m.ID != master.ID {
			followerIDs = append(followerIDs, m.ID)
		}
	}

	// merged_from only grows: the previous set, every follower, and each
	// follower's own merge set (a demoted master hands its history over).
	mergedFrom := unionIDs(master.MergedFrom, followerIDs)
	for _, m := range group {
		if m.ID != master.ID {
			mergedFrom = unionIDs(mergedFrom, m.MergedFrom)
		}
	}

	err = e.withRetry(ctx, nil, func() error {
		return e.store.ConsolidateGroup(ctx, master.ID, updates, mergedFrom, followerIDs)
	})
	if err != nil {
		return 0, err
	}

	log.Printf("[engine] group %s: master %d (%s), merged %d followers",
		fp, master.ID, master.DataSource, len(followerIDs))
	return len(followerIDs), nil
}

// unionIDs merges two id lists preserving the order of first
// appearance.
func unionIDs(existing, added []int64) []int64 {
	seen := make(map[int64]bool, len(existing)+len(added))
	out := make([]int64, 0, len(existing)+len(added))
	for _, id := range existing {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	for _, id := range added {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

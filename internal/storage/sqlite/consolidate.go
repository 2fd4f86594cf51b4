package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/openballot/ballotdedup/internal/types"
)

// CrossSourceGroups returns the measure fingerprints shared by more than
// one active record. Because the exact fingerprint (measure fingerprint
// plus source) is unique, a shared measure fingerprint always means
// records from distinct sources.
func (s *SQLiteStorage) CrossSourceGroups(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT measure_fingerprint
		FROM measures
		WHERE is_duplicate = 0
		GROUP BY measure_fingerprint
		HAVING COUNT(*) > 1
		ORDER BY COUNT(*) DESC, measure_fingerprint
	`)
	if err != nil {
		return nil, &types.StoreUnavailableError{Op: "list cross-source groups", Err: err}
	}
	defer rows.Close()

	var fps []string
	for rows.Next() {
		var fp string
		if err := rows.Scan(&fp); err != nil {
			return nil, &types.StoreUnavailableError{Op: "list cross-source groups", Err: err}
		}
		fps = append(fps, fp)
	}
	if err := rows.Err(); err != nil {
		return nil, &types.StoreUnavailableError{Op: "list cross-source groups", Err: err}
	}
	return fps, nil
}

// ConsolidateGroup commits one duplicate group's state in a single
// transaction: the master's merged fields and merged_from set, the
// followers' duplicate flags, and the repointing of any records that
// previously followed a now-demoted master. Either everything lands or
// nothing does.
func (s *SQLiteStorage) ConsolidateGroup(ctx context.Context, masterID int64, masterUpdates map[string]interface{}, mergedFrom []int64, followerIDs []int64) error {
	for field := range masterUpdates {
		if !allowedUpdateFields[field] {
			return fmt.Errorf("field %s cannot be updated", field)
		}
	}

	conn, err := s.db.Conn(ctx)
	if err != nil {
		return &types.StoreUnavailableError{Op: "consolidate group", Err: err}
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, "BEGIN IMMEDIATE"); err != nil {
		return &types.StoreUnavailableError{Op: "consolidate group", Err: err}
	}
	committed := false
	defer func() {
		if !committed {
			_, _ = conn.ExecContext(context.Background(), "ROLLBACK")
		}
	}()

	now := time.Now().UTC()

	mergedJSON, err := json.Marshal(mergedFrom)
	if err != nil {
		return fmt.Errorf("failed to encode merged_from: %w", err)
	}

	// Master: merged fields, promoted out of any previous duplicate
	// state, merged_from replaced with the grown set.
	setClauses := make([]string, 0, len(masterUpdates)+6)
	args := make([]interface{}, 0, len(masterUpdates)+7)
	for field, value := range masterUpdates {
		setClauses = append(setClauses, field+" = ?")
		args = append(args, value)
	}
	setClauses = append(setClauses,
		"merged_from = ?",
		"is_duplicate = 0", "duplicate_type = ''", "master_id = NULL",
		"updated_at = ?", "update_count = update_count + 1")
	args = append(args, string(mergedJSON), now, masterID)

	query := "UPDATE measures SET " + strings.Join(setClauses, ", ") + " WHERE id = ?"
	if _, err := conn.ExecContext(ctx, query, args...); err != nil {
		return &types.StoreUnavailableError{Op: "consolidate group", Err: err}
	}

	for _, fid := range followerIDs {
		_, err := conn.ExecContext(ctx, `
			UPDATE measures
			SET is_duplicate = 1, duplicate_type = ?, master_id = ?, updated_at = ?
			WHERE id = ?
		`, string(types.DuplicateCrossSource), masterID, now, fid)
		if err != nil {
			return &types.StoreUnavailableError{Op: "consolidate group", Err: err}
		}
	}

	// No chains: anything that followed a record just demoted to
	// follower is repointed at the new master in the same transaction.
	if len(followerIDs) > 0 {
		placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(followerIDs)), ", ")
		repointArgs := make([]interface{}, 0, len(followerIDs)+3)
		repointArgs = append(repointArgs, masterID, now)
		for _, fid := range followerIDs {
			repointArgs = append(repointArgs, fid)
		}
		repointArgs = append(repointArgs, masterID)
		_, err := conn.ExecContext(ctx, `
			UPDATE measures
			SET master_id = ?, updated_at = ?
			WHERE master_id IN (`+placeholders+`) AND id != ?
		`, repointArgs...)
		if err != nil {
			return &types.StoreUnavailableError{Op: "consolidate group", Err: err}
		}
	}

	if _, err := conn.ExecContext(ctx, "COMMIT"); err != nil {
		return &types.StoreUnavailableError{Op: "consolidate group", Err: err}
	}
	committed = true
	return nil
}

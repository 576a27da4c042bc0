package storage

import (
	"context"
	"database/sql"
	"fmt"
)

// SelectUnchecked returns the ids of tweets that have never been looked up,
// ascending by id
func (d *DB) SelectUnchecked(ctx context.Context) ([]string, error) {
	ids, err := d.selectIDs(ctx, "SELECT id FROM tweets WHERE checked = 0 ORDER BY id ASC")
	if err != nil {
		return nil, fmt.Errorf("select unchecked: %w", err)
	}
	return ids, nil
}

// SelectDeletable returns the ids of tweets matching c that are not yet
// deleted, ascending by id
func (d *DB) SelectDeletable(ctx context.Context, c DeleteCriteria) ([]string, error) {
	candidates, err := d.selectIDs(ctx, `
	SELECT id FROM tweets
	WHERE deleted = 0 AND created_at < ? AND likes <= ? AND retweets <= ?
	ORDER BY id ASC
	`, c.Before, c.MaxLikes, c.MaxRetweets)
	if err != nil {
		return nil, fmt.Errorf("select deletable: %w", err)
	}

	if len(c.Exclude) == 0 {
		return candidates, nil
	}

	excluded := make(map[string]struct{}, len(c.Exclude))
	for _, id := range c.Exclude {
		excluded[id] = struct{}{}
	}

	ids := candidates[:0]
	for _, id := range candidates {
		if _, skip := excluded[id]; !skip {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (d *DB) selectIDs(ctx context.Context, query string, args ...any) ([]string, error) {
	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// MarkChecked marks ids as looked up, returning the number of rows touched.
// Rows that were already checked still count.
func (d *DB) MarkChecked(ctx context.Context, ids []string) (int, error) {
	n, err := d.markIDs(ctx, "UPDATE tweets SET checked = 1 WHERE id = ?", ids)
	if err != nil {
		return 0, fmt.Errorf("mark checked: %w", err)
	}
	return n, nil
}

// MarkDeleted marks ids as deleted (and therefore checked), returning the
// number of rows touched. Rows that were already deleted still count.
func (d *DB) MarkDeleted(ctx context.Context, ids []string) (int, error) {
	n, err := d.markIDs(ctx, "UPDATE tweets SET deleted = 1, checked = 1 WHERE id = ?", ids)
	if err != nil {
		return 0, fmt.Errorf("mark deleted: %w", err)
	}
	return n, nil
}

// markIDs runs query once per id inside a single transaction
func (d *DB) markIDs(ctx context.Context, query string, ids []string) (int, error) {
	total := 0
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("prepare update: %w", err)
		}
		defer stmt.Close()

		for _, id := range ids {
			res, err := stmt.ExecContext(ctx, id)
			if err != nil {
				return fmt.Errorf("update %s: %w", id, err)
			}
			n, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			total += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return total, nil
}

package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"camdash/internal/dto"
	"camdash/internal/model"
)

// DefaultActivityLimit caps listings that do not ask for a limit.
const DefaultActivityLimit = 100

// ActivityRepository implements repository.ActivityRepository for SQLite.
type ActivityRepository struct {
	db *DB
}

// NewActivityRepository creates a new SQLite activity repository.
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db}
}

// Insert appends an entry to the journal. A zero CreatedAt is set to now.
func (r *ActivityRepository) Insert(ctx context.Context, a *model.Activity) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	result, err := r.db.Conn().ExecContext(ctx, `
		INSERT INTO activity (kind, subject, detail, created_at)
		VALUES (?, ?, ?, ?)
	`, string(a.Kind), a.Subject, a.Detail, a.CreatedAt.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert activity: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read activity id: %w", err)
	}
	a.ID = id
	return id, nil
}

// Recent lists entries newest first.
func (r *ActivityRepository) Recent(ctx context.Context, filter *dto.ActivityFilter) ([]model.Activity, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	var (
		where []string
		args  []any
	)
	limit := DefaultActivityLimit
	if filter != nil {
		if filter.Kind != "" {
			where = append(where, "kind = ?")
			args = append(args, string(filter.Kind))
		}
		if !filter.Since.IsZero() {
			where = append(where, "created_at >= ?")
			args = append(args, filter.Since.UTC())
		}
		if filter.Limit > 0 {
			limit = filter.Limit
		}
	}

	query := "SELECT id, kind, subject, detail, created_at FROM activity"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.Conn().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query activity: %w", err)
	}
	defer rows.Close()

	activities := make([]model.Activity, 0)
	for rows.Next() {
		var (
			a    model.Activity
			kind string
		)
		if err := rows.Scan(&a.ID, &kind, &a.Subject, &a.Detail, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan activity: %w", err)
		}
		a.Kind = model.ActivityKind(kind)
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate activity: %w", err)
	}
	return activities, nil
}

// CountByKind tallies the journal per kind.
func (r *ActivityRepository) CountByKind(ctx context.Context) (map[model.ActivityKind]int, error) {
	r.db.RLock()
	defer r.db.RUnlock()

	rows, err := r.db.Conn().QueryContext(ctx, "SELECT kind, COUNT(*) FROM activity GROUP BY kind")
	if err != nil {
		return nil, fmt.Errorf("failed to count activity: %w", err)
	}
	defer rows.Close()

	counts := make(map[model.ActivityKind]int)
	for rows.Next() {
		var (
			kind  string
			count int
		)
		if err := rows.Scan(&kind, &count); err != nil {
			return nil, fmt.Errorf("failed to scan activity count: %w", err)
		}
		counts[model.ActivityKind(kind)] = count
	}
	return counts, rows.Err()
}

// DeleteBefore prunes entries older than t and returns how many were removed.
func (r *ActivityRepository) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	r.db.Lock()
	defer r.db.Unlock()

	result, err := r.db.Conn().ExecContext(ctx, "DELETE FROM activity WHERE created_at < ?", t.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune activity: %w", err)
	}
	return result.RowsAffected()
}

// DeleteAll empties the journal.
func (r *ActivityRepository) DeleteAll(ctx context.Context) error {
	r.db.Lock()
	defer r.db.Unlock()

	if _, err := r.db.Conn().ExecContext(ctx, "DELETE FROM activity"); err != nil {
		return fmt.Errorf("failed to delete activity: %w", err)
	}
	return nil
}

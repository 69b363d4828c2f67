package sqlite

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camdash/internal/dto"
	"camdash/internal/model"
	"camdash/internal/repository"
)

var _ repository.ActivityRepository = (*ActivityRepository)(nil)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "nested", "test.db")
	db, err := New(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = os.Stat(dbPath)
	require.NoError(t, err, "database file should exist")
	return db
}

func TestActivityRepository_InsertAndRecent(t *testing.T) {
	ctx := context.Background()
	repo := NewActivityRepository(newTestDB(t))

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	entries := []model.Activity{
		{Kind: model.ActivityMark, Subject: "lojaA - P1", Detail: "dark", CreatedAt: base},
		{Kind: model.ActivityUnmark, Subject: "lojaA - P1", CreatedAt: base.Add(time.Minute)},
		{Kind: model.ActivityMark, Subject: "lojaB - P2", CreatedAt: base.Add(2 * time.Minute)},
	}
	for i := range entries {
		id, err := repo.Insert(ctx, &entries[i])
		require.NoError(t, err)
		assert.Equal(t, id, entries[i].ID)
	}

	all, err := repo.Recent(ctx, nil)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "lojaB - P2", all[0].Subject, "newest first")
	assert.True(t, all[2].CreatedAt.Equal(base))
	assert.Equal(t, "dark", all[2].Detail)

	marks, err := repo.Recent(ctx, &dto.ActivityFilter{Kind: model.ActivityMark, Limit: 1})
	require.NoError(t, err)
	require.Len(t, marks, 1)
	assert.Equal(t, "lojaB - P2", marks[0].Subject)

	since, err := repo.Recent(ctx, &dto.ActivityFilter{Since: base.Add(time.Minute)})
	require.NoError(t, err)
	assert.Len(t, since, 2)

	counts, err := repo.CountByKind(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[model.ActivityKind]int{model.ActivityMark: 2, model.ActivityUnmark: 1}, counts)
}

func TestActivityRepository_InsertDefaultsTimestamp(t *testing.T) {
	ctx := context.Background()
	repo := NewActivityRepository(newTestDB(t))

	a := &model.Activity{Kind: model.ActivityExport, Subject: "marked"}
	_, err := repo.Insert(ctx, a)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), a.CreatedAt, time.Minute)
}

func TestActivityRepository_Delete(t *testing.T) {
	ctx := context.Background()
	repo := NewActivityRepository(newTestDB(t))

	old := time.Now().Add(-48 * time.Hour)
	for _, at := range []time.Time{old, old.Add(time.Hour), time.Now()} {
		_, err := repo.Insert(ctx, &model.Activity{Kind: model.ActivityAnalyze, CreatedAt: at})
		require.NoError(t, err)
	}

	n, err := repo.DeleteBefore(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	left, err := repo.Recent(ctx, nil)
	require.NoError(t, err)
	assert.Len(t, left, 1)

	require.NoError(t, repo.DeleteAll(ctx))
	left, err = repo.Recent(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, left)
}

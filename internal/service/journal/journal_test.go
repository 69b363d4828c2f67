package journal

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"camdash/internal/dto"
	"camdash/internal/logger"
	"camdash/internal/model"
	"camdash/internal/repository/sqlite"
)

func TestJournal_RecordAndList(t *testing.T) {
	db, err := sqlite.New(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	j := New(sqlite.NewActivityRepository(db), logger.NewDiscard())

	// A cancelled request still gets its entry written.
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	j.Record(ctx, model.ActivityReferenceSet, "lojaA - P1", "cameras/a.jpg")
	j.Record(context.Background(), model.ActivityReferenceDelete, "lojaA - P1", "")

	entries, err := j.Recent(context.Background(), &dto.ActivityFilter{Kind: model.ActivityReferenceSet})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "cameras/a.jpg", entries[0].Detail)

	summary, err := j.Summary(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary[model.ActivityReferenceDelete])
}

func TestJournal_ClosedDatabaseIsNotFatal(t *testing.T) {
	db, err := sqlite.New(filepath.Join(t.TempDir(), "journal.db"))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	j := New(sqlite.NewActivityRepository(db), logger.NewDiscard())
	assert.NotPanics(t, func() {
		j.Record(context.Background(), model.ActivityMark, "lojaA - P1", "")
	})

	_, err = j.Recent(context.Background(), nil)
	require.Error(t, err)
	assert.False(t, errors.Is(err, context.Canceled))
}

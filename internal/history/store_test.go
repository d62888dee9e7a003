package history

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"depwatch/internal/deprecated"
)

func TestRecordAndReadRuns(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	defer store.Close()

	ctx := context.Background()

	first, err := store.RecordRun(ctx, 12, map[deprecated.Kind]int{
		deprecated.DeprecatedMethod: 2,
		deprecated.DeprecatedModule: 1,
	}, 150*time.Millisecond)
	require.NoError(t, err)
	require.NotEmpty(t, first)

	second, err := store.RecordRun(ctx, 12, nil, 90*time.Millisecond)
	require.NoError(t, err)
	require.NotEqual(t, first, second)

	runs, err := store.RecentRuns(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)

	// Newest first; the second run had no findings.
	require.Equal(t, second, runs[0].ID)
	require.Equal(t, 0, runs[0].TotalCount)

	require.Equal(t, first, runs[1].ID)
	require.Equal(t, 2, runs[1].MethodCount)
	require.Equal(t, 1, runs[1].ModuleCount)
	require.Equal(t, 3, runs[1].TotalCount)
	require.Equal(t, int64(150), runs[1].DurationMS)
	require.Equal(t, SchemaVersion, runs[1].SchemaVersion)
	require.WithinDuration(t, time.Now(), runs[1].Timestamp, time.Minute)
}

func TestEnsureSchemaIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")

	store, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	// Reopening must not re-apply migrations.
	store, err = Open(path)
	require.NoError(t, err)
	require.NoError(t, store.Close())
}

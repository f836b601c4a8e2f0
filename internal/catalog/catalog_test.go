package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BlueQuartzSoftware/TDMSData-CDME/reorg"
)

func sampleSummary(id string, started time.Time) *reorg.Summary {
	return &reorg.Summary{
		RunID:           id,
		Label:           "B42",
		Source:          "/data/build42",
		Phase:           reorg.PhaseDone,
		Started:         started,
		Elapsed:         90 * time.Second,
		SlicesLocated:   120,
		SlicesProcessed: 118,
		Skipped: []reorg.SkippedSlice{
			{Ordinal: 17, Path: "/data/build42/Slice0017.tdms", Reason: "bad segment"},
			{Ordinal: 55, Path: "/data/build42/Slice0055.tdms", Reason: "truncated"},
		},
		Parts: []reorg.PartSummary{
			{ID: "cone", Slices: 118, First: 1, Last: 120, Missing: 2},
			{ID: "cylinder", Slices: 60, First: 61, Last: 120, Missing: 0},
		},
	}
}

func TestRecordAndRuns(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	require.NoError(t, err)
	defer c.Close()

	started := time.Date(2026, 8, 25, 9, 30, 0, 0, time.UTC)
	ctx := context.Background()
	require.NoError(t, c.Record(ctx, sampleSummary("run-1", started)))

	runs, err := c.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	r := runs[0]
	assert.Equal(t, "run-1", r.ID)
	assert.Equal(t, "B42", r.Label)
	assert.Equal(t, "/data/build42", r.Source)
	assert.Equal(t, string(reorg.PhaseDone), r.Phase)
	assert.True(t, r.Started.Equal(started))
	assert.Equal(t, 90*time.Second, r.Elapsed)
	assert.Equal(t, 120, r.SlicesLocated)
	assert.Equal(t, 118, r.SlicesProcessed)
	assert.Equal(t, 2, r.Parts)
	assert.Empty(t, r.Error)

	parts, err := c.PartsOf(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.Equal(t, Part{Part: "cone", Slices: 118, First: 1, Last: 120, Missing: 2}, parts[0])
	assert.Equal(t, Part{Part: "cylinder", Slices: 60, First: 61, Last: 120, Missing: 0}, parts[1])

	skipped, err := c.SliceErrorsOf(ctx, "run-1")
	require.NoError(t, err)
	require.Len(t, skipped, 2)
	assert.Equal(t, SliceError{Ordinal: 17, Path: "/data/build42/Slice0017.tdms", Error: "bad segment"}, skipped[0])
}

func TestRunsNewestFirstWithLimit(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	base := time.Date(2026, 8, 25, 9, 0, 0, 0, time.UTC)
	ctx := context.Background()
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, c.Record(ctx, sampleSummary(id, base.Add(time.Duration(i)*time.Hour))))
	}

	runs, err := c.Runs(ctx, 2)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, "run-c", runs[0].ID)
	assert.Equal(t, "run-b", runs[1].ID)
}

func TestRecordFailedRun(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	sum := &reorg.Summary{
		RunID:   "run-x",
		Source:  "/data/broken",
		Phase:   reorg.PhaseFailed,
		Started: time.Date(2026, 8, 25, 10, 0, 0, 0, time.UTC),
		Error:   "slice 4: bad segment",
	}
	ctx := context.Background()
	require.NoError(t, c.Record(ctx, sum))

	runs, err := c.Runs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, string(reorg.PhaseFailed), runs[0].Phase)
	assert.Equal(t, "slice 4: bad segment", runs[0].Error)
	assert.Zero(t, runs[0].Parts)
}

func TestCatalogPersistsAcrossOpens(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	c1, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, c1.Record(ctx, sampleSummary("run-1", time.Now())))
	require.NoError(t, c1.Close())

	_, err = os.Stat(filepath.Join(dir, FileName))
	require.NoError(t, err)

	c2, err := Open(dir)
	require.NoError(t, err)
	defer c2.Close()

	runs, err := c2.Runs(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestQueriesOnUnknownRun(t *testing.T) {
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	parts, err := c.PartsOf(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, parts)

	skipped, err := c.SliceErrorsOf(ctx, "ghost")
	require.NoError(t, err)
	assert.Empty(t, skipped)
}

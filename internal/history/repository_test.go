package history_test

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/history"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/logger"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init(false, false, io.Discard)
	m.Run()
}

func newTestRepository(t *testing.T) history.Repository {
	t.Helper()

	cfg := history.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "history.db")

	repo, err := history.NewRepository(cfg, logger.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func snapshotAt(ts time.Time, cpu float64) *metrics.Snapshot {
	return &metrics.Snapshot{
		Timestamp:       ts,
		CPUUsage:        cpu,
		MemoryTotal:     16 << 30,
		MemoryUsed:      4 << 30,
		MemoryAvailable: 12 << 30,
		DiskTotal:       500 << 30,
		DiskUsed:        100 << 30,
		DiskAvailable:   400 << 30,
		NetworkSentKbps: 10,
		NetworkRecvKbps: 20,
		ProcessCount:    100,
		SystemUptime:    7200,
	}
}

func TestAppendAndQueryRoundTrip(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	cpuTemp := 61.5

	snapshot := snapshotAt(now, 33.3)
	snapshot.CPUTemperature = &cpuTemp
	snapshot.GPU = &metrics.GPUInfo{
		Name:        "GeForce RTX 3070",
		Usage:       45,
		MemoryTotal: 8 << 30,
		MemoryUsed:  2 << 30,
	}

	record, err := repo.Append(ctx, snapshot)
	require.NoError(t, err)
	assert.Positive(t, record.ID)

	records, err := repo.Query(ctx, now.Add(-time.Minute), now.Add(time.Minute), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)

	got := records[0]
	assert.Equal(t, record.ID, got.ID)
	assert.True(t, got.Timestamp.Equal(now), "timestamps survive the unix-milli round trip")
	assert.Equal(t, 33.3, got.CPUUsage)
	assert.Equal(t, snapshot.MemoryTotal, got.MemoryTotal)
	require.NotNil(t, got.CPUTemperature)
	assert.Equal(t, 61.5, *got.CPUTemperature)
	require.NotNil(t, got.GPU)
	assert.Equal(t, "GeForce RTX 3070", got.GPU.Name)
	assert.Nil(t, got.GPU.Temperature)
	assert.Nil(t, got.MaxTemperature)
}

func TestAppendWithoutGPU(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	_, err := repo.Append(ctx, snapshotAt(time.Now().UTC(), 10))
	require.NoError(t, err)

	records, err := repo.QueryHours(ctx, 1)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].GPU)
	assert.Nil(t, records[0].CPUTemperature)
}

func TestAppendNil(t *testing.T) {
	repo := newTestRepository(t)

	_, err := repo.Append(context.Background(), nil)
	assert.Error(t, err)
}

func TestQueryOrderingAndIDs(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Millisecond)
	for i := 0; i < 5; i++ {
		_, err := repo.Append(ctx, snapshotAt(base.Add(time.Duration(i)*time.Second), float64(i)))
		require.NoError(t, err)
	}

	records, err := repo.Query(ctx, base, base.Add(time.Minute), 100)
	require.NoError(t, err)
	require.Len(t, records, 5)

	for i := 1; i < len(records); i++ {
		assert.Greater(t, records[i].ID, records[i-1].ID, "ids increase with insertion order")
		assert.True(t, records[i].Timestamp.After(records[i-1].Timestamp), "records come back oldest first")
	}
}

func TestQueryLimitFallback(t *testing.T) {
	cfg := history.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "history.db")
	cfg.QueryLimit = 3

	repo, err := history.NewRepository(cfg, logger.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	ctx := context.Background()
	base := time.Now().UTC()
	for i := 0; i < 10; i++ {
		_, err := repo.Append(ctx, snapshotAt(base.Add(time.Duration(i)*time.Second), 1))
		require.NoError(t, err)
	}

	records, err := repo.Query(ctx, base.Add(-time.Minute), base.Add(time.Minute), 0)
	require.NoError(t, err)
	assert.Len(t, records, 3, "non-positive limit falls back to the configured default")
}

func TestQueryInvertedRange(t *testing.T) {
	repo := newTestRepository(t)

	now := time.Now().UTC()
	_, err := repo.Query(context.Background(), now, now.Add(-time.Hour), 10)
	assert.Error(t, err)
}

func TestPurgeOlderThan(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	now := time.Now().UTC()
	_, err := repo.Append(ctx, snapshotAt(now.Add(-48*time.Hour), 1))
	require.NoError(t, err)
	_, err = repo.Append(ctx, snapshotAt(now, 2))
	require.NoError(t, err)

	removed, err := repo.PurgeOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	removed, err = repo.PurgeOlderThan(ctx, now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Zero(t, removed, "purging an already-clean horizon removes nothing")

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestAverageCPU(t *testing.T) {
	repo := newTestRepository(t)
	ctx := context.Background()

	now := time.Now().UTC()
	for _, cpu := range []float64{10, 20, 30} {
		_, err := repo.Append(ctx, snapshotAt(now, cpu))
		require.NoError(t, err)
	}
	// Outside the one-hour window.
	_, err := repo.Append(ctx, snapshotAt(now.Add(-2*time.Hour), 100))
	require.NoError(t, err)

	avg, err := repo.AverageCPU(ctx, 1)
	require.NoError(t, err)
	assert.InDelta(t, 20.0, avg, 1e-9)
}

func TestAverageCPUEmpty(t *testing.T) {
	repo := newTestRepository(t)

	avg, err := repo.AverageCPU(context.Background(), 1)
	require.NoError(t, err)
	assert.Zero(t, avg, "an empty table averages to zero, not an error")
}

func TestRepositoryReopen(t *testing.T) {
	cfg := history.DefaultConfig()
	cfg.DBPath = filepath.Join(t.TempDir(), "history.db")

	repo, err := history.NewRepository(cfg, logger.Default())
	require.NoError(t, err)

	_, err = repo.Append(context.Background(), snapshotAt(time.Now().UTC(), 5))
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	// Schema init is idempotent and data survives the reopen.
	repo, err = history.NewRepository(cfg, logger.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	count, err := repo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestPing(t *testing.T) {
	repo := newTestRepository(t)
	assert.NoError(t, repo.Ping(context.Background()))
}

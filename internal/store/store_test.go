package store_test

import (
	"sync"
	"testing"
	"time"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/metrics"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotAt(seq int) *metrics.Snapshot {
	// MemoryUsed mirrors CPUUsage so a torn read would be detectable.
	return &metrics.Snapshot{
		Timestamp:   time.Unix(int64(seq), 0).UTC(),
		CPUUsage:    float64(seq),
		MemoryTotal: 1 << 40,
		MemoryUsed:  uint64(seq),
	}
}

func TestStoreEmpty(t *testing.T) {
	st := store.New()

	_, ok := st.Current()
	assert.False(t, ok, "no snapshot before the first publish")
	assert.Nil(t, st.LatestRanking())
	assert.Nil(t, st.RecentRankings(5))
}

func TestStorePublishAndRead(t *testing.T) {
	st := store.New()

	ranked := []metrics.ProcessInfo{{PID: 1, Name: "init", CPUUsage: 1}}
	st.Publish(snapshotAt(1), ranked)

	snapshot, ok := st.Current()
	require.True(t, ok)
	assert.Equal(t, 1.0, snapshot.CPUUsage)

	got := st.LatestRanking()
	require.Len(t, got, 1)
	assert.Equal(t, "init", got[0].Name)

	// The returned slice is a copy; mutating it must not leak back.
	got[0].Name = "mutated"
	assert.Equal(t, "init", st.LatestRanking()[0].Name)
}

func TestStoreNilSnapshotIgnored(t *testing.T) {
	st := store.New()
	st.Publish(nil, nil)

	_, ok := st.Current()
	assert.False(t, ok)
}

func TestStoreRecentRankings(t *testing.T) {
	st := store.New()

	for i := 1; i <= 5; i++ {
		st.Publish(snapshotAt(i), []metrics.ProcessInfo{{PID: int32(i)}})
	}

	recent := st.RecentRankings(3)
	require.Len(t, recent, 3)
	assert.Equal(t, int32(5), recent[0].Processes[0].PID, "newest first")
	assert.Equal(t, int32(4), recent[1].Processes[0].PID)
	assert.Equal(t, int32(3), recent[2].Processes[0].PID)

	assert.Len(t, st.RecentRankings(100), 5, "capped at what was published")
}

func TestStoreRingWrapAround(t *testing.T) {
	st := store.New()

	for i := 1; i <= 70; i++ {
		st.Publish(snapshotAt(i), []metrics.ProcessInfo{{PID: int32(i)}})
	}

	recent := st.RecentRankings(60)
	require.Len(t, recent, 60)
	assert.Equal(t, int32(70), recent[0].Processes[0].PID)
	assert.Equal(t, int32(11), recent[59].Processes[0].PID, "oldest retained entry after wrap")
}

func TestStoreConcurrentReaders(t *testing.T) {
	st := store.New()
	st.Publish(snapshotAt(0), nil)

	const (
		writes  = 500
		readers = 8
	)

	var wg sync.WaitGroup
	stop := make(chan struct{})

	for r := 0; r < readers; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}

				snapshot, ok := st.Current()
				if !ok {
					continue
				}
				// A reader sees one coherent snapshot, never a mix of two.
				if uint64(snapshot.CPUUsage) != snapshot.MemoryUsed {
					t.Errorf("torn snapshot: cpu=%v mem=%v", snapshot.CPUUsage, snapshot.MemoryUsed)
					return
				}
				_ = st.LatestRanking()
			}
		}()
	}

	for i := 1; i <= writes; i++ {
		st.Publish(snapshotAt(i), []metrics.ProcessInfo{{PID: int32(i)}})
	}
	close(stop)
	wg.Wait()

	snapshot, ok := st.Current()
	require.True(t, ok)
	assert.Equal(t, float64(writes), snapshot.CPUUsage)
}

package store

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/metrics"
)

// defaultRingSize bounds how many past rankings are kept for consumers
// that render short trends.
const defaultRingSize = 60

// Ranking is one published top-N view with its publication time.
type Ranking struct {
	Timestamp time.Time
	Processes []metrics.ProcessInfo
}

// Store is the single shared handoff point between the collector and its
// consumers. The collector is the only writer; any number of readers may
// call Current concurrently. The snapshot itself swaps atomically, so a
// reader either sees the state from before a publish or after it, never a
// mix.
type Store struct {
	current atomic.Pointer[metrics.Snapshot]

	mu       sync.RWMutex
	rankings []Ranking
	next     int
	filled   int
}

func New() *Store {
	return &Store{
		rankings: make([]Ranking, defaultRingSize),
	}
}

// Publish installs a new snapshot and its ranked process list. Snapshots
// are treated as immutable after publication; the ranked slice is copied so
// the caller may reuse its backing array.
func (s *Store) Publish(snapshot *metrics.Snapshot, ranked []metrics.ProcessInfo) {
	if snapshot == nil {
		return
	}

	s.current.Store(snapshot)

	procs := make([]metrics.ProcessInfo, len(ranked))
	copy(procs, ranked)

	s.mu.Lock()
	s.rankings[s.next] = Ranking{Timestamp: snapshot.Timestamp, Processes: procs}
	s.next = (s.next + 1) % len(s.rankings)
	if s.filled < len(s.rankings) {
		s.filled++
	}
	s.mu.Unlock()
}

// Current returns the latest published snapshot, or false before the first
// publish. The returned pointer must be treated as read-only.
func (s *Store) Current() (*metrics.Snapshot, bool) {
	snapshot := s.current.Load()
	if snapshot == nil {
		return nil, false
	}

	return snapshot, true
}

// LatestRanking returns a copy of the most recently published ranking, or
// nil before the first publish.
func (s *Store) LatestRanking() []metrics.ProcessInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.filled == 0 {
		return nil
	}

	latest := s.rankings[(s.next-1+len(s.rankings))%len(s.rankings)]
	procs := make([]metrics.ProcessInfo, len(latest.Processes))
	copy(procs, latest.Processes)

	return procs
}

// RecentRankings returns up to n past rankings, newest first.
func (s *Store) RecentRankings(n int) []Ranking {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || s.filled == 0 {
		return nil
	}
	if n > s.filled {
		n = s.filled
	}

	out := make([]Ranking, 0, n)
	for i := 1; i <= n; i++ {
		idx := (s.next - i + len(s.rankings)) % len(s.rankings)
		entry := s.rankings[idx]
		procs := make([]metrics.ProcessInfo, len(entry.Processes))
		copy(procs, entry.Processes)
		out = append(out, Ranking{Timestamp: entry.Timestamp, Processes: procs})
	}

	return out
}

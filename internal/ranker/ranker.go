package ranker

import (
	"sort"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/metrics"
)

const (
	// DefaultLimit applies when callers pass a non-positive limit.
	DefaultLimit = 10

	// bytesPerPoint maps interval network bytes onto the CPU-percent
	// scale: one MiB of traffic counts as one CPU point.
	bytesPerPoint = 1 << 20
)

// Score combines CPU usage with normalized network activity.
func Score(p metrics.ProcessInfo) float64 {
	return p.CPUUsage + float64(p.NetworkSent+p.NetworkRecv)/bytesPerPoint
}

// Rank returns the top processes by descending score, at most limit
// entries. Equal scores order by ascending PID so repeated calls over the
// same input are deterministic. The input slice is not modified.
func Rank(procs []metrics.ProcessInfo, limit int) []metrics.ProcessInfo {
	if limit <= 0 {
		limit = DefaultLimit
	}

	ranked := make([]metrics.ProcessInfo, len(procs))
	copy(ranked, procs)

	sort.Slice(ranked, func(i, j int) bool {
		si, sj := Score(ranked[i]), Score(ranked[j])
		if si != sj {
			return si > sj
		}
		return ranked[i].PID < ranked[j].PID
	})

	if len(ranked) > limit {
		ranked = ranked[:limit]
	}

	return ranked
}

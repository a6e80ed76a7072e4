package history

import (
	"context"
	"time"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/metrics"
)

// Record is a persisted snapshot. Identifiers strictly increase with
// insertion order, so for records written by one process the id order and
// the timestamp order coincide.
type Record struct {
	ID int64 `json:"id"`
	metrics.Snapshot
}

// Repository defines the history storage contract. Only the retention
// scheduler appends and purges; query consumers read.
type Repository interface {
	Append(ctx context.Context, snapshot *metrics.Snapshot) (Record, error)
	Query(ctx context.Context, from, to time.Time, limit int) ([]Record, error)
	QueryHours(ctx context.Context, hours int) ([]Record, error)
	PurgeOlderThan(ctx context.Context, horizon time.Time) (int64, error)
	AverageCPU(ctx context.Context, hours int) (float64, error)
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

package temperature

import (
	"context"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/metrics"
)

// Source produces best-effort temperature readings for whichever components
// it knows how to read. A source reports only the components it could read;
// missing components fall through to the next tier.
type Source interface {
	Name() string
	Read(ctx context.Context, cpuLoad float64) (metrics.Readings, error)
}

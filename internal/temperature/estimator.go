package temperature

import (
	"context"
	"time"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/errors"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/logger"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/metrics"
)

const (
	// Readings outside this window are sensor glitches and count as a
	// failed tier.
	minPlausible = 0.0
	maxPlausible = 150.0

	defaultReadTimeout = 500 * time.Millisecond
)

// Estimator walks an ordered source chain and keeps the first plausible
// reading per component. Components no tier could read are absent from the
// result, never zero.
type Estimator struct {
	sources []Source
	timeout time.Duration
}

// NewEstimator builds an estimator over the given tier chain, attempted in
// argument order.
func NewEstimator(sources ...Source) *Estimator {
	return &Estimator{
		sources: sources,
		timeout: defaultReadTimeout,
	}
}

// NewDefaultEstimator wires the production chain: native sensors, then the
// sysfs thermal tables, then the load-based model.
func NewDefaultEstimator(gpuTemp GPUTemperatureFunc) *Estimator {
	return NewEstimator(
		NewNativeSensorSource(gpuTemp),
		NewFilesystemSensorSource(),
		NewEstimateSource(),
	)
}

// WithTimeout overrides the per-tier read timeout.
func (e *Estimator) WithTimeout(timeout time.Duration) *Estimator {
	e.timeout = timeout
	return e
}

// Read returns the best reading obtainable for each component. The current
// CPU load feeds the load-based estimate tier.
func (e *Estimator) Read(ctx context.Context, cpuLoad float64) metrics.Readings {
	result := make(metrics.Readings, len(metrics.Components))

	for _, src := range e.sources {
		if len(result) == len(metrics.Components) {
			break
		}

		readings, err := e.readTier(ctx, src, cpuLoad)
		if err != nil {
			logger.Debug().
				Str("source", src.Name()).
				Str("error_code", string(errors.CodeOf(err))).
				Msg("Temperature tier failed")
			continue
		}

		for component, reading := range readings {
			if _, done := result[component]; done {
				continue
			}
			if !plausible(reading.Celsius) {
				continue
			}
			result[component] = reading
		}
	}

	return result
}

type tierResult struct {
	readings metrics.Readings
	err      error
}

// readTier runs a single source under the per-call timeout. A source that
// overruns is abandoned; its late result is discarded.
func (e *Estimator) readTier(ctx context.Context, src Source, cpuLoad float64) (metrics.Readings, error) {
	errFactory := errors.New()

	tierCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	done := make(chan tierResult, 1)
	go func() {
		readings, err := src.Read(tierCtx, cpuLoad)
		done <- tierResult{readings: readings, err: err}
	}()

	select {
	case <-tierCtx.Done():
		return nil, errFactory.Wrap(ErrReadTimeout, tierCtx.Err())
	case res := <-done:
		if res.err != nil {
			return nil, res.err
		}
		return res.readings, nil
	}
}

func plausible(celsius float64) bool {
	return celsius > minPlausible && celsius < maxPlausible
}

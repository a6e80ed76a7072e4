package temperature_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/logger"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/metrics"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/temperature"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	logger.Init(false, false, io.Discard)
	m.Run()
}

type fakeSource struct {
	name     string
	readings metrics.Readings
	err      error
	delay    time.Duration
	calls    int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Read(ctx context.Context, _ float64) (metrics.Readings, error) {
	f.calls++
	if f.delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(f.delay):
		}
	}
	return f.readings, f.err
}

func reading(c metrics.Component, celsius float64, src metrics.Provenance) metrics.TemperatureReading {
	return metrics.TemperatureReading{Component: c, Celsius: celsius, Source: src}
}

func TestEstimatorFirstTierWins(t *testing.T) {
	tier1 := &fakeSource{name: "native", readings: metrics.Readings{
		metrics.ComponentCPU: reading(metrics.ComponentCPU, 60, metrics.ProvenanceSensor),
	}}
	tier2 := &fakeSource{name: "fallback", readings: metrics.Readings{
		metrics.ComponentCPU:  reading(metrics.ComponentCPU, 99, metrics.ProvenanceSensor),
		metrics.ComponentDisk: reading(metrics.ComponentDisk, 40, metrics.ProvenanceSensor),
	}}

	est := temperature.NewEstimator(tier1, tier2)
	result := est.Read(context.Background(), 50)

	require.Contains(t, result, metrics.ComponentCPU)
	assert.Equal(t, 60.0, result[metrics.ComponentCPU].Celsius,
		"an earlier tier's reading is never overwritten")
	assert.Equal(t, metrics.ProvenanceSensor, result[metrics.ComponentCPU].Source)

	require.Contains(t, result, metrics.ComponentDisk)
	assert.Equal(t, 40.0, result[metrics.ComponentDisk].Celsius,
		"later tiers fill components the earlier ones missed")
}

func TestEstimatorStopsWhenComplete(t *testing.T) {
	full := metrics.Readings{}
	for _, c := range metrics.Components {
		full[c] = reading(c, 50, metrics.ProvenanceSensor)
	}

	tier1 := &fakeSource{name: "native", readings: full}
	tier2 := &fakeSource{name: "fallback"}

	est := temperature.NewEstimator(tier1, tier2)
	result := est.Read(context.Background(), 50)

	assert.Len(t, result, len(metrics.Components))
	assert.Zero(t, tier2.calls, "later tiers are not consulted once every component has a reading")
}

func TestEstimatorSkipsFailedTier(t *testing.T) {
	tier1 := &fakeSource{name: "native", err: context.DeadlineExceeded}
	tier2 := &fakeSource{name: "model", readings: metrics.Readings{
		metrics.ComponentCPU: reading(metrics.ComponentCPU, 55, metrics.ProvenanceEstimated),
	}}

	est := temperature.NewEstimator(tier1, tier2)
	result := est.Read(context.Background(), 50)

	require.Contains(t, result, metrics.ComponentCPU)
	assert.Equal(t, metrics.ProvenanceEstimated, result[metrics.ComponentCPU].Source)
}

func TestEstimatorRejectsImplausibleReadings(t *testing.T) {
	tier1 := &fakeSource{name: "glitchy", readings: metrics.Readings{
		metrics.ComponentCPU:  reading(metrics.ComponentCPU, 200, metrics.ProvenanceSensor),
		metrics.ComponentDisk: reading(metrics.ComponentDisk, -5, metrics.ProvenanceSensor),
	}}
	tier2 := &fakeSource{name: "model", readings: metrics.Readings{
		metrics.ComponentCPU:  reading(metrics.ComponentCPU, 55, metrics.ProvenanceEstimated),
		metrics.ComponentDisk: reading(metrics.ComponentDisk, 38, metrics.ProvenanceEstimated),
	}}

	est := temperature.NewEstimator(tier1, tier2)
	result := est.Read(context.Background(), 50)

	assert.Equal(t, 55.0, result[metrics.ComponentCPU].Celsius,
		"a reading outside the plausibility window counts as a miss")
	assert.Equal(t, 38.0, result[metrics.ComponentDisk].Celsius)
}

func TestEstimatorTimeoutFallsThrough(t *testing.T) {
	slow := &fakeSource{name: "hung", delay: time.Second, readings: metrics.Readings{
		metrics.ComponentCPU: reading(metrics.ComponentCPU, 60, metrics.ProvenanceSensor),
	}}
	fast := &fakeSource{name: "model", readings: metrics.Readings{
		metrics.ComponentCPU: reading(metrics.ComponentCPU, 45, metrics.ProvenanceEstimated),
	}}

	est := temperature.NewEstimator(slow, fast).WithTimeout(20 * time.Millisecond)
	result := est.Read(context.Background(), 50)

	require.Contains(t, result, metrics.ComponentCPU)
	assert.Equal(t, 45.0, result[metrics.ComponentCPU].Celsius,
		"a hung tier is abandoned after its timeout")
}

func TestEstimatorAllTiersFail(t *testing.T) {
	tier1 := &fakeSource{name: "a", err: context.DeadlineExceeded}
	tier2 := &fakeSource{name: "b", err: context.DeadlineExceeded}

	est := temperature.NewEstimator(tier1, tier2)
	result := est.Read(context.Background(), 50)

	assert.Empty(t, result, "components no tier could read are absent, never zero")
}

func TestEstimateSourceModel(t *testing.T) {
	src := temperature.NewEstimateSource()

	readings, err := src.Read(context.Background(), 60)
	require.NoError(t, err)
	require.Len(t, readings, len(metrics.Components))

	assert.InDelta(t, 60.0, readings[metrics.ComponentCPU].Celsius, 1e-9, "30 + 0.5*load")
	assert.InDelta(t, 58.0, readings[metrics.ComponentGPU].Celsius, 1e-9, "40 + 0.3*load")
	assert.InDelta(t, 47.0, readings[metrics.ComponentMotherboard].Celsius, 1e-9, "35 + 0.2*load")
	assert.InDelta(t, 38.0, readings[metrics.ComponentDisk].Celsius, 1e-9, "constant")

	for _, r := range readings {
		assert.Equal(t, metrics.ProvenanceEstimated, r.Source)
	}
}

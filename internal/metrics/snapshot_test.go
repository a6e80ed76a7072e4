package metrics_test

import (
	"testing"
	"time"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/metrics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() *metrics.Snapshot {
	return &metrics.Snapshot{
		Timestamp:       time.Now().UTC(),
		CPUUsage:        42.5,
		MemoryTotal:     16 << 30,
		MemoryUsed:      8 << 30,
		MemoryAvailable: 8 << 30,
		SwapTotal:       4 << 30,
		SwapUsed:        1 << 30,
		DiskTotal:       500 << 30,
		DiskUsed:        200 << 30,
		DiskAvailable:   300 << 30,
		NetworkSentKbps: 120.5,
		NetworkRecvKbps: 900.1,
		ProcessCount:    240,
		SystemUptime:    3600,
	}
}

func TestSnapshotValidate(t *testing.T) {
	require.NoError(t, sampleSnapshot().Validate())

	tests := []struct {
		name   string
		mutate func(*metrics.Snapshot)
	}{
		{"memory used exceeds total", func(s *metrics.Snapshot) { s.MemoryUsed = s.MemoryTotal + 1 }},
		{"swap used exceeds total", func(s *metrics.Snapshot) { s.SwapUsed = s.SwapTotal + 1 }},
		{"disk used exceeds total", func(s *metrics.Snapshot) { s.DiskUsed = s.DiskTotal + 1 }},
		{"negative sent rate", func(s *metrics.Snapshot) { s.NetworkSentKbps = -1 }},
		{"negative recv rate", func(s *metrics.Snapshot) { s.NetworkRecvKbps = -0.1 }},
		{"negative process count", func(s *metrics.Snapshot) { s.ProcessCount = -1 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := sampleSnapshot()
			tt.mutate(s)
			assert.Error(t, s.Validate())
		})
	}
}

func TestSnapshotTemperatures(t *testing.T) {
	s := sampleSnapshot()
	assert.Empty(t, s.Temperatures())

	cpu, disk := 55.0, 38.0
	s.CPUTemperature = &cpu
	s.DiskTemperature = &disk

	assert.ElementsMatch(t, []float64{55.0, 38.0}, s.Temperatures())
}

func TestSnapshotWarning(t *testing.T) {
	s := sampleSnapshot()
	assert.Equal(t, metrics.WarningUnknown, s.Warning(),
		"snapshot without readings reports unknown")

	cpu, gpu := 68.0, 77.5
	s.CPUTemperature = &cpu
	s.GPUTemperature = &gpu

	assert.Equal(t, metrics.WarningHigh, s.Warning(),
		"warning follows the hottest component")
}

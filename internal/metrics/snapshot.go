package metrics

import (
	"time"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/errors"
)

// Snapshot is one complete point-in-time reading of the host. It is
// assembled atomically by the collector and never mutated afterwards;
// consumers receive it by value or through a read-only pointer swap.
type Snapshot struct {
	Timestamp       time.Time `json:"timestamp"`
	CPUUsage        float64   `json:"cpu_usage"`
	MemoryTotal     uint64    `json:"memory_total"`
	MemoryUsed      uint64    `json:"memory_used"`
	MemoryAvailable uint64    `json:"memory_available"`
	SwapTotal       uint64    `json:"swap_total"`
	SwapUsed        uint64    `json:"swap_used"`
	DiskTotal       uint64    `json:"disk_total"`
	DiskUsed        uint64    `json:"disk_used"`
	DiskAvailable   uint64    `json:"disk_available"`

	// Rates over the sampling interval, zero on the first cycle or after a
	// counter reset.
	NetworkSentKbps float64 `json:"network_sent_kbps"`
	NetworkRecvKbps float64 `json:"network_recv_kbps"`

	ProcessCount int64 `json:"process_count"`
	SystemUptime int64 `json:"system_uptime"`

	GPU *GPUInfo `json:"gpu,omitempty"`

	// Best-effort temperatures, absent when no tier produced a reading.
	CPUTemperature         *float64 `json:"cpu_temperature,omitempty"`
	GPUTemperature         *float64 `json:"gpu_temperature,omitempty"`
	MotherboardTemperature *float64 `json:"motherboard_temperature,omitempty"`
	DiskTemperature        *float64 `json:"disk_temperature,omitempty"`
	MaxTemperature         *float64 `json:"max_temperature,omitempty"`
}

// GPUInfo describes a single GPU device.
type GPUInfo struct {
	Name        string   `json:"name"`
	Usage       float64  `json:"usage"`
	MemoryTotal uint64   `json:"memory_total"`
	MemoryUsed  uint64   `json:"memory_used"`
	Temperature *float64 `json:"temperature,omitempty"`
}

// ProcessInfo describes one process within a single snapshot cycle.
// Network counters are bytes attributed to the process since the previous
// sample.
type ProcessInfo struct {
	PID         int32   `json:"pid"`
	Name        string  `json:"name"`
	CPUUsage    float64 `json:"cpu_usage"`
	Memory      uint64  `json:"memory"`
	NetworkSent uint64  `json:"network_sent"`
	NetworkRecv uint64  `json:"network_recv"`
}

// Validate checks the snapshot invariants: used never exceeds total and
// rates are non-negative.
func (s *Snapshot) Validate() error {
	errFactory := errors.New()

	pairs := []struct {
		name        string
		used, total uint64
	}{
		{"memory", s.MemoryUsed, s.MemoryTotal},
		{"swap", s.SwapUsed, s.SwapTotal},
		{"disk", s.DiskUsed, s.DiskTotal},
	}
	for _, p := range pairs {
		if p.used > p.total {
			return errFactory.WithData(errors.ErrInvalidArgument, struct {
				Field string
				Used  uint64
				Total uint64
			}{p.name, p.used, p.total})
		}
	}

	if s.NetworkSentKbps < 0 || s.NetworkRecvKbps < 0 {
		return errFactory.WithMessage(errors.ErrInvalidArgument, "negative network rate")
	}
	if s.ProcessCount < 0 {
		return errFactory.WithMessage(errors.ErrInvalidArgument, "negative process count")
	}

	return nil
}

// Temperatures returns the per-component readings present on the snapshot.
// Provenance is not persisted, so readings reconstructed from a snapshot
// carry no source tag.
func (s *Snapshot) Temperatures() []float64 {
	var out []float64
	for _, t := range []*float64{s.CPUTemperature, s.GPUTemperature, s.MotherboardTemperature, s.DiskTemperature} {
		if t != nil {
			out = append(out, *t)
		}
	}

	return out
}

// Warning recomputes the warning level from the component readings.
// It is intentionally not cached on the snapshot.
func (s *Snapshot) Warning() WarningLevel {
	temps := s.Temperatures()
	if len(temps) == 0 {
		return WarningUnknown
	}

	max := temps[0]
	for _, t := range temps[1:] {
		if t > max {
			max = t
		}
	}

	return WarningForTemperature(max)
}

package collector

import (
	"context"
	"sync"
	"time"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/errors"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/logger"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/metrics"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/temperature"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/shirou/gopsutil/v3/net"
	"github.com/shirou/gopsutil/v3/process"
)

const rootMount = "/"

// Collector gathers one complete host snapshot per call. CPU, memory, disk
// and the process list are mandatory; a failure in any of them fails the
// whole cycle and nothing is published. Temperatures and GPU telemetry
// degrade to absent.
//
// The collector keeps the previous cumulative network counters so each
// cycle can report a rate; it is safe for the interval loop and on-demand
// refresh triggers to call Collect concurrently.
type Collector struct {
	estimator *temperature.Estimator
	gpu       GPUReader

	mu       sync.Mutex
	prevSent uint64
	prevRecv uint64
	hasPrev  bool
}

// New builds a collector. gpu may be nil on hosts without NVML.
func New(estimator *temperature.Estimator, gpu GPUReader) *Collector {
	return &Collector{
		estimator: estimator,
		gpu:       gpu,
	}
}

// Collect samples the host and assembles a snapshot covering the elapsed
// interval. It returns the snapshot together with the raw per-process list
// for the ranker.
func (c *Collector) Collect(ctx context.Context, elapsed time.Duration) (*metrics.Snapshot, []metrics.ProcessInfo, error) {
	errFactory := errors.New()

	cpuUsage, err := c.readCPU(ctx)
	if err != nil {
		return nil, nil, errFactory.Wrap(ErrCollection, err)
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return nil, nil, errFactory.Wrap(ErrMemoryRead, err)
	}

	usage, err := disk.UsageWithContext(ctx, rootMount)
	if err != nil {
		return nil, nil, errFactory.Wrap(ErrDiskRead, err)
	}

	procs, err := c.readProcesses(ctx)
	if err != nil {
		return nil, nil, errFactory.Wrap(ErrProcessList, err)
	}

	snapshot := &metrics.Snapshot{
		Timestamp:       time.Now().UTC(),
		CPUUsage:        cpuUsage,
		MemoryTotal:     vm.Total,
		MemoryUsed:      vm.Used,
		MemoryAvailable: vm.Available,
		DiskTotal:       usage.Total,
		DiskUsed:        usage.Used,
		DiskAvailable:   usage.Free,
		ProcessCount:    int64(len(procs)),
	}

	// Everything below is best-effort and never fails the cycle.
	if swap, err := mem.SwapMemoryWithContext(ctx); err == nil {
		snapshot.SwapTotal = swap.Total
		snapshot.SwapUsed = swap.Used
	}

	if uptime, err := host.UptimeWithContext(ctx); err == nil {
		snapshot.SystemUptime = int64(uptime)
	}

	sentDelta, recvDelta := c.networkDeltas(ctx)
	snapshot.NetworkSentKbps = RateKbps(sentDelta, elapsed)
	snapshot.NetworkRecvKbps = RateKbps(recvDelta, elapsed)
	attributeNetwork(procs, sentDelta, recvDelta)

	if c.gpu != nil {
		if info, err := c.gpu.Info(ctx); err == nil {
			snapshot.GPU = info
		} else {
			logger.Debug().Str("error_code", string(errors.CodeOf(err))).Msg("GPU telemetry unavailable")
		}
	}

	c.applyTemperatures(ctx, snapshot, cpuUsage)

	if err := snapshot.Validate(); err != nil {
		return nil, nil, errFactory.Wrap(ErrCollection, err)
	}

	return snapshot, procs, nil
}

// Close releases the GPU handle, if any.
func (c *Collector) Close() error {
	if c.gpu == nil {
		return nil
	}

	return c.gpu.Close()
}

func (c *Collector) readCPU(ctx context.Context) (float64, error) {
	errFactory := errors.New()

	percentages, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return 0, errFactory.Wrap(ErrCPURead, err)
	}
	if len(percentages) == 0 {
		return 0, errFactory.WithMessage(ErrCPURead, "empty CPU usage result")
	}

	return percentages[0], nil
}

func (c *Collector) readProcesses(ctx context.Context) ([]metrics.ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]metrics.ProcessInfo, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}

		info := metrics.ProcessInfo{
			PID:  p.Pid,
			Name: name,
		}
		if cpuPct, err := p.CPUPercentWithContext(ctx); err == nil {
			info.CPUUsage = cpuPct
		}
		if memInfo, err := p.MemoryInfoWithContext(ctx); err == nil && memInfo != nil {
			info.Memory = memInfo.RSS
		}

		out = append(out, info)
	}

	return out, nil
}

// networkDeltas reads the cumulative host counters and returns the byte
// deltas since the previous cycle. The first cycle and counter resets
// (current below previous) yield zero deltas.
func (c *Collector) networkDeltas(ctx context.Context) (sent, recv uint64) {
	counters, err := net.IOCountersWithContext(ctx, false)
	if err != nil || len(counters) == 0 {
		return 0, 0
	}

	cur := counters[0]

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.hasPrev {
		sent = counterDelta(cur.BytesSent, c.prevSent)
		recv = counterDelta(cur.BytesRecv, c.prevRecv)
	}

	c.prevSent = cur.BytesSent
	c.prevRecv = cur.BytesRecv
	c.hasPrev = true

	return sent, recv
}

// counterDelta guards against kernel counter resets: a current value below
// the previous one yields zero rather than an underflowed delta.
func counterDelta(cur, prev uint64) uint64 {
	if cur < prev {
		return 0
	}

	return cur - prev
}

// RateKbps converts a byte delta over an interval into kilobits per second.
func RateKbps(deltaBytes uint64, elapsed time.Duration) float64 {
	secs := elapsed.Seconds()
	if secs <= 0 {
		return 0
	}

	return float64(deltaBytes) * 8 / 1000 / secs
}

// attributeNetwork apportions the host's interval network deltas to
// processes by CPU share. Per-process counters are not exposed portably, so
// this deterministic attribution stands in for them; a process doing no CPU
// work is attributed no traffic.
func attributeNetwork(procs []metrics.ProcessInfo, sentDelta, recvDelta uint64) {
	var totalCPU float64
	for i := range procs {
		totalCPU += procs[i].CPUUsage
	}
	if totalCPU <= 0 {
		return
	}

	for i := range procs {
		share := procs[i].CPUUsage / totalCPU
		procs[i].NetworkSent = uint64(float64(sentDelta) * share)
		procs[i].NetworkRecv = uint64(float64(recvDelta) * share)
	}
}

func (c *Collector) applyTemperatures(ctx context.Context, snapshot *metrics.Snapshot, cpuLoad float64) {
	if c.estimator == nil {
		return
	}

	readings := c.estimator.Read(ctx, cpuLoad)
	if len(readings) == 0 {
		return
	}

	assign := func(component metrics.Component, dst **float64) {
		if reading, ok := readings[component]; ok {
			celsius := reading.Celsius
			*dst = &celsius
		}
	}
	assign(metrics.ComponentCPU, &snapshot.CPUTemperature)
	assign(metrics.ComponentGPU, &snapshot.GPUTemperature)
	assign(metrics.ComponentMotherboard, &snapshot.MotherboardTemperature)
	assign(metrics.ComponentDisk, &snapshot.DiskTemperature)

	if max, ok := readings.Max(); ok {
		snapshot.MaxTemperature = &max
	}

	if snapshot.GPU != nil && snapshot.GPU.Temperature == nil && snapshot.GPUTemperature != nil {
		celsius := *snapshot.GPUTemperature
		snapshot.GPU.Temperature = &celsius
	}
}

package collector

import (
	"context"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/errors"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/logger"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/metrics"
	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// GPUReader exposes whatever GPU telemetry the host can provide. The
// collector degrades GPU fields to absent when no reader is available.
type GPUReader interface {
	Info(ctx context.Context) (*metrics.GPUInfo, error)
	Temperature(ctx context.Context) (float64, error)
	Close() error
}

// nvmlReader reads the first NVML device.
type nvmlReader struct {
	device      nvml.Device
	initialized bool
}

// NewNVMLReader initializes NVML and acquires device 0. Hosts without an
// NVIDIA driver fail here; callers treat that as "no GPU" rather than an
// error worth surfacing.
func NewNVMLReader() (GPUReader, error) {
	errFactory := errors.New()

	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return nil, errFactory.WithData(ErrGPUInit, nvml.ErrorString(ret))
	}

	device, ret := nvml.DeviceGetHandleByIndex(0)
	if ret != nvml.SUCCESS {
		_ = nvml.Shutdown()
		return nil, errFactory.WithData(ErrGPUInit, nvml.ErrorString(ret))
	}

	if name, ret := device.GetName(); ret == nvml.SUCCESS {
		logger.Info().Str("gpu", name).Msg("Detected GPU")
	}

	return &nvmlReader{device: device, initialized: true}, nil
}

func (r *nvmlReader) Info(_ context.Context) (*metrics.GPUInfo, error) {
	errFactory := errors.New()

	if !r.initialized {
		return nil, errFactory.New(ErrGPUUnavailable)
	}

	info := &metrics.GPUInfo{}

	name, ret := r.device.GetName()
	if ret != nvml.SUCCESS {
		return nil, errFactory.WithData(ErrGPUUnavailable, nvml.ErrorString(ret))
	}
	info.Name = name

	if util, ret := r.device.GetUtilizationRates(); ret == nvml.SUCCESS {
		info.Usage = float64(util.Gpu)
	}

	if mem, ret := r.device.GetMemoryInfo(); ret == nvml.SUCCESS {
		info.MemoryTotal = mem.Total
		info.MemoryUsed = mem.Used
	}

	if temp, ret := r.device.GetTemperature(nvml.TEMPERATURE_GPU); ret == nvml.SUCCESS {
		celsius := float64(temp)
		info.Temperature = &celsius
	}

	return info, nil
}

func (r *nvmlReader) Temperature(_ context.Context) (float64, error) {
	errFactory := errors.New()

	if !r.initialized {
		return 0, errFactory.New(ErrGPUUnavailable)
	}

	temp, ret := r.device.GetTemperature(nvml.TEMPERATURE_GPU)
	if ret != nvml.SUCCESS {
		return 0, errFactory.WithData(ErrGPUUnavailable, nvml.ErrorString(ret))
	}

	return float64(temp), nil
}

func (r *nvmlReader) Close() error {
	errFactory := errors.New()

	if !r.initialized {
		return nil
	}
	r.initialized = false

	if ret := nvml.Shutdown(); ret != nvml.SUCCESS {
		return errFactory.WithData(ErrGPUShutdown, nvml.ErrorString(ret))
	}

	return nil
}

package temperature

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/errors"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/metrics"
	"github.com/shirou/gopsutil/v3/host"
)

// GPUTemperatureFunc reads the GPU die temperature, typically backed by
// NVML. Nil when no GPU backend is available.
type GPUTemperatureFunc func(ctx context.Context) (float64, error)

// nativeSensorSource reads the platform sensor interface exposed by
// gopsutil plus the NVML GPU probe.
type nativeSensorSource struct {
	gpuTemp GPUTemperatureFunc
}

func NewNativeSensorSource(gpuTemp GPUTemperatureFunc) Source {
	return &nativeSensorSource{gpuTemp: gpuTemp}
}

func (*nativeSensorSource) Name() string { return "native" }

func (s *nativeSensorSource) Read(ctx context.Context, _ float64) (metrics.Readings, error) {
	errFactory := errors.New()

	readings := make(metrics.Readings)

	stats, err := host.SensorsTemperaturesWithContext(ctx)
	if err != nil && len(stats) == 0 {
		// Some platforms return partial results alongside an error;
		// only a fully empty read fails the tier.
		if s.gpuTemp == nil {
			return nil, errFactory.Wrap(ErrSensorRead, err)
		}
	}

	for _, stat := range stats {
		component, ok := classifySensorKey(stat.SensorKey)
		if !ok {
			continue
		}
		if _, exists := readings[component]; exists {
			continue
		}
		readings[component] = metrics.TemperatureReading{
			Component: component,
			Celsius:   stat.Temperature,
			Source:    metrics.ProvenanceSensor,
		}
	}

	if s.gpuTemp != nil {
		if celsius, err := s.gpuTemp(ctx); err == nil {
			readings[metrics.ComponentGPU] = metrics.TemperatureReading{
				Component: metrics.ComponentGPU,
				Celsius:   celsius,
				Source:    metrics.ProvenanceSensor,
			}
		}
	}

	if len(readings) == 0 {
		return nil, errFactory.New(ErrNoSensors)
	}

	return readings, nil
}

// classifySensorKey maps the kernel hwmon naming conventions onto the
// monitored components.
func classifySensorKey(key string) (metrics.Component, bool) {
	key = strings.ToLower(key)

	switch {
	case strings.Contains(key, "coretemp"),
		strings.Contains(key, "k10temp"),
		strings.Contains(key, "cpu_thermal"),
		strings.Contains(key, "x86_pkg_temp"),
		strings.Contains(key, "tctl"):
		return metrics.ComponentCPU, true
	case strings.Contains(key, "nvme"),
		strings.Contains(key, "drivetemp"):
		return metrics.ComponentDisk, true
	case strings.Contains(key, "acpitz"),
		strings.Contains(key, "pch"),
		strings.Contains(key, "motherboard"):
		return metrics.ComponentMotherboard, true
	default:
		return "", false
	}
}

// filesystemSensorSource scans the sysfs thermal zone table directly, the
// fallback for hosts where the hwmon interface yields nothing.
type filesystemSensorSource struct {
	root string
}

func NewFilesystemSensorSource() Source {
	return &filesystemSensorSource{root: "/sys/class/thermal"}
}

func (*filesystemSensorSource) Name() string { return "sysfs" }

func (s *filesystemSensorSource) Read(ctx context.Context, _ float64) (metrics.Readings, error) {
	errFactory := errors.New()

	zones, err := filepath.Glob(filepath.Join(s.root, "thermal_zone*"))
	if err != nil || len(zones) == 0 {
		return nil, errFactory.New(ErrNoSensors)
	}

	readings := make(metrics.Readings)
	for _, zone := range zones {
		if ctx.Err() != nil {
			return nil, errFactory.Wrap(ErrReadTimeout, ctx.Err())
		}

		typeBytes, err := os.ReadFile(filepath.Join(zone, "type"))
		if err != nil {
			continue
		}
		component, ok := classifyThermalZone(strings.TrimSpace(string(typeBytes)))
		if !ok {
			continue
		}
		if _, exists := readings[component]; exists {
			continue
		}

		tempBytes, err := os.ReadFile(filepath.Join(zone, "temp"))
		if err != nil {
			continue
		}
		milli, err := strconv.ParseFloat(strings.TrimSpace(string(tempBytes)), 64)
		if err != nil {
			continue
		}

		readings[component] = metrics.TemperatureReading{
			Component: component,
			Celsius:   milli / 1000.0,
			Source:    metrics.ProvenanceSensor,
		}
	}

	if len(readings) == 0 {
		return nil, errFactory.New(ErrNoSensors)
	}

	return readings, nil
}

func classifyThermalZone(zoneType string) (metrics.Component, bool) {
	zoneType = strings.ToLower(zoneType)

	switch {
	case strings.Contains(zoneType, "x86_pkg_temp"), strings.Contains(zoneType, "cpu"):
		return metrics.ComponentCPU, true
	case strings.Contains(zoneType, "gpu"):
		return metrics.ComponentGPU, true
	case strings.Contains(zoneType, "nvme"), strings.Contains(zoneType, "disk"):
		return metrics.ComponentDisk, true
	case strings.Contains(zoneType, "acpitz"), strings.Contains(zoneType, "pch"):
		return metrics.ComponentMotherboard, true
	default:
		return "", false
	}
}

// estimateSource is the last tier: a deterministic linear model driven by
// the current CPU load. Baselines and load factors per component:
//
//	cpu          30.0 + 0.5 * load
//	gpu          40.0 + 0.3 * load
//	motherboard  35.0 + 0.2 * load
//	disk         38.0 (load independent)
type estimateSource struct{}

func NewEstimateSource() Source {
	return &estimateSource{}
}

var estimateModel = map[metrics.Component]struct {
	baseline   float64
	loadFactor float64
}{
	metrics.ComponentCPU:         {baseline: 30.0, loadFactor: 0.5},
	metrics.ComponentGPU:         {baseline: 40.0, loadFactor: 0.3},
	metrics.ComponentMotherboard: {baseline: 35.0, loadFactor: 0.2},
	metrics.ComponentDisk:        {baseline: 38.0, loadFactor: 0.0},
}

func (*estimateSource) Name() string { return "estimate" }

func (*estimateSource) Read(_ context.Context, cpuLoad float64) (metrics.Readings, error) {
	readings := make(metrics.Readings, len(estimateModel))
	for component, model := range estimateModel {
		readings[component] = metrics.TemperatureReading{
			Component: component,
			Celsius:   model.baseline + model.loadFactor*cpuLoad,
			Source:    metrics.ProvenanceEstimated,
		}
	}

	return readings, nil
}

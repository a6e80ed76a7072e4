package temperature

import "github.com/Maksikos-ctrl/SystemMonitor/internal/errors"

const (
	ErrSensorRead  = errors.ErrorCode("temperature_sensor_read_failed")
	ErrReadTimeout = errors.ErrTimeout
	ErrNoSensors   = errors.ErrorCode("temperature_no_sensors")
)

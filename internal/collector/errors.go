package collector

import "github.com/Maksikos-ctrl/SystemMonitor/internal/errors"

const (
	// Collection errors
	ErrCollection  = errors.ErrCollectSnapshot
	ErrCPURead     = errors.ErrorCode("collector_cpu_read_failed")
	ErrMemoryRead  = errors.ErrorCode("collector_memory_read_failed")
	ErrDiskRead    = errors.ErrorCode("collector_disk_read_failed")
	ErrProcessList = errors.ErrorCode("collector_process_list_failed")

	// GPU errors
	ErrGPUInit        = errors.ErrorCode("collector_gpu_init_failed")
	ErrGPUUnavailable = errors.ErrorCode("collector_gpu_unavailable")
	ErrGPUShutdown    = errors.ErrShutdownFailed
)

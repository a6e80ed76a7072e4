package history

import "github.com/Maksikos-ctrl/SystemMonitor/internal/errors"

const (
	// Configuration errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("history_invalid_db_path")

	// Schema errors
	ErrSchemaInitFailed = errors.ErrorCode("history_schema_init_failed")
	ErrTransactionFailed = errors.ErrorCode("history_transaction_failed")

	// Storage errors
	ErrStorageInit  = errors.ErrInitFailed
	ErrStorageClose = errors.ErrShutdownFailed

	// Operation errors
	ErrAppend = errors.ErrPersistFailed
	ErrPurge  = errors.ErrorCode("history_purge_failed")
	ErrQuery  = errors.ErrQueryFailed
)

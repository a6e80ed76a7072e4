package history

import (
	"database/sql"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/errors"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/logger"
)

const (
	SchemaVersion = 1

	// Timestamps are stored as unix milliseconds; the descending index
	// backs the range scans the query surface needs.
	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS snapshots (
	       id                      INTEGER PRIMARY KEY AUTOINCREMENT,
	       timestamp               INTEGER NOT NULL,
	       cpu_usage               REAL NOT NULL,
	       memory_total            INTEGER NOT NULL,
	       memory_used             INTEGER NOT NULL,
	       memory_available        INTEGER NOT NULL,
	       swap_total              INTEGER NOT NULL,
	       swap_used               INTEGER NOT NULL,
	       disk_total              INTEGER NOT NULL,
	       disk_used               INTEGER NOT NULL,
	       disk_available          INTEGER NOT NULL,
	       gpu_name                TEXT,
	       gpu_usage               REAL,
	       gpu_memory_total        INTEGER,
	       gpu_memory_used         INTEGER,
	       gpu_temperature         REAL,
	       network_sent_kbps       REAL NOT NULL,
	       network_recv_kbps       REAL NOT NULL,
	       process_count           INTEGER NOT NULL,
	       system_uptime           INTEGER NOT NULL,
	       cpu_temperature         REAL,
	       motherboard_temperature REAL,
	       disk_temperature        REAL,
	       max_temperature         REAL
	   );
	   CREATE INDEX IF NOT EXISTS idx_snapshots_timestamp
	       ON snapshots(timestamp DESC);`

	insertSnapshotSQL = `
    INSERT INTO snapshots (
        timestamp, cpu_usage,
        memory_total, memory_used, memory_available,
        swap_total, swap_used,
        disk_total, disk_used, disk_available,
        gpu_name, gpu_usage, gpu_memory_total, gpu_memory_used, gpu_temperature,
        network_sent_kbps, network_recv_kbps,
        process_count, system_uptime,
        cpu_temperature, motherboard_temperature, disk_temperature, max_temperature
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	selectColumns = `
        id, timestamp, cpu_usage,
        memory_total, memory_used, memory_available,
        swap_total, swap_used,
        disk_total, disk_used, disk_available,
        gpu_name, gpu_usage, gpu_memory_total, gpu_memory_used, gpu_temperature,
        network_sent_kbps, network_recv_kbps,
        process_count, system_uptime,
        cpu_temperature, motherboard_temperature, disk_temperature, max_temperature`
)

// InitSchema creates the schema and records the current version. It is
// idempotent over an already-initialized database.
func InitSchema(db *sql.DB, log logger.Logger) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				log.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
		}{
			Error: err.Error(),
		})
	}

	if _, err := tx.Exec(`
        INSERT INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
        ON CONFLICT(version) DO NOTHING
    `, SchemaVersion); err != nil {
		return errFactory.WithData(ErrSchemaInitFailed, struct {
			Error string
			Phase string
		}{
			Error: err.Error(),
			Phase: "record_version",
		})
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	log.Debug().
		Int("version", SchemaVersion).
		Msg("History schema ready")

	return nil
}

// GetSchemaVersion returns the recorded schema version, zero for a fresh
// database.
func GetSchemaVersion(db *sql.DB) (int, error) {
	errFactory := errors.New()

	var version int
	err := db.QueryRow(`
        SELECT version
        FROM schema_versions
        ORDER BY version DESC
        LIMIT 1
    `).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		// A fresh database has no schema_versions table yet.
		exists, checkErr := tableExists(db, "schema_versions")
		if checkErr == nil && !exists {
			return 0, nil
		}
		return 0, errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	return version, nil
}

func tableExists(db *sql.DB, tableName string) (bool, error) {
	var exists bool
	err := db.QueryRow(`
        SELECT EXISTS (
            SELECT 1 FROM sqlite_master
            WHERE type='table' AND name=?
        )
    `, tableName).Scan(&exists)
	if err != nil {
		return false, err
	}
	return exists, nil
}

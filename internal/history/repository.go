package history

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"time"

	"github.com/Maksikos-ctrl/SystemMonitor/internal/errors"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/logger"
	"github.com/Maksikos-ctrl/SystemMonitor/internal/metrics"
	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	db     *sql.DB
	logger logger.Logger
	cfg    Config
}

// NewRepository opens (or creates) the history database. The connection
// pool is capped at cfg.PoolSize and every statement is parameterized.
func NewRepository(cfg Config, log logger.Logger) (Repository, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_directory",
			Path:  cfg.DBPath,
			Error: err.Error(),
		})
	}

	// WAL keeps readers unblocked while the retention task writes.
	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.WithData(ErrStorageInit, struct {
			Phase string
			Error string
		}{
			Phase: "open_database",
			Error: err.Error(),
		})
	}
	db.SetMaxOpenConns(cfg.PoolSize)

	if err := InitSchema(db, log); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().
		Str("path", cfg.DBPath).
		Int("schema_version", SchemaVersion).
		Int("pool_size", cfg.PoolSize).
		Msg("History repository initialized")

	return &repository{
		db:     db,
		logger: log,
		cfg:    cfg,
	}, nil
}

func (r *repository) Append(ctx context.Context, snapshot *metrics.Snapshot) (Record, error) {
	errFactory := errors.New()

	if snapshot == nil {
		return Record{}, errFactory.New(errors.ErrInvalidArgument)
	}

	var gpuName sql.NullString
	var gpuUsage, gpuTemp sql.NullFloat64
	var gpuMemTotal, gpuMemUsed sql.NullInt64
	if snapshot.GPU != nil {
		gpuName = sql.NullString{String: snapshot.GPU.Name, Valid: true}
		gpuUsage = sql.NullFloat64{Float64: snapshot.GPU.Usage, Valid: true}
		gpuMemTotal = sql.NullInt64{Int64: int64(snapshot.GPU.MemoryTotal), Valid: true}
		gpuMemUsed = sql.NullInt64{Int64: int64(snapshot.GPU.MemoryUsed), Valid: true}
		if snapshot.GPU.Temperature != nil {
			gpuTemp = sql.NullFloat64{Float64: *snapshot.GPU.Temperature, Valid: true}
		}
	}
	if !gpuTemp.Valid && snapshot.GPUTemperature != nil {
		gpuTemp = sql.NullFloat64{Float64: *snapshot.GPUTemperature, Valid: true}
	}

	res, err := r.db.ExecContext(ctx, insertSnapshotSQL,
		snapshot.Timestamp.UnixMilli(),
		snapshot.CPUUsage,
		int64(snapshot.MemoryTotal),
		int64(snapshot.MemoryUsed),
		int64(snapshot.MemoryAvailable),
		int64(snapshot.SwapTotal),
		int64(snapshot.SwapUsed),
		int64(snapshot.DiskTotal),
		int64(snapshot.DiskUsed),
		int64(snapshot.DiskAvailable),
		gpuName,
		gpuUsage,
		gpuMemTotal,
		gpuMemUsed,
		gpuTemp,
		snapshot.NetworkSentKbps,
		snapshot.NetworkRecvKbps,
		snapshot.ProcessCount,
		snapshot.SystemUptime,
		nullableFloat(snapshot.CPUTemperature),
		nullableFloat(snapshot.MotherboardTemperature),
		nullableFloat(snapshot.DiskTemperature),
		nullableFloat(snapshot.MaxTemperature),
	)
	if err != nil {
		return Record{}, errFactory.Wrap(ErrAppend, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return Record{}, errFactory.Wrap(ErrAppend, err)
	}

	return Record{ID: id, Snapshot: *snapshot}, nil
}

func (r *repository) Query(ctx context.Context, from, to time.Time, limit int) ([]Record, error) {
	errFactory := errors.New()

	if to.Before(from) {
		return nil, errFactory.WithMessage(ErrQuery, "query range end precedes start")
	}
	if limit <= 0 {
		limit = r.cfg.QueryLimit
	}

	rows, err := r.db.QueryContext(ctx, `
        SELECT `+selectColumns+`
        FROM snapshots
        WHERE timestamp >= ? AND timestamp <= ?
        ORDER BY timestamp ASC
        LIMIT ?`,
		from.UnixMilli(), to.UnixMilli(), limit)
	if err != nil {
		return nil, errFactory.Wrap(ErrQuery, err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, errFactory.Wrap(ErrQuery, err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrQuery, err)
	}

	return records, nil
}

func (r *repository) QueryHours(ctx context.Context, hours int) ([]Record, error) {
	if hours <= 0 {
		hours = 24
	}

	now := time.Now().UTC()

	// Hour windows are unbounded in record count; cap generously so a
	// misbehaving client cannot drag the whole table into memory.
	return r.Query(ctx, now.Add(-time.Duration(hours)*time.Hour), now, hours*3600)
}

func (r *repository) PurgeOlderThan(ctx context.Context, horizon time.Time) (int64, error) {
	errFactory := errors.New()

	res, err := r.db.ExecContext(ctx,
		`DELETE FROM snapshots WHERE timestamp < ?`, horizon.UnixMilli())
	if err != nil {
		return 0, errFactory.Wrap(ErrPurge, err)
	}

	removed, err := res.RowsAffected()
	if err != nil {
		return 0, errFactory.Wrap(ErrPurge, err)
	}

	return removed, nil
}

func (r *repository) AverageCPU(ctx context.Context, hours int) (float64, error) {
	errFactory := errors.New()

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)

	var avg sql.NullFloat64
	err := r.db.QueryRowContext(ctx,
		`SELECT AVG(cpu_usage) FROM snapshots WHERE timestamp > ?`,
		since.UnixMilli()).Scan(&avg)
	if err != nil {
		return 0, errFactory.Wrap(ErrQuery, err)
	}

	return avg.Float64, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	errFactory := errors.New()

	var count int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&count); err != nil {
		return 0, errFactory.Wrap(ErrQuery, err)
	}

	return count, nil
}

func (r *repository) Ping(ctx context.Context) error {
	errFactory := errors.New()

	if err := r.db.PingContext(ctx); err != nil {
		return errFactory.Wrap(errors.ErrUnavailable, err)
	}

	return nil
}

func (r *repository) Close() error {
	errFactory := errors.New()

	if _, err := r.db.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
		r.logger.Debug().Err(err).Msg("WAL checkpoint on close failed")
	}

	if err := r.db.Close(); err != nil {
		return errFactory.Wrap(ErrStorageClose, err)
	}

	r.logger.Info().Msg("History repository closed")

	return nil
}

func nullableFloat(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}

func floatPtr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func scanRecord(rows *sql.Rows) (Record, error) {
	var (
		record    Record
		ts        int64
		memTotal  int64
		memUsed   int64
		memAvail  int64
		swapTotal int64
		swapUsed  int64
		diskTotal int64
		diskUsed  int64
		diskAvail int64

		gpuName     sql.NullString
		gpuUsage    sql.NullFloat64
		gpuMemTotal sql.NullInt64
		gpuMemUsed  sql.NullInt64
		gpuTemp     sql.NullFloat64

		cpuTemp sql.NullFloat64
		mbTemp  sql.NullFloat64
		dskTemp sql.NullFloat64
		maxTemp sql.NullFloat64
	)

	err := rows.Scan(
		&record.ID, &ts, &record.CPUUsage,
		&memTotal, &memUsed, &memAvail,
		&swapTotal, &swapUsed,
		&diskTotal, &diskUsed, &diskAvail,
		&gpuName, &gpuUsage, &gpuMemTotal, &gpuMemUsed, &gpuTemp,
		&record.NetworkSentKbps, &record.NetworkRecvKbps,
		&record.ProcessCount, &record.SystemUptime,
		&cpuTemp, &mbTemp, &dskTemp, &maxTemp,
	)
	if err != nil {
		return Record{}, err
	}

	record.Timestamp = time.UnixMilli(ts).UTC()
	record.MemoryTotal = uint64(memTotal)
	record.MemoryUsed = uint64(memUsed)
	record.MemoryAvailable = uint64(memAvail)
	record.SwapTotal = uint64(swapTotal)
	record.SwapUsed = uint64(swapUsed)
	record.DiskTotal = uint64(diskTotal)
	record.DiskUsed = uint64(diskUsed)
	record.DiskAvailable = uint64(diskAvail)

	if gpuName.Valid {
		record.GPU = &metrics.GPUInfo{
			Name:        gpuName.String,
			Usage:       gpuUsage.Float64,
			MemoryTotal: uint64(gpuMemTotal.Int64),
			MemoryUsed:  uint64(gpuMemUsed.Int64),
			Temperature: floatPtr(gpuTemp),
		}
	}
	if gpuTemp.Valid {
		record.GPUTemperature = floatPtr(gpuTemp)
	}
	record.CPUTemperature = floatPtr(cpuTemp)
	record.MotherboardTemperature = floatPtr(mbTemp)
	record.DiskTemperature = floatPtr(dskTemp)
	record.MaxTemperature = floatPtr(maxTemp)

	return record, nil
}

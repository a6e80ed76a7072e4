package history

import "github.com/Maksikos-ctrl/SystemMonitor/internal/errors"

const (
	defaultDirPerm    = 0o755
	defaultDBPath     = "/var/lib/sysmonitor/history.db"
	defaultPoolSize   = 5
	defaultQueryLimit = 10
)

type Config struct {
	DBPath     string
	PoolSize   int
	QueryLimit int
}

func DefaultConfig() Config {
	return Config{
		DBPath:     defaultDBPath,
		PoolSize:   defaultPoolSize,
		QueryLimit: defaultQueryLimit,
	}
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	if c.PoolSize <= 0 {
		return errFactory.WithMessage(ErrInvalidConfig, "pool size must be positive")
	}
	return nil
}

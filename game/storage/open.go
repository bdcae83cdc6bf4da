package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/sirupsen/logrus"
	"github.com/wricardo/pixelboard/game/engine"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Backend names accepted by Open
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMySQL  = "mysql"
)

var ErrUnknownBackend = errors.New("unknown storage backend")

// Options selects and configures a backend
type Options struct {
	Backend     string
	DataFile    string
	RedisAddr   string
	RedisPrefix string
	MySQLDSN    string
}

// Open builds the backend named by opts.Backend. The returned closer releases
// network connections and is never nil.
func Open(opts Options) (engine.Storage, func() error, error) {
	noop := func() error { return nil }

	switch strings.ToLower(opts.Backend) {
	case "", BackendMemory:
		return NewMemory(), noop, nil

	case BackendFile:
		if opts.DataFile == "" {
			return nil, noop, fmt.Errorf("file backend requires a data file path")
		}
		store, err := NewFile(opts.DataFile)
		if err != nil {
			return nil, noop, err
		}
		return store, noop, nil

	case BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: opts.RedisAddr})
		ctx, cancel := context.WithTimeout(context.Background(), DefaultOpTimeout)
		defer cancel()
		if err := client.Ping(ctx).Err(); err != nil {
			client.Close()
			return nil, noop, fmt.Errorf("failed to connect to redis at %s: %w", opts.RedisAddr, err)
		}
		logrus.WithField("addr", opts.RedisAddr).Info("Redis connected")
		return NewRedis(client, opts.RedisPrefix), client.Close, nil

	case BackendMySQL:
		if opts.MySQLDSN == "" {
			return nil, noop, fmt.Errorf("mysql backend requires a DSN")
		}
		db, err := gorm.Open(mysql.Open(opts.MySQLDSN), &gorm.Config{
			Logger: newGormLogger(logrus.StandardLogger()),
		})
		if err != nil {
			return nil, noop, fmt.Errorf("failed to connect to mysql: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, noop, fmt.Errorf("failed to get underlying sql.DB: %w", err)
		}
		store, err := NewGorm(db)
		if err != nil {
			sqlDB.Close()
			return nil, noop, err
		}
		logrus.Info("MySQL connected")
		return store, sqlDB.Close, nil
	}

	return nil, noop, fmt.Errorf("%w: %q", ErrUnknownBackend, opts.Backend)
}

// newGormLogger reports slow queries and SQL errors through logrus. A missing
// player is a normal lookup result, not an error.
func newGormLogger(out logger.Writer) logger.Interface {
	return logger.New(out, logger.Config{
		SlowThreshold:             200 * time.Millisecond,
		LogLevel:                  logger.Warn,
		IgnoreRecordNotFoundError: true,
	})
}

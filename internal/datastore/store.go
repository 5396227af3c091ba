// Package datastore opens the configured database and exposes the repositories.
package datastore

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tphakala/image-analyzer/internal/conf"
	"github.com/tphakala/image-analyzer/internal/datastore/entities"
	"github.com/tphakala/image-analyzer/internal/datastore/repository"
	"github.com/tphakala/image-analyzer/internal/errors"
	"github.com/tphakala/image-analyzer/internal/logger"
)

// sqlitePragmas enable concurrent readers and make writers wait instead of
// failing with SQLITE_BUSY while another connection holds the write lock.
const sqlitePragmas = "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=ON"

// Store owns the database handle and the repositories built on it.
type Store struct {
	db     *gorm.DB
	dbType string
	log    logger.Logger

	Labels repository.LabelRepository
	Logs   repository.AnalysisLogRepository
}

// Open connects to the configured database and migrates the schema.
func Open(ctx context.Context, settings *conf.DatastoreSettings, log logger.Logger) (*Store, error) {
	if settings == nil {
		return nil, errors.NewStd("datastore settings cannot be nil")
	}
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}

	gormConfig := &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, settings.SlowQueryThreshold,
			logger.WithQuietErrors(repository.IsDuplicateKey)),
	}

	var (
		dialector gorm.Dialector
		target    string
	)
	switch settings.Type {
	case conf.DatastoreMySQL:
		dsn := mysqlDSN(&settings.MySQL)
		dialector = mysql.Open(dsn)
		target = net.JoinHostPort(settings.MySQL.Host, settings.MySQL.Port) + "/" + settings.MySQL.Database
	case conf.DatastoreSQLite, "":
		path := settings.SQLite.Path
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, errors.New(err).
					Component("datastore").
					Category(errors.CategoryFileIO).
					Context("path", dir).
					Build()
			}
		}
		dialector = sqlite.Open(path + sqlitePragmas)
		target = path
	default:
		return nil, errors.Newf("unsupported datastore type %q", settings.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Build()
	}

	db, err := gorm.Open(dialector, gormConfig)
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "open").
			Context("database_type", settings.Type).
			Build()
	}

	store := newStore(db, settings.Type, log)
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, err
	}

	log.Info("database opened",
		logger.String("type", store.dbType),
		logger.String("target", target))
	return store, nil
}

// NewWithDB wraps an existing connection. The schema is not migrated.
func NewWithDB(db *gorm.DB, log logger.Logger) *Store {
	if log == nil {
		log = logger.NewSlogLogger(nil, logger.LogLevelInfo, nil)
	}
	return newStore(db, db.Name(), log)
}

func newStore(db *gorm.DB, dbType string, log logger.Logger) *Store {
	if dbType == "" {
		dbType = conf.DatastoreSQLite
	}
	return &Store{
		db:     db,
		dbType: dbType,
		log:    log,
		Labels: repository.NewLabelRepository(db),
		Logs:   repository.NewAnalysisLogRepository(db),
	}
}

// Migrate creates or updates the schema.
func (s *Store) Migrate(ctx context.Context) error {
	start := time.Now()
	if err := s.db.WithContext(ctx).AutoMigrate(&entities.Label{}, &entities.AnalysisLog{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("operation", "auto-migrate").
			Build()
	}
	s.log.Debug("schema migrated", logger.Duration("duration", time.Since(start)))
	return nil
}

// DB returns the underlying connection.
func (s *Store) DB() *gorm.DB {
	return s.db
}

// Type returns the database type, sqlite or mysql.
func (s *Store) Type() string {
	return s.dbType
}

// Ping verifies the connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database handle: %w", err)
	}
	return sqlDB.Close()
}

func mysqlDSN(s *conf.MySQLSettings) string {
	cfg := mysqldrv.NewConfig()
	cfg.User = s.Username
	cfg.Passwd = s.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(s.Host, s.Port)
	cfg.DBName = s.Database
	cfg.ParseTime = true
	cfg.Loc = time.Local
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

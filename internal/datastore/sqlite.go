package datastore

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/logger"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// slowQueryThreshold marks queries logged as slow.
const slowQueryThreshold = 200 * time.Millisecond

// DefaultMinFreeSpace is the free space, in bytes, a run write leaves on the
// database file system unless configured otherwise.
const DefaultMinFreeSpace uint64 = 16 << 20

// SQLiteStore implements Interface for SQLite
type SQLiteStore struct {
	DataStore
	Path  string
	Debug bool

	// MinFreeSpace is checked before every SaveRun; 0 disables the check.
	MinFreeSpace uint64
}

// NewSQLiteStore creates a store for the database file at path. Open must
// be called before use.
func NewSQLiteStore(path string, debug bool, m *Metrics, log logger.Logger) *SQLiteStore {
	return &SQLiteStore{
		DataStore: DataStore{metrics: m, log: log},
		Path:         path,
		Debug:        debug,
		MinFreeSpace: DefaultMinFreeSpace,
	}
}

func validateSQLiteConfig(path string) error {
	if path == "" {
		return validationError("sqlite path must not be empty", "output.sqlite.path", path)
	}
	return nil
}

// Open connects to the database, creating the file and its directory when
// needed, and migrates the schema.
func (store *SQLiteStore) Open() error {
	if err := validateSQLiteConfig(store.Path); err != nil {
		return err
	}

	dsn := "file::memory:?_foreign_keys=on"
	connectionInfo := MemoryPath
	if store.Path != MemoryPath {
		absolutePath, err := filepath.Abs(store.Path)
		if err != nil {
			return dbError(err, "resolve_path", "path", store.Path)
		}
		if err := os.MkdirAll(filepath.Dir(absolutePath), 0o755); err != nil {
			return errors.New(err).
				Component("datastore").
				Category(errors.CategoryFileIO).
				Context("path", absolutePath).
				Build()
		}
		dsn = "file:" + absolutePath + "?_foreign_keys=on"
		connectionInfo = absolutePath
	}

	level := gormlogger.Warn
	if store.Debug {
		level = gormlogger.Info
	}
	gormLogger := NewGormLogger(slowQueryThreshold, level, store.log, store.metrics)

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormLogger})
	if err != nil {
		return dbError(err, "open", "db_type", "sqlite", "path", connectionInfo)
	}

	// One connection keeps an in-memory database shared and serializes
	// writers on a file.
	sqlDB, err := db.DB()
	if err != nil {
		return dbError(err, "open", "db_type", "sqlite")
	}
	sqlDB.SetMaxOpenConns(1)

	store.DB = db
	return performAutoMigration(db, store.Debug, "SQLite", connectionInfo)
}

// Close releases the database connection.
func (store *SQLiteStore) Close() error {
	if store.DB == nil {
		return nil
	}
	sqlDB, err := store.DB.DB()
	if err != nil {
		return dbError(err, "close", "db_type", "sqlite")
	}
	if err := sqlDB.Close(); err != nil {
		return dbError(err, "close", "db_type", "sqlite")
	}
	store.DB = nil
	return nil
}

// SaveRun refuses to write when the database file system is short on space,
// then stores the run.
func (store *SQLiteStore) SaveRun(ctx context.Context, run *CensusRun) error {
	if err := store.checkFreeSpace(); err != nil {
		return err
	}
	return store.DataStore.SaveRun(ctx, run)
}

// checkFreeSpace compares the space available to the database directory
// with MinFreeSpace. In-memory databases are never checked, and a file
// system that cannot report its space does not block writes.
func (store *SQLiteStore) checkFreeSpace() error {
	if store.MinFreeSpace == 0 || store.Path == MemoryPath {
		return nil
	}

	dir := filepath.Dir(store.Path)
	free, err := getDiskFreeSpace(dir)
	if err != nil {
		store.moduleLogger().Warn("free space check failed",
			logger.String("path", dir),
			logger.Error(err))
		return nil
	}
	if free < store.MinFreeSpace {
		return errors.Newf("insufficient disk space for census run: %d bytes free, %d required", free, store.MinFreeSpace).
			Component("datastore").
			Category(errors.CategoryFileIO).
			Context("path", dir).
			Context("free_bytes", free).
			Context("required_bytes", store.MinFreeSpace).
			Build()
	}
	return nil
}

var _ Interface = (*SQLiteStore)(nil)

// Package datastore persists census runs, species estimates and per-window
// outcomes with gorm.
package datastore

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tphakala/birdnet-census/internal/errors"
	"github.com/tphakala/birdnet-census/internal/logger"
	"github.com/tphakala/birdnet-census/internal/observability/metrics"
)

// Table names used in metric labels.
const (
	tableRuns      = "census_runs"
	tableEstimates = "species_estimates"
	tableWindows   = "window_records"
)

// Interface abstracts the census run store.
type Interface interface {
	Open() error
	Close() error
	SaveRun(ctx context.Context, run *CensusRun) error
	GetRun(ctx context.Context, id string) (*CensusRun, error)
	ListRuns(ctx context.Context, limit int) ([]CensusRun, error)
	SpeciesHistory(ctx context.Context, species string, limit int) ([]SpeciesEstimate, error)
	DeleteRun(ctx context.Context, id string) error
}

// DataStore implements the queries shared by every gorm backend.
type DataStore struct {
	DB      *gorm.DB
	metrics *Metrics
	log     logger.Logger
}

func (ds *DataStore) moduleLogger() logger.Logger {
	if ds.log == nil {
		return GetLogger()
	}
	return ds.log
}

func (ds *DataStore) ready() error {
	if ds.DB == nil {
		return errors.Newf("database connection is not initialized").
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return nil
}

// record reports one operation to the datastore metrics.
func (ds *DataStore) record(operation, table string, start time.Time, err error) {
	if ds.metrics == nil {
		return
	}
	label := opLabel(operation, table)
	ds.metrics.RecordDuration(label, time.Since(start).Seconds())
	if err != nil {
		ds.metrics.RecordOperation(label, metrics.StatusError)
		ds.metrics.RecordError(label, categorizeError(err))
		return
	}
	ds.metrics.RecordOperation(label, metrics.StatusSuccess)
}

// SaveRun stores a run with its estimates and window records in one
// transaction.
func (ds *DataStore) SaveRun(ctx context.Context, run *CensusRun) error {
	if err := ds.ready(); err != nil {
		return err
	}
	if run == nil {
		return validationError("census run must not be nil", "run", nil)
	}
	if _, err := uuid.Parse(run.ID); err != nil {
		return validationError("census run id must be a uuid", "id", run.ID)
	}

	start := time.Now()
	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(run).Error
	})
	ds.record(metrics.OpDbInsert, tableRuns, start, err)
	if err != nil {
		return dbError(err, "save_run", "run_id", run.ID)
	}

	if ds.metrics != nil {
		ds.metrics.RecordRowsWritten(tableRuns, 1)
		ds.metrics.RecordRowsWritten(tableEstimates, len(run.Estimates))
		ds.metrics.RecordRowsWritten(tableWindows, len(run.WindowResults))
	}
	ds.moduleLogger().Debug("census run saved",
		logger.String("run_id", run.ID),
		logger.Int("estimates", len(run.Estimates)),
		logger.Int("windows", len(run.WindowResults)))
	return nil
}

// GetRun loads a run with its estimates and windows.
func (ds *DataStore) GetRun(ctx context.Context, id string) (*CensusRun, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}

	start := time.Now()
	var run CensusRun
	err := ds.DB.WithContext(ctx).
		Preload("Estimates", func(db *gorm.DB) *gorm.DB { return db.Order("species_code") }).
		Preload("WindowResults", func(db *gorm.DB) *gorm.DB { return db.Order("species_code, window_index") }).
		First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		ds.record(metrics.OpDbQuery, tableRuns, start, nil)
		return nil, notFoundError("census run", id)
	}
	ds.record(metrics.OpDbQuery, tableRuns, start, err)
	if err != nil {
		return nil, dbError(err, "get_run", "run_id", id)
	}
	return &run, nil
}

// ListRuns returns the most recent runs with their estimates, newest first.
// A limit of 0 or less returns every run.
func (ds *DataStore) ListRuns(ctx context.Context, limit int) ([]CensusRun, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}

	start := time.Now()
	q := ds.DB.WithContext(ctx).
		Preload("Estimates", func(db *gorm.DB) *gorm.DB { return db.Order("species_code") }).
		Order("started_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []CensusRun
	err := q.Find(&runs).Error
	ds.record(metrics.OpDbQuery, tableRuns, start, err)
	if err != nil {
		return nil, dbError(err, "list_runs")
	}
	return runs, nil
}

// SpeciesHistory returns the stored estimates of a species, newest first.
func (ds *DataStore) SpeciesHistory(ctx context.Context, species string, limit int) ([]SpeciesEstimate, error) {
	if err := ds.ready(); err != nil {
		return nil, err
	}
	if species == "" {
		return nil, validationError("species code must not be empty", "species", species)
	}

	start := time.Now()
	q := ds.DB.WithContext(ctx).
		Where("species_code = ?", species).
		Order("created_at DESC").
		Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var estimates []SpeciesEstimate
	err := q.Find(&estimates).Error
	ds.record(metrics.OpDbQuery, tableEstimates, start, err)
	if err != nil {
		return nil, dbError(err, "species_history", "species", species)
	}
	return estimates, nil
}

// DeleteRun removes a run and everything recorded for it.
func (ds *DataStore) DeleteRun(ctx context.Context, id string) error {
	if err := ds.ready(); err != nil {
		return err
	}

	start := time.Now()
	var affected int64
	err := ds.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", id).Delete(&WindowRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", id).Delete(&SpeciesEstimate{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&CensusRun{})
		affected = res.RowsAffected
		return res.Error
	})
	ds.record(metrics.OpDbDelete, tableRuns, start, err)
	if err != nil {
		return dbError(err, "delete_run", "run_id", id)
	}
	if affected == 0 {
		return notFoundError("census run", id)
	}
	return nil
}

// performAutoMigration creates or updates the census tables.
func performAutoMigration(db *gorm.DB, debug bool, dbType, connectionInfo string) error {
	migrationStart := time.Now()
	if err := db.AutoMigrate(&CensusRun{}, &SpeciesEstimate{}, &WindowRecord{}); err != nil {
		return dbError(err, "auto_migrate", "db_type", dbType)
	}

	if debug {
		GetLogger().Debug("database migration completed",
			logger.String("db_type", dbType),
			logger.String("connection", connectionInfo),
			logger.Duration("duration", time.Since(migrationStart)))
	}
	return nil
}

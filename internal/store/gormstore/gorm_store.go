package gormstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stratguard/internal/config"
	"stratguard/internal/lookahead"
	"stratguard/internal/store"
	storemodel "stratguard/internal/store/model"

	"gorm.io/datatypes"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type runModel = storemodel.RunModel
type lookaheadModel = storemodel.LookaheadModel

// GormStore implements store.RunStore on SQLite or MySQL.
type GormStore struct {
	db *gorm.DB
}

var (
	_ store.RunStore     = (*GormStore)(nil)
	_ lookahead.Recorder = (*GormStore)(nil)
)

// Open connects the configured backend and migrates the schema.
func Open(cfg config.StoreConfig) (*GormStore, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "sqlite":
		path := strings.TrimSpace(cfg.Path)
		if path == "" {
			return nil, fmt.Errorf("gorm store: sqlite path is required")
		}
		if err := ensureDir(path); err != nil {
			return nil, err
		}
		dialector = sqlite.Open(fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", path))
	case "mysql":
		dsn := strings.TrimSpace(cfg.DSN)
		if dsn == "" {
			return nil, fmt.Errorf("gorm store: mysql dsn is required")
		}
		dialector = mysql.Open(dsn)
	default:
		return nil, fmt.Errorf("gorm store: unsupported driver %q", cfg.Driver)
	}
	return open(dialector)
}

// NewGormStore opens a SQLite store at path.
func NewGormStore(path string) (*GormStore, error) {
	return Open(config.StoreConfig{Driver: "sqlite", Path: path})
}

func open(dialector gorm.Dialector) (*GormStore, error) {
	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&runModel{}, &lookaheadModel{}); err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// SQLite + WAL: a second connection lets HTTP reads proceed while a run writes.
	sqlDB.SetMaxOpenConns(2)
	sqlDB.SetMaxIdleConns(2)
	return &GormStore{db: db}, nil
}

// Close closes the underlying database connection.
func (s *GormStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// ------------------------------- Runs -----------------------------------

func (s *GormStore) BeginRun(ctx context.Context, runID, mode string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	runID = strings.TrimSpace(runID)
	if runID == "" {
		return fmt.Errorf("run id is required")
	}
	m := runModel{
		ID:        runID,
		Mode:      strings.TrimSpace(mode),
		Outcome:   store.OutcomeRunning,
		StartedAt: time.Now().UnixMilli(),
	}
	return s.db.WithContext(ctx).Create(&m).Error
}

func (s *GormStore) FinishRun(ctx context.Context, runID, outcome, message string) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	res := s.db.WithContext(ctx).Model(&runModel{}).
		Where("id = ?", runID).
		Updates(map[string]interface{}{
			"outcome":     outcome,
			"message":     message,
			"finished_at": time.Now().UnixMilli(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("run %s not found", runID)
	}
	return nil
}

func (s *GormStore) GetRun(ctx context.Context, runID string) (store.RunRecord, bool, error) {
	if s == nil || s.db == nil {
		return store.RunRecord{}, false, fmt.Errorf("gorm store not initialized")
	}
	var m runModel
	err := s.db.WithContext(ctx).Where("id = ?", runID).Take(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return store.RunRecord{}, false, nil
	}
	if err != nil {
		return store.RunRecord{}, false, err
	}
	return runModelToRecord(m), true, nil
}

// ListRuns returns the most recent runs first.
func (s *GormStore) ListRuns(ctx context.Context, limit int) ([]store.RunRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	if limit <= 0 {
		limit = 50
	}
	var models []runModel
	if err := s.db.WithContext(ctx).Order("started_at DESC").Order("id DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]store.RunRecord, 0, len(models))
	for _, m := range models {
		out = append(out, runModelToRecord(m))
	}
	return out, nil
}

// ------------------------------ Lookahead --------------------------------

// SaveLookahead upserts results keyed by (run, filename, strategy).
func (s *GormStore) SaveLookahead(ctx context.Context, runID string, results []lookahead.Result) error {
	if s == nil || s.db == nil {
		return fmt.Errorf("gorm store not initialized")
	}
	if len(results) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()
	models := make([]lookaheadModel, 0, len(results))
	for _, r := range results {
		models = append(models, newLookaheadModel(runID, r, now))
	}
	cols := []string{
		"has_bias", "failed", "total_signals", "biased_entry_signals", "biased_exit_signals",
		"biased_indicators", "evidence", "duration_ms", "created_at",
	}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "run_id"}, {Name: "filename"}, {Name: "strategy"}},
			DoUpdates: clause.AssignmentColumns(cols),
		}).
		Create(&models).Error
}

// LookaheadForRun returns the results of runID in the order they were recorded.
func (s *GormStore) LookaheadForRun(ctx context.Context, runID string) ([]store.LookaheadRecord, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("gorm store not initialized")
	}
	var models []lookaheadModel
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]store.LookaheadRecord, 0, len(models))
	for _, m := range models {
		out = append(out, lookaheadModelToRecord(m))
	}
	return out, nil
}

// --------------------------- Model Helpers ------------------------------

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "" || dir == "." {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

func runModelToRecord(m runModel) store.RunRecord {
	rec := store.RunRecord{
		ID:        m.ID,
		Mode:      m.Mode,
		Outcome:   m.Outcome,
		Message:   m.Message,
		StartedAt: time.UnixMilli(m.StartedAt),
	}
	if m.FinishedAt > 0 {
		rec.FinishedAt = time.UnixMilli(m.FinishedAt)
	}
	return rec
}

func newLookaheadModel(runID string, r lookahead.Result, now int64) lookaheadModel {
	indicators := r.BiasedIndicators
	if indicators == nil {
		indicators = []string{}
	}
	return lookaheadModel{
		RunID:              runID,
		Filename:           r.Filename,
		Strategy:           r.Strategy,
		HasBias:            r.HasBias,
		Failed:             r.Failed,
		TotalSignals:       r.TotalSignals,
		BiasedEntrySignals: r.BiasedEntrySignals,
		BiasedExitSignals:  r.BiasedExitSignals,
		BiasedIndicators:   datatypes.JSON(mustJSONBytes(indicators)),
		Evidence:           datatypes.JSON(mustJSONBytes(r.Evidence)),
		DurationMs:         r.Duration.Milliseconds(),
		CreatedAt:          now,
	}
}

func lookaheadModelToRecord(m lookaheadModel) store.LookaheadRecord {
	rec := store.LookaheadRecord{
		RunID:              m.RunID,
		Filename:           m.Filename,
		Strategy:           m.Strategy,
		HasBias:            m.HasBias,
		Failed:             m.Failed,
		TotalSignals:       m.TotalSignals,
		BiasedEntrySignals: m.BiasedEntrySignals,
		BiasedExitSignals:  m.BiasedExitSignals,
		DurationMs:         m.DurationMs,
		CreatedAt:          time.UnixMilli(m.CreatedAt),
	}
	_ = json.Unmarshal(m.BiasedIndicators, &rec.BiasedIndicators)
	if len(m.Evidence) > 0 {
		_ = json.Unmarshal(m.Evidence, &rec.Evidence)
	}
	return rec
}

func mustJSONBytes(v any) []byte {
	if v == nil {
		return []byte("null")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return []byte("null")
	}
	return raw
}

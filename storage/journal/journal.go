// Package journal persists verification reports so drift between projected
// and observed state can be audited after the fact.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"lendoracle/native/lending/verify"
	"lendoracle/observability"
)

// ErrNotFound is returned when no entry exists for an ID.
var ErrNotFound = errors.New("journal: entry not found")

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Entry is the persisted form of a verification report. Snapshots and
// mismatches are stored as JSON text so big integers survive every driver.
type Entry struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	Symbol          string    `gorm:"size:32;index"`
	Action          string    `gorm:"size:32;index"`
	RateMode        string    `gorm:"size:16"`
	UserAddress     string    `gorm:"size:42;index"`
	TxTimestamp     uint64    `gorm:"index"`
	Passed          bool      `gorm:"index"`
	MismatchCount   int
	Mismatches      string `gorm:"type:text"`
	ExpectedReserve string `gorm:"type:text"`
	ExpectedUser    string `gorm:"type:text"`
	CheckedAt       time.Time
	CreatedAt       time.Time
}

// Filter narrows List results.
type Filter struct {
	Symbol     string
	Action     string
	OnlyFailed bool
	Limit      int
}

// Store is a gorm backed journal. It satisfies verify.Journal.
type Store struct {
	db *gorm.DB
}

var _ verify.Journal = (*Store)(nil)

// Open connects to the configured database and migrates the schema.
func Open(driver, dsn string) (*Store, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("journal: dsn required")
	}
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite, "":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("journal: unsupported driver %q", driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", driver, err)
	}
	return New(db)
}

// New wraps an existing connection and migrates the schema.
func New(db *gorm.DB) (*Store, error) {
	if db == nil {
		return nil, fmt.Errorf("journal: database required")
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// AutoMigrate performs the journal schema migrations.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&Entry{})
}

// Record persists report.
func (s *Store) Record(ctx context.Context, report verify.Report) error {
	entry, err := entryFromReport(report)
	if err == nil {
		err = s.db.WithContext(ctx).Create(&entry).Error
	}
	observability.Journal().RecordWrite(report.Symbol, err)
	if err != nil {
		return fmt.Errorf("journal: record %s: %w", report.ID, err)
	}
	return nil
}

// Get loads the entry with the given ID.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (Entry, error) {
	var entry Entry
	err := s.db.WithContext(ctx).First(&entry, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, fmt.Errorf("journal: get %s: %w", id, err)
	}
	return entry, nil
}

// List returns entries matching filter, newest transaction first.
func (s *Store) List(ctx context.Context, filter Filter) ([]Entry, error) {
	query := s.db.WithContext(ctx).Model(&Entry{})
	if symbol := strings.ToUpper(strings.TrimSpace(filter.Symbol)); symbol != "" {
		query = query.Where("symbol = ?", symbol)
	}
	if action := strings.TrimSpace(filter.Action); action != "" {
		query = query.Where("action = ?", action)
	}
	if filter.OnlyFailed {
		query = query.Where("passed = ?", false)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	var entries []Entry
	if err := query.Order("tx_timestamp DESC").Order("checked_at DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	return entries, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func entryFromReport(report verify.Report) (Entry, error) {
	mismatches, err := json.Marshal(struct {
		Reserve any `json:"reserve"`
		User    any `json:"user"`
	}{report.ReserveMismatches, report.UserMismatches})
	if err != nil {
		return Entry{}, err
	}
	reserve, err := json.Marshal(report.ExpectedReserve)
	if err != nil {
		return Entry{}, err
	}
	user, err := json.Marshal(report.ExpectedUser)
	if err != nil {
		return Entry{}, err
	}
	id := report.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return Entry{
		ID:              id,
		Symbol:          strings.ToUpper(strings.TrimSpace(report.Symbol)),
		Action:          string(report.Action),
		RateMode:        report.RateMode,
		UserAddress:     report.User.Hex(),
		TxTimestamp:     report.TxTimestamp,
		Passed:          report.Passed(),
		MismatchCount:   len(report.ReserveMismatches) + len(report.UserMismatches),
		Mismatches:      string(mismatches),
		ExpectedReserve: string(reserve),
		ExpectedUser:    string(user),
		CheckedAt:       report.CheckedAt,
	}, nil
}

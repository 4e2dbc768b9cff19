// Package journal keeps a durable, queryable record of every executed
// operation and the events it committed.
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

	"securewrap/core/types"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	defaultListLimit = 100
	maxListLimit     = 1000
)

var ErrUnknownDriver = errors.New("journal: unknown driver")

// Entry is one executed operation. Failed operations are journaled too, with
// Code set and no events.
type Entry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	Sequence  uint64    `gorm:"uniqueIndex;not null"`
	Operation string    `gorm:"index;not null"`
	Caller    string    `gorm:"index"`
	Mint      string    `gorm:"index"`
	Code      string
	Message   string
	Events    string `gorm:"type:text"`
	Timestamp int64  `gorm:"not null"`
	CreatedAt time.Time
}

// TableName pins the table name independent of gorm's pluralisation.
func (Entry) TableName() string { return "journal_entries" }

// SetEvents encodes the committed events into the entry.
func (e *Entry) SetEvents(evts []*types.Event) error {
	if len(evts) == 0 {
		e.Events = ""
		return nil
	}
	raw, err := json.Marshal(evts)
	if err != nil {
		return fmt.Errorf("journal: encode events: %w", err)
	}
	e.Events = string(raw)
	return nil
}

// DecodedEvents returns the events stored with the entry.
func (e *Entry) DecodedEvents() ([]*types.Event, error) {
	if strings.TrimSpace(e.Events) == "" {
		return nil, nil
	}
	var out []*types.Event
	if err := json.Unmarshal([]byte(e.Events), &out); err != nil {
		return nil, fmt.Errorf("journal: decode events: %w", err)
	}
	return out, nil
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Mint      string
	Caller    string
	Operation string
	// AfterSequence returns entries with a strictly greater sequence.
	AfterSequence uint64
	Limit         int
}

// Store persists entries through gorm.
type Store struct {
	db *gorm.DB
}

// Open connects to the configured driver and migrates the schema.
func Open(driver, dsn string) (*Store, error) {
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		if strings.TrimSpace(dsn) == "" {
			dsn = "file::memory:?cache=shared"
		}
		dialector = sqlite.Open(dsn)
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, driver)
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
		return nil, errors.New("journal: nil database")
	}
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Append records an entry. A missing ID is generated.
func (s *Store) Append(ctx context.Context, entry *Entry) error {
	if entry == nil {
		return errors.New("journal: nil entry")
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if err := s.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("journal: append: %w", err)
	}
	return nil
}

// List returns entries in sequence order.
func (s *Store) List(ctx context.Context, filter Filter) ([]Entry, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	query := s.db.WithContext(ctx).Model(&Entry{}).Where("sequence > ?", filter.AfterSequence)
	if filter.Mint != "" {
		query = query.Where("mint = ?", filter.Mint)
	}
	if filter.Caller != "" {
		query = query.Where("caller = ?", filter.Caller)
	}
	if filter.Operation != "" {
		query = query.Where("operation = ?", filter.Operation)
	}
	var entries []Entry
	if err := query.Order("sequence asc").Limit(limit).Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	return entries, nil
}

// LastSequence returns the highest journaled sequence, or zero.
func (s *Store) LastSequence(ctx context.Context) (uint64, error) {
	var entry Entry
	err := s.db.WithContext(ctx).Order("sequence desc").Limit(1).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("journal: last sequence: %w", err)
	}
	return entry.Sequence, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

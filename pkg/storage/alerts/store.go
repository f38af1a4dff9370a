package alerts

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"eventpipe/pkg/storage"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Config mirrors the storage configuration for the alerts table.
type Config struct {
	Driver      string
	DSN         string
	Dialect     string
	Table       string
	AutoMigrate bool
}

// Store implements storage.AlertStore on top of GORM.
type Store struct {
	db    *gorm.DB
	table string
}

type row struct {
	ID          uint      `gorm:"column:id;primaryKey;autoIncrement"`
	Source      string    `gorm:"column:source;size:64;not null;index"`
	Rule        string    `gorm:"column:rule;type:text"`
	Topic       string    `gorm:"column:topic;size:255;not null;index"`
	PayloadJSON string    `gorm:"column:payload_json;type:text"`
	CreatedAt   time.Time `gorm:"column:created_at;autoCreateTime;index"`
}

// Open creates a GORM-backed alert store.
func Open(cfg Config) (*Store, error) {
	if cfg.Driver == "" && cfg.Dialect == "" {
		return nil, errors.New("storage driver or dialect is required")
	}
	if cfg.DSN == "" {
		return nil, errors.New("storage dsn is required")
	}
	driver := normalizeDriver(cfg.Driver)
	if driver == "" {
		driver = normalizeDriver(cfg.Dialect)
	}
	if driver == "" {
		return nil, errors.New("unsupported storage driver")
	}

	gormDB, err := openGorm(driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	table := cfg.Table
	if table == "" {
		table = "eventpipe_alerts"
	}
	store := &Store{
		db:    gormDB,
		table: table,
	}
	if cfg.AutoMigrate {
		if err := store.migrate(); err != nil {
			return nil, err
		}
	}
	return store, nil
}

// Close closes the underlying DB connection.
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

// Insert records one alert.
func (s *Store) Insert(ctx context.Context, record storage.AlertRecord) error {
	if s == nil || s.db == nil {
		return errors.New("store is not initialized")
	}
	if record.Topic == "" {
		return errors.New("topic is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}

	data := toRow(record)
	return s.tableDB().
		WithContext(ctx).
		Create(&data).Error
}

// List returns alerts matching the filter, newest first.
func (s *Store) List(ctx context.Context, filter storage.AlertFilter) ([]storage.AlertRecord, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("store is not initialized")
	}

	query := s.tableDB().WithContext(ctx)
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}
	if filter.Topic != "" {
		query = query.Where("topic = ?", filter.Topic)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	query = query.Order("created_at desc")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var data []row
	if err := query.Find(&data).Error; err != nil {
		return nil, err
	}
	records := make([]storage.AlertRecord, 0, len(data))
	for _, item := range data {
		records = append(records, fromRow(item))
	}
	return records, nil
}

func (s *Store) migrate() error {
	return s.tableDB().AutoMigrate(&row{})
}

func (s *Store) tableDB() *gorm.DB {
	return s.db.Table(s.table)
}

func toRow(record storage.AlertRecord) row {
	return row{
		ID:          record.ID,
		Source:      record.Source,
		Rule:        record.Rule,
		Topic:       record.Topic,
		PayloadJSON: record.PayloadJSON,
		CreatedAt:   record.CreatedAt,
	}
}

func fromRow(data row) storage.AlertRecord {
	return storage.AlertRecord{
		ID:          data.ID,
		Source:      data.Source,
		Rule:        data.Rule,
		Topic:       data.Topic,
		PayloadJSON: data.PayloadJSON,
		CreatedAt:   data.CreatedAt,
	}
}

func normalizeDriver(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	switch value {
	case "postgres", "postgresql", "pgx":
		return "postgres"
	case "mysql":
		return "mysql"
	case "sqlite", "sqlite3":
		return "sqlite"
	default:
		return ""
	}
}

func openGorm(driver, dsn string) (*gorm.DB, error) {
	switch driver {
	case "postgres":
		return gorm.Open(postgres.Open(dsn), &gorm.Config{})
	case "mysql":
		return gorm.Open(mysql.Open(dsn), &gorm.Config{})
	case "sqlite":
		return gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}
}

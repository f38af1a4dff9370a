package storage

import (
	"context"
	"time"
)

// AlertRecord stores one published alert.
type AlertRecord struct {
	ID          uint
	Source      string
	Rule        string
	Topic       string
	PayloadJSON string
	CreatedAt   time.Time
}

// AlertFilter selects alert rows.
type AlertFilter struct {
	Source string
	Topic  string
	Since  time.Time
	Limit  int
}

// AlertStore defines the persistence interface for alerts.
type AlertStore interface {
	Insert(ctx context.Context, record AlertRecord) error
	List(ctx context.Context, filter AlertFilter) ([]AlertRecord, error)
	Close() error
}

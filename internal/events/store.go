package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// ErrEventNotFound is returned when deleting an event that does not exist for the site.
var ErrEventNotFound = errors.New("event not found")

// StorageError wraps a failure of the event store. Clients may retry.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("event store %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// Retryable is always true for storage failures.
func (e *StorageError) Retryable() bool {
	return true
}

// EventQuery selects events for one website. Zero times leave that bound open.
type EventQuery struct {
	WebsiteID   string
	From        time.Time // inclusive
	To          time.Time // exclusive
	Types       []EventType
	Limit       int
	NewestFirst bool
}

// Store persists events.
type Store interface {
	Insert(ctx context.Context, event *Event) error
	EventsForSite(ctx context.Context, q EventQuery) ([]Event, error)
	Delete(ctx context.Context, websiteID string, id uint) error
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// GormStore is the SQLite-backed Store.
type GormStore struct {
	dbManager cartridge.DBManager
	logger    *slog.Logger
}

// NewGormStore creates a store on top of the cartridge database manager.
func NewGormStore(dbManager cartridge.DBManager, logger *slog.Logger) *GormStore {
	return &GormStore{dbManager: dbManager, logger: logger}
}

// Insert appends event. The store assigns ID and CreatedAt if unset.
func (s *GormStore) Insert(ctx context.Context, event *Event) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	db := s.dbManager.GetConnection()
	err := sqlite.PerformWrite(s.logger, db, func(tx *gorm.DB) error {
		return tx.WithContext(ctx).Create(event).Error
	})
	if err != nil {
		s.logger.Error("Failed to store event",
			slog.String("website_id", event.WebsiteID),
			slog.Any("error", err))
		return &StorageError{Op: "insert", Err: err}
	}
	return nil
}

// EventsForSite returns a snapshot of the events matching q, ordered by occurrence.
func (s *GormStore) EventsForSite(ctx context.Context, q EventQuery) ([]Event, error) {
	query := s.dbManager.GetConnection().WithContext(ctx).
		Where("website_id = ?", q.WebsiteID)

	if !q.From.IsZero() {
		query = query.Where("occurred_at >= ?", q.From.UTC())
	}
	if !q.To.IsZero() {
		query = query.Where("occurred_at < ?", q.To.UTC())
	}
	if len(q.Types) > 0 {
		query = query.Where("event_type IN ?", q.Types)
	}
	if q.NewestFirst {
		query = query.Order("occurred_at DESC").Order("id DESC")
	} else {
		query = query.Order("occurred_at ASC").Order("id ASC")
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var result []Event
	if err := query.Find(&result).Error; err != nil {
		return nil, &StorageError{Op: "query", Err: err}
	}
	return result, nil
}

// Delete hard-deletes one event belonging to websiteID.
func (s *GormStore) Delete(ctx context.Context, websiteID string, id uint) error {
	var affected int64
	db := s.dbManager.GetConnection()
	err := sqlite.PerformWrite(s.logger, db, func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).Where("website_id = ? AND id = ?", websiteID, id).Delete(&Event{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return &StorageError{Op: "delete", Err: err}
	}
	if affected == 0 {
		return ErrEventNotFound
	}
	return nil
}

// DeleteOlderThan removes every event that occurred before cutoff.
func (s *GormStore) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	var affected int64
	db := s.dbManager.GetConnection()
	err := sqlite.PerformWrite(s.logger, db, func(tx *gorm.DB) error {
		res := tx.WithContext(ctx).Where("occurred_at < ?", cutoff.UTC()).Delete(&Event{})
		affected = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return 0, &StorageError{Op: "cleanup", Err: err}
	}
	return affected, nil
}

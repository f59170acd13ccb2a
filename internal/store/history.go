package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"remote-diagnosis-server/internal/models"
)

var (
	// ErrNotFound means no diagnosis exists under the given id.
	ErrNotFound = errors.New("diagnosis not found")

	// ErrStorage marks persistence failures. It is kept distinct from
	// generation errors so callers can tell "produced but not saved" apart
	// from "could not be produced".
	ErrStorage = errors.New("history store unavailable")
)

// DefaultListLimit caps a history listing when the caller gives no limit.
const DefaultListLimit = 100

// HistoryStore is the append-only record of past diagnoses.
type HistoryStore interface {
	Append(ctx context.Context, record *models.Diagnosis) error
	Get(ctx context.Context, id string) (*models.Diagnosis, error)
	List(ctx context.Context, limit int) ([]models.Diagnosis, error)
}

// GormHistoryStore persists diagnoses through gorm. Inserts are atomic
// per-record; the id and timestamp are assigned on create when unset.
type GormHistoryStore struct {
	db *gorm.DB
}

var _ HistoryStore = (*GormHistoryStore)(nil)

// NewGormHistoryStore creates a history store backed by db.
func NewGormHistoryStore(db *gorm.DB) *GormHistoryStore {
	return &GormHistoryStore{db: db}
}

// Append inserts one finalized record.
func (s *GormHistoryStore) Append(ctx context.Context, record *models.Diagnosis) error {
	if err := s.db.WithContext(ctx).Create(record).Error; err != nil {
		return fmt.Errorf("%w: insert diagnosis: %v", ErrStorage, err)
	}
	return nil
}

// Get looks up a single diagnosis by id.
func (s *GormHistoryStore) Get(ctx context.Context, id string) (*models.Diagnosis, error) {
	var record models.Diagnosis
	err := s.db.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: get diagnosis %s: %v", ErrStorage, id, err)
	}
	return &record, nil
}

// List returns up to limit records, most recent first. The id tie-break
// keeps the ordering stable when timestamps collide.
func (s *GormHistoryStore) List(ctx context.Context, limit int) ([]models.Diagnosis, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var records []models.Diagnosis
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id ASC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("%w: list history: %v", ErrStorage, err)
	}
	return records, nil
}

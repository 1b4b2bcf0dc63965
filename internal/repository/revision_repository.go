package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain"
)

const defaultHistoryLimit = 50

// RevisionRepository stores the edit journal in postgres.
type RevisionRepository struct {
	db *gorm.DB
}

func NewRevisionRepository(db *gorm.DB) *RevisionRepository {
	return &RevisionRepository{db: db}
}

func (r *RevisionRepository) Create(ctx context.Context, rev *domain.NoteRevision) error {
	if err := r.db.WithContext(ctx).Create(rev).Error; err != nil {
		return fmt.Errorf("inserting note revision: %w", err)
	}
	return nil
}

// ListByNote returns the newest revisions of one note first.
func (r *RevisionRepository) ListByNote(ctx context.Context, noteID string, limit int) ([]domain.NoteRevision, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	revs := []domain.NoteRevision{}
	err := r.db.WithContext(ctx).
		Where("note_id = ?", noteID).
		Order("recorded_at DESC").
		Limit(limit).
		Find(&revs).Error
	if err != nil {
		return nil, fmt.Errorf("listing note revisions: %w", err)
	}
	return revs, nil
}

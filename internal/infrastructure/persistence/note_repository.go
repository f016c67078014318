package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/stockops/backend/internal/domain/credit"
	"github.com/stockops/backend/internal/domain/shared"
)

// GormNoteRepository implements NoteRepository using GORM
type GormNoteRepository struct {
	db *gorm.DB
}

// NewGormNoteRepository creates a new GormNoteRepository
func NewGormNoteRepository(db *gorm.DB) *GormNoteRepository {
	return &GormNoteRepository{db: db}
}

// FindByID finds a note by its ID, items included
func (r *GormNoteRepository) FindByID(ctx context.Context, id uuid.UUID) (*credit.PromissoryNote, error) {
	var note credit.PromissoryNote
	if err := r.db.WithContext(ctx).Preload("Items").First(&note, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &note, nil
}

// FindOpenBySale finds the active note of a sale, items included
func (r *GormNoteRepository) FindOpenBySale(ctx context.Context, saleID uuid.UUID) (*credit.PromissoryNote, error) {
	return r.findBySale(r.db.WithContext(ctx), saleID, true)
}

// FindOpenBySaleForUpdate is FindOpenBySale with an exclusive row lock
func (r *GormNoteRepository) FindOpenBySaleForUpdate(ctx context.Context, saleID uuid.UUID) (*credit.PromissoryNote, error) {
	return r.findBySale(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), saleID, true)
}

// FindBySaleForUpdate finds the sale's most recent note regardless of
// status, with an exclusive row lock
func (r *GormNoteRepository) FindBySaleForUpdate(ctx context.Context, saleID uuid.UUID) (*credit.PromissoryNote, error) {
	return r.findBySale(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), saleID, false)
}

func (r *GormNoteRepository) findBySale(db *gorm.DB, saleID uuid.UUID, activeOnly bool) (*credit.PromissoryNote, error) {
	query := db.Preload("Items").Where("sale_id = ?", saleID)
	if activeOnly {
		query = query.Where("is_active = TRUE")
	}
	var note credit.PromissoryNote
	if err := query.Order("created_at DESC").First(&note).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &note, nil
}

// FindByCustomer finds all notes of a customer
func (r *GormNoteRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]credit.PromissoryNote, error) {
	var notes []credit.PromissoryNote
	query := r.db.WithContext(ctx).Model(&credit.PromissoryNote{}).
		Preload("Items").
		Where("customer_id = ?", customerID)
	if err := applyFilter(query, filter, "issue_date DESC").Find(&notes).Error; err != nil {
		return nil, err
	}
	return notes, nil
}

// Save creates or updates a note with its items
func (r *GormNoteRepository) Save(ctx context.Context, note *credit.PromissoryNote) error {
	return r.db.WithContext(ctx).
		Session(&gorm.Session{FullSaveAssociations: true}).
		Save(note).Error
}

var _ credit.NoteRepository = (*GormNoteRepository)(nil)

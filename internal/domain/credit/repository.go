package credit

import (
	"context"

	"github.com/google/uuid"

	"github.com/stockops/backend/internal/domain/shared"
)

// NoteRepository defines the interface for promissory note persistence
type NoteRepository interface {
	// FindByID finds a note by its ID, items included
	FindByID(ctx context.Context, id uuid.UUID) (*PromissoryNote, error)

	// FindOpenBySale finds the active note of a sale, items included
	FindOpenBySale(ctx context.Context, saleID uuid.UUID) (*PromissoryNote, error)

	// FindOpenBySaleForUpdate is FindOpenBySale with an exclusive row lock
	FindOpenBySaleForUpdate(ctx context.Context, saleID uuid.UUID) (*PromissoryNote, error)

	// FindBySaleForUpdate finds the sale's most recent note regardless of
	// status, with an exclusive row lock. Waybill edits use this so that a
	// reduced delivery can reopen an already-fulfilled note.
	FindBySaleForUpdate(ctx context.Context, saleID uuid.UUID) (*PromissoryNote, error)

	// FindByCustomer finds all notes of a customer
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]PromissoryNote, error)

	// Save creates or updates a note with its items
	Save(ctx context.Context, note *PromissoryNote) error
}

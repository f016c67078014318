// Package credit implements the promissory note read side. Notes are
// opened by credit sales and reconciled by waybills; this service is how
// the rest of the system looks at them.
package credit

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/application/scope"
	"github.com/stockops/backend/internal/domain/credit"
	"github.com/stockops/backend/internal/domain/shared"
)

// NoteService handles promissory note queries
type NoteService struct {
	txScope scope.TransactionScope
}

// NewNoteService creates a new NoteService
func NewNoteService(txScope scope.TransactionScope) *NoteService {
	return &NoteService{txScope: txScope}
}

// GetNote loads a note with its items
func (s *NoteService) GetNote(ctx context.Context, noteID uuid.UUID) (*credit.PromissoryNote, error) {
	var note *credit.PromissoryNote
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		found, err := repos.Notes().FindByID(ctx, noteID)
		if err != nil {
			return err
		}
		note = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// GetOpenNoteForSale loads the sale's open note, if any
func (s *NoteService) GetOpenNoteForSale(ctx context.Context, saleID uuid.UUID) (*credit.PromissoryNote, error) {
	var note *credit.PromissoryNote
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		found, err := repos.Notes().FindOpenBySale(ctx, saleID)
		if err != nil {
			return err
		}
		note = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return note, nil
}

// ListCustomerNotes lists a customer's notes, open and closed
func (s *NoteService) ListCustomerNotes(ctx context.Context, customerID uuid.UUID, filter shared.Filter) ([]credit.PromissoryNote, error) {
	var notes []credit.PromissoryNote
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		found, err := repos.Notes().FindByCustomer(ctx, customerID, filter)
		if err != nil {
			return err
		}
		notes = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// CustomerExposure sums the outstanding amount across a customer's open notes
func (s *NoteService) CustomerExposure(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	total := decimal.Zero
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		notes, err := repos.Notes().FindByCustomer(ctx, customerID, shared.DefaultFilter())
		if err != nil {
			return err
		}
		for i := range notes {
			if notes[i].IsActive {
				total = total.Add(notes[i].TotalAmount)
			}
		}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

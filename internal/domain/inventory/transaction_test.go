package inventory

import (
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInventoryTransaction(t *testing.T) {
	lot := newTestLot(t, 10)
	operatorID := uuid.New()

	t.Run("records the lot's identity and the quantity change", func(t *testing.T) {
		record, err := NewInventoryTransaction(lot, operatorID, TransactionTypeSale, decimal.NewFromInt(10), decimal.NewFromInt(6))
		require.NoError(t, err)

		assert.Equal(t, lot.ID, record.LotID)
		assert.Equal(t, lot.ProductID, record.ProductID)
		assert.Equal(t, lot.StoreID, record.StoreID)
		assert.True(t, record.QuantityChange().Equal(decimal.NewFromInt(-4)))
		assert.False(t, record.TransactionDate.IsZero())
	})

	t.Run("rejects a record that changes nothing", func(t *testing.T) {
		_, err := NewInventoryTransaction(lot, operatorID, TransactionTypeSale, decimal.NewFromInt(5), decimal.NewFromInt(5))
		assert.Error(t, err)
	})

	t.Run("rejects an unknown transaction type", func(t *testing.T) {
		_, err := NewInventoryTransaction(lot, operatorID, TransactionType("bogus"), decimal.Zero, decimal.NewFromInt(1))
		assert.Error(t, err)
	})

	t.Run("rejects a missing operator", func(t *testing.T) {
		_, err := NewInventoryTransaction(lot, uuid.Nil, TransactionTypeSale, decimal.Zero, decimal.NewFromInt(1))
		assert.Error(t, err)
	})

	t.Run("chains reference and notes", func(t *testing.T) {
		saleID := uuid.New()
		record, err := NewInventoryTransaction(lot, operatorID, TransactionTypeSaleReversal, decimal.NewFromInt(6), decimal.NewFromInt(10))
		require.NoError(t, err)

		record.WithReference(saleID).WithNotes("Sale deleted")
		require.NotNil(t, record.ReferenceID)
		assert.Equal(t, saleID, *record.ReferenceID)
		assert.Equal(t, "Sale deleted", record.Notes)
	})
}

func TestTransactionType_IsValid(t *testing.T) {
	valid := []TransactionType{
		TransactionTypePurchase,
		TransactionTypeSale,
		TransactionTypeAdjustment,
		TransactionTypeSaleReversal,
		TransactionTypeBackorderFulfillment,
		TransactionTypeBackorderReversal,
	}
	for _, tt := range valid {
		assert.True(t, tt.IsValid(), "expected %s to be valid", tt)
	}
	assert.False(t, TransactionType("bogus").IsValid())
}

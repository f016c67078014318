package sales

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func backorderCreatedAt(t *testing.T, qty int64, createdAt time.Time) Backorder {
	t.Helper()
	backorder := newTestBackorder(t, qty)
	backorder.CreatedAt = createdAt
	return *backorder
}

func TestCreationTimeFIFO(t *testing.T) {
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	oldest := backorderCreatedAt(t, 2, base)
	middle := backorderCreatedAt(t, 9, base.Add(time.Hour))
	newest := backorderCreatedAt(t, 5, base.Add(2*time.Hour))

	backorders := []Backorder{newest, oldest, middle}
	NewCreationTimeFIFO().Sort(backorders)

	require.Len(t, backorders, 3)
	assert.Equal(t, oldest.ID, backorders[0].ID)
	assert.Equal(t, middle.ID, backorders[1].ID)
	assert.Equal(t, newest.ID, backorders[2].ID)
	assert.Equal(t, "creation_time_fifo", NewCreationTimeFIFO().Name())
}

func TestLargestPendingFirst(t *testing.T) {
	base := time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)
	small := backorderCreatedAt(t, 2, base)
	big := backorderCreatedAt(t, 9, base.Add(time.Hour))
	equalOld := backorderCreatedAt(t, 5, base)
	equalNew := backorderCreatedAt(t, 5, base.Add(2*time.Hour))

	backorders := []Backorder{small, equalNew, big, equalOld}
	LargestPendingFirst{}.Sort(backorders)

	require.Len(t, backorders, 4)
	assert.Equal(t, big.ID, backorders[0].ID)
	assert.Equal(t, equalOld.ID, backorders[1].ID)
	assert.Equal(t, equalNew.ID, backorders[2].ID)
	assert.Equal(t, small.ID, backorders[3].ID)

	// the same pending quantity falls back to who waited longest
	assert.True(t, backorders[1].PendingQuantity.Equal(decimal.NewFromInt(5)))
}

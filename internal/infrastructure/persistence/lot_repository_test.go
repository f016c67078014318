package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/domain/shared"
)

// newMockLotRepository creates a GormLotRepository with a mocked SQL connection
func newMockLotRepository(t *testing.T) (*GormLotRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormLotRepository(gormDB), mock, mockDB
}

func lotRows(lotID, productID, storeID uuid.UUID, lotNumber string, qty decimal.Decimal) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "product_id", "store_id", "lot_number", "kind",
		"quantity", "is_active", "received_date",
	}).AddRow(
		lotID, productID, storeID, lotNumber, string(inventory.LotKindPhysical),
		qty, true, time.Now(),
	)
}

func TestGormLotRepository_FindByID(t *testing.T) {
	t.Run("finds existing lot", func(t *testing.T) {
		repo, mock, mockDB := newMockLotRepository(t)
		defer mockDB.Close()

		lotID := uuid.New()
		productID := uuid.New()
		storeID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "inventory_lots" WHERE id = \$1`).
			WithArgs(lotID, 1).
			WillReturnRows(lotRows(lotID, productID, storeID, "LOT-001", decimal.NewFromInt(25)))

		lot, err := repo.FindByID(context.Background(), lotID)

		assert.NoError(t, err)
		require.NotNil(t, lot)
		assert.Equal(t, lotID, lot.ID)
		assert.Equal(t, "LOT-001", lot.LotNumber)
		assert.True(t, lot.Quantity.Equal(decimal.NewFromInt(25)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing lot", func(t *testing.T) {
		repo, mock, mockDB := newMockLotRepository(t)
		defer mockDB.Close()

		lotID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "inventory_lots" WHERE id = \$1`).
			WithArgs(lotID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		lot, err := repo.FindByID(context.Background(), lotID)

		assert.Nil(t, lot)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormLotRepository_FindByIDForUpdate(t *testing.T) {
	t.Run("takes an exclusive row lock", func(t *testing.T) {
		repo, mock, mockDB := newMockLotRepository(t)
		defer mockDB.Close()

		lotID := uuid.New()
		productID := uuid.New()
		storeID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "inventory_lots" WHERE id = \$1 .* FOR UPDATE`).
			WithArgs(lotID, 1).
			WillReturnRows(lotRows(lotID, productID, storeID, "LOT-001", decimal.NewFromInt(10)))

		lot, err := repo.FindByIDForUpdate(context.Background(), lotID)

		assert.NoError(t, err)
		require.NotNil(t, lot)
		assert.Equal(t, lotID, lot.ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormLotRepository_FindSellable(t *testing.T) {
	t.Run("filters to active physical lots with stock in expiry order", func(t *testing.T) {
		repo, mock, mockDB := newMockLotRepository(t)
		defer mockDB.Close()

		productID := uuid.New()
		storeID := uuid.New()
		lotID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "inventory_lots" WHERE \(product_id = \$1 AND store_id = \$2\) AND \(kind = \$3 AND is_active = TRUE AND quantity > 0\) ORDER BY COALESCE\(expiry_date, '9999-12-31'\) ASC, received_date ASC`).
			WithArgs(productID, storeID, string(inventory.LotKindPhysical)).
			WillReturnRows(lotRows(lotID, productID, storeID, "LOT-001", decimal.NewFromInt(8)))

		lots, err := repo.FindSellable(context.Background(), productID, storeID)

		assert.NoError(t, err)
		require.Len(t, lots, 1)
		assert.Equal(t, lotID, lots[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("locking variant appends FOR UPDATE", func(t *testing.T) {
		repo, mock, mockDB := newMockLotRepository(t)
		defer mockDB.Close()

		productID := uuid.New()
		storeID := uuid.New()

		mock.ExpectQuery(`SELECT \* FROM "inventory_lots" WHERE .* FOR UPDATE`).
			WithArgs(productID, storeID, string(inventory.LotKindPhysical)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		lots, err := repo.FindSellableForUpdate(context.Background(), productID, storeID)

		assert.NoError(t, err)
		assert.Empty(t, lots)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormLotRepository_FindPlaceholder(t *testing.T) {
	t.Run("finds placeholder lot regardless of active flag", func(t *testing.T) {
		repo, mock, mockDB := newMockLotRepository(t)
		defer mockDB.Close()

		productID := uuid.New()
		storeID := uuid.New()
		lotID := uuid.New()

		rows := sqlmock.NewRows([]string{
			"id", "product_id", "store_id", "lot_number", "kind",
			"quantity", "is_active", "received_date",
		}).AddRow(
			lotID, productID, storeID, "BACKORDER", string(inventory.LotKindBackorderPlaceholder),
			decimal.NewFromInt(-5), true, time.Now(),
		)

		mock.ExpectQuery(`SELECT \* FROM "inventory_lots" WHERE product_id = \$1 AND store_id = \$2 AND kind = \$3`).
			WithArgs(productID, storeID, string(inventory.LotKindBackorderPlaceholder), 1).
			WillReturnRows(rows)

		lot, err := repo.FindPlaceholder(context.Background(), productID, storeID)

		assert.NoError(t, err)
		require.NotNil(t, lot)
		assert.Equal(t, inventory.LotKindBackorderPlaceholder, lot.Kind)
		assert.True(t, lot.Quantity.Equal(decimal.NewFromInt(-5)))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

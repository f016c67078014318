package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockops/backend/internal/application/fulfillment"
	purchasingapp "github.com/stockops/backend/internal/application/purchasing"
	salesapp "github.com/stockops/backend/internal/application/sales"
	"github.com/stockops/backend/internal/application/scope"
	"github.com/stockops/backend/internal/domain/catalog"
)

type saleTestEnv struct {
	engine     *gin.Engine
	operatorID uuid.UUID
	storeID    uuid.UUID
	productID  uuid.UUID
	receiving  *purchasingapp.ReceivingService
}

// newSaleTestEnv wires the sale handler against in-memory repositories and
// seeds one product so demand lines have something to sell.
func newSaleTestEnv(t *testing.T) *saleTestEnv {
	t.Helper()

	repos := scope.NewInMemoryRepositories()
	txScope := scope.NewNoOpTransactionScope(repos)

	env := &saleTestEnv{
		operatorID: uuid.New(),
		storeID:    uuid.New(),
		receiving:  purchasingapp.NewReceivingService(txScope, fulfillment.NewCoordinator()),
	}

	product := seedProduct(t, repos)
	env.productID = product

	saleService := salesapp.NewSaleService(txScope)
	saleHandler := NewSaleHandler(saleService)

	engine := gin.New()
	engine.Use(func(c *gin.Context) {
		c.Set("jwt_operator_id", env.operatorID.String())
	})
	engine.POST("/sales", saleHandler.Create)
	engine.GET("/sales/:id", saleHandler.Get)
	engine.DELETE("/sales/:id", saleHandler.Delete)
	env.engine = engine
	return env
}

func seedProduct(t *testing.T, repos scope.Repositories) uuid.UUID {
	t.Helper()
	product, err := catalog.NewProduct("Amoxicillin 500mg", "SKU-AMOX-500")
	require.NoError(t, err)
	require.NoError(t, repos.Products().Save(context.Background(), product))
	return product.ID
}

func (env *saleTestEnv) receive(t *testing.T, qty float64) {
	t.Helper()
	_, err := env.receiving.ReceiveStock(context.Background(), purchasingapp.ReceiveStockRequest{
		StoreID:    env.storeID,
		OperatorID: env.operatorID,
		Lines: []purchasingapp.ReceiptLineInput{{
			ProductID: env.productID,
			LotNumber: fmt.Sprintf("LOT-%s", uuid.NewString()[:8]),
			Quantity:  decimal.NewFromFloat(qty),
		}},
	})
	require.NoError(t, err)
}

func (env *saleTestEnv) postSale(t *testing.T, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/sales", bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	env.engine.ServeHTTP(w, req)
	return w
}

func TestSaleHandlerCreate(t *testing.T) {
	t.Run("fully stocked sale allocates everything", func(t *testing.T) {
		env := newSaleTestEnv(t)
		env.receive(t, 100)

		w := env.postSale(t, map[string]any{
			"sale_number": "S-1001",
			"customer_id": uuid.NewString(),
			"store_id":    env.storeID.String(),
			"items": []map[string]any{{
				"product_id": env.productID.String(),
				"quantity":   10,
				"unit_price": 5.5,
			}},
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp struct {
			Data SaleResultResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data.Lines, 1)
		assert.InDelta(t, 10, resp.Data.Lines[0].Allocated, 0.0001)
		assert.InDelta(t, 0, resp.Data.Lines[0].Backordered, 0.0001)
		assert.Nil(t, resp.Data.NoteID)
	})

	t.Run("shortfall becomes a backorder", func(t *testing.T) {
		env := newSaleTestEnv(t)
		env.receive(t, 4)

		w := env.postSale(t, map[string]any{
			"sale_number": "S-1002",
			"customer_id": uuid.NewString(),
			"store_id":    env.storeID.String(),
			"items": []map[string]any{{
				"product_id": env.productID.String(),
				"quantity":   10,
			}},
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp struct {
			Data SaleResultResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Data.Lines, 1)
		assert.InDelta(t, 4, resp.Data.Lines[0].Allocated, 0.0001)
		assert.InDelta(t, 6, resp.Data.Lines[0].Backordered, 0.0001)
	})

	t.Run("credit sale opens a note", func(t *testing.T) {
		env := newSaleTestEnv(t)
		env.receive(t, 50)

		w := env.postSale(t, map[string]any{
			"sale_number": "S-1003",
			"customer_id": uuid.NewString(),
			"store_id":    env.storeID.String(),
			"on_credit":   true,
			"note_number": "N-1003",
			"items": []map[string]any{{
				"product_id": env.productID.String(),
				"quantity":   5,
				"unit_price": 12,
			}},
		})

		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		var resp struct {
			Data SaleResultResponse `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.NotNil(t, resp.Data.NoteID)
	})

	t.Run("missing items rejected with 400", func(t *testing.T) {
		env := newSaleTestEnv(t)

		w := env.postSale(t, map[string]any{
			"sale_number": "S-1004",
			"customer_id": uuid.NewString(),
			"store_id":    env.storeID.String(),
		})

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("duplicate sale number rejected with 409", func(t *testing.T) {
		env := newSaleTestEnv(t)
		env.receive(t, 100)

		body := map[string]any{
			"sale_number": "S-1005",
			"customer_id": uuid.NewString(),
			"store_id":    env.storeID.String(),
			"items": []map[string]any{{
				"product_id": env.productID.String(),
				"quantity":   1,
			}},
		}

		first := env.postSale(t, body)
		require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

		second := env.postSale(t, body)
		assert.Equal(t, http.StatusConflict, second.Code)
	})
}

func TestSaleHandlerGet(t *testing.T) {
	env := newSaleTestEnv(t)
	env.receive(t, 20)

	created := env.postSale(t, map[string]any{
		"sale_number": "S-2001",
		"customer_id": uuid.NewString(),
		"store_id":    env.storeID.String(),
		"items": []map[string]any{{
			"product_id": env.productID.String(),
			"quantity":   3,
		}},
	})
	require.Equal(t, http.StatusCreated, created.Code)

	var resp struct {
		Data SaleResultResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &resp))

	t.Run("existing sale", func(t *testing.T) {
		w := httptest.NewRecorder()
		env.engine.ServeHTTP(w, httptest.NewRequest("GET", "/sales/"+resp.Data.Sale.ID, nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "S-2001")
	})

	t.Run("unknown sale is 404", func(t *testing.T) {
		w := httptest.NewRecorder()
		env.engine.ServeHTTP(w, httptest.NewRequest("GET", "/sales/"+uuid.NewString(), nil))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed ID is 400", func(t *testing.T) {
		w := httptest.NewRecorder()
		env.engine.ServeHTTP(w, httptest.NewRequest("GET", "/sales/not-a-uuid", nil))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

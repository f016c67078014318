package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appinventory "github.com/stockops/backend/internal/application/inventory"
	"github.com/stockops/backend/internal/domain/inventory"
	"github.com/stockops/backend/internal/interfaces/http/dto"
)

// InventoryHandler handles lot queries, adjustments and the audit trail
type InventoryHandler struct {
	BaseHandler
	service *appinventory.InventoryService
}

// NewInventoryHandler creates a new inventory handler
func NewInventoryHandler(service *appinventory.InventoryService) *InventoryHandler {
	return &InventoryHandler{service: service}
}

// AdjustLotRequest is the request body for a manual lot correction.
// The delta is signed: positive receives found stock, negative writes off losses.
type AdjustLotRequest struct {
	QuantityDelta float64 `json:"quantity_delta" binding:"required"`
	Reason        string  `json:"reason" binding:"required,min=1,max=255"`
}

// AdjustLotResponse reports the adjustment and its knock-on effects
type AdjustLotResponse struct {
	Lot         LotResponse `json:"lot"`
	Provisioned float64     `json:"provisioned"`
	Reverted    float64     `json:"reverted"`
}

// LotResponse is the API representation of an inventory lot
type LotResponse struct {
	ID              string  `json:"id"`
	ProductID       string  `json:"product_id"`
	StoreID         string  `json:"store_id"`
	LotNumber       string  `json:"lot_number"`
	Kind            string  `json:"kind"`
	Quantity        float64 `json:"quantity"`
	CostPrice       float64 `json:"cost_price"`
	SellingPrice    float64 `json:"selling_price"`
	ManufactureDate *string `json:"manufacture_date,omitempty"`
	ExpiryDate      *string `json:"expiry_date,omitempty"`
	ReceivedDate    string  `json:"received_date"`
	IsActive        bool    `json:"is_active"`
}

func toLotResponse(lot *inventory.InventoryLot) LotResponse {
	resp := LotResponse{
		ID:           lot.ID.String(),
		ProductID:    lot.ProductID.String(),
		StoreID:      lot.StoreID.String(),
		LotNumber:    lot.LotNumber,
		Kind:         string(lot.Kind),
		Quantity:     lot.Quantity.InexactFloat64(),
		CostPrice:    lot.CostPrice.InexactFloat64(),
		SellingPrice: lot.SellingPrice.InexactFloat64(),
		ReceivedDate: lot.ReceivedDate.Format(timeFormat),
		IsActive:     lot.IsActive,
	}
	if lot.ManufactureDate != nil {
		manufactureDate := lot.ManufactureDate.Format(timeFormat)
		resp.ManufactureDate = &manufactureDate
	}
	if lot.ExpiryDate != nil {
		expiryDate := lot.ExpiryDate.Format(timeFormat)
		resp.ExpiryDate = &expiryDate
	}
	return resp
}

// TransactionResponse is the API representation of an audit record
type TransactionResponse struct {
	ID              string  `json:"id"`
	LotID           string  `json:"lot_id"`
	ProductID       string  `json:"product_id"`
	StoreID         string  `json:"store_id"`
	OperatorID      string  `json:"operator_id"`
	TransactionType string  `json:"transaction_type"`
	QuantityBefore  float64 `json:"quantity_before"`
	QuantityAfter   float64 `json:"quantity_after"`
	ReferenceID     *string `json:"reference_id,omitempty"`
	Notes           string  `json:"notes,omitempty"`
	TransactionDate string  `json:"transaction_date"`
}

func toTransactionResponse(tx *inventory.InventoryTransaction) TransactionResponse {
	resp := TransactionResponse{
		ID:              tx.ID.String(),
		LotID:           tx.LotID.String(),
		ProductID:       tx.ProductID.String(),
		StoreID:         tx.StoreID.String(),
		OperatorID:      tx.OperatorID.String(),
		TransactionType: string(tx.TransactionType),
		QuantityBefore:  tx.QuantityBefore.InexactFloat64(),
		QuantityAfter:   tx.QuantityAfter.InexactFloat64(),
		Notes:           tx.Notes,
		TransactionDate: tx.TransactionDate.Format(timeFormat),
	}
	if tx.ReferenceID != nil {
		referenceID := tx.ReferenceID.String()
		resp.ReferenceID = &referenceID
	}
	return resp
}

// AdjustLot handles POST /api/v1/inventory/lots/:id/adjust
func (h *InventoryHandler) AdjustLot(c *gin.Context) {
	lotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid lot ID")
		return
	}

	var req AdjustLotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	operatorID, err := getOperatorID(c)
	if err != nil {
		h.Unauthorized(c, "operator identity required")
		return
	}

	result, err := h.service.AdjustLot(c.Request.Context(), appinventory.AdjustLotRequest{
		LotID:         lotID,
		QuantityDelta: decimal.NewFromFloat(req.QuantityDelta),
		Reason:        req.Reason,
		OperatorID:    operatorID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, AdjustLotResponse{
		Lot:         toLotResponse(result.Lot),
		Provisioned: result.Provisioned.InexactFloat64(),
		Reverted:    result.Reverted.InexactFloat64(),
	})
}

// GetLot handles GET /api/v1/inventory/lots/:id
func (h *InventoryHandler) GetLot(c *gin.Context) {
	lotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid lot ID")
		return
	}

	lot, err := h.service.GetLot(c.Request.Context(), lotID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toLotResponse(lot))
}

// ListLotsByProduct handles GET /api/v1/inventory/products/:id/lots
func (h *InventoryHandler) ListLotsByProduct(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid product ID")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	lots, err := h.service.ListLotsByProduct(c.Request.Context(), productID, req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]LotResponse, 0, len(lots))
	for i := range lots {
		items = append(items, toLotResponse(&lots[i]))
	}

	h.Success(c, items)
}

// ListExpiringLots handles GET /api/v1/inventory/stores/:id/expiring-lots
func (h *InventoryHandler) ListExpiringLots(c *gin.Context) {
	storeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid store ID")
		return
	}

	withinDays := 0
	if raw := c.Query("within_days"); raw != "" {
		withinDays, err = strconv.Atoi(raw)
		if err != nil || withinDays < 0 {
			h.BadRequest(c, "invalid within_days")
			return
		}
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	lots, err := h.service.ListExpiringLots(c.Request.Context(), storeID, withinDays, req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]LotResponse, 0, len(lots))
	for i := range lots {
		items = append(items, toLotResponse(&lots[i]))
	}

	h.Success(c, items)
}

// GetAuditTrail handles GET /api/v1/inventory/lots/:id/transactions
func (h *InventoryHandler) GetAuditTrail(c *gin.Context) {
	lotID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid lot ID")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	transactions, err := h.service.GetAuditTrail(c.Request.Context(), lotID, req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]TransactionResponse, 0, len(transactions))
	for i := range transactions {
		items = append(items, toTransactionResponse(&transactions[i]))
	}

	h.Success(c, items)
}

// GetAuditByReference handles GET /api/v1/inventory/transactions/by-reference/:id
func (h *InventoryHandler) GetAuditByReference(c *gin.Context) {
	referenceID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid reference ID")
		return
	}

	transactions, err := h.service.GetAuditByReference(c.Request.Context(), referenceID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]TransactionResponse, 0, len(transactions))
	for i := range transactions {
		items = append(items, toTransactionResponse(&transactions[i]))
	}

	h.Success(c, items)
}

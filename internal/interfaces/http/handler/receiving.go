package handler

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/stockops/backend/internal/application/purchasing"
)

// ReceivingHandler handles stock receipt endpoints
type ReceivingHandler struct {
	BaseHandler
	service *purchasing.ReceivingService
}

// NewReceivingHandler creates a new receiving handler
func NewReceivingHandler(service *purchasing.ReceivingService) *ReceivingHandler {
	return &ReceivingHandler{service: service}
}

// ReceiptLineRequest is one lot arriving from a supplier
type ReceiptLineRequest struct {
	ProductID       string     `json:"product_id" binding:"required,uuid"`
	LotNumber       string     `json:"lot_number" binding:"required,min=1,max=100"`
	Quantity        float64    `json:"quantity" binding:"required,gt=0"`
	CostPrice       float64    `json:"cost_price" binding:"omitempty,gte=0"`
	SellingPrice    float64    `json:"selling_price" binding:"omitempty,gte=0"`
	ManufactureDate *time.Time `json:"manufacture_date"`
	ExpiryDate      *time.Time `json:"expiry_date"`
}

// ReceiveStockRequest is the request body for receiving stock into a store
type ReceiveStockRequest struct {
	StoreID     string               `json:"store_id" binding:"required,uuid"`
	ReferenceID *string              `json:"reference_id" binding:"omitempty,uuid"`
	Notes       string               `json:"notes" binding:"max=255"`
	Lines       []ReceiptLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ReceiptLineResponse reports the outcome of one received lot
type ReceiptLineResponse struct {
	LotID       string  `json:"lot_id"`
	LotNumber   string  `json:"lot_number"`
	Received    float64 `json:"received"`
	Provisioned float64 `json:"provisioned"`
}

// ReceiveStockResponse is the outcome of a receipt
type ReceiveStockResponse struct {
	Lines []ReceiptLineResponse `json:"lines"`
}

// Receive handles POST /api/v1/inventory/receipts
func (h *ReceivingHandler) Receive(c *gin.Context) {
	var req ReceiveStockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	operatorID, err := getOperatorID(c)
	if err != nil {
		h.Unauthorized(c, "operator identity required")
		return
	}

	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		h.BadRequest(c, "invalid store_id")
		return
	}

	appReq := purchasing.ReceiveStockRequest{
		StoreID:    storeID,
		Notes:      req.Notes,
		OperatorID: operatorID,
	}
	if req.ReferenceID != nil {
		referenceID, err := uuid.Parse(*req.ReferenceID)
		if err != nil {
			h.BadRequest(c, "invalid reference_id")
			return
		}
		appReq.ReferenceID = &referenceID
	}

	for _, line := range req.Lines {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			h.BadRequest(c, "invalid product_id in lines")
			return
		}
		appReq.Lines = append(appReq.Lines, purchasing.ReceiptLineInput{
			ProductID:       productID,
			LotNumber:       line.LotNumber,
			Quantity:        decimal.NewFromFloat(line.Quantity),
			CostPrice:       decimal.NewFromFloat(line.CostPrice),
			SellingPrice:    decimal.NewFromFloat(line.SellingPrice),
			ManufactureDate: line.ManufactureDate,
			ExpiryDate:      line.ExpiryDate,
		})
	}

	result, err := h.service.ReceiveStock(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := ReceiveStockResponse{Lines: make([]ReceiptLineResponse, 0, len(result.Lines))}
	for _, line := range result.Lines {
		resp.Lines = append(resp.Lines, ReceiptLineResponse{
			LotID:       line.LotID.String(),
			LotNumber:   line.LotNumber,
			Received:    line.Received.InexactFloat64(),
			Provisioned: line.Provisioned.InexactFloat64(),
		})
	}

	h.Created(c, resp)
}

package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appdelivery "github.com/stockops/backend/internal/application/delivery"
	"github.com/stockops/backend/internal/domain/delivery"
)

// WaybillHandler handles delivery proposal, commit, edit and cancel endpoints
type WaybillHandler struct {
	BaseHandler
	service *appdelivery.WaybillService
}

// NewWaybillHandler creates a new waybill handler
func NewWaybillHandler(service *appdelivery.WaybillService) *WaybillHandler {
	return &WaybillHandler{service: service}
}

// TakeRequest is one operator-chosen lot take of a delivery line
type TakeRequest struct {
	LotID    string  `json:"lot_id" binding:"required,uuid"`
	Quantity float64 `json:"quantity" binding:"required,gt=0"`
}

// WaybillLineRequest is one delivery line: how much of a demand line to
// ship now and from which lots.
type WaybillLineRequest struct {
	SaleItemID       string        `json:"sale_item_id" binding:"required,uuid"`
	QuantitySupplied float64       `json:"quantity_supplied" binding:"required,gt=0"`
	Takes            []TakeRequest `json:"takes" binding:"required,min=1,dive"`
}

// CreateWaybillRequest is the request body for committing a delivery
type CreateWaybillRequest struct {
	WaybillNumber string               `json:"waybill_number" binding:"required,min=1,max=50"`
	SaleID        string               `json:"sale_id" binding:"required,uuid"`
	Lines         []WaybillLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// UpdateWaybillRequest replaces a committed waybill's supplied quantities
// and lot allocations
type UpdateWaybillRequest struct {
	Lines []WaybillLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// LotTakeResponse is one lot take in a proposal or committed waybill
type LotTakeResponse struct {
	LotID     string  `json:"lot_id"`
	LotNumber string  `json:"lot_number"`
	Quantity  float64 `json:"quantity"`
}

// ProposalLineResponse is the FEFO starting point for one deliverable line
type ProposalLineResponse struct {
	SaleItemID  string            `json:"sale_item_id"`
	ProductID   string            `json:"product_id"`
	Deliverable float64           `json:"deliverable"`
	Takes       []LotTakeResponse `json:"takes"`
	Shortfall   float64           `json:"shortfall"`
}

// WaybillProposalResponse is the interactive allocator's opening position
type WaybillProposalResponse struct {
	SaleID string                 `json:"sale_id"`
	Lines  []ProposalLineResponse `json:"lines"`
}

// WaybillAllocationResponse is one persisted lot allocation
type WaybillAllocationResponse struct {
	ID             string  `json:"id"`
	LotID          string  `json:"lot_id"`
	LotNumber      string  `json:"lot_number"`
	QuantityToTake float64 `json:"quantity_to_take"`
	IsActive       bool    `json:"is_active"`
}

// WaybillItemResponse is the API representation of a delivery line
type WaybillItemResponse struct {
	ID                string                      `json:"id"`
	SaleItemID        string                      `json:"sale_item_id"`
	ProductID         string                      `json:"product_id"`
	QuantityRequested float64                     `json:"quantity_requested"`
	QuantitySupplied  float64                     `json:"quantity_supplied"`
	FulfilledQuantity float64                     `json:"fulfilled_quantity"`
	BalanceLeft       float64                     `json:"balance_left"`
	Allocations       []WaybillAllocationResponse `json:"allocations"`
}

// WaybillResponse is the API representation of a waybill
type WaybillResponse struct {
	ID            string                `json:"id"`
	WaybillNumber string                `json:"waybill_number"`
	SaleID        string                `json:"sale_id"`
	StoreID       string                `json:"store_id"`
	Status        string                `json:"status"`
	DeliveryDate  string                `json:"delivery_date"`
	Items         []WaybillItemResponse `json:"items"`
}

func toWaybillResponse(wb *delivery.Waybill) WaybillResponse {
	resp := WaybillResponse{
		ID:            wb.ID.String(),
		WaybillNumber: wb.WaybillNumber,
		SaleID:        wb.SaleID.String(),
		StoreID:       wb.StoreID.String(),
		Status:        string(wb.Status),
		DeliveryDate:  wb.DeliveryDate.Format(timeFormat),
		Items:         make([]WaybillItemResponse, 0, len(wb.Items)),
	}
	for i := range wb.Items {
		item := &wb.Items[i]
		itemResp := WaybillItemResponse{
			ID:                item.ID.String(),
			SaleItemID:        item.SaleItemID.String(),
			ProductID:         item.ProductID.String(),
			QuantityRequested: item.QuantityRequested.InexactFloat64(),
			QuantitySupplied:  item.QuantitySupplied.InexactFloat64(),
			FulfilledQuantity: item.FulfilledQuantity.InexactFloat64(),
			BalanceLeft:       item.BalanceLeft.InexactFloat64(),
			Allocations:       make([]WaybillAllocationResponse, 0, len(item.Allocations)),
		}
		for j := range item.Allocations {
			alloc := &item.Allocations[j]
			itemResp.Allocations = append(itemResp.Allocations, WaybillAllocationResponse{
				ID:             alloc.ID.String(),
				LotID:          alloc.LotID.String(),
				LotNumber:      alloc.LotNumber,
				QuantityToTake: alloc.QuantityToTake.InexactFloat64(),
				IsActive:       alloc.IsActive,
			})
		}
		resp.Items = append(resp.Items, itemResp)
	}
	return resp
}

func toWaybillLineInputs(lines []WaybillLineRequest) ([]appdelivery.WaybillLineInput, error) {
	inputs := make([]appdelivery.WaybillLineInput, 0, len(lines))
	for _, line := range lines {
		saleItemID, err := uuid.Parse(line.SaleItemID)
		if err != nil {
			return nil, err
		}
		input := appdelivery.WaybillLineInput{
			SaleItemID:       saleItemID,
			QuantitySupplied: decimal.NewFromFloat(line.QuantitySupplied),
			Takes:            make([]appdelivery.TakeInput, 0, len(line.Takes)),
		}
		for _, take := range line.Takes {
			lotID, err := uuid.Parse(take.LotID)
			if err != nil {
				return nil, err
			}
			input.Takes = append(input.Takes, appdelivery.TakeInput{
				LotID:    lotID,
				Quantity: decimal.NewFromFloat(take.Quantity),
			})
		}
		inputs = append(inputs, input)
	}
	return inputs, nil
}

// Propose handles GET /api/v1/sales/:id/waybill-proposal
func (h *WaybillHandler) Propose(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid sale ID")
		return
	}

	proposal, err := h.service.ProposeWaybill(c.Request.Context(), saleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := WaybillProposalResponse{
		SaleID: proposal.SaleID.String(),
		Lines:  make([]ProposalLineResponse, 0, len(proposal.Lines)),
	}
	for _, line := range proposal.Lines {
		lineResp := ProposalLineResponse{
			SaleItemID:  line.SaleItemID.String(),
			ProductID:   line.ProductID.String(),
			Deliverable: line.Deliverable.InexactFloat64(),
			Takes:       make([]LotTakeResponse, 0, len(line.Takes)),
			Shortfall:   line.Shortfall.InexactFloat64(),
		}
		for _, take := range line.Takes {
			lineResp.Takes = append(lineResp.Takes, LotTakeResponse{
				LotID:     take.LotID.String(),
				LotNumber: take.LotNumber,
				Quantity:  take.Quantity.InexactFloat64(),
			})
		}
		resp.Lines = append(resp.Lines, lineResp)
	}

	h.Success(c, resp)
}

// Create handles POST /api/v1/waybills
func (h *WaybillHandler) Create(c *gin.Context) {
	var req CreateWaybillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	operatorID, err := getOperatorID(c)
	if err != nil {
		h.Unauthorized(c, "operator identity required")
		return
	}

	saleID, err := uuid.Parse(req.SaleID)
	if err != nil {
		h.BadRequest(c, "invalid sale_id")
		return
	}
	lines, err := toWaybillLineInputs(req.Lines)
	if err != nil {
		h.BadRequest(c, "invalid ID in lines")
		return
	}

	waybill, err := h.service.CreateWaybill(c.Request.Context(), appdelivery.CreateWaybillRequest{
		WaybillNumber: req.WaybillNumber,
		SaleID:        saleID,
		Lines:         lines,
		OperatorID:    operatorID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toWaybillResponse(waybill))
}

// Update handles PUT /api/v1/waybills/:id
func (h *WaybillHandler) Update(c *gin.Context) {
	waybillID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid waybill ID")
		return
	}

	var req UpdateWaybillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	operatorID, err := getOperatorID(c)
	if err != nil {
		h.Unauthorized(c, "operator identity required")
		return
	}

	lines, err := toWaybillLineInputs(req.Lines)
	if err != nil {
		h.BadRequest(c, "invalid ID in lines")
		return
	}

	waybill, err := h.service.UpdateWaybill(c.Request.Context(), appdelivery.UpdateWaybillRequest{
		WaybillID:  waybillID,
		Lines:      lines,
		OperatorID: operatorID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toWaybillResponse(waybill))
}

// Cancel handles DELETE /api/v1/waybills/:id
func (h *WaybillHandler) Cancel(c *gin.Context) {
	waybillID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid waybill ID")
		return
	}

	operatorID, err := getOperatorID(c)
	if err != nil {
		h.Unauthorized(c, "operator identity required")
		return
	}

	if err := h.service.CancelWaybill(c.Request.Context(), waybillID, operatorID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Get handles GET /api/v1/waybills/:id
func (h *WaybillHandler) Get(c *gin.Context) {
	waybillID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid waybill ID")
		return
	}

	waybill, err := h.service.GetWaybill(c.Request.Context(), waybillID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toWaybillResponse(waybill))
}

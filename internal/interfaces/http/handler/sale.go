package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	appsales "github.com/stockops/backend/internal/application/sales"
	"github.com/stockops/backend/internal/domain/sales"
)

// SaleHandler handles sale commit, edit and delete endpoints
type SaleHandler struct {
	BaseHandler
	service *appsales.SaleService
}

// NewSaleHandler creates a new sale handler
func NewSaleHandler(service *appsales.SaleService) *SaleHandler {
	return &SaleHandler{service: service}
}

// SaleLineRequest is one requested demand line
type SaleLineRequest struct {
	ProductID string  `json:"product_id" binding:"required,uuid"`
	Quantity  float64 `json:"quantity" binding:"required,gt=0"`
	UnitPrice float64 `json:"unit_price" binding:"omitempty,gte=0"`
}

// CreateSaleRequest is the request body for committing a sale
type CreateSaleRequest struct {
	SaleNumber string            `json:"sale_number" binding:"required,min=1,max=50"`
	CustomerID string            `json:"customer_id" binding:"required,uuid"`
	StoreID    string            `json:"store_id" binding:"required,uuid"`
	OnCredit   bool              `json:"on_credit"`
	NoteNumber string            `json:"note_number" binding:"omitempty,max=50"`
	Items      []SaleLineRequest `json:"items" binding:"required,min=1,dive"`
}

// UpdateSaleRequest replaces a sale's demand lines
type UpdateSaleRequest struct {
	Items []SaleLineRequest `json:"items" binding:"required,min=1,dive"`
}

// SaleItemResponse is the API representation of a demand line
type SaleItemResponse struct {
	ID                string  `json:"id"`
	ProductID         string  `json:"product_id"`
	Quantity          float64 `json:"quantity"`
	UnitPrice         float64 `json:"unit_price"`
	BackorderQuantity float64 `json:"backorder_quantity"`
	HasBackorder      bool    `json:"has_backorder"`
}

// SaleResponse is the API representation of a sale
type SaleResponse struct {
	ID         string             `json:"id"`
	SaleNumber string             `json:"sale_number"`
	CustomerID string             `json:"customer_id"`
	StoreID    string             `json:"store_id"`
	Status     string             `json:"status"`
	SaleDate   string             `json:"sale_date"`
	Items      []SaleItemResponse `json:"items"`
}

// SaleLineResultResponse reports how one demand line was satisfied
type SaleLineResultResponse struct {
	SaleItemID  string  `json:"sale_item_id"`
	ProductID   string  `json:"product_id"`
	Requested   float64 `json:"requested"`
	Allocated   float64 `json:"allocated"`
	Backordered float64 `json:"backordered"`
}

// SaleResultResponse is the outcome of committing or editing a sale
type SaleResultResponse struct {
	Sale   SaleResponse             `json:"sale"`
	Lines  []SaleLineResultResponse `json:"lines"`
	NoteID *string                  `json:"note_id,omitempty"`
}

func toSaleResponse(sale *sales.Sale) SaleResponse {
	resp := SaleResponse{
		ID:         sale.ID.String(),
		SaleNumber: sale.SaleNumber,
		CustomerID: sale.CustomerID.String(),
		StoreID:    sale.StoreID.String(),
		Status:     string(sale.Status),
		SaleDate:   sale.SaleDate.Format(timeFormat),
		Items:      make([]SaleItemResponse, 0, len(sale.Items)),
	}
	for i := range sale.Items {
		item := &sale.Items[i]
		resp.Items = append(resp.Items, SaleItemResponse{
			ID:                item.ID.String(),
			ProductID:         item.ProductID.String(),
			Quantity:          item.Quantity.InexactFloat64(),
			UnitPrice:         item.UnitPrice.InexactFloat64(),
			BackorderQuantity: item.BackorderQuantity.InexactFloat64(),
			HasBackorder:      item.HasBackorder,
		})
	}
	return resp
}

func toSaleResultResponse(result *appsales.SaleResult) SaleResultResponse {
	resp := SaleResultResponse{
		Sale:  toSaleResponse(result.Sale),
		Lines: make([]SaleLineResultResponse, 0, len(result.Lines)),
	}
	for _, line := range result.Lines {
		resp.Lines = append(resp.Lines, SaleLineResultResponse{
			SaleItemID:  line.SaleItemID.String(),
			ProductID:   line.ProductID.String(),
			Requested:   line.Requested.InexactFloat64(),
			Allocated:   line.Allocated.InexactFloat64(),
			Backordered: line.Backordered.InexactFloat64(),
		})
	}
	if result.NoteID != nil {
		noteID := result.NoteID.String()
		resp.NoteID = &noteID
	}
	return resp
}

func toSaleLineInputs(lines []SaleLineRequest) ([]appsales.SaleLineInput, error) {
	items := make([]appsales.SaleLineInput, 0, len(lines))
	for _, line := range lines {
		productID, err := uuid.Parse(line.ProductID)
		if err != nil {
			return nil, err
		}
		items = append(items, appsales.SaleLineInput{
			ProductID: productID,
			Quantity:  decimal.NewFromFloat(line.Quantity),
			UnitPrice: decimal.NewFromFloat(line.UnitPrice),
		})
	}
	return items, nil
}

// Create handles POST /api/v1/sales
func (h *SaleHandler) Create(c *gin.Context) {
	var req CreateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	operatorID, err := getOperatorID(c)
	if err != nil {
		h.Unauthorized(c, "operator identity required")
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		h.BadRequest(c, "invalid customer_id")
		return
	}
	storeID, err := uuid.Parse(req.StoreID)
	if err != nil {
		h.BadRequest(c, "invalid store_id")
		return
	}
	items, err := toSaleLineInputs(req.Items)
	if err != nil {
		h.BadRequest(c, "invalid product_id in items")
		return
	}

	result, err := h.service.CreateSale(c.Request.Context(), appsales.CreateSaleRequest{
		SaleNumber: req.SaleNumber,
		CustomerID: customerID,
		StoreID:    storeID,
		OnCredit:   req.OnCredit,
		NoteNumber: req.NoteNumber,
		Items:      items,
		OperatorID: operatorID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toSaleResultResponse(result))
}

// Update handles PUT /api/v1/sales/:id
func (h *SaleHandler) Update(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid sale ID")
		return
	}

	var req UpdateSaleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	operatorID, err := getOperatorID(c)
	if err != nil {
		h.Unauthorized(c, "operator identity required")
		return
	}

	items, err := toSaleLineInputs(req.Items)
	if err != nil {
		h.BadRequest(c, "invalid product_id in items")
		return
	}

	result, err := h.service.UpdateSale(c.Request.Context(), appsales.UpdateSaleRequest{
		SaleID:     saleID,
		Items:      items,
		OperatorID: operatorID,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toSaleResultResponse(result))
}

// Delete handles DELETE /api/v1/sales/:id
func (h *SaleHandler) Delete(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid sale ID")
		return
	}

	operatorID, err := getOperatorID(c)
	if err != nil {
		h.Unauthorized(c, "operator identity required")
		return
	}

	if err := h.service.DeleteSale(c.Request.Context(), saleID, operatorID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// Get handles GET /api/v1/sales/:id
func (h *SaleHandler) Get(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid sale ID")
		return
	}

	sale, err := h.service.GetSale(c.Request.Context(), saleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toSaleResponse(sale))
}

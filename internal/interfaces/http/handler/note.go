package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	appcredit "github.com/stockops/backend/internal/application/credit"
	"github.com/stockops/backend/internal/domain/credit"
	"github.com/stockops/backend/internal/interfaces/http/dto"
)

// NoteHandler handles promissory note query endpoints
type NoteHandler struct {
	BaseHandler
	service *appcredit.NoteService
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(service *appcredit.NoteService) *NoteHandler {
	return &NoteHandler{service: service}
}

// NoteItemResponse is the API representation of an outstanding line
type NoteItemResponse struct {
	ID        string  `json:"id"`
	ProductID string  `json:"product_id"`
	Quantity  float64 `json:"quantity"`
	UnitPrice float64 `json:"unit_price"`
	SubTotal  float64 `json:"sub_total"`
	IsActive  bool    `json:"is_active"`
}

// NoteResponse is the API representation of a promissory note
type NoteResponse struct {
	ID          string             `json:"id"`
	NoteNumber  string             `json:"note_number"`
	SaleID      string             `json:"sale_id"`
	CustomerID  string             `json:"customer_id"`
	Status      string             `json:"status"`
	TotalAmount float64            `json:"total_amount"`
	IssueDate   string             `json:"issue_date"`
	IsActive    bool               `json:"is_active"`
	Items       []NoteItemResponse `json:"items"`
}

// ExposureResponse reports a customer's total open credit
type ExposureResponse struct {
	CustomerID string  `json:"customer_id"`
	Exposure   float64 `json:"exposure"`
}

func toNoteResponse(note *credit.PromissoryNote) NoteResponse {
	resp := NoteResponse{
		ID:          note.ID.String(),
		NoteNumber:  note.NoteNumber,
		SaleID:      note.SaleID.String(),
		CustomerID:  note.CustomerID.String(),
		Status:      string(note.Status),
		TotalAmount: note.TotalAmount.InexactFloat64(),
		IssueDate:   note.IssueDate.Format(timeFormat),
		IsActive:    note.IsActive,
		Items:       make([]NoteItemResponse, 0, len(note.Items)),
	}
	for i := range note.Items {
		item := &note.Items[i]
		resp.Items = append(resp.Items, NoteItemResponse{
			ID:        item.ID.String(),
			ProductID: item.ProductID.String(),
			Quantity:  item.Quantity.InexactFloat64(),
			UnitPrice: item.UnitPrice.InexactFloat64(),
			SubTotal:  item.SubTotal.InexactFloat64(),
			IsActive:  item.IsActive,
		})
	}
	return resp
}

// Get handles GET /api/v1/notes/:id
func (h *NoteHandler) Get(c *gin.Context) {
	noteID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid note ID")
		return
	}

	note, err := h.service.GetNote(c.Request.Context(), noteID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toNoteResponse(note))
}

// GetOpenForSale handles GET /api/v1/sales/:id/note
func (h *NoteHandler) GetOpenForSale(c *gin.Context) {
	saleID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid sale ID")
		return
	}

	note, err := h.service.GetOpenNoteForSale(c.Request.Context(), saleID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toNoteResponse(note))
}

// ListByCustomer handles GET /api/v1/customers/:id/notes
func (h *NoteHandler) ListByCustomer(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid customer ID")
		return
	}

	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	notes, err := h.service.ListCustomerNotes(c.Request.Context(), customerID, req.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]NoteResponse, 0, len(notes))
	for i := range notes {
		items = append(items, toNoteResponse(&notes[i]))
	}

	h.Success(c, items)
}

// Exposure handles GET /api/v1/customers/:id/exposure
func (h *NoteHandler) Exposure(c *gin.Context) {
	customerID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid customer ID")
		return
	}

	exposure, err := h.service.CustomerExposure(c.Request.Context(), customerID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, ExposureResponse{
		CustomerID: customerID.String(),
		Exposure:   exposure.InexactFloat64(),
	})
}

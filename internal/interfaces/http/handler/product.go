package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/stockops/backend/internal/application/catalog"
	domaincatalog "github.com/stockops/backend/internal/domain/catalog"
	"github.com/stockops/backend/internal/interfaces/http/dto"
)

// ProductHandler handles product management endpoints
type ProductHandler struct {
	BaseHandler
	service *catalog.ProductService
}

// NewProductHandler creates a new product handler
func NewProductHandler(service *catalog.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

// CreateProductRequest is the request body for creating a product
type CreateProductRequest struct {
	Name       string  `json:"name" binding:"required,min=1,max=255"`
	SKU        string  `json:"sku" binding:"required,min=1,max=100"`
	CategoryID *string `json:"category_id" binding:"omitempty,uuid"`
}

// ProductResponse is the API representation of a product
type ProductResponse struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	SKU            string  `json:"sku"`
	CategoryID     *string `json:"category_id,omitempty"`
	QuantityOnHand float64 `json:"quantity_on_hand"`
	IsActive       bool    `json:"is_active"`
	CreatedAt      string  `json:"created_at"`
	UpdatedAt      string  `json:"updated_at"`
}

func toProductResponse(p *domaincatalog.Product) ProductResponse {
	resp := ProductResponse{
		ID:             p.ID.String(),
		Name:           p.Name,
		SKU:            p.SKU,
		QuantityOnHand: p.QuantityOnHand.InexactFloat64(),
		IsActive:       p.IsActive,
		CreatedAt:      p.CreatedAt.Format(timeFormat),
		UpdatedAt:      p.UpdatedAt.Format(timeFormat),
	}
	if p.CategoryID != nil {
		categoryID := p.CategoryID.String()
		resp.CategoryID = &categoryID
	}
	return resp
}

// Create handles POST /api/v1/products
func (h *ProductHandler) Create(c *gin.Context) {
	var req CreateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	appReq := catalog.CreateProductRequest{
		Name: req.Name,
		SKU:  req.SKU,
	}
	if req.CategoryID != nil {
		categoryID, err := uuid.Parse(*req.CategoryID)
		if err != nil {
			h.BadRequest(c, "invalid category_id")
			return
		}
		appReq.CategoryID = &categoryID
	}

	product, err := h.service.CreateProduct(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, toProductResponse(product))
}

// Get handles GET /api/v1/products/:id
func (h *ProductHandler) Get(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid product ID")
		return
	}

	product, err := h.service.GetProduct(c.Request.Context(), productID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, toProductResponse(product))
}

// List handles GET /api/v1/products
func (h *ProductHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	filter := req.ToFilter()
	page, err := h.service.ListProducts(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	items := make([]ProductResponse, 0, len(page.Items))
	for i := range page.Items {
		items = append(items, toProductResponse(&page.Items[i]))
	}

	h.SuccessWithMeta(c, items, page.Total, filter.Page, filter.PageSize)
}

// Deactivate handles DELETE /api/v1/products/:id
func (h *ProductHandler) Deactivate(c *gin.Context) {
	productID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.BadRequest(c, "invalid product ID")
		return
	}

	if err := h.service.DeactivateProduct(c.Request.Context(), productID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

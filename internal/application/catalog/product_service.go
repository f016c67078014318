// Package catalog implements product management.
package catalog

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/stockops/backend/internal/application/scope"
	"github.com/stockops/backend/internal/domain/catalog"
	"github.com/stockops/backend/internal/domain/shared"
)

// CreateProductRequest creates a new product
type CreateProductRequest struct {
	Name       string
	SKU        string
	CategoryID *uuid.UUID
}

// ProductService handles product management operations
type ProductService struct {
	txScope scope.TransactionScope
}

// NewProductService creates a new ProductService
func NewProductService(txScope scope.TransactionScope) *ProductService {
	return &ProductService{txScope: txScope}
}

// CreateProduct creates a product with a unique SKU
func (s *ProductService) CreateProduct(ctx context.Context, req CreateProductRequest) (*catalog.Product, error) {
	var product *catalog.Product
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		if _, err := repos.Products().FindBySKU(ctx, req.SKU); err == nil {
			return shared.ErrAlreadyExists
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}

		p, err := catalog.NewProduct(req.Name, req.SKU)
		if err != nil {
			return err
		}
		p.CategoryID = req.CategoryID
		if err := repos.Products().Save(ctx, p); err != nil {
			return err
		}
		product = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// GetProduct loads a product
func (s *ProductService) GetProduct(ctx context.Context, productID uuid.UUID) (*catalog.Product, error) {
	var product *catalog.Product
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		found, err := repos.Products().FindByID(ctx, productID)
		if err != nil {
			return err
		}
		product = found
		return nil
	})
	if err != nil {
		return nil, err
	}
	return product, nil
}

// ListProducts lists products with their denormalized on-hand quantity
func (s *ProductService) ListProducts(ctx context.Context, filter shared.Filter) (shared.Paginated[catalog.Product], error) {
	var page shared.Paginated[catalog.Product]
	err := s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		products, err := repos.Products().FindAll(ctx, filter)
		if err != nil {
			return err
		}
		total, err := repos.Products().Count(ctx, filter)
		if err != nil {
			return err
		}
		page = shared.NewPaginated(products, total, filter.Page, filter.PageSize)
		return nil
	})
	if err != nil {
		return shared.Paginated[catalog.Product]{}, err
	}
	return page, nil
}

// DeactivateProduct retires a product from sale
func (s *ProductService) DeactivateProduct(ctx context.Context, productID uuid.UUID) error {
	return s.txScope.Execute(ctx, func(repos scope.Repositories) error {
		product, err := repos.Products().FindByIDForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		product.Deactivate()
		return repos.Products().Save(ctx, product)
	})
}

package services

import (
	"context"
	"errors"
	"fmt"

	"shopfront/internal/commerce"
	"shopfront/internal/domain"
)

var ErrProductNotFound = errors.New("product not found")

// ProductSource is the read side of the commerce API.
type ProductSource interface {
	Products(ctx context.Context) ([]domain.Product, error)
	Product(ctx context.Context, id string) (domain.Product, error)
}

type CatalogService struct {
	API ProductSource
}

func NewCatalogService(api ProductSource) *CatalogService {
	return &CatalogService{API: api}
}

func (s *CatalogService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.API.Products(ctx)
}

func (s *CatalogService) GetProduct(ctx context.Context, id string) (domain.Product, error) {
	return getProduct(ctx, s.API, id)
}

func getProduct(ctx context.Context, api ProductSource, id string) (domain.Product, error) {
	p, err := api.Product(ctx, id)
	if commerce.IsNotFound(err) {
		return domain.Product{}, fmt.Errorf("%w: %s", ErrProductNotFound, id)
	}
	return p, err
}

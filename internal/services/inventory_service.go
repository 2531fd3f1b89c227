package services

import (
	"context"

	"shopfront/internal/domain"
)

const lowStockBelow = 5

type InventoryService struct {
	API ProductSource
}

func NewInventoryService(api ProductSource) *InventoryService {
	return &InventoryService{API: api}
}

// CheckAvailability converts the product's live stock to IN_STOCK / LOW_STOCK / OUT_OF_STOCK.
func (s *InventoryService) CheckAvailability(ctx context.Context, productID string) (domain.Availability, error) {
	p, err := getProduct(ctx, s.API, productID)
	if err != nil {
		return domain.Availability{}, err
	}
	return Availability(p.Stock), nil
}

func Availability(qty int) domain.Availability {
	status := "OUT_OF_STOCK"
	switch {
	case qty >= lowStockBelow:
		status = "IN_STOCK"
	case qty > 0:
		status = "LOW_STOCK"
	}
	if qty < 0 {
		qty = 0
	}
	return domain.Availability{Status: status, Qty: qty}
}

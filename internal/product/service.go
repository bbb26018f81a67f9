package product

import (
	"context"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
)

// Catalog answers the shopper-facing questions about a tenant's products.
type Catalog struct {
	repo Repository
}

func NewCatalog(repo Repository) *Catalog {
	return &Catalog{repo: repo}
}

// Lookup returns the orderable products among ids in request order. Inactive
// products are listed as unavailable, unknown ids as not found.
func (c *Catalog) Lookup(ctx context.Context, tenantID string, ids []string) (*LookupProductsResponse, error) {
	byID, err := c.load(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}

	resp := &LookupProductsResponse{
		Products:    []ProductDTO{},
		Unavailable: []string{},
		NotFound:    []string{},
	}
	for _, id := range ids {
		p, ok := byID[id]
		switch {
		case !ok:
			resp.NotFound = append(resp.NotFound, id)
		case !p.IsActive:
			resp.Unavailable = append(resp.Unavailable, id)
		default:
			resp.Products = append(resp.Products, toDTO(p))
		}
	}
	return resp, nil
}

// CheckCart compares cart lines with the current catalog: price drift,
// products that can no longer be ordered, and tracked stock that does not
// cover the quantity. Repeated ids are checked against their summed quantity.
func (c *Catalog) CheckCart(ctx context.Context, tenantID string, lines []CartLine) (*CheckCartResponse, error) {
	ids := make([]string, 0, len(lines))
	wanted := make(map[string]int, len(lines))
	for _, line := range lines {
		if _, seen := wanted[line.ID]; !seen {
			ids = append(ids, line.ID)
		}
		wanted[line.ID] += line.Quantity
	}

	byID, err := c.load(ctx, tenantID, ids)
	if err != nil {
		return nil, err
	}

	resp := &CheckCartResponse{Lines: make([]LineCheck, 0, len(lines)), Orderable: true}
	for _, line := range lines {
		check := LineCheck{ID: line.ID, Quantity: line.Quantity}
		p, ok := byID[line.ID]
		if ok {
			price := p.Price
			check.Price = &price
			check.PriceChanged = !line.Price.Equal(p.Price)
		}
		check.Problem, check.AvailableStock = availability(p, ok, wanted[line.ID])
		if check.PriceChanged || check.Problem != "" {
			resp.Orderable = false
		}
		resp.Lines = append(resp.Lines, check)
	}
	return resp, nil
}

func (c *Catalog) load(ctx context.Context, tenantID string, ids []string) (map[string]domain.Product, error) {
	found, err := c.repo.FindByIDsAndTenant(ctx, ids, tenantID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]domain.Product, len(found))
	for _, p := range found {
		byID[p.ID] = p
	}
	return byID, nil
}

// availability mirrors the stock rules applied when an order is placed.
func availability(p domain.Product, ok bool, quantity int) (string, *int) {
	if !ok {
		return string(apperrors.ReasonNotFound), nil
	}
	if !p.IsActive {
		return string(apperrors.ReasonProductInactive), nil
	}
	if !p.TrackStock || p.Stock == nil {
		return "", nil
	}
	available := p.AvailableStock()
	switch {
	case available == 0:
		return string(apperrors.ReasonOutOfStock), &available
	case available < quantity:
		return string(apperrors.ReasonInsufficientAvailable), &available
	}
	return "", &available
}

func toDTO(p domain.Product) ProductDTO {
	return ProductDTO{
		ID:             p.ID,
		Name:           p.Name,
		Price:          p.Price,
		Image:          p.ImageRef,
		Stock:          p.Stock,
		AvailableStock: p.AvailableStock(),
		TrackStock:     p.TrackStock,
	}
}

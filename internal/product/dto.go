package product

import "github.com/shopspring/decimal"

type LookupProductsResponse struct {
	Products    []ProductDTO `json:"products"`
	Unavailable []string     `json:"unavailable"`
	NotFound    []string     `json:"notFound"`
}

type ProductDTO struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Image          string          `json:"image,omitempty"`
	Stock          *int            `json:"stock"`
	AvailableStock int             `json:"availableStock"`
	TrackStock     bool            `json:"trackStock"`
}

type CheckCartRequest struct {
	Items []CartLine `json:"items" validate:"required,min=1,max=100,dive"`
}

// CartLine is a cart line as the shopper's cart holds it.
type CartLine struct {
	ID       string          `json:"id" validate:"required,max=64"`
	Price    decimal.Decimal `json:"price"`
	Quantity int             `json:"quantity" validate:"min=1"`
}

type CheckCartResponse struct {
	Lines     []LineCheck `json:"lines"`
	Orderable bool        `json:"orderable"`
}

// LineCheck reports how one cart line compares with the catalog. Price is
// the current catalog price and is omitted for unknown products.
type LineCheck struct {
	ID             string           `json:"id"`
	Quantity       int              `json:"quantity"`
	Price          *decimal.Decimal `json:"price,omitempty"`
	PriceChanged   bool             `json:"priceChanged"`
	AvailableStock *int             `json:"availableStock,omitempty"`
	Problem        string           `json:"problem,omitempty"`
}

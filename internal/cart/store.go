package cart

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"storefront/internal/domain"
	apperrors "storefront/internal/errors"
	"storefront/internal/tenant"
)

// Store holds one cart per tenant. The active tenant's cart is kept in memory
// and swapped whenever the resolver lands on a different tenant; other
// tenants are read from and written to storage directly.
type Store struct {
	mu      sync.Mutex
	storage Storage
	logger  *zap.Logger

	active  string
	visible []domain.LineItem
	// scratch backs the cart used while no tenant is resolved. It is never persisted.
	scratch []domain.LineItem
}

// NewStore binds a store to resolver. A nil resolver leaves tenant switching
// to explicit Activate calls.
func NewStore(storage Storage, resolver *tenant.Resolver, logger *zap.Logger) *Store {
	s := &Store{
		storage: storage,
		logger:  logger,
		active:  tenant.Unset,
	}
	if resolver != nil {
		s.Activate(context.Background(), resolver.Current())
		resolver.OnChange(func(_, next string) {
			s.Activate(context.Background(), next)
		})
	}
	return s
}

// Activate makes tenantID the visible cart. The previous tenant's persisted
// cart is left untouched.
func (s *Store) Activate(ctx context.Context, tenantID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if tenantID == s.active && tenantID != tenant.Unset {
		return
	}
	s.active = tenantID
	if tenantID == tenant.Unset {
		s.visible = nil
		return
	}
	s.visible = s.read(ctx, tenantID)
	s.logger.Debug("cart activated", zap.String("tenantId", tenantID), zap.Int("itemCount", len(s.visible)))
}

func (s *Store) ActiveTenant() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Active returns a handle that always addresses whichever tenant is active at
// the time of each call.
func (s *Store) Active() *Cart {
	return &Cart{store: s, follow: true}
}

// Tenant returns a handle bound to tenantID regardless of navigation.
func (s *Store) Tenant(tenantID string) *Cart {
	return &Cart{store: s, tenantID: tenantID}
}

func (s *Store) Add(ctx context.Context, item domain.LineItem) error {
	return s.Active().Add(ctx, item)
}

func (s *Store) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	return s.Active().UpdateQuantity(ctx, id, quantity)
}

func (s *Store) Remove(ctx context.Context, id string) error {
	return s.Active().Remove(ctx, id)
}

func (s *Store) Clear(ctx context.Context) error {
	return s.Active().Clear(ctx)
}

func (s *Store) Items(ctx context.Context) []domain.LineItem {
	return s.Active().Items(ctx)
}

func (s *Store) Subtotal(ctx context.Context) decimal.Decimal {
	return s.Active().Subtotal(ctx)
}

// Cart is a handle on one tenant's cart.
type Cart struct {
	store    *Store
	tenantID string
	follow   bool
}

func (c *Cart) target() string {
	if c.follow {
		return c.store.active
	}
	return c.tenantID
}

// Add appends item, or accumulates its quantity onto an existing line with the
// same ID. A quantity below one counts as one.
func (c *Cart) Add(ctx context.Context, item domain.LineItem) error {
	if item.ID == "" {
		return apperrors.NewValidationError("invalid line item", apperrors.ValidationDetail{
			Field:   "id",
			Message: "id is required",
		})
	}
	if item.UnitPrice.IsNegative() {
		return apperrors.NewValidationError("invalid line item", apperrors.ValidationDetail{
			Field:   "price",
			Message: "price must be non-negative",
		})
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}

	return c.store.mutate(ctx, c.target, func(items []domain.LineItem) []domain.LineItem {
		for i := range items {
			if items[i].ID == item.ID {
				items[i].Quantity += item.Quantity
				return items
			}
		}
		return append(items, item)
	})
}

// UpdateQuantity sets the quantity of line id exactly; zero or less removes it.
func (c *Cart) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	if quantity <= 0 {
		return c.Remove(ctx, id)
	}
	return c.store.mutate(ctx, c.target, func(items []domain.LineItem) []domain.LineItem {
		for i := range items {
			if items[i].ID == id {
				items[i].Quantity = quantity
				break
			}
		}
		return items
	})
}

func (c *Cart) Remove(ctx context.Context, id string) error {
	return c.store.mutate(ctx, c.target, func(items []domain.LineItem) []domain.LineItem {
		out := items[:0]
		for _, item := range items {
			if item.ID != id {
				out = append(out, item)
			}
		}
		return out
	})
}

// Subtract takes the quantities in ordered off the cart and drops lines that
// reach zero. Lines not in ordered are kept as they are.
func (c *Cart) Subtract(ctx context.Context, ordered []domain.LineItem) error {
	taken := make(map[string]int, len(ordered))
	for _, item := range ordered {
		taken[item.ID] += item.Quantity
	}
	return c.store.mutate(ctx, c.target, func(items []domain.LineItem) []domain.LineItem {
		out := items[:0]
		for _, item := range items {
			item.Quantity -= taken[item.ID]
			if item.Quantity > 0 {
				out = append(out, item)
			}
		}
		return out
	})
}

func (c *Cart) Clear(ctx context.Context) error {
	return c.store.mutate(ctx, c.target, func([]domain.LineItem) []domain.LineItem {
		return nil
	})
}

// Items returns the lines in insertion order. The slice is a copy.
func (c *Cart) Items(ctx context.Context) []domain.LineItem {
	c.store.mu.Lock()
	defer c.store.mu.Unlock()
	return c.store.load(ctx, c.target())
}

func (c *Cart) Subtotal(ctx context.Context) decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items(ctx) {
		total = total.Add(item.LineTotal())
	}
	return total
}

func (s *Store) mutate(ctx context.Context, target func() string, fn func([]domain.LineItem) []domain.LineItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tenantID := target()
	items := fn(s.load(ctx, tenantID))
	return s.persist(ctx, tenantID, items)
}

// load returns a private copy of tenantID's lines. Callers hold s.mu.
func (s *Store) load(ctx context.Context, tenantID string) []domain.LineItem {
	switch tenantID {
	case tenant.Unset:
		return domain.CloneLineItems(s.scratch)
	case s.active:
		return domain.CloneLineItems(s.visible)
	default:
		return s.read(ctx, tenantID)
	}
}

func (s *Store) persist(ctx context.Context, tenantID string, items []domain.LineItem) error {
	if tenantID == tenant.Unset {
		s.scratch = items
		return nil
	}

	key := Key(tenantID)
	if len(items) == 0 {
		if err := s.storage.Delete(ctx, key); err != nil {
			return fmt.Errorf("clearing cart for tenant %s: %w", tenantID, err)
		}
	} else {
		data, err := json.Marshal(items)
		if err != nil {
			return fmt.Errorf("encoding cart for tenant %s: %w", tenantID, err)
		}
		if err := s.storage.Save(ctx, key, data); err != nil {
			return fmt.Errorf("saving cart for tenant %s: %w", tenantID, err)
		}
	}

	if tenantID == s.active {
		s.visible = items
	}
	return nil
}

// read loads a persisted cart. Unreadable or corrupt data yields an empty cart.
func (s *Store) read(ctx context.Context, tenantID string) []domain.LineItem {
	data, err := s.storage.Load(ctx, Key(tenantID))
	if err != nil {
		s.logger.Warn("cart storage unavailable, starting empty", zap.String("tenantId", tenantID), zap.Error(err))
		return nil
	}
	if len(data) == 0 {
		return nil
	}

	var items []domain.LineItem
	if err := json.Unmarshal(data, &items); err != nil {
		s.logger.Warn("discarding corrupt cart", zap.String("tenantId", tenantID), zap.Error(err))
		return nil
	}
	return normalize(items)
}

// normalize drops unusable lines and merges duplicate IDs so a hand-edited or
// partially written cart still satisfies the one-line-per-ID rule.
func normalize(items []domain.LineItem) []domain.LineItem {
	out := make([]domain.LineItem, 0, len(items))
	index := make(map[string]int, len(items))
	for _, item := range items {
		if item.ID == "" || item.Quantity < 1 {
			continue
		}
		if i, ok := index[item.ID]; ok {
			out[i].Quantity += item.Quantity
			continue
		}
		index[item.ID] = len(out)
		out = append(out, item)
	}
	return out
}

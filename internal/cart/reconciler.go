package cart

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bjo163/storefront/internal/domain"
)

var (
	ErrInvalidQuantity   = errors.New("quantity must be at least 1")
	ErrInsufficientStock = errors.New("not enough stock")
	ErrProductNotFound   = errors.New("product not found")
	ErrLineNotFound      = errors.New("cart line not found")
)

// Reconciler keeps at most one cart line per (user, product).
//
// Lines are mutated with a read-then-write sequence and no row lock: two
// concurrent requests for the same user and product can both observe "no
// line" and insert, or both read the same quantity. Stock is read at check
// time and may change before the write commits. Both windows are known and
// accepted.
type Reconciler struct {
	db *gorm.DB
}

func NewReconciler(db *gorm.DB) *Reconciler {
	return &Reconciler{db: db}
}

// Summary is a cart with its running totals
type Summary struct {
	Lines     []domain.CartLine `json:"lines"`
	ItemCount int               `json:"item_count"`
	Subtotal  decimal.Decimal   `json:"subtotal"`
}

// Add increments the user's line for productID by delta, inserting a line of
// max(1, delta) when none exists. The result must stay within [1, stock].
func (r *Reconciler) Add(ctx context.Context, userID, productID string, delta int) (*domain.CartLine, error) {
	return r.reconcile(ctx, userID, productID, func(existing *domain.CartLine) int {
		if existing == nil {
			if delta < 1 {
				return 1
			}
			return delta
		}
		return existing.Quantity + delta
	})
}

// SetQuantity sets the user's line for productID to qty, inserting it when
// absent.
func (r *Reconciler) SetQuantity(ctx context.Context, userID, productID string, qty int) (*domain.CartLine, error) {
	return r.reconcile(ctx, userID, productID, func(*domain.CartLine) int { return qty })
}

func (r *Reconciler) reconcile(ctx context.Context, userID, productID string, next func(*domain.CartLine) int) (*domain.CartLine, error) {
	db := r.db.WithContext(ctx)

	var product domain.Product
	err := db.Select("id", "stock").Where("id = ?", productID).First(&product).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrProductNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "query product stock")
	}

	existing, err := r.find(ctx, userID, productID)
	if err != nil {
		return nil, err
	}

	qty := next(existing)
	if qty < 1 {
		return nil, ErrInvalidQuantity
	}
	if qty > product.Stock {
		return nil, errors.Wrapf(ErrInsufficientStock, "requested %d, %d available", qty, product.Stock)
	}

	now := time.Now()
	if existing == nil {
		line := &domain.CartLine{
			UserID:    userID,
			ProductID: productID,
			Quantity:  qty,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := db.Create(line).Error; err != nil {
			return nil, errors.Wrap(err, "insert cart line")
		}
		return line, nil
	}

	if err := db.Model(&domain.CartLine{}).Where("id = ?", existing.ID).Updates(map[string]interface{}{
		"quantity":   qty,
		"updated_at": now,
	}).Error; err != nil {
		return nil, errors.Wrap(err, "update cart line")
	}
	existing.Quantity = qty
	existing.UpdatedAt = now
	return existing, nil
}

func (r *Reconciler) find(ctx context.Context, userID, productID string) (*domain.CartLine, error) {
	var line domain.CartLine
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Order("created_at ASC").
		First(&line).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "query cart line")
	}
	return &line, nil
}

// List returns the user's lines with their products, oldest first
func (r *Reconciler) List(ctx context.Context, userID string) ([]domain.CartLine, error) {
	lines := make([]domain.CartLine, 0)
	if err := r.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at ASC, id ASC").
		Find(&lines).Error; err != nil {
		return nil, errors.Wrap(err, "query cart")
	}
	return lines, nil
}

// Summary returns the cart with item count and subtotal at current prices.
// Lines whose product no longer exists contribute nothing.
func (r *Reconciler) Summary(ctx context.Context, userID string) (*Summary, error) {
	lines, err := r.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	s := &Summary{Lines: lines, Subtotal: decimal.Zero}
	for _, l := range lines {
		if l.Product == nil {
			continue
		}
		s.ItemCount += l.Quantity
		s.Subtotal = s.Subtotal.Add(decimal.NewFromFloat(l.Product.Price).Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	s.Subtotal = s.Subtotal.Round(2)
	return s, nil
}

// Remove deletes the user's line for productID
func (r *Reconciler) Remove(ctx context.Context, userID, productID string) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&domain.CartLine{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete cart line")
	}
	if res.RowsAffected == 0 {
		return ErrLineNotFound
	}
	return nil
}

// Clear empties the user's cart
func (r *Reconciler) Clear(ctx context.Context, userID string) error {
	res := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&domain.CartLine{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "clear cart")
	}
	zap.L().Debug("cart cleared", zap.String("user_id", userID), zap.Int64("lines", res.RowsAffected))
	return nil
}

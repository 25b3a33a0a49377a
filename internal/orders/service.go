package orders

import (
	"context"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/bjo163/storefront/internal/domain"
)

var ErrOrderNotFound = errors.New("order not found")

// LowStockThreshold marks products that should be restocked
const LowStockThreshold = 5

// Service reads order history. Orders are written by checkout, never here.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

func (s *Service) withItems(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC, id ASC") }).
		Preload("Items.Product")
}

// ListForUser returns userID's orders newest first
func (s *Service) ListForUser(ctx context.Context, userID string) ([]domain.Order, error) {
	out := make([]domain.Order, 0)
	err := s.withItems(ctx).Where("user_id = ?", userID).Order("created_at DESC, id ASC").Find(&out).Error
	if err != nil {
		return nil, errors.Wrap(err, "query orders")
	}
	return out, nil
}

// Get returns one of userID's orders. Orders of other users are not found.
func (s *Service) Get(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	var o domain.Order
	err := s.withItems(ctx).Where("id = ? AND user_id = ?", orderID, userID).First(&o).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrOrderNotFound
	} else if err != nil {
		return nil, errors.Wrap(err, "query order")
	}
	return &o, nil
}

// Stats is the admin dashboard summary
type Stats struct {
	Products      int64           `json:"products"`
	Categories    int64           `json:"categories"`
	Users         int64           `json:"users"`
	Orders        int64           `json:"orders"`
	PendingOrders int64           `json:"pending_orders"`
	LowStock      int64           `json:"low_stock"`
	Revenue       decimal.Decimal `json:"revenue"`
	RecentOrders  []domain.Order  `json:"recent_orders"`
}

// Stats computes the dashboard summary. Revenue excludes cancelled orders.
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	db := s.db.WithContext(ctx)
	st := &Stats{}

	counts := []struct {
		model interface{}
		where string
		dest  *int64
	}{
		{&domain.Product{}, "", &st.Products},
		{&domain.Category{}, "", &st.Categories},
		{&domain.Profile{}, "", &st.Users},
		{&domain.Order{}, "", &st.Orders},
		{&domain.Order{}, "status = 'pending'", &st.PendingOrders},
	}
	for _, c := range counts {
		q := db.Model(c.model)
		if c.where != "" {
			q = q.Where(c.where)
		}
		if err := q.Count(c.dest).Error; err != nil {
			return nil, errors.Wrapf(err, "count %T", c.model)
		}
	}
	if err := db.Model(&domain.Product{}).Where("stock < ?", LowStockThreshold).Count(&st.LowStock).Error; err != nil {
		return nil, errors.Wrap(err, "count low stock")
	}

	var totals []float64
	if err := db.Model(&domain.Order{}).Where("status <> ?", "cancelled").Pluck("total", &totals).Error; err != nil {
		return nil, errors.Wrap(err, "query order totals")
	}
	st.Revenue = decimal.Zero
	for _, t := range totals {
		st.Revenue = st.Revenue.Add(decimal.NewFromFloat(t))
	}
	st.Revenue = st.Revenue.Round(2)

	st.RecentOrders = make([]domain.Order, 0)
	if err := db.Order("created_at DESC, id ASC").Limit(5).Find(&st.RecentOrders).Error; err != nil {
		return nil, errors.Wrap(err, "query recent orders")
	}
	return st, nil
}

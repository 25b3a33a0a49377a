package wishlist

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/bjo163/storefront/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrEntryNotFound   = errors.New("wishlist entry not found")
)

// Service manages saved-for-later products
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// Add saves productID for userID. Saving an already saved product returns the
// existing entry.
func (s *Service) Add(ctx context.Context, userID, productID string) (*domain.WishlistEntry, error) {
	db := s.db.WithContext(ctx)

	var n int64
	if err := db.Model(&domain.Product{}).Where("id = ?", productID).Count(&n).Error; err != nil {
		return nil, errors.Wrap(err, "query product")
	}
	if n == 0 {
		return nil, ErrProductNotFound
	}

	var existing domain.WishlistEntry
	err := db.Where("user_id = ? AND product_id = ?", userID, productID).First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.Wrap(err, "query wishlist")
	}

	entry := &domain.WishlistEntry{UserID: userID, ProductID: productID, CreatedAt: time.Now()}
	if err := db.Create(entry).Error; err != nil {
		return nil, errors.Wrap(err, "insert wishlist entry")
	}
	return entry, nil
}

// Remove deletes the entry matching both userID and productID
func (s *Service) Remove(ctx context.Context, userID, productID string) error {
	res := s.db.WithContext(ctx).
		Where("user_id = ? AND product_id = ?", userID, productID).
		Delete(&domain.WishlistEntry{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete wishlist entry")
	}
	if res.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// List returns the user's saved products, newest first
func (s *Service) List(ctx context.Context, userID string) ([]domain.WishlistEntry, error) {
	rows := make([]domain.WishlistEntry, 0)
	if err := s.db.WithContext(ctx).
		Preload("Product").
		Where("user_id = ?", userID).
		Order("created_at DESC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, errors.Wrap(err, "query wishlist")
	}
	return rows, nil
}

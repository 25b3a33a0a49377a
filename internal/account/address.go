package account

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/bjo163/storefront/internal/domain"
)

// AddressInput is a new saved address
type AddressInput struct {
	AddressLine string `json:"address_line" validate:"required"`
	City        string `json:"city" validate:"required"`
	State       string `json:"state" validate:"required"`
	PostalCode  string `json:"postal_code" validate:"required"`
	IsDefault   bool   `json:"is_default"`
}

// ListAddresses returns userID's addresses, the default first
func (s *Service) ListAddresses(ctx context.Context, userID string) ([]domain.SavedAddress, error) {
	out := make([]domain.SavedAddress, 0)
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("is_default DESC, created_at DESC, id ASC").Find(&out).Error
	return out, errors.Wrap(err, "query addresses")
}

// AddAddress stores in for userID. A default address replaces the previous
// default.
func (s *Service) AddAddress(ctx context.Context, userID string, in AddressInput) (*domain.SavedAddress, error) {
	a := &domain.SavedAddress{
		UserID:      userID,
		AddressLine: strings.TrimSpace(in.AddressLine),
		City:        strings.TrimSpace(in.City),
		State:       strings.TrimSpace(in.State),
		PostalCode:  strings.TrimSpace(in.PostalCode),
		IsDefault:   in.IsDefault,
	}
	if a.AddressLine == "" || a.City == "" || a.State == "" || a.PostalCode == "" {
		return nil, ErrInvalidAddress
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if a.IsDefault {
			if err := clearDefault(tx, userID); err != nil {
				return err
			}
		}
		return errors.Wrap(tx.Create(a).Error, "insert address")
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// DeleteAddress removes one of userID's addresses
func (s *Service) DeleteAddress(ctx context.Context, userID, id string) error {
	res := s.db.WithContext(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&domain.SavedAddress{})
	if res.Error != nil {
		return errors.Wrap(res.Error, "delete address")
	}
	if res.RowsAffected == 0 {
		return ErrAddressNotFound
	}
	return nil
}

// SetDefaultAddress makes id userID's only default address
func (s *Service) SetDefaultAddress(ctx context.Context, userID, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var n int64
		if err := tx.Model(&domain.SavedAddress{}).Where("id = ? AND user_id = ?", id, userID).Count(&n).Error; err != nil {
			return errors.Wrap(err, "query address")
		}
		if n == 0 {
			return ErrAddressNotFound
		}
		if err := clearDefault(tx, userID); err != nil {
			return err
		}
		err := tx.Model(&domain.SavedAddress{}).Where("id = ?", id).
			Updates(map[string]interface{}{"is_default": true, "updated_at": time.Now()}).Error
		return errors.Wrap(err, "update address")
	})
}

func clearDefault(tx *gorm.DB, userID string) error {
	err := tx.Model(&domain.SavedAddress{}).Where("user_id = ? AND is_default = ?", userID, true).
		Updates(map[string]interface{}{"is_default": false, "updated_at": time.Now()}).Error
	return errors.Wrap(err, "clear default address")
}

package account

import (
	"context"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/bjo163/storefront/internal/domain"
)

var (
	ErrInvalidBirthday = errors.New("invalid birthday")
	ErrAddressNotFound = errors.New("address not found")
	ErrInvalidAddress  = errors.New("address line, city, state and postal code are required")
)

// RoleLookup resolves the roles of many users at once
type RoleLookup interface {
	RolesFor(ctx context.Context, userIDs []string) (map[string][]domain.Role, error)
}

// Service manages profiles and saved addresses
type Service struct {
	db    *gorm.DB
	roles RoleLookup
}

func NewService(db *gorm.DB, roles RoleLookup) *Service {
	return &Service{db: db, roles: roles}
}

// ProfileUpdate holds the editable profile fields. Nil fields are unchanged,
// empty strings clear the field.
type ProfileUpdate struct {
	Username  *string `json:"username"`
	FullName  *string `json:"full_name"`
	Phone     *string `json:"phone"`
	Address   *string `json:"address"`
	AvatarURL *string `json:"avatar_url"`
	Birthday  *string `json:"birthday"`
}

// GetProfile returns userID's profile. A user without a stored profile gets
// an empty one.
func (s *Service) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	var p domain.Profile
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &domain.Profile{ID: userID}, nil
	} else if err != nil {
		return nil, errors.Wrap(err, "query profile")
	}
	return &p, nil
}

// UpdateProfile applies u to userID's profile, creating it on first use
func (s *Service) UpdateProfile(ctx context.Context, userID string, u ProfileUpdate) (*domain.Profile, error) {
	p, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	for dst, src := range map[**string]*string{
		&p.Username:  u.Username,
		&p.FullName:  u.FullName,
		&p.Phone:     u.Phone,
		&p.Address:   u.Address,
		&p.AvatarURL: u.AvatarURL,
	} {
		if src != nil {
			*dst = optional(*src)
		}
	}
	if u.Birthday != nil {
		if p.Birthday, err = parseBirthday(*u.Birthday); err != nil {
			return nil, err
		}
	}
	if err := s.db.WithContext(ctx).Save(p).Error; err != nil {
		return nil, errors.Wrap(err, "save profile")
	}
	return p, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func parseBirthday(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return nil, errors.Wrap(ErrInvalidBirthday, err.Error())
	}
	if t.After(time.Now()) {
		return nil, errors.Wrap(ErrInvalidBirthday, "date is in the future")
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d, nil
}

// UserSummary is a profile with its roles for the admin user list
type UserSummary struct {
	domain.Profile
	Roles []domain.Role `json:"roles"`
}

// ListUsers pages through profiles, newest first, optionally filtered by a
// case-insensitive match on username, full name or phone.
func (s *Service) ListUsers(ctx context.Context, search string, page, pageSize int) ([]UserSummary, int64, error) {
	query := s.db.WithContext(ctx).Model(&domain.Profile{})
	if search = strings.TrimSpace(search); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		if s.db.Dialector.Name() == "postgres" {
			like = "%" + search + "%"
			query = query.Where("username ILIKE ? OR full_name ILIKE ? OR phone ILIKE ?", like, like, like)
		} else {
			query = query.Where("LOWER(username) LIKE ? OR LOWER(full_name) LIKE ? OR LOWER(phone) LIKE ?", like, like, like)
		}
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, errors.Wrap(err, "count profiles")
	}

	var profiles []domain.Profile
	offset := (page - 1) * pageSize
	if err := query.Order("created_at DESC, id ASC").Limit(pageSize).Offset(offset).Find(&profiles).Error; err != nil {
		return nil, 0, errors.Wrap(err, "query profiles")
	}

	ids := make([]string, 0, len(profiles))
	for _, p := range profiles {
		ids = append(ids, p.ID)
	}
	roles := map[string][]domain.Role{}
	if s.roles != nil {
		var err error
		if roles, err = s.roles.RolesFor(ctx, ids); err != nil {
			return nil, 0, err
		}
	}

	out := make([]UserSummary, 0, len(profiles))
	for _, p := range profiles {
		r := roles[p.ID]
		if r == nil {
			r = []domain.Role{}
		}
		out = append(out, UserSummary{Profile: p, Roles: r})
	}
	return out, total, nil
}

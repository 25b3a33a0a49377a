package rolegate

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/bjo163/storefront/internal/auth"
	"github.com/bjo163/storefront/internal/domain"
)

var ErrInvalidRole = errors.New("invalid role")

const (
	RedirectSignIn = "/auth"
	RedirectHome   = "/"
)

// Decision is the outcome of an admin gate check. A refused decision carries
// the path the client should navigate to.
type Decision struct {
	Allowed       bool   `json:"allowed"`
	Authenticated bool   `json:"authenticated"`
	Redirect      string `json:"redirect,omitempty"`
	Message       string `json:"message,omitempty"`
}

// Gate decides admin access from user_roles. Nothing is cached: role changes
// take effect on the next request.
type Gate struct {
	db *gorm.DB
}

func NewGate(db *gorm.DB) *Gate {
	return &Gate{db: db}
}

// Check decides whether id may enter the admin area
func (g *Gate) Check(ctx context.Context, id *auth.Identity) (Decision, error) {
	if id == nil || id.UserID == "" {
		return Decision{Redirect: RedirectSignIn, Message: "Please sign in to continue"}, nil
	}
	ok, err := g.IsAdmin(ctx, id.UserID)
	if err != nil {
		return Decision{Authenticated: true}, err
	}
	if !ok {
		return Decision{
			Authenticated: true,
			Redirect:      RedirectHome,
			Message:       "You don't have permission to access the admin panel",
		}, nil
	}
	return Decision{Allowed: true, Authenticated: true}, nil
}

// IsAdmin reports whether userID holds the admin role
func (g *Gate) IsAdmin(ctx context.Context, userID string) (bool, error) {
	var n int64
	err := g.db.WithContext(ctx).Model(&domain.UserRole{}).
		Where("user_id = ? AND role = ?", userID, domain.RoleAdmin).Count(&n).Error
	if err != nil {
		return false, errors.Wrap(err, "query user roles")
	}
	return n > 0, nil
}

// Roles returns the roles held by userID
func (g *Gate) Roles(ctx context.Context, userID string) ([]domain.Role, error) {
	roles := make([]domain.Role, 0)
	err := g.db.WithContext(ctx).Model(&domain.UserRole{}).
		Where("user_id = ?", userID).Order("role").Pluck("role", &roles).Error
	return roles, errors.Wrap(err, "query user roles")
}

// RolesFor returns the roles of each of userIDs
func (g *Gate) RolesFor(ctx context.Context, userIDs []string) (map[string][]domain.Role, error) {
	out := make(map[string][]domain.Role, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var rows []domain.UserRole
	err := g.db.WithContext(ctx).Where("user_id IN ?", userIDs).Order("user_id, role").Find(&rows).Error
	if err != nil {
		return nil, errors.Wrap(err, "query user roles")
	}
	for _, r := range rows {
		out[r.UserID] = append(out[r.UserID], r.Role)
	}
	return out, nil
}

// Grant gives userID role. Granting a held role is a no-op.
func (g *Gate) Grant(ctx context.Context, userID string, role domain.Role) error {
	if !role.Valid() || userID == "" {
		return ErrInvalidRole
	}
	db := g.db.WithContext(ctx)
	var n int64
	if err := db.Model(&domain.UserRole{}).Where("user_id = ? AND role = ?", userID, role).Count(&n).Error; err != nil {
		return errors.Wrap(err, "query user roles")
	}
	if n > 0 {
		return nil
	}
	return errors.Wrap(db.Create(&domain.UserRole{UserID: userID, Role: role, CreatedAt: time.Now()}).Error, "insert user role")
}

// Revoke removes role from userID
func (g *Gate) Revoke(ctx context.Context, userID string, role domain.Role) error {
	if !role.Valid() {
		return ErrInvalidRole
	}
	err := g.db.WithContext(ctx).Where("user_id = ? AND role = ?", userID, role).Delete(&domain.UserRole{}).Error
	return errors.Wrap(err, "delete user role")
}

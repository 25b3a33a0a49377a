package account

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjo163/storefront/internal/dbtest"
	"github.com/bjo163/storefront/internal/domain"
	"github.com/bjo163/storefront/internal/rolegate"
)

func TestProfileUpdate(t *testing.T) {
	db := dbtest.Open(t)
	s := NewService(db, nil)
	ctx := context.Background()

	p, err := s.GetProfile(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", p.ID)
	assert.Nil(t, p.FullName)

	p, err = s.UpdateProfile(ctx, "u-1", ProfileUpdate{
		FullName: dbtest.Ptr(" Asha Rao "),
		Phone:    dbtest.Ptr("+91 98450 00000"),
		Birthday: dbtest.Ptr("March 7, 1994"),
	})
	require.NoError(t, err)
	require.NotNil(t, p.FullName)
	assert.Equal(t, "Asha Rao", *p.FullName)
	require.NotNil(t, p.Birthday)
	assert.Equal(t, time.Date(1994, 3, 7, 0, 0, 0, 0, time.UTC), *p.Birthday)

	p, err = s.UpdateProfile(ctx, "u-1", ProfileUpdate{Phone: dbtest.Ptr("")})
	require.NoError(t, err)
	assert.Nil(t, p.Phone)
	assert.NotNil(t, p.FullName, "untouched fields are kept")

	stored, err := s.GetProfile(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, "Asha Rao", *stored.FullName)
	assert.Nil(t, stored.Phone)

	_, err = s.UpdateProfile(ctx, "u-1", ProfileUpdate{Birthday: dbtest.Ptr("not a date")})
	assert.ErrorIs(t, err, ErrInvalidBirthday)
	_, err = s.UpdateProfile(ctx, "u-1", ProfileUpdate{Birthday: dbtest.Ptr(time.Now().AddDate(1, 0, 0).Format("2006-01-02"))})
	assert.ErrorIs(t, err, ErrInvalidBirthday)
}

func TestListUsers(t *testing.T) {
	db := dbtest.Open(t)
	gate := rolegate.NewGate(db)
	s := NewService(db, gate)
	ctx := context.Background()

	now := time.Now()
	require.NoError(t, db.Create(&[]domain.Profile{
		{ID: "u-1", FullName: dbtest.Ptr("Asha Rao"), CreatedAt: now.Add(-time.Hour)},
		{ID: "u-2", FullName: dbtest.Ptr("Vikram Shah"), Username: dbtest.Ptr("vik"), CreatedAt: now},
		{ID: "u-3", FullName: dbtest.Ptr("Meera Iyer"), CreatedAt: now.Add(-2 * time.Hour)},
	}).Error)
	require.NoError(t, gate.Grant(ctx, "u-1", domain.RoleAdmin))

	users, total, err := s.ListUsers(ctx, "", 1, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	require.Len(t, users, 2)
	assert.Equal(t, "u-2", users[0].ID)
	assert.Empty(t, users[0].Roles)
	assert.Equal(t, []domain.Role{domain.RoleAdmin}, users[1].Roles)

	users, total, err = s.ListUsers(ctx, "ASHA", 1, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, users, 1)
	assert.Equal(t, "u-1", users[0].ID)
}

func TestAddresses(t *testing.T) {
	db := dbtest.Open(t)
	s := NewService(db, nil)
	ctx := context.Background()

	home, err := s.AddAddress(ctx, "u-1", AddressInput{
		AddressLine: "12 MG Road", City: "Bengaluru", State: "KA", PostalCode: "560001", IsDefault: true,
	})
	require.NoError(t, err)
	office, err := s.AddAddress(ctx, "u-1", AddressInput{
		AddressLine: "4 Residency Rd", City: "Bengaluru", State: "KA", PostalCode: "560025", IsDefault: true,
	})
	require.NoError(t, err)
	_, err = s.AddAddress(ctx, "u-1", AddressInput{AddressLine: "x"})
	assert.ErrorIs(t, err, ErrInvalidAddress)

	list, err := s.ListAddresses(ctx, "u-1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, office.ID, list[0].ID)
	assert.True(t, list[0].IsDefault)
	assert.False(t, list[1].IsDefault, "only one default address")

	require.NoError(t, s.SetDefaultAddress(ctx, "u-1", home.ID))
	list, err = s.ListAddresses(ctx, "u-1")
	require.NoError(t, err)
	assert.Equal(t, home.ID, list[0].ID)
	assert.True(t, list[0].IsDefault)
	assert.False(t, list[1].IsDefault)

	assert.ErrorIs(t, s.SetDefaultAddress(ctx, "u-2", home.ID), ErrAddressNotFound)
	assert.ErrorIs(t, s.DeleteAddress(ctx, "u-2", home.ID), ErrAddressNotFound)
	require.NoError(t, s.DeleteAddress(ctx, "u-1", home.ID))

	list, err = s.ListAddresses(ctx, "u-1")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

package wishlist

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjo163/storefront/internal/dbtest"
	"github.com/bjo163/storefront/internal/domain"
)

func TestWishlistLifecycle(t *testing.T) {
	db := dbtest.Open(t)
	require.NoError(t, db.Create(&[]domain.Product{
		{ID: "p1", Name: "OLED Display", Price: 350, Stock: 3},
		{ID: "p2", Name: "Servo", Price: 150, Stock: 9},
	}).Error)
	s := NewService(db)
	ctx := context.Background()

	a, err := s.Add(ctx, "u1", "p1")
	require.NoError(t, err)
	again, err := s.Add(ctx, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, a.ID, again.ID)

	_, err = s.Add(ctx, "u1", "p2")
	require.NoError(t, err)
	_, err = s.Add(ctx, "u2", "p1")
	require.NoError(t, err)

	_, err = s.Add(ctx, "u1", "ghost")
	assert.ErrorIs(t, err, ErrProductNotFound)

	rows, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		require.NotNil(t, r.Product)
	}

	require.NoError(t, s.Remove(ctx, "u1", "p1"))
	assert.ErrorIs(t, s.Remove(ctx, "u1", "p1"), ErrEntryNotFound)

	rows, err = s.List(ctx, "u2")
	require.NoError(t, err)
	assert.Len(t, rows, 1, "removal matches both user and product")
}

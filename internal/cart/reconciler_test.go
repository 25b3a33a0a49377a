package cart

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/bjo163/storefront/internal/dbtest"
	"github.com/bjo163/storefront/internal/domain"
)

const user = "user-1"

func setup(t *testing.T) (*gorm.DB, *Reconciler) {
	db := dbtest.Open(t)
	require.NoError(t, db.Create(&[]domain.Product{
		{ID: "P", Name: "Arduino Uno R3", Price: 499, Stock: 5},
		{ID: "Q", Name: "Breadboard", Price: 79.99, Stock: 1},
		{ID: "Z", Name: "Sold out", Price: 10, Stock: 0},
	}).Error)
	return db, NewReconciler(db)
}

func lines(t *testing.T, db *gorm.DB, productID string) []domain.CartLine {
	var out []domain.CartLine
	require.NoError(t, db.Where("user_id = ? AND product_id = ?", user, productID).Find(&out).Error)
	return out
}

func TestAddInsertsThenIncrements(t *testing.T) {
	db, r := setup(t)
	ctx := context.Background()

	line, err := r.Add(ctx, user, "P", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, line.Quantity)
	require.Len(t, lines(t, db, "P"), 1)

	first := lines(t, db, "P")[0]
	line, err = r.Add(ctx, user, "P", 1)
	require.NoError(t, err)
	assert.Equal(t, 3, line.Quantity)

	got := lines(t, db, "P")
	require.Len(t, got, 1, "never two lines for one product")
	assert.Equal(t, 3, got[0].Quantity)
	assert.Equal(t, first.ID, got[0].ID)
	assert.False(t, got[0].UpdatedAt.Before(first.UpdatedAt))
}

func TestAddNonPositiveDeltaInsertsOne(t *testing.T) {
	db, r := setup(t)
	line, err := r.Add(context.Background(), user, "P", 0)
	require.NoError(t, err)
	assert.Equal(t, 1, line.Quantity)
	assert.Len(t, lines(t, db, "P"), 1)
}

func TestAddAboveStockRejectedWithoutMutation(t *testing.T) {
	db, r := setup(t)
	ctx := context.Background()

	_, err := r.Add(ctx, user, "P", 2)
	require.NoError(t, err)

	_, err = r.Add(ctx, user, "P", 4)
	assert.ErrorIs(t, err, ErrInsufficientStock)

	got := lines(t, db, "P")
	require.Len(t, got, 1)
	assert.Equal(t, 2, got[0].Quantity)
}

func TestInsertRespectsStockCeiling(t *testing.T) {
	db, r := setup(t)
	_, err := r.Add(context.Background(), user, "Z", 1)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Empty(t, lines(t, db, "Z"))

	_, err = r.Add(context.Background(), user, "Q", 2)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.Empty(t, lines(t, db, "Q"))
}

func TestDecrementBelowOneRejected(t *testing.T) {
	db, r := setup(t)
	ctx := context.Background()
	_, err := r.Add(ctx, user, "P", 1)
	require.NoError(t, err)

	_, err = r.Add(ctx, user, "P", -1)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
	assert.Equal(t, 1, lines(t, db, "P")[0].Quantity)
}

func TestSetQuantity(t *testing.T) {
	db, r := setup(t)
	ctx := context.Background()

	line, err := r.SetQuantity(ctx, user, "P", 4)
	require.NoError(t, err)
	assert.Equal(t, 4, line.Quantity)

	line, err = r.SetQuantity(ctx, user, "P", 5)
	require.NoError(t, err)
	assert.Equal(t, 5, line.Quantity)

	_, err = r.SetQuantity(ctx, user, "P", 6)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	_, err = r.SetQuantity(ctx, user, "P", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	got := lines(t, db, "P")
	require.Len(t, got, 1)
	assert.Equal(t, 5, got[0].Quantity)
}

func TestUnknownProduct(t *testing.T) {
	_, r := setup(t)
	_, err := r.Add(context.Background(), user, "missing", 1)
	assert.ErrorIs(t, err, ErrProductNotFound)
}

func TestSummaryRemoveClear(t *testing.T) {
	_, r := setup(t)
	ctx := context.Background()
	_, err := r.Add(ctx, user, "P", 2)
	require.NoError(t, err)
	_, err = r.Add(ctx, user, "Q", 1)
	require.NoError(t, err)
	_, err = r.Add(ctx, "someone-else", "P", 1)
	require.NoError(t, err)

	s, err := r.Summary(ctx, user)
	require.NoError(t, err)
	assert.Len(t, s.Lines, 2)
	assert.Equal(t, 3, s.ItemCount)
	assert.Equal(t, "1077.99", s.Subtotal.StringFixed(2))

	require.NoError(t, r.Remove(ctx, user, "Q"))
	assert.ErrorIs(t, r.Remove(ctx, user, "Q"), ErrLineNotFound)

	require.NoError(t, r.Clear(ctx, user))
	s, err = r.Summary(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, s.Lines)
	assert.True(t, s.Subtotal.IsZero())

	other, err := r.List(ctx, "someone-else")
	require.NoError(t, err)
	assert.Len(t, other, 1)
}

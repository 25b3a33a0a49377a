package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bjo163/storefront/config"
	"github.com/bjo163/storefront/internal/dbtest"
	"github.com/bjo163/storefront/internal/domain"
	"github.com/bjo163/storefront/internal/editor"
)

func newTestApp(t *testing.T) *Application {
	cfg := config.DefaultAppConfig()
	cfg.Auth.BootstrapAdmin = "admin-1"
	a := NewApplication(cfg)
	a.OverrideDB(dbtest.Open(t))
	a.InitServices()
	return a
}

func TestSeedDefaults(t *testing.T) {
	a := newTestApp(t)
	a.checkCategories()
	a.checkCategories()
	a.checkBanners()
	a.checkBanners()
	a.checkBootstrapAdmin()

	var categories, banners int64
	require.NoError(t, a.DB().Model(&domain.Category{}).Count(&categories).Error)
	require.NoError(t, a.DB().Model(&domain.Banner{}).Count(&banners).Error)
	assert.EqualValues(t, 5, categories)
	assert.EqualValues(t, 2, banners)

	ok, err := a.Gate().IsAdmin(context.Background(), "admin-1")
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := a.Catalog().ListActiveBanners(context.Background())
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "New Arrivals", list[0].Title)
}

func TestEditorChangesAreLogged(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	c, _, err := a.Categories().Save(ctx, "admin-1", "", editor.Form{Values: map[string]interface{}{"name": "Robotics"}})
	require.NoError(t, err)
	require.NoError(t, a.Categories().Delete(ctx, "admin-1", c.ID))

	var logs []domain.AdminLog
	require.NoError(t, a.DB().Order("created_at ASC").Find(&logs).Error)
	require.Len(t, logs, 2)
	assert.Equal(t, "create", logs[0].Action)
	assert.Equal(t, "category", logs[0].Entity)
	assert.Equal(t, c.ID, logs[0].RecordID)
	assert.Equal(t, "admin-1", logs[0].UserID)
	assert.Equal(t, "delete", logs[1].Action)
}

func TestSweepOrphans(t *testing.T) {
	a := newTestApp(t)
	db := a.DB()
	require.NoError(t, db.Create(&domain.Product{ID: "P", Name: "Relay", Price: 40, Stock: 3}).Error)
	require.NoError(t, db.Create(&[]domain.CartLine{
		{UserID: "u", ProductID: "P", Quantity: 1},
		{UserID: "u", ProductID: "gone", Quantity: 2},
	}).Error)
	require.NoError(t, db.Create(&domain.WishlistEntry{UserID: "u", ProductID: "gone"}).Error)

	n, err := a.SweepOrphans()
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	var lines int64
	require.NoError(t, db.Model(&domain.CartLine{}).Count(&lines).Error)
	assert.EqualValues(t, 1, lines)
}

func TestPurgeAdminLog(t *testing.T) {
	a := newTestApp(t)
	db := a.DB()
	require.NoError(t, db.Create(&[]domain.AdminLog{
		{Action: "create", Entity: "product", CreatedAt: time.Now().AddDate(-2, 0, 0)},
		{Action: "update", Entity: "product", CreatedAt: time.Now()},
	}).Error)

	n, err := a.PurgeAdminLog(0)
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = a.PurgeAdminLog(365)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)
}

func TestJobsFallBackToLocalTimeZone(t *testing.T) {
	a := newTestApp(t)
	a.appConfig.System.Location = "Mars/Olympus"
	a.initJob()
	defer func() { <-a.Scheduler().Stop().Done() }()

	assert.Equal(t, time.Local, a.Scheduler().Location())
	assert.Len(t, a.Scheduler().Entries(), 2)
	assert.Equal(t, time.UTC, jobLocation("UTC"))
}

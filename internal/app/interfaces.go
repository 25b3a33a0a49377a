package app

import (
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/bjo163/storefront/config"
	"github.com/bjo163/storefront/internal/account"
	"github.com/bjo163/storefront/internal/cart"
	"github.com/bjo163/storefront/internal/catalog"
	"github.com/bjo163/storefront/internal/editor"
	"github.com/bjo163/storefront/internal/events"
	"github.com/bjo163/storefront/internal/orders"
	"github.com/bjo163/storefront/internal/rolegate"
	"github.com/bjo163/storefront/internal/storage"
	"github.com/bjo163/storefront/internal/wishlist"
)

// DBProvider provides database access
type DBProvider interface {
	DB() *gorm.DB
}

// ConfigProvider provides application configuration
type ConfigProvider interface {
	Config() *config.AppConfig
}

// SchedulerProvider provides task scheduling capability
type SchedulerProvider interface {
	Scheduler() *cron.Cron
}

// StorageProvider provides object storage and the domain event bus
type StorageProvider interface {
	Store() storage.Store
	Events() *events.Bus
}

// ShopProvider provides the shopper-facing services
type ShopProvider interface {
	Catalog() *catalog.Composer
	Carts() *cart.Reconciler
	Wishlists() *wishlist.Service
	Orders() *orders.Service
	Accounts() *account.Service
}

// AdminProvider provides the admin gate and record editors
type AdminProvider interface {
	Gate() *rolegate.Gate
	Products() *editor.ProductEditor
	Categories() *editor.CategoryEditor
	Banners() *editor.BannerEditor
}

// AppContext combines all provider interfaces for full application context
// Services should depend on specific providers or this combined interface
type AppContext interface {
	DBProvider
	ConfigProvider
	SchedulerProvider
	StorageProvider
	ShopProvider
	AdminProvider

	// Application lifecycle methods
	MigrateDB(track bool) error
	InitDb()
	DropAll()
	// SweepOrphans removes cart lines and wishlist entries whose product is gone
	SweepOrphans() (int64, error)
	// PurgeAdminLog removes operation log entries older than days
	PurgeAdminLog(days int) (int64, error)
}

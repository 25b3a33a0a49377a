package app

import (
	"fmt"
	"os"
	"path"
	"runtime/debug"
	"time"
	_ "time/tzdata"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bjo163/storefront/config"
	"github.com/bjo163/storefront/internal/account"
	"github.com/bjo163/storefront/internal/cart"
	"github.com/bjo163/storefront/internal/catalog"
	"github.com/bjo163/storefront/internal/domain"
	"github.com/bjo163/storefront/internal/editor"
	"github.com/bjo163/storefront/internal/events"
	"github.com/bjo163/storefront/internal/orders"
	"github.com/bjo163/storefront/internal/rolegate"
	"github.com/bjo163/storefront/internal/storage"
	"github.com/bjo163/storefront/internal/wishlist"
)

type Application struct {
	appConfig *config.AppConfig
	gormDB    *gorm.DB
	sched     *cron.Cron
	bus       *events.Bus
	store     storage.Store

	catalog    *catalog.Composer
	carts      *cart.Reconciler
	wishlists  *wishlist.Service
	orders     *orders.Service
	accounts   *account.Service
	gate       *rolegate.Gate
	products   *editor.ProductEditor
	categories *editor.CategoryEditor
	banners    *editor.BannerEditor
}

// Ensure Application implements all interfaces
var (
	_ DBProvider        = (*Application)(nil)
	_ ConfigProvider    = (*Application)(nil)
	_ SchedulerProvider = (*Application)(nil)
	_ StorageProvider   = (*Application)(nil)
	_ ShopProvider      = (*Application)(nil)
	_ AdminProvider     = (*Application)(nil)
	_ AppContext        = (*Application)(nil)
)

func NewApplication(appConfig *config.AppConfig) *Application {
	return &Application{appConfig: appConfig, bus: events.NewBus()}
}

func (a *Application) Config() *config.AppConfig {
	return a.appConfig
}

func (a *Application) DB() *gorm.DB {
	return a.gormDB
}

// OverrideDB replaces the application's database handle (used in tests).
func (a *Application) OverrideDB(db *gorm.DB) {
	a.gormDB = db
}

// OverrideStore replaces the object store (used in tests).
func (a *Application) OverrideStore(store storage.Store) {
	a.store = store
}

func (a *Application) Init(cfg *config.AppConfig) {
	loc, err := time.LoadLocation(cfg.System.Location)
	if err != nil {
		zap.S().Error("timezone config error")
	} else {
		time.Local = loc
	}

	initLogger(cfg)

	if cfg.Database.Type == "" {
		cfg.Database.Type = "sqlite"
	}
	a.gormDB = getDatabase(cfg.Database, cfg.GetDataDir())
	zap.S().Infof("Database connection successful, type: %s", cfg.Database.Type)

	if err := a.MigrateDB(false); err != nil {
		zap.S().Errorf("database migration failed: %v", err)
	}

	if a.store == nil {
		store, err := storage.New(cfg)
		if err != nil {
			zap.S().Errorf("object storage unavailable: %v", err)
		} else {
			a.store = store
		}
	}

	a.InitServices()
	a.checkCategories()
	a.checkBanners()
	a.checkBootstrapAdmin()

	a.initJob()
}

func initLogger(cfg *config.AppConfig) {
	var zapConfig zap.Config
	if cfg.Logger.Mode == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	var logger *zap.Logger
	if cfg.Logger.FileEnable {
		lumberJackLogger := &lumberjack.Logger{
			Filename:   cfg.Logger.Filename,
			MaxSize:    64,
			MaxBackups: 7,
			MaxAge:     7,
			Compress:   false,
		}

		core := zapcore.NewTee(
			zapcore.NewCore(
				zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()),
				zapcore.AddSync(lumberJackLogger),
				zapConfig.Level,
			),
			zapcore.NewCore(
				zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()),
				zapcore.AddSync(os.Stdout),
				zapConfig.Level,
			),
		)
		logger = zap.New(core, zap.AddCaller())
	} else {
		var err error
		zapConfig.OutputPaths = []string{"stdout"}
		logger, err = zapConfig.Build(zap.AddCaller())
		if err != nil {
			panic(err)
		}
	}

	zap.ReplaceGlobals(logger)
}

func getDatabase(cfg config.DBConfig, datadir string) *gorm.DB {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if cfg.Debug {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	var dialector gorm.Dialector
	switch cfg.Type {
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=UTC",
			cfg.Host, cfg.Port, cfg.User, cfg.Passwd, cfg.Name, cfg.SSLMode)
		dialector = postgres.Open(dsn)
	case "sqlite":
		name := cfg.Name
		if name != ":memory:" && !path.IsAbs(name) {
			if err := os.MkdirAll(datadir, 0o755); err != nil {
				zap.S().Errorf("create data dir: %v", err)
			}
			name = path.Join(datadir, name)
		}
		dialector = sqlite.Open(name + "?_foreign_keys=on&_busy_timeout=5000")
	default:
		panic(fmt.Sprintf("unsupported database type %q", cfg.Type))
	}

	db, err := gorm.Open(dialector, gcfg)
	if err != nil {
		panic(err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(cfg.MaxConn)
	sqlDB.SetMaxIdleConns(cfg.IdleConn)
	if cfg.Type == "sqlite" {
		sqlDB.SetMaxOpenConns(1)
	}
	return db
}

// InitServices builds the domain services on the current database and store
// and subscribes the operation log to editor events.
func (a *Application) InitServices() {
	cfg := a.appConfig
	a.catalog = catalog.NewComposer(a.gormDB, cfg.Catalog.MaxLimit)
	a.carts = cart.NewReconciler(a.gormDB)
	a.wishlists = wishlist.NewService(a.gormDB)
	a.orders = orders.NewService(a.gormDB)
	a.gate = rolegate.NewGate(a.gormDB)
	a.accounts = account.NewService(a.gormDB, a.gate)
	a.products = editor.NewProductEditor(a.gormDB, a.store, a.bus)
	a.categories = editor.NewCategoryEditor(a.gormDB, a.bus)
	a.banners = editor.NewBannerEditor(a.gormDB, a.store, a.bus)
	a.subscribeAdminLog()
}

func (a *Application) MigrateDB(track bool) (err error) {
	defer func() {
		if err1 := recover(); err1 != nil {
			if os.Getenv("GO_DEGUB_TRACE") != "" {
				debug.PrintStack()
			}
			err2, ok := err1.(error)
			if ok {
				err = err2
				zap.S().Error(err2.Error())
			}
		}
	}()
	db := a.gormDB
	if track {
		db = db.Debug()
	}
	return db.Migrator().AutoMigrate(domain.Tables...)
}

func (a *Application) DropAll() {
	_ = a.gormDB.Migrator().DropTable(domain.Tables...)
}

// InitDb drops and recreates every table, then seeds the defaults
func (a *Application) InitDb() {
	a.DropAll()
	if err := a.gormDB.Migrator().AutoMigrate(domain.Tables...); err != nil {
		zap.S().Error(err)
		return
	}
	a.checkCategories()
	a.checkBanners()
	a.checkBootstrapAdmin()
}

// Scheduler returns the cron scheduler
func (a *Application) Scheduler() *cron.Cron {
	return a.sched
}

func (a *Application) Store() storage.Store { return a.store }

func (a *Application) Events() *events.Bus { return a.bus }

func (a *Application) Catalog() *catalog.Composer { return a.catalog }

func (a *Application) Carts() *cart.Reconciler { return a.carts }

func (a *Application) Wishlists() *wishlist.Service { return a.wishlists }

func (a *Application) Orders() *orders.Service { return a.orders }

func (a *Application) Accounts() *account.Service { return a.accounts }

func (a *Application) Gate() *rolegate.Gate { return a.gate }

func (a *Application) Products() *editor.ProductEditor { return a.products }

func (a *Application) Categories() *editor.CategoryEditor { return a.categories }

func (a *Application) Banners() *editor.BannerEditor { return a.banners }

// Release releases application resources
func (a *Application) Release() {
	if a.sched != nil {
		<-a.sched.Stop().Done()
	}
	if closer, ok := a.store.(interface{ Close() error }); ok {
		_ = closer.Close()
	}
	if a.gormDB != nil {
		if sqlDB, err := a.gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	_ = zap.L().Sync()
}

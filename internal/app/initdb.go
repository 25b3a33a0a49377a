package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/bjo163/storefront/internal/domain"
)

// checkCategories initializes the default catalog categories
func (a *Application) checkCategories() {
	defaultCategories := []domain.Category{
		{Name: "Microcontrollers", Description: strptr("Arduino, ESP32, STM32 and other development boards")},
		{Name: "Sensors", Description: strptr("Temperature, motion, distance and environmental sensors")},
		{Name: "Modules", Description: strptr("Wireless, display, relay and power modules")},
		{Name: "Electronic Components", Description: strptr("Resistors, capacitors, ICs and passive parts")},
		{Name: "Development Tools", Description: strptr("Programmers, breadboards, wires and tools")},
	}

	for _, c := range defaultCategories {
		var count int64
		a.gormDB.Model(&domain.Category{}).Where("name = ?", c.Name).Count(&count)
		if count == 0 {
			c.CreatedAt = time.Now()
			c.UpdatedAt = time.Now()
			if err := a.gormDB.Create(&c).Error; err != nil {
				zap.L().Error("failed to create default category", zap.String("name", c.Name), zap.Error(err))
			} else {
				zap.L().Info("initialized default category", zap.String("name", c.Name))
			}
		}
	}
}

// checkBanners initializes the home page banners when none exist
func (a *Application) checkBanners() {
	var count int64
	if err := a.gormDB.Model(&domain.Banner{}).Count(&count).Error; err != nil || count > 0 {
		return
	}

	defaultBanners := []domain.Banner{
		{
			Title:      "New Arrivals",
			Subtitle:   strptr("The latest boards and sensors are in stock"),
			ButtonText: "Shop Now",
			Link:       "/products",
			Active:     true,
			Priority:   0,
		},
		{
			Title:      "Summer Sale",
			Subtitle:   strptr("Up to 30% off selected modules"),
			ButtonText: "View Deals",
			Link:       "/sale",
			Active:     true,
			Priority:   1,
		},
	}
	for _, b := range defaultBanners {
		if err := a.gormDB.Create(&b).Error; err != nil {
			zap.L().Error("failed to create default banner", zap.String("title", b.Title), zap.Error(err))
		} else {
			zap.L().Info("initialized default banner", zap.String("title", b.Title))
		}
	}
}

// checkBootstrapAdmin grants the admin role to the configured user id
func (a *Application) checkBootstrapAdmin() {
	userID := a.appConfig.Auth.BootstrapAdmin
	if userID == "" {
		return
	}
	if err := a.gate.Grant(context.Background(), userID, domain.RoleAdmin); err != nil {
		zap.L().Error("failed to grant bootstrap admin", zap.String("user_id", userID), zap.Error(err))
		return
	}
	zap.L().Info("bootstrap admin ensured", zap.String("user_id", userID))
}

func strptr(s string) *string {
	return &s
}

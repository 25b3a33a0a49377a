package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bjo163/storefront/internal/domain"
	"github.com/bjo163/storefront/internal/webserver"
)

func registerDashboardRoutes() {
	webserver.AdminGET("/admin/dashboard", getDashboard)
	webserver.AdminGET("/admin/logs", listAdminLogs)
}

func getDashboard(c echo.Context) error {
	stats, err := GetAppContext(c).Orders().Stats(c.Request().Context())
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to load dashboard", err.Error())
	}
	return ok(c, stats)
}

// listAdminLogs pages through the admin operation log, newest first
func listAdminLogs(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.AdminLog{})
	if entity := strings.TrimSpace(c.QueryParam("entity")); entity != "" {
		db = db.Where("entity = ?", entity)
	}
	if userID := strings.TrimSpace(c.QueryParam("user_id")); userID != "" {
		db = db.Where("user_id = ?", userID)
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query logs", err.Error())
	}

	var logs []domain.AdminLog
	if err := db.Order("created_at DESC, id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&logs).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query logs", err.Error())
	}
	return paged(c, logs, total, page, pageSize)
}

package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bjo163/storefront/internal/domain"
	"github.com/bjo163/storefront/internal/webserver"
)

// registerCategoryRoutes registers category CRUD routes
func registerCategoryRoutes() {
	webserver.AdminGET("/admin/categories", listCategories)
	webserver.AdminGET("/admin/categories/:id", getCategory)
	webserver.AdminPOST("/admin/categories", createCategory)
	webserver.AdminPUT("/admin/categories/:id", updateCategory)
	webserver.AdminDELETE("/admin/categories/:id", deleteCategory)
}

// categoryRow is a category with the number of products whose primary
// category it is
type categoryRow struct {
	domain.Category
	ProductCount int64 `json:"product_count"`
}

func listCategories(c echo.Context) error {
	page, pageSize := parsePagination(c)

	db := GetDB(c).Model(&domain.Category{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = likeClause(db, q, "name", "description")
	}

	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}

	var categories []domain.Category
	if err := db.Order("name ASC, id ASC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&categories).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query categories", err.Error())
	}

	ids := make([]string, 0, len(categories))
	for _, cat := range categories {
		ids = append(ids, cat.ID)
	}
	var counts []struct {
		CategoryID string
		N          int64
	}
	if len(ids) > 0 {
		if err := GetDB(c).Model(&domain.Product{}).Select("category_id, COUNT(*) AS n").
			Where("category_id IN ?", ids).Group("category_id").Scan(&counts).Error; err != nil {
			return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to count products", err.Error())
		}
	}
	byID := make(map[string]int64, len(counts))
	for _, n := range counts {
		byID[n.CategoryID] = n.N
	}

	rows := make([]categoryRow, 0, len(categories))
	for _, cat := range categories {
		rows = append(rows, categoryRow{Category: cat, ProductCount: byID[cat.ID]})
	}
	return paged(c, rows, total, page, pageSize)
}

func getCategory(c echo.Context) error {
	return getRecord[domain.Category](c, GetAppContext(c).Categories(), "category")
}

func createCategory(c echo.Context) error {
	return saveRecord[domain.Category](c, GetAppContext(c).Categories(), "", "category")
}

func updateCategory(c echo.Context) error {
	return saveRecord[domain.Category](c, GetAppContext(c).Categories(), webserver.ParamID(c, "id"), "category")
}

// deleteCategory removes the category. Its products stay and lose the link.
func deleteCategory(c echo.Context) error {
	return deleteRecord[domain.Category](c, GetAppContext(c).Categories(), "category")
}

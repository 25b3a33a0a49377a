package adminapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gocarina/gocsv"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"gorm.io/gorm"

	"github.com/bjo163/storefront/internal/catalog"
	"github.com/bjo163/storefront/internal/domain"
	"github.com/bjo163/storefront/internal/orders"
	"github.com/bjo163/storefront/internal/webserver"
)

// registerProductRoutes registers product CRUD endpoints
func registerProductRoutes() {
	webserver.AdminGET("/admin/products", listProducts)
	webserver.AdminGET("/admin/products/export", exportProducts)
	webserver.AdminGET("/admin/products/:id", getProduct)
	webserver.AdminPOST("/admin/products", createProduct)
	webserver.AdminPUT("/admin/products/:id", updateProduct)
	webserver.AdminDELETE("/admin/products/:id", deleteProduct)
}

// whitelist allowed sort columns to avoid SQL injection
var productSortColumns = map[string]string{
	"name":       "name",
	"price":      "price",
	"stock":      "stock",
	"created_at": "created_at",
	"updated_at": "updated_at",
}

func productQuery(c echo.Context) *gorm.DB {
	db := GetDB(c).Model(&domain.Product{})
	if q := strings.TrimSpace(c.QueryParam("q")); q != "" {
		db = likeClause(db, q, "name")
	}
	if category := strings.TrimSpace(c.QueryParam("category_id")); category != "" {
		db = db.Where("category_id = ?", category)
	}
	if c.QueryParam("low_stock") == "true" {
		db = db.Where("stock < ?", orders.LowStockThreshold)
	}
	return db
}

func listProducts(c echo.Context) error {
	page, pageSize := parsePagination(c)

	sortCol, found := productSortColumns[strings.TrimSpace(c.QueryParam("sort"))]
	if !found {
		sortCol = "created_at"
	}
	order := strings.ToUpper(strings.TrimSpace(c.QueryParam("order")))
	if order != "ASC" && order != "DESC" {
		order = "DESC"
	}

	db := productQuery(c)
	var total int64
	if err := db.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	var rows []domain.Product
	if err := db.Preload("Category").Order(sortCol + " " + order + ", id ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&rows).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	return paged(c, rows, total, page, pageSize)
}

func getProduct(c echo.Context) error {
	p, err := GetAppContext(c).Catalog().GetProduct(c.Request().Context(), webserver.ParamID(c, "id"))
	if errors.Is(err, catalog.ErrProductNotFound) {
		return fail(c, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found", nil)
	} else if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query product", err.Error())
	}
	return ok(c, p)
}

func createProduct(c echo.Context) error {
	return saveRecord[domain.Product](c, GetAppContext(c).Products(), "", "product")
}

func updateProduct(c echo.Context) error {
	return saveRecord[domain.Product](c, GetAppContext(c).Products(), webserver.ParamID(c, "id"), "product")
}

func deleteProduct(c echo.Context) error {
	return deleteRecord[domain.Product](c, GetAppContext(c).Products(), "product")
}

type productCSVRow struct {
	ID            string  `csv:"id"`
	Name          string  `csv:"name"`
	Category      string  `csv:"category"`
	Price         float64 `csv:"price"`
	OriginalPrice string  `csv:"original_price"`
	Stock         int     `csv:"stock"`
	Featured      bool    `csv:"featured"`
	IsNew         bool    `csv:"is_new"`
	OnSale        bool    `csv:"on_sale"`
	ImageURL      string  `csv:"image_url"`
	UpdatedAt     string  `csv:"updated_at"`
}

// exportProducts streams the filtered product list as CSV
func exportProducts(c echo.Context) error {
	var products []domain.Product
	if err := productQuery(c).Preload("Category").Order("name ASC, id ASC").Find(&products).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query products", err.Error())
	}

	rows := make([]*productCSVRow, 0, len(products))
	for _, p := range products {
		row := &productCSVRow{
			ID:        p.ID,
			Name:      p.Name,
			Price:     p.Price,
			Stock:     p.Stock,
			Featured:  p.Featured,
			IsNew:     p.IsNew,
			OnSale:    p.OnSale,
			ImageURL:  p.ImageURL,
			UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339),
		}
		if p.Category != nil {
			row.Category = p.Category.Name
		}
		if p.OriginalPrice != nil {
			row.OriginalPrice = fmt.Sprintf("%.2f", *p.OriginalPrice)
		}
		rows = append(rows, row)
	}

	filename := fmt.Sprintf("products-%s.csv", time.Now().Format("20060102-150405"))
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", filename))
	c.Response().WriteHeader(http.StatusOK)
	return gocsv.Marshal(rows, c.Response())
}

package shopapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/bjo163/storefront/internal/catalog"
	"github.com/bjo163/storefront/internal/webserver"
)

func registerCatalogRoutes() {
	webserver.ApiGET("/products", listProducts)
	webserver.ApiGET("/products/sale", listSaleProducts)
	webserver.ApiGET("/products/featured", listFeaturedProducts)
	webserver.ApiGET("/products/:id", getProduct)
	webserver.ApiGET("/categories", listCategories)
	webserver.ApiGET("/banners", listBanners)
}

func listProducts(c echo.Context) error {
	f, err := catalog.ParseFilter(c.QueryParams())
	if err != nil {
		var fe *catalog.FilterError
		if errors.As(err, &fe) {
			return fail(c, http.StatusBadRequest, "INVALID_FILTER", fe.Error(), map[string]string{"param": fe.Param})
		}
		return fail(c, http.StatusBadRequest, "INVALID_FILTER", err.Error(), nil)
	}
	return respondProducts(c, f)
}

func listSaleProducts(c echo.Context) error {
	return respondProducts(c, catalog.SaleFilter())
}

func listFeaturedProducts(c echo.Context) error {
	return respondProducts(c, catalog.FeaturedFilter())
}

// respondProducts returns every match, or one page with meta.total when the
// filter carries a limit.
func respondProducts(c echo.Context, f catalog.Filter) error {
	composer := appCtx(c).Catalog()
	rows, err := composer.ListProducts(c.Request().Context(), f)
	if err != nil {
		return failErr(c, err, "query products")
	}
	size := composer.PageSize(f)
	if size == 0 {
		return ok(c, rows)
	}
	total, err := composer.CountProducts(c.Request().Context(), f)
	if err != nil {
		return failErr(c, err, "count products")
	}
	return webserver.Paged(c, rows, total, f.Offset/size+1, size)
}

func getProduct(c echo.Context) error {
	p, err := appCtx(c).Catalog().GetProduct(c.Request().Context(), webserver.ParamID(c, "id"))
	if err != nil {
		return failErr(c, err, "query product")
	}
	return ok(c, p)
}

func listCategories(c echo.Context) error {
	rows, err := appCtx(c).Catalog().ListCategories(c.Request().Context())
	if err != nil {
		return failErr(c, err, "query categories")
	}
	return ok(c, rows)
}

func listBanners(c echo.Context) error {
	rows, err := appCtx(c).Catalog().ListActiveBanners(c.Request().Context())
	if err != nil {
		return failErr(c, err, "query banners")
	}
	return ok(c, rows)
}

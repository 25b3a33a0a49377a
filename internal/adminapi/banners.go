package adminapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bjo163/storefront/internal/domain"
	"github.com/bjo163/storefront/internal/webserver"
)

type bannerActivePayload struct {
	Active *bool `json:"active" validate:"required"`
}

type bannerSwapPayload struct {
	A string `json:"a" validate:"required"`
	B string `json:"b" validate:"required"`
}

// registerBannerRoutes registers banner CRUD and ordering routes
func registerBannerRoutes() {
	webserver.AdminGET("/admin/banners", listBanners)
	webserver.AdminGET("/admin/banners/:id", getBanner)
	webserver.AdminPOST("/admin/banners", createBanner)
	webserver.AdminPOST("/admin/banners/swap", swapBanners)
	webserver.AdminPUT("/admin/banners/:id", updateBanner)
	webserver.AdminPUT("/admin/banners/:id/active", setBannerActive)
	webserver.AdminDELETE("/admin/banners/:id", deleteBanner)
}

// listBanners returns every banner, active or not, in display order
func listBanners(c echo.Context) error {
	var banners []domain.Banner
	if err := GetDB(c).Order("priority ASC, created_at ASC, id ASC").Find(&banners).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query banners", err.Error())
	}
	return ok(c, banners)
}

func getBanner(c echo.Context) error {
	return getRecord[domain.Banner](c, GetAppContext(c).Banners(), "banner")
}

func createBanner(c echo.Context) error {
	return saveRecord[domain.Banner](c, GetAppContext(c).Banners(), "", "banner")
}

func updateBanner(c echo.Context) error {
	return saveRecord[domain.Banner](c, GetAppContext(c).Banners(), webserver.ParamID(c, "id"), "banner")
}

func deleteBanner(c echo.Context) error {
	return deleteRecord[domain.Banner](c, GetAppContext(c).Banners(), "banner")
}

func setBannerActive(c echo.Context) error {
	var payload bannerActivePayload
	if err := bind(c, &payload); err != nil {
		return err
	}
	id := webserver.ParamID(c, "id")
	if err := GetAppContext(c).Banners().SetActive(c.Request().Context(), actor(c), id, *payload.Active); err != nil {
		return editorFail(c, err, "banner")
	}
	return getBanner(c)
}

// swapBanners exchanges the display priority of two banners
func swapBanners(c echo.Context) error {
	var payload bannerSwapPayload
	if err := bind(c, &payload); err != nil {
		return err
	}
	if err := GetAppContext(c).Banners().SwapPriority(c.Request().Context(), actor(c), payload.A, payload.B); err != nil {
		return editorFail(c, err, "banner")
	}
	return listBanners(c)
}

package shopapi

import (
	"github.com/labstack/echo/v4"

	"github.com/bjo163/storefront/internal/webserver"
)

type wishlistPayload struct {
	ProductID string `json:"product_id" validate:"required"`
}

func registerWishlistRoutes() {
	webserver.UserGET("/wishlist", listWishlist)
	webserver.UserPOST("/wishlist", addWishlist)
	webserver.UserDELETE("/wishlist/:product_id", removeWishlist)
}

func listWishlist(c echo.Context) error {
	rows, err := appCtx(c).Wishlists().List(c.Request().Context(), userID(c))
	if err != nil {
		return failErr(c, err, "query wishlist")
	}
	return ok(c, rows)
}

func addWishlist(c echo.Context) error {
	var payload wishlistPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return err
	}
	entry, err := appCtx(c).Wishlists().Add(c.Request().Context(), userID(c), payload.ProductID)
	if err != nil {
		return failErr(c, err, "update wishlist")
	}
	return ok(c, entry)
}

func removeWishlist(c echo.Context) error {
	productID := webserver.ParamID(c, "product_id")
	if err := appCtx(c).Wishlists().Remove(c.Request().Context(), userID(c), productID); err != nil {
		return failErr(c, err, "update wishlist")
	}
	return ok(c, map[string]string{"product_id": productID})
}

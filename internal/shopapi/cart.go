package shopapi

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/bjo163/storefront/internal/webserver"
)

type addItemPayload struct {
	ProductID string `json:"product_id" validate:"required"`
	Quantity  int    `json:"quantity"`
}

type setQuantityPayload struct {
	Quantity int `json:"quantity"`
}

func registerCartRoutes() {
	webserver.UserGET("/cart", getCart)
	webserver.UserPOST("/cart", addCartItem)
	webserver.UserDELETE("/cart", clearCart)
	webserver.UserPOST("/cart/items", addCartItem)
	webserver.UserPUT("/cart/items/:product_id", setCartItemQuantity)
	webserver.UserDELETE("/cart/items/:product_id", removeCartItem)
	webserver.UserPOST("/cart/items/:product_id/save-for-later", saveForLater)
}

func getCart(c echo.Context) error {
	summary, err := appCtx(c).Carts().Summary(c.Request().Context(), userID(c))
	if err != nil {
		return failErr(c, err, "query cart")
	}
	return ok(c, summary)
}

// addCartItem adds quantity (default 1) of a product to the cart
func addCartItem(c echo.Context) error {
	var payload addItemPayload
	if err := bindAndValidate(c, &payload); err != nil {
		return err
	}
	if payload.Quantity == 0 {
		payload.Quantity = 1
	}
	line, err := appCtx(c).Carts().Add(c.Request().Context(), userID(c), payload.ProductID, payload.Quantity)
	if err != nil {
		return failErr(c, err, "update cart")
	}
	return ok(c, line)
}

func setCartItemQuantity(c echo.Context) error {
	var payload setQuantityPayload
	if err := c.Bind(&payload); err != nil {
		return err
	}
	line, err := appCtx(c).Carts().SetQuantity(c.Request().Context(), userID(c), webserver.ParamID(c, "product_id"), payload.Quantity)
	if err != nil {
		return failErr(c, err, "update cart")
	}
	return ok(c, line)
}

func removeCartItem(c echo.Context) error {
	productID := webserver.ParamID(c, "product_id")
	if err := appCtx(c).Carts().Remove(c.Request().Context(), userID(c), productID); err != nil {
		return failErr(c, err, "update cart")
	}
	return ok(c, map[string]string{"product_id": productID})
}

func clearCart(c echo.Context) error {
	if err := appCtx(c).Carts().Clear(c.Request().Context(), userID(c)); err != nil {
		return failErr(c, err, "clear cart")
	}
	return c.NoContent(http.StatusNoContent)
}

// saveForLater moves a cart line to the wishlist
func saveForLater(c echo.Context) error {
	ctx := c.Request().Context()
	productID := webserver.ParamID(c, "product_id")
	entry, err := appCtx(c).Wishlists().Add(ctx, userID(c), productID)
	if err != nil {
		return failErr(c, err, "save for later")
	}
	if err := appCtx(c).Carts().Remove(ctx, userID(c), productID); err != nil {
		return failErr(c, err, "save for later")
	}
	return ok(c, entry)
}

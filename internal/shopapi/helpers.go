package shopapi

import (
	"net/http"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bjo163/storefront/internal/account"
	"github.com/bjo163/storefront/internal/app"
	"github.com/bjo163/storefront/internal/cart"
	"github.com/bjo163/storefront/internal/catalog"
	"github.com/bjo163/storefront/internal/orders"
	"github.com/bjo163/storefront/internal/webserver"
	"github.com/bjo163/storefront/internal/wishlist"
)

var (
	ok   = webserver.Ok
	fail = webserver.Fail
)

var initOnce sync.Once

// Init registers the storefront routes
func Init() {
	initOnce.Do(func() {
		registerCatalogRoutes()
		registerCartRoutes()
		registerWishlistRoutes()
		registerOrderRoutes()
		registerAccountRoutes()
	})
}

func appCtx(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}

func userID(c echo.Context) string {
	if id := webserver.GetIdentity(c); id != nil {
		return id.UserID
	}
	return ""
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

var knownErrors = []errorMapping{
	{catalog.ErrProductNotFound, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found"},
	{cart.ErrProductNotFound, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found"},
	{cart.ErrLineNotFound, http.StatusNotFound, "CART_ITEM_NOT_FOUND", "Item is not in the cart"},
	{cart.ErrInvalidQuantity, http.StatusBadRequest, "INVALID_QUANTITY", "Quantity must be at least 1"},
	{cart.ErrInsufficientStock, http.StatusConflict, "INSUFFICIENT_STOCK", "Not enough stock available"},
	{wishlist.ErrProductNotFound, http.StatusNotFound, "PRODUCT_NOT_FOUND", "Product not found"},
	{wishlist.ErrEntryNotFound, http.StatusNotFound, "WISHLIST_ITEM_NOT_FOUND", "Item is not in the wishlist"},
	{orders.ErrOrderNotFound, http.StatusNotFound, "ORDER_NOT_FOUND", "Order not found"},
	{account.ErrAddressNotFound, http.StatusNotFound, "ADDRESS_NOT_FOUND", "Address not found"},
	{account.ErrInvalidAddress, http.StatusBadRequest, "INVALID_ADDRESS", "Address line, city, state and postal code are required"},
	{account.ErrInvalidBirthday, http.StatusBadRequest, "INVALID_BIRTHDAY", "Birthday is not a valid past date"},
}

// failErr maps a service error to its HTTP response. Unknown errors are
// logged and reported as persistence failures.
func failErr(c echo.Context, err error, what string) error {
	for _, m := range knownErrors {
		if errors.Is(err, m.target) {
			return fail(c, m.status, m.code, m.message, err.Error())
		}
	}
	zap.L().Error(what+" failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
	return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to "+what, nil)
}

// bindAndValidate returns an *echo.HTTPError rendered by the server's error
// handler.
func bindAndValidate(c echo.Context, payload interface{}) error {
	if err := c.Bind(payload); err != nil {
		var he *echo.HTTPError
		if errors.As(err, &he) {
			return he
		}
		return echo.NewHTTPError(http.StatusBadRequest, "Unable to parse request").SetInternal(err)
	}
	if err := c.Validate(payload); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Request validation failed: "+err.Error())
	}
	return nil
}

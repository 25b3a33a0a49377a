package shopapi

import (
	"github.com/labstack/echo/v4"

	"github.com/bjo163/storefront/internal/account"
	"github.com/bjo163/storefront/internal/webserver"
)

func registerOrderRoutes() {
	webserver.UserGET("/orders", listOrders)
	webserver.UserGET("/orders/:id", getOrder)
}

func registerAccountRoutes() {
	webserver.UserGET("/profile", getProfile)
	webserver.UserPUT("/profile", updateProfile)
	webserver.UserGET("/addresses", listAddresses)
	webserver.UserPOST("/addresses", addAddress)
	webserver.UserDELETE("/addresses/:id", deleteAddress)
	webserver.UserPUT("/addresses/:id/default", setDefaultAddress)
	webserver.UserGET("/me/admin", adminDecision)
}

func listOrders(c echo.Context) error {
	rows, err := appCtx(c).Orders().ListForUser(c.Request().Context(), userID(c))
	if err != nil {
		return failErr(c, err, "query orders")
	}
	return ok(c, rows)
}

func getOrder(c echo.Context) error {
	o, err := appCtx(c).Orders().Get(c.Request().Context(), userID(c), webserver.ParamID(c, "id"))
	if err != nil {
		return failErr(c, err, "query order")
	}
	return ok(c, o)
}

func getProfile(c echo.Context) error {
	p, err := appCtx(c).Accounts().GetProfile(c.Request().Context(), userID(c))
	if err != nil {
		return failErr(c, err, "query profile")
	}
	return ok(c, p)
}

func updateProfile(c echo.Context) error {
	var payload account.ProfileUpdate
	if err := bindAndValidate(c, &payload); err != nil {
		return err
	}
	p, err := appCtx(c).Accounts().UpdateProfile(c.Request().Context(), userID(c), payload)
	if err != nil {
		return failErr(c, err, "update profile")
	}
	return ok(c, p)
}

func listAddresses(c echo.Context) error {
	rows, err := appCtx(c).Accounts().ListAddresses(c.Request().Context(), userID(c))
	if err != nil {
		return failErr(c, err, "query addresses")
	}
	return ok(c, rows)
}

func addAddress(c echo.Context) error {
	var payload account.AddressInput
	if err := bindAndValidate(c, &payload); err != nil {
		return err
	}
	a, err := appCtx(c).Accounts().AddAddress(c.Request().Context(), userID(c), payload)
	if err != nil {
		return failErr(c, err, "save address")
	}
	return webserver.Created(c, a)
}

func deleteAddress(c echo.Context) error {
	id := webserver.ParamID(c, "id")
	if err := appCtx(c).Accounts().DeleteAddress(c.Request().Context(), userID(c), id); err != nil {
		return failErr(c, err, "delete address")
	}
	return ok(c, map[string]string{"id": id})
}

func setDefaultAddress(c echo.Context) error {
	id := webserver.ParamID(c, "id")
	if err := appCtx(c).Accounts().SetDefaultAddress(c.Request().Context(), userID(c), id); err != nil {
		return failErr(c, err, "update address")
	}
	return ok(c, map[string]string{"id": id})
}

// adminDecision reports whether the caller may open the admin area
func adminDecision(c echo.Context) error {
	d, err := appCtx(c).Gate().Check(c.Request().Context(), webserver.GetIdentity(c))
	if err != nil {
		return failErr(c, err, "check access")
	}
	return ok(c, d)
}

package adminapi

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/bjo163/storefront/internal/domain"
	"github.com/bjo163/storefront/internal/events"
	"github.com/bjo163/storefront/internal/webserver"
)

func registerUserRoutes() {
	webserver.AdminGET("/admin/users", listUsers)
	webserver.AdminGET("/admin/users/:id/roles", getUserRoles)
	webserver.AdminPUT("/admin/users/:id/roles/:role", grantUserRole)
	webserver.AdminDELETE("/admin/users/:id/roles/:role", revokeUserRole)
}

func listUsers(c echo.Context) error {
	page, pageSize := parsePagination(c)
	users, total, err := GetAppContext(c).Accounts().ListUsers(c.Request().Context(), c.QueryParam("q"), page, pageSize)
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query users", err.Error())
	}
	return paged(c, users, total, page, pageSize)
}

func getUserRoles(c echo.Context) error {
	roles, err := GetAppContext(c).Gate().Roles(c.Request().Context(), webserver.ParamID(c, "id"))
	if err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query roles", err.Error())
	}
	return ok(c, roles)
}

func grantUserRole(c echo.Context) error {
	userID := webserver.ParamID(c, "id")
	role := domain.Role(strings.ToLower(c.Param("role")))
	if err := GetAppContext(c).Gate().Grant(c.Request().Context(), userID, role); err != nil {
		return editorFail(c, err, "user")
	}
	logRoleChange(c, "grant", userID, role)
	return getUserRoles(c)
}

// revokeUserRole removes a role. An admin cannot drop their own admin role.
func revokeUserRole(c echo.Context) error {
	userID := webserver.ParamID(c, "id")
	role := domain.Role(strings.ToLower(c.Param("role")))
	if role == domain.RoleAdmin && userID == actor(c) {
		return fail(c, http.StatusBadRequest, "CANNOT_REVOKE_SELF", "You cannot remove your own admin role", nil)
	}
	if err := GetAppContext(c).Gate().Revoke(c.Request().Context(), userID, role); err != nil {
		return editorFail(c, err, "user")
	}
	logRoleChange(c, "revoke", userID, role)
	return getUserRoles(c)
}

func logRoleChange(c echo.Context, action, userID string, role domain.Role) {
	GetAppContext(c).Events().PublishRecord(events.TopicRecordSaved, events.RecordEvent{
		Actor:    actor(c),
		Action:   action,
		Entity:   "user_role",
		RecordID: userID,
		Detail:   string(role),
	})
}

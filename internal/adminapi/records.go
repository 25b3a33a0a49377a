package adminapi

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/bjo163/storefront/internal/editor"
	"github.com/bjo163/storefront/internal/webserver"
)

// recordEditor is the part of editor.Editor the CRUD handlers use
type recordEditor[T any] interface {
	Get(ctx context.Context, id string) (*T, error)
	Save(ctx context.Context, actor, id string, form editor.Form) (*T, bool, error)
	Delete(ctx context.Context, actor, id string) error
}

func getRecord[T any](c echo.Context, ed recordEditor[T], entity string) error {
	rec, err := ed.Get(c.Request().Context(), webserver.ParamID(c, "id"))
	if err != nil {
		return editorFail(c, err, entity)
	}
	return ok(c, rec)
}

// saveRecord creates (id == "") or updates a record from the request form
func saveRecord[T any](c echo.Context, ed recordEditor[T], id, entity string) error {
	form, cleanup, err := readForm(c)
	defer cleanup()
	if err != nil {
		return err
	}
	rec, created, err := ed.Save(c.Request().Context(), actor(c), id, form)
	if err != nil {
		return editorFail(c, err, entity)
	}
	if created {
		return webserver.Created(c, rec)
	}
	return ok(c, rec)
}

func deleteRecord[T any](c echo.Context, ed recordEditor[T], entity string) error {
	id := webserver.ParamID(c, "id")
	if err := ed.Delete(c.Request().Context(), actor(c), id); err != nil {
		return editorFail(c, err, entity)
	}
	return ok(c, map[string]interface{}{"id": id})
}

package adminapi

import (
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"sync"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/bjo163/storefront/internal/app"
	"github.com/bjo163/storefront/internal/editor"
	"github.com/bjo163/storefront/internal/rolegate"
	"github.com/bjo163/storefront/internal/webserver"
)

var (
	ok              = webserver.Ok
	fail            = webserver.Fail
	paged           = webserver.Paged
	parsePagination = webserver.ParsePagination
)

const maxMultipartMemory = 16 << 20

var initOnce sync.Once

// Init registers the admin routes. Every route sits behind the role gate.
func Init() {
	initOnce.Do(func() {
		registerDashboardRoutes()
		registerProductRoutes()
		registerCategoryRoutes()
		registerBannerRoutes()
		registerUserRoutes()
	})
}

func GetAppContext(c echo.Context) app.AppContext {
	return webserver.GetAppContext(c)
}

func GetDB(c echo.Context) *gorm.DB {
	return GetAppContext(c).DB().WithContext(c.Request().Context())
}

// actor is the admin user making the request
func actor(c echo.Context) string {
	if id := webserver.GetIdentity(c); id != nil {
		return id.UserID
	}
	return ""
}

// likeClause matches q case-insensitively against columns
func likeClause(db *gorm.DB, q string, columns ...string) *gorm.DB {
	pattern := "%" + strings.ToLower(q) + "%"
	op := "LOWER(%s) LIKE ?"
	if strings.EqualFold(db.Name(), "postgres") {
		pattern = "%" + q + "%"
		op = "%s ILIKE ?"
	}
	parts := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns))
	for _, col := range columns {
		parts = append(parts, strings.Replace(op, "%s", col, 1))
		args = append(args, pattern)
	}
	return db.Where(strings.Join(parts, " OR "), args...)
}

// editorFail maps an editor or gate error to its HTTP response
func editorFail(c echo.Context, err error, entity string) error {
	var verr *editor.ValidationError
	switch {
	case errors.As(err, &verr):
		return fail(c, http.StatusBadRequest, "VALIDATION_ERROR", verr.Error(),
			map[string]string{"field": verr.Field, "message": verr.Message})
	case errors.Is(err, editor.ErrRecordNotFound):
		return fail(c, http.StatusNotFound, strings.ToUpper(entity)+"_NOT_FOUND", strings.ToUpper(entity[:1])+entity[1:]+" not found", nil)
	case errors.Is(err, rolegate.ErrInvalidRole):
		return fail(c, http.StatusBadRequest, "INVALID_ROLE", "Role must be admin, moderator or user", nil)
	}
	zap.L().Error("admin "+entity+" operation failed", zap.String("uri", c.Request().RequestURI), zap.Error(err))
	return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to save "+entity, nil)
}

// readForm reads an editor submission from a JSON body or a multipart form.
// Multipart files named "image" and "gallery" become uploads; the returned
// cleanup closes them.
func readForm(c echo.Context) (editor.Form, func(), error) {
	noop := func() {}
	ctype := c.Request().Header.Get(echo.HeaderContentType)
	if !strings.HasPrefix(ctype, echo.MIMEMultipartForm) {
		values := map[string]interface{}{}
		if err := c.Echo().JSONSerializer.Deserialize(c, &values); err != nil {
			return editor.Form{}, noop, err
		}
		return editor.Form{Values: values}, noop, nil
	}

	if err := c.Request().ParseMultipartForm(maxMultipartMemory); err != nil {
		return editor.Form{}, noop, echo.NewHTTPError(http.StatusBadRequest, "Invalid multipart form").SetInternal(err)
	}
	mf := c.Request().MultipartForm
	form := editor.Form{Values: map[string]interface{}{}}
	for key, vals := range mf.Value {
		name := strings.TrimSuffix(key, "[]")
		if len(vals) == 1 && name == key {
			form.Values[name] = vals[0]
		} else {
			form.Values[name] = vals
		}
	}

	var opened []io.Closer
	cleanup := func() {
		for _, f := range opened {
			_ = f.Close()
		}
	}
	open := func(fh *multipart.FileHeader) (*editor.Upload, error) {
		f, err := fh.Open()
		if err != nil {
			return nil, echo.NewHTTPError(http.StatusBadRequest, "Unreadable upload "+fh.Filename).SetInternal(err)
		}
		opened = append(opened, f)
		return &editor.Upload{Filename: fh.Filename, ContentType: fh.Header.Get(echo.HeaderContentType), Body: f}, nil
	}
	if files := mf.File["image"]; len(files) > 0 {
		up, err := open(files[0])
		if err != nil {
			cleanup()
			return editor.Form{}, noop, err
		}
		form.Image = up
	}
	for _, fh := range mf.File["gallery"] {
		up, err := open(fh)
		if err != nil {
			cleanup()
			return editor.Form{}, noop, err
		}
		form.Gallery = append(form.Gallery, up)
	}
	return form, cleanup, nil
}

// bind decodes and validates a JSON payload. Failures are returned as
// *echo.HTTPError for the server error handler.
func bind(c echo.Context, payload interface{}) error {
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

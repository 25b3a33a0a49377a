package webserver

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	jsoniter "github.com/json-iterator/go"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/bjo163/storefront/internal/app"
	"github.com/bjo163/storefront/internal/storage"
)

const apiPrefix = "/api"

// Access is the authorization level of a route
type Access int

const (
	AccessPublic Access = iota
	AccessUser
	AccessAdmin
)

type route struct {
	method  string
	path    string
	handler echo.HandlerFunc
	access  Access
}

var (
	routesMu sync.Mutex
	routes   []route
)

func register(method, path string, h echo.HandlerFunc, access Access) {
	routesMu.Lock()
	defer routesMu.Unlock()
	routes = append(routes, route{method: method, path: path, handler: h, access: access})
}

func ApiGET(path string, h echo.HandlerFunc)    { register(http.MethodGet, path, h, AccessPublic) }
func ApiPOST(path string, h echo.HandlerFunc)   { register(http.MethodPost, path, h, AccessPublic) }
func ApiPUT(path string, h echo.HandlerFunc)    { register(http.MethodPut, path, h, AccessPublic) }
func ApiDELETE(path string, h echo.HandlerFunc) { register(http.MethodDelete, path, h, AccessPublic) }

func UserGET(path string, h echo.HandlerFunc)    { register(http.MethodGet, path, h, AccessUser) }
func UserPOST(path string, h echo.HandlerFunc)   { register(http.MethodPost, path, h, AccessUser) }
func UserPUT(path string, h echo.HandlerFunc)    { register(http.MethodPut, path, h, AccessUser) }
func UserDELETE(path string, h echo.HandlerFunc) { register(http.MethodDelete, path, h, AccessUser) }

func AdminGET(path string, h echo.HandlerFunc)    { register(http.MethodGet, path, h, AccessAdmin) }
func AdminPOST(path string, h echo.HandlerFunc)   { register(http.MethodPost, path, h, AccessAdmin) }
func AdminPUT(path string, h echo.HandlerFunc)    { register(http.MethodPut, path, h, AccessAdmin) }
func AdminDELETE(path string, h echo.HandlerFunc) { register(http.MethodDelete, path, h, AccessAdmin) }

// Server is the HTTP API server
type Server struct {
	root   *echo.Echo
	appCtx app.AppContext
}

// NewServer builds the echo instance and mounts every registered route
func NewServer(appCtx app.AppContext) *Server {
	cfg := appCtx.Config()
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Logger.SetLevel(log.OFF)
	e.JSONSerializer = jsoniterSerializer{}
	e.Validator = &requestValidator{validate: validator.New()}
	e.HTTPErrorHandler = errorHandler

	e.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{
		LogErrorFunc: func(c echo.Context, err error, stack []byte) error {
			zap.L().Error("panic recovered", zap.Error(err), zap.ByteString("stack", stack))
			return err
		},
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if id := GetIdentity(c); id != nil {
				fields = append(fields, zap.String("user_id", id.UserID))
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			zap.L().Info("http request", fields...)
			return nil
		},
	}))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.Web.CorsOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))
	if cfg.Web.BodyLimit != "" {
		e.Use(middleware.BodyLimit(cfg.Web.BodyLimit))
	}

	if local, ok := appCtx.Store().(*storage.LocalStore); ok {
		e.Static("/storage", local.Root())
	}

	s := &Server{root: e, appCtx: appCtx}
	s.mount()
	return s
}

func (s *Server) mount() {
	api := s.root.Group(apiPrefix, appContextMiddleware(s.appCtx), jwtMiddleware(s.appCtx.Config().Auth.JwtSecret), identityMiddleware)
	user := []echo.MiddlewareFunc{requireUser}
	admin := []echo.MiddlewareFunc{adminGate(s.appCtx)}

	routesMu.Lock()
	defer routesMu.Unlock()
	for _, r := range routes {
		switch r.access {
		case AccessUser:
			api.Add(r.method, r.path, r.handler, user...)
		case AccessAdmin:
			api.Add(r.method, r.path, r.handler, admin...)
		default:
			api.Add(r.method, r.path, r.handler)
		}
	}
}

// Echo exposes the router for tests
func (s *Server) Echo() *echo.Echo {
	return s.root
}

// Start serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	cfg := s.appCtx.Config()
	if err := cfg.Auth.CheckSecret(); err != nil {
		return err
	}
	addr := fmt.Sprintf("%s:%d", cfg.Web.Host, cfg.Web.Port)
	errCh := make(chan error, 1)
	go func() {
		zap.S().Infof("Prepare to start the web server %s", addr)
		errCh <- s.root.Start(addr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	zap.S().Info("shutting down the web server")
	return s.root.Shutdown(shutdownCtx)
}

type requestValidator struct {
	validate *validator.Validate
}

func (v *requestValidator) Validate(i interface{}) error {
	return v.validate.Struct(i)
}

var json = jsoniter.ConfigCompatibleWithStandardLibrary

type jsoniterSerializer struct{}

func (jsoniterSerializer) Serialize(c echo.Context, i interface{}, indent string) error {
	enc := json.NewEncoder(c.Response())
	if indent != "" {
		enc.SetIndent("", indent)
	}
	return enc.Encode(i)
}

func (jsoniterSerializer) Deserialize(c echo.Context, i interface{}) error {
	if err := json.NewDecoder(c.Request().Body).Decode(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON body: "+err.Error()).SetInternal(err)
	}
	return nil
}

func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	code := "INTERNAL_ERROR"
	message := "Internal server error"

	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		message = fmt.Sprint(he.Message)
		switch status {
		case http.StatusNotFound:
			code = "NOT_FOUND"
		case http.StatusUnauthorized:
			code = "UNAUTHORIZED"
		case http.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		case http.StatusRequestEntityTooLarge:
			code = "BODY_TOO_LARGE"
		case http.StatusBadRequest:
			code = "INVALID_REQUEST"
		}
	} else {
		zap.L().Error("unhandled error", zap.String("uri", c.Request().RequestURI), zap.Error(err))
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(status)
		return
	}
	_ = Fail(c, status, code, message, nil)
}

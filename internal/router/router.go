// Package router assembles the echo instance: global middleware, the error
// handler and every route with its own middleware pipeline.
package router

import (
	"net"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/inventory-api/internal/config"
	"github.com/iliyamo/inventory-api/internal/handler"
	"github.com/iliyamo/inventory-api/internal/middleware"
	"github.com/iliyamo/inventory-api/internal/model"
)

// UsersPrefix is the base path of the account and session endpoints.
const UsersPrefix = "/api/v2/users"

// bodyLimit caps JSON request bodies.
const bodyLimit = "16KB"

// Deps is everything the router wires together.
type Deps struct {
	Logger         *zap.Logger
	Auth           *handler.AuthHandler
	Authn          middleware.Authenticator
	DB             handler.Pinger // nil skips the database check in /healthz
	Redis          redis.Scripter // nil disables rate limiting
	RateLimit      config.RateLimitConfig
	AuthRateLimit  config.RateLimitConfig
	CORSOrigin     string
	TrustedProxies []*net.IPNet // X-Forwarded-For is only believed from these; empty means the TCP peer
}

// pipeline is the ordered list of interceptors a route runs before its
// handler. Each one either calls the next or returns an error that ends
// the request.
type pipeline []echo.MiddlewareFunc

func chain(mw ...echo.MiddlewareFunc) pipeline { return mw }

// New builds the HTTP server.
func New(d Deps) *echo.Echo {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = handler.ErrorHandler(logger)
	e.IPExtractor = ipExtractor(d.TrustedProxies)

	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLogger(logger))
	e.Use(echomw.Recover())
	e.Use(echomw.BodyLimit(bodyLimit))
	if d.CORSOrigin != "" {
		e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
			AllowOrigins:     []string{d.CORSOrigin},
			AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
			AllowHeaders:     []string{echo.HeaderContentType, echo.HeaderAuthorization},
			AllowCredentials: true,
		}))
	}
	e.Use(middleware.NewTokenBucket(d.RateLimit, d.Redis, logger))

	e.GET("/healthz", handler.Health(d.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	RegisterUsers(e, d)
	return e
}

// ipExtractor decides which address the rate limiters key on. Forwarding
// headers are ignored unless they come through a configured proxy.
func ipExtractor(trusted []*net.IPNet) echo.IPExtractor {
	if len(trusted) == 0 {
		return echo.ExtractIPDirect()
	}
	opts := []echo.TrustOption{
		echo.TrustLoopback(false),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(false),
	}
	for _, n := range trusted {
		opts = append(opts, echo.TrustIPRange(n))
	}
	return echo.ExtractIPFromXFFHeader(opts...)
}

// RegisterUsers mounts the account and session routes.
func RegisterUsers(e *echo.Echo, d Deps) {
	a := d.Auth
	gate := middleware.Auth(d.Authn)
	loginLimit := middleware.NewTokenBucket(d.AuthRateLimit, d.Redis, d.Logger)

	public := chain()
	authed := chain(gate)

	routes := []struct {
		method string
		path   string
		h      echo.HandlerFunc
		mw     pipeline
	}{
		{http.MethodPost, "/register", a.Register, public},
		{http.MethodPost, "/login", a.Login, chain(loginLimit)},
		{http.MethodPost, "/refresh_access_token", a.Refresh, public},
		{http.MethodPost, "/logout", a.Logout, authed},
		{http.MethodGet, "/get_current_user", a.CurrentUser, authed},
		{http.MethodPatch, "/update_account", a.UpdateAccount, authed},
		{http.MethodPost, "/change_password", a.ChangePassword, authed},
		{http.MethodGet, "/get_all_users", a.GetAllUsers, chain(gate, middleware.RequireRole(model.RoleAdmin))},
		{http.MethodGet, "/get_users_by_store", a.GetUsersByStore, chain(gate, middleware.RequireRole(model.RoleAdmin, model.RoleStoreManager))},
	}
	for _, r := range routes {
		e.Add(r.method, UsersPrefix+r.path, r.h, r.mw...)
	}
}

package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/okten/crm-api/internal/handler"
	"github.com/okten/crm-api/internal/middleware"
	"github.com/okten/crm-api/internal/model"
)

// Deps carries the handlers and middleware the route table needs.
// Authenticate is the two-stage gate's authentication middleware;
// RateLimit and Cache may be nil when Redis is unavailable, in which
// case the corresponding routes are registered without them.
type Deps struct {
	Auth         *handler.AuthHandler
	Admin        *handler.AdminHandler
	Orders       *handler.OrderHandler
	Comments     *handler.CommentHandler
	Groups       *handler.GroupHandler
	Authenticate echo.MiddlewareFunc
	RateLimit    echo.MiddlewareFunc
	Cache        echo.MiddlewareFunc
}

// Register wires every route of the API onto the Echo instance.
//
// Route tiers:
//   - public: login, refresh, reset-password, activate-account, healthz
//   - bearer: me, logout, comments, orders, groups
//   - admin:  manager provisioning, recovery tokens, ban management,
//     manager listing and statistics
func Register(e *echo.Echo, d Deps) {
	e.GET("/healthz", handler.Health)

	// Credential endpoints that do not require an existing session.
	// Login and refresh carry the rate limiter so credential stuffing
	// and token grinding are throttled per client.
	auth := e.Group("/auth")
	auth.POST("/login", d.Auth.Login, optional(d.RateLimit)...)
	auth.POST("/refresh", d.Auth.Refresh, optional(d.RateLimit)...)
	auth.POST("/reset-password", d.Auth.ResetPassword)
	auth.POST("/activate-account", d.Auth.ActivateAccount)

	// Endpoints requiring a live session.
	auth.GET("/me", d.Auth.Me, d.Authenticate)
	auth.POST("/logout", d.Auth.Logout, d.Authenticate)

	// Admin-gated endpoints: the authentication stage runs first, then
	// the role stage.
	adminOnly := []echo.MiddlewareFunc{d.Authenticate, middleware.RequireRole(model.RoleAdmin)}
	auth.POST("/recovery-password/:userId", d.Admin.RecoveryPassword, adminOnly...)
	auth.POST("/create-manager", d.Admin.CreateManager, adminOnly...)
	auth.GET("/managers", d.Admin.ListManagers, adminOnly...)
	auth.PUT("/users/:userId/status", d.Admin.UpdateUserStatus, adminOnly...)
	auth.GET("/manager-statistics", d.Admin.ManagerStatistics, append(adminOnly, optional(d.Cache)...)...)
	auth.GET("/overall-statistics", d.Admin.OverallStatistics, append(adminOnly, optional(d.Cache)...)...)

	// Order, comment and group endpoints are open to both roles.
	bearer := e.Group("", d.Authenticate)
	bearer.POST("/comments", d.Comments.Create)
	bearer.GET("/comments", d.Comments.List)
	bearer.GET("/orders", d.Orders.List, optional(d.Cache)...)
	bearer.GET("/orders/:id", d.Orders.Get)
	bearer.PATCH("/orders/:id", d.Orders.Update)
	bearer.POST("/groups", d.Groups.Create)
	bearer.GET("/groups", d.Groups.List)
}

// optional turns a possibly-nil middleware into a variadic argument
// list so routes degrade gracefully without Redis.
func optional(m echo.MiddlewareFunc) []echo.MiddlewareFunc {
	if m == nil {
		return nil
	}
	return []echo.MiddlewareFunc{m}
}

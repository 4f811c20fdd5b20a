// Package router defines how HTTP routes are registered for the API.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/online-library/internal/handler"
	"github.com/iliyamo/online-library/internal/middleware"
)

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers all authentication-related routes.
// Unauthenticated operations live under /v1/auth, the protected profile
// endpoint under /v1.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	// Logout works with a refresh token in the body and therefore does
	// not require the JWT middleware.
	g.POST("/logout", a.Logout)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterCatalog registers the public browse endpoints.  Guests can
// read the catalog without a token; the optional cache middleware keeps
// hot listings out of the database.
func RegisterCatalog(e *echo.Echo, b *handler.BookHandler, c *handler.CategoryHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	if cache != nil {
		g.Use(cache)
	}
	g.GET("/books", b.ListBooks)
	g.GET("/books/:id", b.GetBook)
	g.GET("/books/category/:name", b.ListBooksByCategory)
	g.GET("/categories", c.ListCategories)
}

// RegisterLending registers the authenticated endpoints: member
// profiles, the transaction lifecycle and the admin-only catalog and
// dashboard operations.
func RegisterLending(e *echo.Echo, jwtSecret string,
	b *handler.BookHandler, c *handler.CategoryHandler,
	m *handler.MemberHandler, t *handler.TransactionHandler, d *handler.DashboardHandler) {

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))

	// Member endpoints enforce self-or-admin inside the handlers.
	auth.GET("/members/:id", m.GetMember)
	auth.GET("/members/:id/transactions", m.GetMemberTransactions)
	auth.PUT("/members/:id", m.UpdateMember)

	// Members file and withdraw their own borrow requests.
	auth.POST("/transactions/request", t.RequestTransaction)
	auth.POST("/transactions/:id/cancel", t.CancelTransaction)

	admin := e.Group("/v1")
	admin.Use(middleware.JWTAuth(jwtSecret))
	admin.Use(middleware.RequireAdmin())

	admin.POST("/books", b.AddBook)
	admin.PUT("/books/:id", b.UpdateBook)
	admin.DELETE("/books/:id", b.DeleteBook)
	admin.POST("/categories", c.AddCategory)

	admin.GET("/members", m.ListMembers)
	admin.DELETE("/members/:id", m.DeleteMember)

	admin.GET("/transactions", t.ListTransactions)
	admin.POST("/transactions", t.AddTransaction)
	admin.POST("/transactions/:id/approve", t.ApproveTransaction)
	admin.POST("/transactions/:id/reject", t.RejectTransaction)
	admin.POST("/transactions/:id/issue", t.MarkIssuedTransaction)
	admin.POST("/transactions/:id/return", t.ReturnTransaction)
	admin.PUT("/transactions/:id", t.UpdateTransaction)
	admin.DELETE("/transactions/:id", t.DeleteTransaction)

	admin.GET("/dashboard", d.Stats)
}

package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/julienschmidt/httprouter"
	"github.com/rs/zerolog"

	apiContext "invostock/internal/api/context"
	"invostock/internal/api/handlers"
	"invostock/internal/api/middleware"
	"invostock/internal/pkg/errors"
	"invostock/internal/pkg/metrics"
)

type Dependencies struct {
	AuthHandler         *handlers.AuthHandler
	AdminHandler        *handlers.AdminHandler
	OrgHandler          *handlers.OrgHandler
	NotificationHandler *handlers.NotificationHandler
	ContactHandler      *handlers.ContactHandler
	SupplierHandler     *handlers.SupplierHandler
	InventoryHandler    *handlers.InventoryHandler
	OrderHandler        *handlers.OrderHandler
	InvoiceHandler      *handlers.InvoiceHandler
	PaymentHandler      *handlers.PaymentHandler
	PackageHandler      *handlers.PackageHandler
	ExpenseHandler      *handlers.ExpenseHandler
	AnalyticsHandler    *handlers.AnalyticsHandler
	AuditHandler        *handlers.AuditHandler
	EmailHandler        *handlers.EmailHandler
	HealthHandler       *handlers.HealthHandler
	MetricsHandler      *handlers.MetricsHandler

	AuthMiddleware   *middleware.AuthMiddleware
	TenantMiddleware *middleware.TenantMiddleware
	RateLimiter      *middleware.RateLimiter
	Metrics          *metrics.Metrics
	Logger           zerolog.Logger
}

type routes struct {
	router *httprouter.Router
	deps   *Dependencies
}

// public registers a route reachable without a token.
func (rs routes) public(method, path string, h http.HandlerFunc, mws ...func(http.HandlerFunc) http.HandlerFunc) {
	mws = append([]func(http.HandlerFunc) http.HandlerFunc{middleware.Observe(rs.deps.Metrics, path)}, mws...)
	rs.router.Handle(method, path, chain(h, mws...))
}

// private registers a route behind authentication, tenant resolution and
// the per-owner rate limit. Extra middlewares run after those.
func (rs routes) private(method, path string, h http.HandlerFunc, mws ...func(http.HandlerFunc) http.HandlerFunc) {
	kind := middleware.LimitWrite
	if method == http.MethodGet {
		kind = middleware.LimitRead
	}
	base := []func(http.HandlerFunc) http.HandlerFunc{
		middleware.Observe(rs.deps.Metrics, path),
		rs.deps.AuthMiddleware.Handle,
		rs.deps.TenantMiddleware.Handle,
		rs.deps.RateLimiter.Limit(kind),
	}
	rs.router.Handle(method, path, chain(h, append(base, mws...)...))
}

func NewRouter(deps *Dependencies) http.Handler {
	router := httprouter.New()
	rs := routes{router: router, deps: deps}

	rs.public(http.MethodGet, "/health", deps.HealthHandler.Check)
	rs.public(http.MethodGet, "/metrics", deps.MetricsHandler.Export)

	// Authentication
	rs.public(http.MethodPost, "/api/auth/register", deps.AuthHandler.Register, deps.RateLimiter.Limit(middleware.LimitWrite))
	rs.public(http.MethodPost, "/api/auth/login", deps.AuthHandler.Login, deps.RateLimiter.Limit(middleware.LimitWrite))
	rs.private(http.MethodGet, "/api/auth/me", deps.AuthHandler.Me)
	rs.private(http.MethodPut, "/api/auth/me", deps.AuthHandler.UpdateMe)
	rs.private(http.MethodPut, "/api/auth/password", deps.AuthHandler.ChangePassword)

	// System administration
	admin := middleware.RequireSystemAdmin
	rs.private(http.MethodGet, "/api/admin/stats", deps.AdminHandler.Stats, admin)
	rs.private(http.MethodGet, "/api/admin/users", deps.AdminHandler.ListUsers, admin)
	rs.private(http.MethodPatch, "/api/admin/users/:id", deps.AdminHandler.UpdateUser, admin)
	rs.private(http.MethodGet, "/api/admin/organizations", deps.AdminHandler.ListOrganizations, admin)
	rs.private(http.MethodPatch, "/api/admin/organizations/:id", deps.AdminHandler.UpdateOrganization, admin)

	// Organization membership
	member, orgAdmin := middleware.RequireOrganization, middleware.RequireOrgAdmin
	rs.private(http.MethodPost, "/api/organizations", deps.OrgHandler.Create)
	rs.private(http.MethodGet, "/api/organizations/current", deps.OrgHandler.GetCurrent, member)
	rs.private(http.MethodPut, "/api/organizations/current", deps.OrgHandler.Update, orgAdmin)
	rs.private(http.MethodGet, "/api/organizations/current/members", deps.OrgHandler.Members, member)
	rs.private(http.MethodDelete, "/api/organizations/current/members/:id", deps.OrgHandler.RemoveMember, orgAdmin)
	rs.private(http.MethodPost, "/api/organizations/current/leave", deps.OrgHandler.Leave, member)
	rs.private(http.MethodPost, "/api/organizations/current/invites", deps.OrgHandler.Invite, orgAdmin)
	rs.private(http.MethodGet, "/api/organizations/current/invites", deps.OrgHandler.Invites, orgAdmin)

	rs.private(http.MethodGet, "/api/invites", deps.NotificationHandler.Invites)
	rs.private(http.MethodPost, "/api/invites/:id/accept", deps.NotificationHandler.AcceptInvite)
	rs.private(http.MethodPost, "/api/invites/:id/decline", deps.NotificationHandler.DeclineInvite)

	rs.private(http.MethodGet, "/api/notifications", deps.NotificationHandler.List)
	rs.private(http.MethodPatch, "/api/notifications", deps.NotificationHandler.MarkAllRead)
	rs.private(http.MethodPatch, "/api/notifications/:id", deps.NotificationHandler.MarkRead)
	rs.private(http.MethodDelete, "/api/notifications/:id", deps.NotificationHandler.Delete)

	// Tenant data
	rs.crud("/api/contacts", deps.ContactHandler.List, deps.ContactHandler.Get, deps.ContactHandler.Create, deps.ContactHandler.Update, deps.ContactHandler.Delete)
	rs.crud("/api/suppliers", deps.SupplierHandler.List, deps.SupplierHandler.Get, deps.SupplierHandler.Create, deps.SupplierHandler.Update, deps.SupplierHandler.Delete)

	rs.crud("/api/inventory", deps.InventoryHandler.List, deps.InventoryHandler.Get, deps.InventoryHandler.Create, deps.InventoryHandler.Update, deps.InventoryHandler.Delete)
	rs.private(http.MethodPost, "/api/inventory/:id/adjust", deps.InventoryHandler.Adjust)

	rs.crud("/api/orders", deps.OrderHandler.List, deps.OrderHandler.Get, deps.OrderHandler.Create, deps.OrderHandler.Update, deps.OrderHandler.Delete)
	rs.private(http.MethodPost, "/api/orders/:id/receive", deps.OrderHandler.Receive)
	rs.private(http.MethodPost, "/api/orders/:id/deliver", deps.OrderHandler.Deliver)
	rs.private(http.MethodPost, "/api/orders/:id/cancel", deps.OrderHandler.Cancel)

	rs.crud("/api/invoices", deps.InvoiceHandler.List, deps.InvoiceHandler.Get, deps.InvoiceHandler.Create, deps.InvoiceHandler.Update, deps.InvoiceHandler.Delete)
	rs.private(http.MethodGet, "/api/invoices/:id/payments", deps.InvoiceHandler.Payments)
	rs.private(http.MethodPost, "/api/invoices/:id/payments", deps.InvoiceHandler.RecordPayment)

	rs.private(http.MethodGet, "/api/payments", deps.PaymentHandler.List)
	rs.private(http.MethodGet, "/api/payments/:id", deps.PaymentHandler.Get)
	rs.private(http.MethodDelete, "/api/payments/:id", deps.PaymentHandler.Delete)

	rs.crud("/api/packages", deps.PackageHandler.List, deps.PackageHandler.Get, deps.PackageHandler.Create, deps.PackageHandler.Update, deps.PackageHandler.Delete)
	rs.private(http.MethodPatch, "/api/packages/:id/status", deps.PackageHandler.UpdateStatus)

	rs.crud("/api/expenses", deps.ExpenseHandler.List, deps.ExpenseHandler.Get, deps.ExpenseHandler.Create, deps.ExpenseHandler.Update, deps.ExpenseHandler.Delete)
	rs.private(http.MethodGet, "/api/expense-categories", deps.ExpenseHandler.Categories)
	rs.private(http.MethodPost, "/api/expense-categories", deps.ExpenseHandler.CreateCategory)
	rs.private(http.MethodDelete, "/api/expense-categories/:id", deps.ExpenseHandler.DeleteCategory)

	rs.private(http.MethodGet, "/api/dashboard", deps.AnalyticsHandler.Dashboard)
	rs.private(http.MethodGet, "/api/activity", deps.AuditHandler.List)
	rs.private(http.MethodPost, "/api/email/invoice/:id", deps.EmailHandler.SendInvoice)
	rs.private(http.MethodPost, "/api/email/send", deps.EmailHandler.SendToContact)

	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusNotFound, errors.ErrCodeNotFound, "Putanja ne postoji", nil)
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		errors.WriteError(w, http.StatusMethodNotAllowed, errors.ErrCodeInvalidInput, "Metoda nije podržana", nil)
	})
	router.PanicHandler = func(w http.ResponseWriter, r *http.Request, v interface{}) {
		zerolog.Ctx(r.Context()).Error().Str("panic", fmt.Sprint(v)).Msg("handler panicked")
		errors.WriteError(w, http.StatusInternalServerError, errors.ErrCodeInternal, "Interna greška poslužitelja", nil)
	}

	return middleware.RequestLogger(deps.Logger)(router)
}

func (rs routes) crud(prefix string, list, get, create, update, remove http.HandlerFunc) {
	rs.private(http.MethodGet, prefix, list)
	rs.private(http.MethodPost, prefix, create)
	rs.private(http.MethodGet, prefix+"/:id", get)
	rs.private(http.MethodPut, prefix+"/:id", update)
	rs.private(http.MethodDelete, prefix+"/:id", remove)
}

// chain applies middlewares so that the first one runs outermost.
func chain(handler http.HandlerFunc, middlewares ...func(http.HandlerFunc) http.HandlerFunc) httprouter.Handle {
	for i := len(middlewares) - 1; i >= 0; i-- {
		handler = middlewares[i](handler)
	}
	return wrap(handler)
}

// wrap converts an http.HandlerFunc to an httprouter.Handle, carrying the
// path params in the context.
func wrap(handler http.HandlerFunc) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		ctx := context.WithValue(r.Context(), apiContext.Params, ps)
		handler(w, r.WithContext(ctx))
	}
}

package api

import (
	"database/sql"

	"github.com/rs/zerolog"

	"invostock/internal/api/handlers"
	"invostock/internal/api/middleware"
	"invostock/internal/engine/analytics"
	"invostock/internal/engine/contacts"
	"invostock/internal/engine/expenses"
	"invostock/internal/engine/inventory"
	"invostock/internal/engine/invoices"
	"invostock/internal/engine/mailer"
	"invostock/internal/engine/notifications"
	"invostock/internal/engine/orders"
	"invostock/internal/engine/packages"
	"invostock/internal/engine/payments"
	"invostock/internal/engine/sequence"
	"invostock/internal/engine/suppliers"
	"invostock/internal/pkg/metrics"
	"invostock/internal/platform/audit"
	"invostock/internal/platform/auth"
	"invostock/internal/platform/config"
	"invostock/internal/platform/repositories"
)

// Runtime holds the long-lived pieces the caller must shut down.
type Runtime struct {
	Audit       *audit.Logger
	RateLimiter *middleware.RateLimiter
}

// NewDependencies wires repositories, services and handlers over db.
func NewDependencies(db *sql.DB, cfg *config.Config, m *metrics.Metrics, sender mailer.Sender, logger zerolog.Logger) (*Dependencies, *Runtime) {
	orgRepo := repositories.NewOrganizationRepository(db)
	userRepo := repositories.NewUserRepository(db)
	auditLog := audit.NewLogger(db)
	limiter := middleware.NewRateLimiter(cfg.RateLimit)
	tokenSvc := auth.NewTokenService(cfg.JWT)

	codes := sequence.NewGenerator(m)
	invoiceSvc := invoices.NewService(db, codes)
	paymentSvc := payments.NewService(db, codes, m)
	notificationSvc := notifications.NewService(db)
	stats := analytics.NewService(analytics.NewRepository(db))
	mail := mailer.NewService(db, invoiceSvc, sender, cfg.App.FrontendURL)

	deps := &Dependencies{
		AuthHandler:         handlers.NewAuthHandler(userRepo, orgRepo, tokenSvc, auditLog),
		AdminHandler:        handlers.NewAdminHandler(userRepo, orgRepo, stats, auditLog),
		OrgHandler:          handlers.NewOrgHandler(orgRepo, userRepo, notificationSvc, auditLog),
		NotificationHandler: handlers.NewNotificationHandler(notificationSvc, auditLog),
		ContactHandler:      handlers.NewContactHandler(contacts.NewRepository(db), auditLog),
		SupplierHandler:     handlers.NewSupplierHandler(suppliers.NewRepository(db), auditLog),
		InventoryHandler:    handlers.NewInventoryHandler(inventory.NewRepository(db), auditLog),
		OrderHandler:        handlers.NewOrderHandler(orders.NewService(db, codes), auditLog),
		InvoiceHandler:      handlers.NewInvoiceHandler(invoiceSvc, paymentSvc, auditLog),
		PaymentHandler:      handlers.NewPaymentHandler(paymentSvc, auditLog),
		PackageHandler:      handlers.NewPackageHandler(packages.NewService(db, codes), auditLog),
		ExpenseHandler:      handlers.NewExpenseHandler(expenses.NewService(db, codes), auditLog),
		AnalyticsHandler:    handlers.NewAnalyticsHandler(stats),
		AuditHandler:        handlers.NewAuditHandler(auditLog),
		EmailHandler:        handlers.NewEmailHandler(mail, auditLog),
		HealthHandler:       handlers.NewHealthHandler(db),
		MetricsHandler:      handlers.NewMetricsHandler(m),

		AuthMiddleware:   middleware.NewAuthMiddleware(tokenSvc),
		TenantMiddleware: middleware.NewTenantMiddleware(userRepo, orgRepo),
		RateLimiter:      limiter,
		Metrics:          m,
		Logger:           logger,
	}
	return deps, &Runtime{Audit: auditLog, RateLimiter: limiter}
}

// Close stops background work and waits for pending audit writes.
func (rt *Runtime) Close() {
	rt.RateLimiter.Stop()
	rt.Audit.Wait()
}

// Package http wires the tracker's HTTP surface: the login flow, TOTP
// management, audit listing, and the category/transaction CRUD.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/untoldhq/fintrack/internal/tracker/audit"
	"github.com/untoldhq/fintrack/internal/tracker/metrics"
	"github.com/untoldhq/fintrack/internal/tracker/service"
	"github.com/untoldhq/fintrack/internal/tracker/store"
	"github.com/untoldhq/fintrack/pkg/httpx"
	"github.com/untoldhq/fintrack/pkg/sessionx"
	"github.com/untoldhq/fintrack/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	sessions     *sessionx.Manager
	gatherer     prometheus.Gatherer

	store              store.Store
	LoginService       *service.LoginService
	TwoFactorService   *service.TwoFactorService
	CategoryService    *service.CategoryService
	TransactionService *service.TransactionService
	AuditRecorder      *audit.Recorder
}

func NewRouter(
	buildVersion string,
	st store.Store,
	sessions *sessionx.Manager,
	gatherer prometheus.Gatherer,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		sessions:     sessions,
		gatherer:     gatherer,
		store:        st,
	}

	// Set default middleware chain. Request metadata runs inside the access
	// log so the correlation ID is available to both.
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
		httpx.RequestMetadata,
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerTwoFactor()
	r.registerAudit()
	r.registerCategories()
	r.registerTransactions()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	h := &AuthHandler{
		Login:    r.LoginService,
		Sessions: r.sessions,
	}

	// Credential and code submission take the strict profile: they are the
	// brute-force targets.
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/2fa/verify",
		httpx.Chain(http.HandlerFunc(h.HandleVerifySecondFactor),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(http.HandlerFunc(h.HandleLogout),
			r.requireUser,
			httpx.RateLimitByActor(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/auth/password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			r.requireUser,
			httpx.RateLimitByActor(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerTwoFactor() {
	h := &TwoFactorHandler{
		TwoFactor: r.TwoFactorService,
		Store:     r.store,
		Sessions:  r.sessions,
		Audit:     r.AuditRecorder,
	}

	secured := func(handler http.HandlerFunc, cfg httpx.RateLimitConfig) http.Handler {
		return httpx.Chain(handler,
			r.requireUser,
			httpx.RateLimitByActor(cfg),
		)
	}

	r.Mux.Handle("POST /v1/auth/2fa/enroll", secured(h.HandleEnroll, httpx.ModerateLimit))
	r.Mux.Handle("GET /v1/auth/2fa/qr", secured(h.HandleQR, httpx.ModerateLimit))
	r.Mux.Handle("POST /v1/auth/2fa/confirm", secured(h.HandleConfirm, httpx.StrictLimit))
	r.Mux.Handle("DELETE /v1/auth/2fa", secured(h.HandleDisable, httpx.ModerateLimit))
}

func (r *Router) registerAudit() {
	h := &AuditHandler{Store: r.store}

	r.Mux.Handle("GET /v1/audit",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			r.requireAdmin,
			httpx.RateLimitByActor(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerCategories() {
	h := &CategoriesHandler{Categories: r.CategoryService}

	secured := func(handler http.HandlerFunc) http.Handler {
		return httpx.Chain(handler,
			r.requireUser,
			httpx.RateLimitByActor(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/categories", secured(h.HandleCreate))
	r.Mux.Handle("GET /v1/categories", secured(h.HandleList))
	r.Mux.Handle("GET /v1/categories/{id}", secured(h.HandleGet))
	r.Mux.Handle("PUT /v1/categories/{id}", secured(h.HandleUpdate))
	r.Mux.Handle("DELETE /v1/categories/{id}", secured(h.HandleDelete))
}

func (r *Router) registerTransactions() {
	h := &TransactionsHandler{Transactions: r.TransactionService}

	secured := func(handler http.HandlerFunc) http.Handler {
		return httpx.Chain(handler,
			r.requireUser,
			httpx.RateLimitByActor(httpx.ModerateLimit),
		)
	}

	r.Mux.Handle("POST /v1/transactions", secured(h.HandleCreate))
	r.Mux.Handle("GET /v1/transactions", secured(h.HandleList))
	r.Mux.Handle("GET /v1/transactions/{id}", secured(h.HandleGet))
	r.Mux.Handle("PUT /v1/transactions/{id}", secured(h.HandleUpdate))
	r.Mux.Handle("DELETE /v1/transactions/{id}", secured(h.HandleDelete))
	r.Mux.Handle("POST /v1/transactions/bulk-delete", secured(h.HandleBulkDelete))
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez", LivezHandler(r.startTime, r.buildVersion))
	r.Mux.Handle("GET /readyz", ReadyzHandler(r.startTime, r.buildVersion, r.store))
	r.Mux.Handle("GET /metrics", metrics.Handler(r.gatherer))
}

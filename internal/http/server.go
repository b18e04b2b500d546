package http

import (
	"context"
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"parishledger/internal/export"
	applog "parishledger/internal/log"
	"parishledger/internal/middleware/ratelimit"
	"parishledger/internal/middleware/security"
	"parishledger/internal/middleware/trace"
	"parishledger/internal/services"
)

// PasswordHeader carries the admin password for protected actions.
const PasswordHeader = "X-Ledger-Password"

// SheetExporter writes export rows to a spreadsheet tab.
type SheetExporter interface {
	export.Writer
	SheetTitle(selection string) string
}

type Options struct {
	// AdminPassword guards destructive and bulk actions; empty disables the guard.
	AdminPassword string
	// Sheets enables POST /api/export/sheets when set.
	Sheets    SheetExporter
	RateLimit ratelimit.Config
	Logger    *applog.Logger
}

type Server struct {
	http.Server
	svc      *services.LedgerService
	opts     Options
	logger   *applog.Logger
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer wires routes and middleware, returning a ready-to-run server.
func NewServer(addr string, svc *services.LedgerService, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = applog.New(applog.DefaultConfig())
	}
	s := &Server{
		svc:      svc,
		opts:     opts,
		logger:   opts.Logger.WithComponent(applog.ComponentHTTP),
		limiter:  ratelimit.NewLimiter(opts.RateLimit),
		detector: security.NewDetector(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)
	mux.HandleFunc("GET /api/search", s.handleSearch)
	mux.HandleFunc("GET /api/reports/categories", s.handleCategoryReport)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleCreateTransaction)
	mux.HandleFunc("PUT /api/transactions/{id}", s.handleUpdateTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/members", s.handleListMembers)
	mux.HandleFunc("GET /api/members/groups", s.handleMemberGroups)
	mux.HandleFunc("POST /api/members", s.handleCreateMember)
	mux.HandleFunc("PUT /api/members/{id}", s.handleUpdateMember)
	mux.HandleFunc("DELETE /api/members/{id}", s.handleDeleteMember)
	mux.HandleFunc("GET /api/members/{id}/income", s.handleMemberIncome)

	mux.HandleFunc("GET /api/categories", s.handleListCategories)
	mux.HandleFunc("POST /api/categories/{kind}", s.handleAddCategory)
	mux.HandleFunc("PUT /api/categories/{kind}/{name}", s.handleRenameCategory)
	mux.HandleFunc("DELETE /api/categories/{kind}/{name}", s.handleDeleteCategory)
	mux.HandleFunc("POST /api/categories/expense/{main}/subs", s.handleAddSubCategory)
	mux.HandleFunc("PUT /api/categories/expense/{main}/subs/{sub}", s.handleRenameSubCategory)
	mux.HandleFunc("DELETE /api/categories/expense/{main}/subs/{sub}", s.handleDeleteSubCategory)

	mux.HandleFunc("GET /api/settings/church-name", s.handleChurchName)
	mux.HandleFunc("PUT /api/settings/church-name", s.requireAdmin(s.handleSetChurchName))

	mux.HandleFunc("GET /api/snapshot", s.requireAdmin(s.handleDownloadSnapshot))
	mux.HandleFunc("POST /api/snapshot", s.requireAdmin(s.handleImportSnapshot))
	mux.HandleFunc("POST /api/snapshot/members", s.requireAdmin(s.handleImportMembers))
	mux.HandleFunc("GET /api/snapshots", s.handleListHistory)
	mux.HandleFunc("POST /api/snapshots", s.requireAdmin(s.handleSaveSnapshot))
	mux.HandleFunc("POST /api/snapshots/{ts}/restore", s.requireAdmin(s.handleRestoreHistory))
	mux.HandleFunc("DELETE /api/snapshots/{ts}", s.requireAdmin(s.handleDeleteHistory))
	mux.HandleFunc("POST /api/reset", s.requireAdmin(s.handleReset))

	mux.HandleFunc("GET /api/export", s.handleExport)
	mux.HandleFunc("GET /api/export/weeks", s.handleExportWeeks)
	mux.HandleFunc("POST /api/export/sheets", s.requireAdmin(s.handleExportSheets))

	var h http.Handler = mux
	h = s.limiter.Middleware(s.detector.ClientIP, rateLimited)(h)
	h = s.flagSuspicious(h)
	h = security.Headers(security.DefaultHeadersConfig())(h)
	h = applog.RequestIDMiddleware(trace.RequestID)(h)
	h = trace.NewMiddleware(s.detector.ClientIP).Middleware(h)
	h = applog.Middleware(opts.Logger)(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Shutdown stops background routines and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// requireAdmin rejects the request unless the admin password matches.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.opts.AdminPassword == "" {
			next(w, r)
			return
		}
		got := r.Header.Get(PasswordHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(s.opts.AdminPassword)) != 1 {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Admin password rejected",
				applog.FieldPath, r.URL.Path,
				applog.FieldErrorType, applog.ErrorTypeAuth)
			UnauthorizedError().Write(w)
			return
		}
		next(w, r)
	}
}

func (s *Server) flagSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.IsSuspicious(r) {
			applog.FromContext(r.Context()).WarnContext(r.Context(), "Suspicious request",
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldClientIP, s.detector.ClientIP(r))
		}
		next.ServeHTTP(w, r)
	})
}

func rateLimited(w http.ResponseWriter, r *http.Request) {
	NewResponse().
		Status(http.StatusTooManyRequests).
		Header("Retry-After", "60").
		JSON(errorBody{Error: "rate limit exceeded", Code: "rate_limited"}).
		Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady checks that the store answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if _, err := s.svc.State(r.Context()); err != nil {
		applog.LogError(r.Context(), "Readiness check failed", err, applog.ComponentStorage, "ready", applog.ErrorTypeDatabase)
		http.Error(w, "not ready", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"financas/internal/backend"
	"financas/internal/core"
	applog "financas/internal/log"
	"financas/internal/middleware/ratelimit"
	"financas/internal/middleware/security"
	"financas/internal/middleware/trace"
	"financas/internal/notify"
	"financas/internal/ports"
	"financas/internal/query"
	appweb "financas/web"
)

// Deps are the collaborators of the dashboard server.
type Deps struct {
	Backend *backend.Backend
	Cache   *query.Cache
	// Invalidator receives every key a successful form invalidates.
	// Defaults to Cache.
	Invalidator query.Invalidator
	// Notifier receives every notification in addition to the response
	// header, e.g. for logging or broadcasting.
	Notifier notify.Notifier
	// Exporter is optional; without it report export is unavailable.
	Exporter ports.ReportExporter
	Logger   *applog.Logger
	// RateLimit caps form submissions per client per minute.
	RateLimit int
	// ReloadWait is how long a list partial waits for a refetch before it
	// shows the previously loaded rows instead. Defaults to 500ms.
	ReloadWait time.Duration
}

type Server struct {
	http.Server
	templates *template.Template

	backend     *backend.Backend
	cache       *query.Cache
	invalidator query.Invalidator
	notifier    notify.Notifier
	exporter    ports.ReportExporter
	logger      *applog.Logger
	reloadWait  time.Duration

	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter
	detector *security.Detector

	shutdownOnce sync.Once
}

// NewServer parses the embedded templates and wires the routes and the
// middleware chain.
func NewServer(addr string, deps Deps) (*Server, error) {
	if deps.Backend == nil || deps.Cache == nil {
		return nil, fmt.Errorf("server needs a backend and a query cache")
	}
	if deps.Logger == nil {
		deps.Logger = applog.Nop()
	}
	if deps.Invalidator == nil {
		deps.Invalidator = deps.Cache
	}
	if deps.Notifier == nil {
		deps.Notifier = notify.LogNotifier{Logger: deps.Logger}
	}
	if deps.ReloadWait <= 0 {
		deps.ReloadWait = 500 * time.Millisecond
	}

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	detector := security.NewDetector()
	s := &Server{
		templates:   t,
		backend:     deps.Backend,
		cache:       deps.Cache,
		invalidator: deps.Invalidator,
		notifier:    deps.Notifier,
		exporter:    deps.Exporter,
		logger:      deps.Logger.WithComponent(applog.ComponentHTTP),
		reloadWait:  deps.ReloadWait,
		tracer:      trace.NewMiddleware(detector.ClientIP, deps.Logger),
		limiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimit}),
		detector:    detector,
	}

	mux := http.NewServeMux()
	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		s.logger.Warn("Failed to mount embedded static FS", applog.FieldError, err.Error())
	}

	mux.HandleFunc("GET /{$}", s.handleDashboard)
	mux.HandleFunc("GET /categories", s.handleCategoriesPage)
	mux.HandleFunc("POST /categories", s.handleCreateCategory)
	mux.HandleFunc("GET /revenues", s.handleTransactionsPage(core.Revenue))
	mux.HandleFunc("POST /revenues", s.handleCreateTransaction(core.Revenue))
	mux.HandleFunc("GET /expenses", s.handleTransactionsPage(core.Expense))
	mux.HandleFunc("POST /expenses", s.handleCreateTransaction(core.Expense))
	mux.HandleFunc("GET /reports", s.handleReport)
	mux.HandleFunc("POST /reports/export", s.handleExportReport)

	// UI partials
	mux.HandleFunc("GET /ui/summary", s.handleSummaryPartial)
	mux.HandleFunc("GET /ui/categories", s.handleCategoryList)
	mux.HandleFunc("GET /ui/revenues", s.handleTransactionList(core.Revenue))
	mux.HandleFunc("GET /ui/expenses", s.handleTransactionList(core.Expense))

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	var h http.Handler = mux
	h = s.limiter.Middleware(detector.ClientIP, s.handleRateLimited, http.MethodPost)(h)
	h = detector.Middleware(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = applog.Middleware(deps.Logger, func(r *http.Request) string { return trace.GetRequestID(r.Context()) })(h)
	h = s.tracer.Middleware(h)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// Shutdown stops accepting requests, waits for in-flight ones and stops the
// rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	var err error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		err = s.Server.Shutdown(ctx)
	})
	return err
}

// Metrics exposes the request counters of the trace middleware.
func (s *Server) Metrics() trace.Metrics { return s.tracer.GetMetrics() }

func (s *Server) handleRateLimited(w http.ResponseWriter, r *http.Request) {
	NewHTMXResponse().
		Status(http.StatusTooManyRequests).
		TriggerNotification(notify.Warning("Muitas requisições", "Aguarde um minuto e tente novamente.")).
		Write(w)
}

// renderBytes executes a template into memory so a failure never leaves a
// half-written response.
func (s *Server) renderBytes(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, fmt.Errorf("render %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// render writes a template with status 200 or a 500 on template failure.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	body, err := s.renderBytes(name, data)
	if err != nil {
		applog.FromContext(r.Context()).ErrorContext(r.Context(), "Template execution failed",
			applog.NewFields().WithComponent(applog.ComponentTemplate).WithOperation(applog.OpRender).WithError(err).ToSlice()...)
		InternalServerError("Erro ao renderizar a página").Write(w)
		return
	}
	NewHTMXResponse().BodyHTML(body).Write(w)
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// handleReady reports whether the data backend answers.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.backend.Health != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()
		if err := s.backend.Health.Ping(ctx); err != nil {
			s.logger.WarnContext(ctx, "Readiness check failed", applog.FieldError, err.Error())
			http.Error(w, "backend unavailable", http.StatusServiceUnavailable)
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

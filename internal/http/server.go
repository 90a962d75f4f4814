package http

import (
	"budgetwise/internal/cache"
	"budgetwise/internal/export"
	"budgetwise/internal/log"
	"budgetwise/internal/middleware/ratelimit"
	"budgetwise/internal/middleware/security"
	"budgetwise/internal/middleware/trace"
	"budgetwise/internal/palette"
	"budgetwise/internal/services"
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

// billsTTL is how long a fetched bill list is served before the next
// request triggers a refresh.
const billsTTL = time.Minute

// ReportBuilder produces the export report for a year.
type ReportBuilder interface {
	Build(ctx context.Context, year int) export.Report
}

// Deps are the services the API exposes.
type Deps struct {
	Calendar  *services.BillCalendar
	Portfolio *services.PortfolioService
	Reports   ReportBuilder
	Palette   *palette.Palette
	Logger    *log.Logger
	// Ready reports backend readiness for /readyz. Nil means always ready.
	Ready func(ctx context.Context) error
}

// Options tune the middleware stack.
type Options struct {
	RateLimit      float64
	RateBurst      int
	AllowedOrigins []string
}

type Server struct {
	http.Server

	calendar  *services.BillCalendar
	portfolio *services.PortfolioService
	reports   ReportBuilder
	palette   *palette.Palette
	logger    *log.Logger
	events    *log.StructuredLogger
	ready     func(ctx context.Context) error
	now       func() time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	caches   *cache.Manager

	refreshMu    sync.Mutex
	shutdownOnce sync.Once
}

// NewServer builds the JSON API on a chi router.
func NewServer(addr string, deps Deps, opts Options) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}
	pal := deps.Palette
	if pal == nil {
		pal = palette.New()
	}

	limitCfg := ratelimit.DefaultConfig()
	if opts.RateLimit > 0 {
		limitCfg.RequestsPerSecond = opts.RateLimit
	}
	if opts.RateBurst > 0 {
		limitCfg.Burst = opts.RateBurst
	}

	s := &Server{
		calendar:  deps.Calendar,
		portfolio: deps.Portfolio,
		reports:   deps.Reports,
		palette:   pal,
		logger:    logger,
		events:    log.NewStructuredLogger(logger),
		ready:     deps.Ready,
		now:       time.Now,
		limiter:   ratelimit.NewLimiter(limitCfg),
		detector:  security.NewDetector(),
		caches:    cache.NewManager(),
	}
	s.tracer = trace.NewMiddleware(s.detector.ExtractClientIP, logger)

	s.caches.Register(deps.Calendar.YearCache())
	s.caches.StartCleanup(10 * time.Minute)

	headersCfg := security.DefaultHeadersConfig()
	headersCfg.AllowedOrigins = opts.AllowedOrigins

	r := chi.NewRouter()
	r.Use(chimw.Recoverer)
	r.Use(s.tracer.Middleware)
	r.Use(log.Middleware(logger))
	r.Use(security.NewHeadersMiddleware(headersCfg).Middleware)
	r.Use(s.rejectSuspicious)

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)

	r.Route("/api", func(r chi.Router) {
		r.Use(s.limiter.Middleware(s.detector.ExtractClientIP, onRateLimited))
		r.Use(security.NoStoreMiddleware)

		r.Get("/bills", s.handleListBills)
		r.Get("/bills/upcoming", s.handleUpcoming)
		r.Get("/bills/calendar/day", s.handleCalendarDay)
		r.Get("/bills/calendar/month", s.handleCalendarMonth)
		r.Get("/bills/calendar/year", s.handleCalendarYear)
		r.Post("/bills/{id}/pay", s.handlePayBill)

		r.Get("/investments", s.handleListInvestments)
		r.Get("/investments/summary", s.handleSummary)
		r.Post("/investments/simulation", s.handleSimulation)
		r.Put("/investments/{id}/price", s.handleUpdatePrice)

		r.Get("/categories/{id}/color", s.handleCategoryColor)
		r.Get("/export/report.xlsx", s.handleExportXLSX)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("route not found").Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "method not allowed").Write(w)
	})

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

// rejectSuspicious drops obvious scanner probes before they reach a handler.
func (s *Server) rejectSuspicious(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.detector.DetectSuspiciousRequest(r) {
			log.FromContext(r.Context()).WithComponent(log.ComponentSecurity).WarnContext(r.Context(),
				"Suspicious request rejected",
				log.FieldClientIP, s.detector.ExtractClientIP(r),
				log.FieldPath, r.URL.Path,
				log.FieldUserAgent, r.UserAgent())
			NotFoundError("route not found").Write(w)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.caches.Stop()
		s.limiter.Stop()
		if s.portfolio != nil {
			_ = s.portfolio.Close()
		}
		shutdownErr = s.Server.Shutdown(ctx)

		m := s.tracer.GetMetrics()
		slog.Info("HTTP server stopped",
			"total_requests", m.TotalRequests,
			"server_errors", m.ServerErrors,
			"rate_limited", s.limiter.GetMetrics().Rejected,
			"suspicious_requests", s.detector.GetMetrics().SuspiciousRequests)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	NewJSONResponse().Body(map[string]string{"status": "ok"}).Write(w)
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.ready != nil {
		if err := s.ready(r.Context()); err != nil {
			log.FromContext(r.Context()).WarnContext(r.Context(), "Readiness check failed", log.FieldError, err)
			ErrorResponse(http.StatusServiceUnavailable, "backend not ready").Write(w)
			return
		}
	}
	NewJSONResponse().Body(map[string]string{"status": "ready"}).Write(w)
}

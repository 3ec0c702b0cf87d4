package http

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"moneymanager/internal/log"
	"moneymanager/internal/middleware/ratelimit"
	"moneymanager/internal/middleware/security"
	"moneymanager/internal/middleware/trace"
	"moneymanager/internal/services"
)

// Options configure the API server.
type Options struct {
	// RateLimitPerMinute caps writes per client IP; 0 disables the limit.
	RateLimitPerMinute int
	// TrustedProxies are extra CIDRs whose forwarding headers are honoured.
	TrustedProxies []string
	Logger         *log.Logger
}

type Server struct {
	http.Server
	services *services.Services
	logger   *log.StructuredLogger

	tracer   *trace.Middleware
	limiter  *ratelimit.Limiter
	detector *security.Detector
	started  time.Time

	stopBackground context.CancelFunc
	shutdownOnce   sync.Once
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// Every API route is served both at the root and under /api.
func NewServer(addr string, svc *services.Services, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig()).WithComponent(log.ComponentHTTP)
	}
	detector := security.NewDetector()
	for _, cidr := range opts.TrustedProxies {
		if err := detector.AddTrustedProxy(cidr); err != nil {
			logger.Warn("Ignoring trusted proxy", "cidr", cidr, "error", err)
		}
	}

	structured := log.NewStructuredLogger(logger)
	s := &Server{
		services: svc,
		logger:   structured,
		tracer:   trace.NewMiddleware(detector.ClientIP, structured),
		limiter:  ratelimit.New(opts.RateLimitPerMinute),
		detector: detector,
		started:  time.Now(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel
	go s.limiter.Run(ctx)

	r := chi.NewRouter()
	r.Use(log.Middleware(logger))
	r.Use(s.tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.StripSlashes)
	r.Use(security.Headers(security.DefaultHeadersConfig()))
	r.Use(detector.Middleware(func(r *http.Request) {
		log.FromContext(r.Context()).Warn("Suspicious request blocked",
			log.FieldClientIP, detector.ClientIP(r),
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
	}))
	if opts.RateLimitPerMinute > 0 {
		r.Use(s.limiter.Middleware(detector.ClientIP, func(r *http.Request, client string) {
			log.FromContext(r.Context()).Warn("Rate limit exceeded",
				log.FieldClientIP, client,
				log.FieldMethod, r.Method,
				log.FieldPath, r.URL.Path)
		}))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		NotFoundError("No route for " + r.URL.Path).Write(w)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		ErrorResponse(http.StatusMethodNotAllowed, "Method not allowed").Write(w)
	})

	r.Get("/healthz", s.handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Get("/metrics", s.handleMetrics)

	s.routes(r)
	r.Route("/api", s.routes)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

func (s *Server) routes(r chi.Router) {
	r.Route("/monthly-budget", func(r chi.Router) {
		r.Get("/{year}/{month}", s.handleGetMonthlyBudget)
		r.Put("/{id}", s.handleReplaceCategories)
		r.Get("/{id}/summary", s.handleMonthSummary)
		r.Get("/{id}/activity", s.handleActivity)
		r.Post("/{id}/items", s.handleUpsertItem)
		r.Delete("/{id}/items/{itemId}", s.handleDeleteItem)
	})

	r.Route("/overall-plan", func(r chi.Router) {
		r.Get("/", s.handleGetPlan)
		r.Post("/", s.handleSavePlan)
		r.Put("/category/{catName}", s.handleUpdatePlanCategory)
	})

	r.Route("/investments", func(r chi.Router) {
		r.Get("/", s.handleListInvestments)
		r.Post("/", s.handleCreateInvestment)
		r.Get("/summary", s.handlePortfolioSummary)
		r.Get("/{id}", s.handleGetInvestment)
		r.Put("/{id}", s.handleUpdateInvestment)
		r.Delete("/{id}", s.handleDeleteInvestment)
	})

	r.Get("/dashboard", s.handleDashboard)
}

// Shutdown stops background work and drains the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.stopBackground()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// fail writes the response for err and logs it with its category.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, operation string, err error) {
	resp, known := FromError(err)
	errorType := log.ErrorTypeInternal
	if known {
		errorType = errorTypeFor(resp.statusCode)
	}
	s.logger.LogError(r.Context(), "Request failed", err, errorType, operation, budgetFields(r))
	resp.Write(w)
}

// budgetFields identifies the monthly budget a failed request addressed.
func budgetFields(r *http.Request) log.LogFields {
	fields := log.NewFields()
	rctx := chi.RouteContext(r.Context())
	if rctx == nil || !strings.Contains(rctx.RoutePattern(), "/monthly-budget") {
		return fields
	}
	year, _ := strconv.Atoi(chi.URLParam(r, "year"))
	month, _ := strconv.Atoi(chi.URLParam(r, "month"))
	return fields.WithBudget(chi.URLParam(r, "id"), year, month, userScope(r))
}

func errorTypeFor(status int) string {
	switch status {
	case http.StatusNotFound:
		return log.ErrorTypeNotFound
	case http.StatusConflict:
		return log.ErrorTypeConflict
	case http.StatusUnprocessableEntity:
		return log.ErrorTypeValidation
	case http.StatusBadRequest:
		return log.ErrorTypeBadRequest
	}
	return log.ErrorTypeInternal
}

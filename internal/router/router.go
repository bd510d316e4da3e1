package router

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/dogfinder/internal/middleware"
	"github.com/jwalitptl/dogfinder/internal/session"
	"github.com/jwalitptl/dogfinder/pkg/logger"
)

type Handler interface {
	RegisterRoutes(*gin.RouterGroup)
}

// AdminHandler also mounts staff-only actions under /admin.
type AdminHandler interface {
	Handler
	RegisterAdminRoutes(*gin.RouterGroup)
}

// Handlers are the route groups of the API.
type Handlers struct {
	Health       Handler
	Session      Handler
	Notification Handler
	Dog          AdminHandler
	Adoption     AdminHandler
	User         Handler
	Dashboard    Handler
}

type Router struct {
	engine   *gin.Engine
	handlers Handlers
	metrics  *routerMetrics
}

type routerMetrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	errorTotal      *prometheus.CounterVec
}

type RouterConfig struct {
	RateLimitEnabled bool
	RateLimit        rate.Limit
	RateBurst        int
	RequestTimeout   time.Duration
	CORSConfig       middleware.CORSConfig
	Session          middleware.SessionConfig
	MetricsPrefix    string
	// Registerer receives the request metrics; nil leaves them unregistered.
	Registerer prometheus.Registerer
}

func NewRouter(handlers Handlers, sessions session.Manager, log *logger.Logger, config RouterConfig) *Router {
	engine := gin.New()

	r := &Router{
		engine:   engine,
		handlers: handlers,
		metrics:  initRouterMetrics(config.MetricsPrefix, config.Registerer),
	}

	engine.Use(
		middleware.RequestID(),
		middleware.Recovery(log),
		middleware.Logger(log),
		middleware.ErrorHandler(log),
		r.metricsMiddleware(),
		middleware.SecurityHeaders(middleware.DefaultSecurityConfig()),
		middleware.CORS(config.CORSConfig),
	)

	if config.RateLimitEnabled {
		rateLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
			Rate:  config.RateLimit,
			Burst: config.RateBurst,
		})
		engine.Use(rateLimiter.RateLimit())
	}

	engine.Use(
		middleware.Timeout(middleware.TimeoutConfig{Duration: config.RequestTimeout}),
		middleware.Session(sessions, config.Session),
	)

	return r
}

func (r *Router) Setup() {
	api := r.engine.Group("/api/v1")
	api.Use(func(c *gin.Context) {
		c.Header("X-API-Version", "1.0")
		c.Next()
	})

	if r.handlers.Health != nil {
		r.handlers.Health.RegisterRoutes(api)
	}

	r.setupPortalRoutes(api)
	r.setupAdminRoutes(api.Group("/admin"))
}

func (r *Router) setupPortalRoutes(rg *gin.RouterGroup) {
	for _, h := range []Handler{r.handlers.Session, r.handlers.Notification, r.handlers.Dog, r.handlers.Adoption} {
		if h != nil {
			h.RegisterRoutes(rg)
		}
	}
}

// Staff actions run as the caller's access token; row level security at the
// data service decides what they may change.
func (r *Router) setupAdminRoutes(rg *gin.RouterGroup) {
	if r.handlers.Dashboard != nil {
		r.handlers.Dashboard.RegisterRoutes(rg)
	}
	if r.handlers.Dog != nil {
		r.handlers.Dog.RegisterAdminRoutes(rg)
	}
	if r.handlers.Adoption != nil {
		r.handlers.Adoption.RegisterAdminRoutes(rg)
	}
	if r.handlers.User != nil {
		r.handlers.User.RegisterRoutes(rg)
	}
}

func (r *Router) Engine() *gin.Engine {
	return r.engine
}

func initRouterMetrics(prefix string, reg prometheus.Registerer) *routerMetrics {
	if prefix == "" {
		prefix = "dogfinder"
	}
	m := &routerMetrics{
		requestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: prefix + "_request_duration_seconds",
				Help: "Duration of HTTP requests in seconds",
			},
			[]string{"method", "path", "status"},
		),
		requestTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		errorTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: prefix + "_errors_total",
				Help: "Total number of HTTP errors",
			},
			[]string{"method", "path", "type"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.requestDuration, m.requestTotal, m.errorTotal)
	}
	return m
}

func (r *Router) metricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		code := c.Writer.Status()
		status := strconv.Itoa(code)

		r.metrics.requestDuration.WithLabelValues(c.Request.Method, path, status).Observe(time.Since(start).Seconds())
		r.metrics.requestTotal.WithLabelValues(c.Request.Method, path, status).Inc()

		switch {
		case code >= 500:
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "server").Inc()
		case code >= 400:
			r.metrics.errorTotal.WithLabelValues(c.Request.Method, path, "client").Inc()
		}
	}
}

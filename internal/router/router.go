package router // package router defines how HTTP routes are registered for the API

import (
	"net/http"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-ticket-reservation/internal/config"
	"github.com/iliyamo/event-ticket-reservation/internal/handler"
	"github.com/iliyamo/event-ticket-reservation/internal/metrics"
	"github.com/iliyamo/event-ticket-reservation/internal/middleware"
	"github.com/iliyamo/event-ticket-reservation/internal/queue"
	"github.com/iliyamo/event-ticket-reservation/internal/repository"
	"github.com/iliyamo/event-ticket-reservation/internal/service"
)

// Deps is everything Build needs.  DB and Redis may be nil (memory storage,
// Redis disabled); Publisher defaults to a no-op.
type Deps struct {
	Config    config.Config
	Store     repository.Store
	DB        handler.Pinger
	Redis     *redis.Client
	Publisher queue.Publisher
	Metrics   *metrics.Metrics
	Log       *logrus.Entry
}

// Build wires services and handlers onto a new Echo instance with every
// route registered.
func Build(d Deps) *echo.Echo {
	if d.Publisher == nil {
		d.Publisher = queue.NopPublisher{}
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}

	events := service.NewEventService(d.Store, d.Log)
	users := service.NewUserService(d.Store, d.Log)
	reservations := service.NewReservationService(d.Store, d.Publisher, d.Metrics, d.Log)

	eh := handler.NewEventHandler(events)
	uh := handler.NewUserHandler(users, d.Config.JWTSecret, d.Config.AccessTTLMin)
	rh := handler.NewReservationHandler(reservations, users)

	limiter := middleware.NewTokenBucket(d.Config.RateLimit, d.Redis, d.Log)
	cache := middleware.NewRedisCache(d.Config.Cache, d.Redis, d.Log)

	e := New(d.Log)
	RegisterRoutes(e, d.DB, d.Metrics.Handler())
	RegisterUsers(e, uh, rh, d.Config.JWTSecret)
	RegisterEvents(e, eh, d.Config.OperatorAPIKey, cache)
	RegisterReservations(e, rh, d.Config.JWTSecret, limiter)
	return e
}

// New returns an Echo instance with the shared middleware chain: panic
// recovery, a request id and the logrus request logger.
func New(log *logrus.Entry) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))
	return e
}

// RegisterRoutes registers routes that do not touch the domain: liveness,
// readiness and the Prometheus exposition.
func RegisterRoutes(e *echo.Echo, db handler.Pinger, metrics http.Handler) {
	e.GET("/healthz", handler.Health)
	e.GET("/readyz", handler.Ready(db))
	if metrics != nil {
		e.GET("/metrics", echo.WrapHandler(metrics))
	}
}

// RegisterUsers registers sign-up and login under /v1 and the caller's own
// profile under /v1/me, which requires a bearer token.
func RegisterUsers(e *echo.Echo, h *handler.UserHandler, rh *handler.ReservationHandler, jwtSecret string) {
	e.POST("/v1/users", h.SignUp)
	e.POST("/v1/auth/login", h.Login)

	me := e.Group("/v1/me", middleware.JWTAuth(jwtSecret))
	me.GET("", h.Me)
	me.GET("/reservations", rh.Mine)
	me.POST("/history/prune", h.PruneHistory)
}

// RegisterEvents registers the event catalog.  Creating an event needs the
// operator key; search responses go through cache.
func RegisterEvents(e *echo.Echo, h *handler.EventHandler, operatorKey string, cache echo.MiddlewareFunc) {
	e.POST("/v1/events", h.Create, middleware.OperatorKey(operatorKey), middleware.RequireRole(middleware.RoleOperator))
	e.GET("/v1/events", h.Search, cache)
	e.GET("/v1/events/:id", h.Get)
}

// RegisterReservations registers reservation endpoints.  Writes go through
// limiter; making a reservation accepts an optional bearer token.
func RegisterReservations(e *echo.Echo, h *handler.ReservationHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	e.POST("/v1/events/:id/reservations", h.Make, middleware.OptionalJWT(jwtSecret), limiter)
	e.GET("/v1/reservations/:id", h.Get)
	e.DELETE("/v1/reservations/:id", h.Cancel, limiter)
}

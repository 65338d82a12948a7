package http

import (
	"log/slog"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Services bundles what the router needs. Health, Limiter and Gatherer are optional.
type Services struct {
	Catalog      CatalogService
	Reservations ReservationService
	History      HistoryLister
	Users        UserService
	Auth         Authenticator
	Limiter      RateLimiter
	Gatherer     prometheus.Gatherer
	Health       HealthCheck
}

// NewRouter registers every route and wraps the mux with CORS and request logging.
func NewRouter(svc Services, corsOrigins []string, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}

	authed := func(h http.Handler) http.Handler {
		return RequireAuth(svc.Auth, logger, h)
	}
	admin := func(h http.Handler) http.Handler {
		return authed(RequireAdmin(h))
	}
	// Authentication runs first so throttling is keyed by user.
	limited := func(h http.Handler) http.Handler {
		return authed(RateLimit(svc.Limiter, logger, h))
	}

	mux := http.NewServeMux()
	mux.Handle("GET /health", HandleHealth(svc.Health, logger))
	if svc.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(svc.Gatherer, promhttp.HandlerOpts{}))
	}

	mux.Handle("POST /auth/register", RateLimit(svc.Limiter, logger, HandleRegister(svc.Users, logger)))
	mux.Handle("POST /auth/login", RateLimit(svc.Limiter, logger, HandleLogin(svc.Users, logger)))
	mux.Handle("GET /auth/me", authed(HandleMe(svc.Users, logger)))
	mux.Handle("GET /me/holds", authed(HandleListMyHolds(svc.Reservations, logger)))

	mux.Handle("GET /items", HandleListItems(svc.Catalog, logger))
	mux.Handle("GET /items/{id}", HandleGetItem(svc.Catalog, logger))
	mux.Handle("POST /items", admin(HandleCreateItem(svc.Catalog, logger)))
	mux.Handle("PATCH /items/{id}", admin(HandleUpdateItem(svc.Catalog, logger)))
	mux.Handle("DELETE /items/{id}", admin(HandleDeleteItem(svc.Catalog, logger)))

	mux.Handle("POST /items/{id}/reserve", limited(HandleReserve(svc.Reservations, logger)))
	mux.Handle("POST /items/{id}/release", limited(HandleRelease(svc.Reservations, logger)))
	mux.Handle("GET /items/{id}/queue", HandleListQueue(svc.Reservations, logger))
	mux.Handle("POST /items/{id}/queue", limited(HandleJoinQueue(svc.Reservations, logger)))
	mux.Handle("DELETE /items/{id}/queue", limited(HandleLeaveQueue(svc.Reservations, logger)))

	mux.Handle("GET /admin/history", admin(HandleListHistory(svc.History, logger)))

	mux.Handle("/", NotFoundHandler())

	return RequestLogger(CORS(corsOrigins, mux), logger)
}

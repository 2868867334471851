package api

import (
	"net/http"

	"github.com/Togather-Foundation/eventdesk/internal/api/envelope"
	"github.com/Togather-Foundation/eventdesk/internal/api/handlers"
	"github.com/Togather-Foundation/eventdesk/internal/api/middleware"
	"github.com/Togather-Foundation/eventdesk/internal/auth"
	"github.com/Togather-Foundation/eventdesk/internal/config"
	"github.com/Togather-Foundation/eventdesk/internal/metrics"
	"github.com/rs/zerolog"
)

// Deps are the collaborators the router wires into handlers.
type Deps struct {
	Config   config.Config
	Logger   zerolog.Logger
	Verifier auth.TokenVerifier
	Resolver middleware.PrincipalResolver
	Events   handlers.EventService
	Users    handlers.UserService
	DB       handlers.Pinger
	Build    BuildInfo
}

type authMode int

const (
	authNone authMode = iota
	authOptional
	authRequired
	authAdmin
)

type route struct {
	path    string
	method  string
	tier    middleware.RateLimitTier
	auth    authMode
	body    bool
	handler http.HandlerFunc
}

func NewRouter(deps Deps) http.Handler {
	eventsHandler := handlers.NewEventsHandler(deps.Events)
	usersHandler := handlers.NewUsersHandler(deps.Users)

	routes := []route{
		{path: "/api/events/list", method: http.MethodGet, tier: middleware.TierPublic, handler: eventsHandler.List},
		{path: "/api/events/get", method: http.MethodGet, tier: middleware.TierPublic, handler: eventsHandler.Get},
		{path: "/api/events/create", method: http.MethodPost, tier: middleware.TierAdmin, auth: authAdmin, body: true, handler: eventsHandler.Create},
		{path: "/api/events/update", method: http.MethodPut, tier: middleware.TierAdmin, auth: authAdmin, body: true, handler: eventsHandler.Update},
		{path: "/api/events/delete", method: http.MethodDelete, tier: middleware.TierAdmin, auth: authAdmin, handler: eventsHandler.Delete},

		{path: "/api/users/add", method: http.MethodPost, tier: middleware.TierPublic, auth: authOptional, body: true, handler: usersHandler.Add},
		{path: "/api/users/get", method: http.MethodGet, tier: middleware.TierPublic, auth: authRequired, handler: usersHandler.Get},
		{path: "/api/users/list", method: http.MethodGet, tier: middleware.TierAdmin, auth: authAdmin, handler: usersHandler.List},
		{path: "/api/users/login", method: http.MethodPost, tier: middleware.TierLogin, body: true, handler: usersHandler.Login},
		{path: "/api/users/update", method: http.MethodPut, tier: middleware.TierPublic, auth: authRequired, body: true, handler: usersHandler.Update},
		{path: "/api/users/verify", method: http.MethodPost, tier: middleware.TierAdmin, auth: authAdmin, body: true, handler: usersHandler.Verify},
	}

	rateLimit := middleware.RateLimit(deps.Config.RateLimit)
	requireAuth := middleware.Authenticate(deps.Verifier, deps.Resolver)
	adminAuth := middleware.AuthenticateAdmin(deps.Verifier, deps.Resolver)
	optionalAuth := middleware.OptionalAuthenticate(deps.Verifier, deps.Resolver)
	bodyLimit := middleware.RequestSize(middleware.DefaultMaxBodySize)

	mux := http.NewServeMux()
	known := make([]string, 0, len(routes)+4)
	for _, rt := range routes {
		var h http.Handler = rt.handler
		if rt.body {
			h = bodyLimit(h)
		}
		switch rt.auth {
		case authRequired:
			h = requireAuth(h)
		case authAdmin:
			h = adminAuth(h)
		case authOptional:
			h = optionalAuth(h)
		}
		h = middleware.WithRateLimitTierHandler(rt.tier)(rateLimit(h))
		mux.Handle(rt.path, middleware.MethodGate(rt.method, h))
		known = append(known, rt.path)
	}

	mux.Handle("/healthz", middleware.MethodGate(http.MethodGet, handlers.Healthz()))
	mux.Handle("/readyz", middleware.MethodGate(http.MethodGet, handlers.Readyz(deps.DB)))
	mux.Handle("/metrics", middleware.MethodGate(http.MethodGet, metrics.Handler()))
	mux.Handle("/version", middleware.MethodGate(http.MethodGet, VersionHandler(deps.Build)))
	mux.Handle("/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		envelope.Error(w, r, http.StatusNotFound, "Not found", nil)
	}))
	known = append(known, "/healthz", "/readyz", "/metrics", "/version")

	var handler http.Handler = mux
	handler = middleware.CORS(deps.Config.CORS, deps.Logger)(handler)
	handler = middleware.SecurityHeaders(deps.Config.Environment == "production")(handler)
	handler = middleware.RequestLogging(deps.Logger)(handler)
	handler = metrics.HTTPMiddleware(known...)(handler)
	handler = middleware.Tracing(handler)
	handler = middleware.CorrelationID(deps.Logger)(handler)
	return handler
}

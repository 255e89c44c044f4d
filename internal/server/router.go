package server

import (
	"net/http"

	"identgate/internal/apierror"
	"identgate/internal/auth"
	"identgate/internal/health"
	"identgate/internal/httputils"
	"identgate/internal/observability/logging"

	"github.com/gorilla/mux"
)

// ApprovedCondition is the readiness condition reported by POST /approve
const ApprovedCondition = "approved"

// RouterConfig holds the collaborators served by the router
type RouterConfig struct {
	// Readiness backs GET /health/ready and POST /approve
	Readiness *health.Registry

	// Liveness backs GET /health/live
	Liveness *health.Registry

	// HealthOptions configure both health handlers
	HealthOptions []health.HandlerOption

	// Identity resolves the caller of identity scoped routes
	Identity func(http.Handler) http.Handler
}

// Router serves the health and identity endpoints
type Router struct {
	*mux.Router
	approved health.Condition
	logger   *logging.Logger
}

// NewRouter creates a new router. The readiness condition "approved" is
// registered, and therefore failing, until POST /approve is called.
func NewRouter(config RouterConfig, logger *logging.Logger) *Router {
	r := &Router{
		Router:   mux.NewRouter(),
		approved: config.Readiness.Condition(ApprovedCondition),
		logger:   logger.WithModule("server.router"),
	}

	r.setupRoutes(config)

	return r
}

func (r *Router) setupRoutes(config RouterConfig) {
	r.Use(recordRoute)

	r.Handle("/health/ready", config.Readiness.Handler(config.HealthOptions...)).Methods(http.MethodGet).Name("readiness")
	r.Handle("/health/live", config.Liveness.Handler(config.HealthOptions...)).Methods(http.MethodGet).Name("liveness")

	r.Path("/approve").Methods(http.MethodPost).Name("approve").HandlerFunc(r.approve)

	var whoami http.Handler = http.HandlerFunc(r.whoami)
	if config.Identity != nil {
		whoami = config.Identity(whoami)
	}
	r.Path("/whoami").Methods(http.MethodGet).Name("whoami").Handler(whoami)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		r.logger.Warn("Request received for undefined route", "path", req.URL.Path)
		http.Error(w, "404 page not found", http.StatusNotFound)
	})
}

// recordRoute labels the request with the template of the matched route
func recordRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if route := mux.CurrentRoute(req); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				httputils.SetRoute(req, tmpl)
			}
		}
		next.ServeHTTP(w, req)
	})
}

func (r *Router) approve(w http.ResponseWriter, req *http.Request) {
	logger := logging.FromContextOr(req.Context(), r.logger)

	r.approved.ReportOK()
	logger.Info("Readiness approved", "condition", r.approved.Name())

	w.WriteHeader(http.StatusNoContent)
}

func (r *Router) whoami(w http.ResponseWriter, req *http.Request) {
	logger := logging.FromContextOr(req.Context(), r.logger)

	user := auth.UserFromContext(req.Context())
	if user == nil {
		apierror.Respond(w, logger, apierror.New(apierror.CodeUnauthenticated))
		return
	}

	if err := httputils.WriteJSON(w, http.StatusOK, user); err != nil {
		logger.Error("Failed to write response", logging.Err(err))
	}
}

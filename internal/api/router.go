package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/wemeetoffline/server/internal/api/handlers"
	"github.com/wemeetoffline/server/internal/api/middleware"
	"github.com/wemeetoffline/server/internal/auth"
	"github.com/wemeetoffline/server/internal/config"
	"github.com/wemeetoffline/server/internal/metrics"
)

type RouterDeps struct {
	Config config.Config
	Logger zerolog.Logger
	Tokens *auth.JWTManager
	Events *handlers.EventsHandler
	Users  *handlers.UsersHandler
	Logs   *handlers.LogsHandler
	Health *handlers.HealthHandler
	Phones middleware.PhoneChecker

	Version   string
	GitCommit string
	BuildDate string
}

// NewRouter wires every route with its middleware chain. All domain
// endpoints are POST with JSON bodies; GET is reserved for the platform
// endpoints.
func NewRouter(deps RouterDeps) http.Handler {
	mux := http.NewServeMux()
	env := deps.Config.Environment

	rateLimit := middleware.RateLimit(deps.Config.RateLimit)
	authn := middleware.Authenticate(deps.Tokens, env)
	phoneGate := middleware.RequirePhoneVerified(deps.Phones, env)
	loginTier := middleware.WithRateLimitTier(middleware.TierLogin)
	userTier := middleware.WithRateLimitTier(middleware.TierUser)

	post := func(pattern string, handler http.HandlerFunc, wrappers ...func(http.Handler) http.Handler) {
		var h http.Handler = handler
		for i := len(wrappers) - 1; i >= 0; i-- {
			h = wrappers[i](h)
		}
		mux.Handle("POST "+pattern, h)
	}

	// credential endpoints carry the aggressive login tier
	post("/signup", deps.Users.Signup, loginTier, rateLimit)
	post("/login", deps.Users.Login, loginTier, rateLimit)
	post("/google-login", deps.Users.GoogleLogin, loginTier, rateLimit)
	post("/verify-email-code", deps.Users.VerifyEmail, loginTier, rateLimit)
	post("/request-password-reset", deps.Users.RequestPasswordReset, loginTier, rateLimit)
	post("/reset-password", deps.Users.ResetPassword, loginTier, rateLimit)

	post("/log", deps.Logs.Record, rateLimit)

	// authenticated user endpoints
	post("/get-user-profile", deps.Users.Profile, userTier, rateLimit, authn)
	post("/update-user-profile", deps.Users.UpdateProfile, userTier, rateLimit, authn)
	post("/request-otp", deps.Users.RequestOTP, userTier, rateLimit, authn)
	post("/verify-otp", deps.Users.VerifyOTP, userTier, rateLimit, authn)
	post("/get-userid", deps.Users.GetUserID, userTier, rateLimit, authn)

	// event endpoints; creating an event and asking to attend one put people
	// in a room together, so both sit behind the phone gate
	post("/add-event", deps.Events.Add, userTier, rateLimit, authn, phoneGate)
	post("/register-for-event", deps.Events.Register, userTier, rateLimit, authn, phoneGate)

	post("/get-events", deps.Events.List, userTier, rateLimit, authn)
	post("/get-events-by-page", deps.Events.ListPage, userTier, rateLimit, authn)
	post("/get-event-by-title", deps.Events.GetByTitle, userTier, rateLimit, authn)
	post("/search-events", deps.Events.Search, userTier, rateLimit, authn)
	post("/update-event", deps.Events.Update, userTier, rateLimit, authn)
	post("/delete-event", deps.Events.Delete, userTier, rateLimit, authn)
	post("/unregister-from-event", deps.Events.Unregister, userTier, rateLimit, authn)
	post("/approve-attendee", deps.Events.ApproveAttendee, userTier, rateLimit, authn)
	post("/remove-attendee", deps.Events.RemoveAttendee, userTier, rateLimit, authn)
	post("/get-user-status", deps.Events.UserStatus, userTier, rateLimit, authn)
	post("/get-address-and-attendees", deps.Events.AddressAndAttendees, userTier, rateLimit, authn)

	post("/get-comments", deps.Events.GetComments, userTier, rateLimit, authn)
	post("/add-comment", deps.Events.AddComment, userTier, rateLimit, authn)
	post("/add-reply", deps.Events.AddReply, userTier, rateLimit, authn)
	post("/edit-comment", deps.Events.EditComment, userTier, rateLimit, authn)
	post("/edit-reply", deps.Events.EditReply, userTier, rateLimit, authn)
	post("/delete-comment", deps.Events.DeleteComment, userTier, rateLimit, authn)
	post("/delete-reply", deps.Events.DeleteReply, userTier, rateLimit, authn)

	// platform endpoints
	mux.HandleFunc("GET /healthz", deps.Health.Liveness)
	mux.HandleFunc("GET /readyz", deps.Health.Readiness)
	mux.Handle("GET /version", VersionHandler(deps.Version, deps.GitCommit, deps.BuildDate))
	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	chain := []func(http.Handler) http.Handler{
		middleware.SecurityHeaders(env == "production"),
		middleware.CORS(deps.Config.Server.FrontendURL, deps.Logger),
		middleware.CorrelationID(deps.Logger),
		middleware.RequestLogging(),
		metrics.HTTPMiddleware,
		middleware.RequestSize(middleware.MaxBodySize),
	}

	var handler http.Handler = mux
	for i := len(chain) - 1; i >= 0; i-- {
		handler = chain[i](handler)
	}
	return handler
}

package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/nzassa/verify/internal/verify/service"
	"github.com/nzassa/verify/internal/verify/store"
	"github.com/nzassa/verify/pkg/httpx"
	"github.com/nzassa/verify/pkg/jwtx"
	"github.com/nzassa/verify/pkg/slogx"

	_ "github.com/nzassa/verify/api/verify" // Swagger docs
	httpSwagger "github.com/swaggo/http-swagger"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	verifier     jwtx.Verifier
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store           store.Store
	SessionService  *service.SessionService
	DispatchService *service.DispatchService
	VerifyService   *service.VerifyService
}

func NewRouter(
	verifier jwtx.Verifier,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		verifier:     verifier,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerVerification()
	r.registerSystem()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Nzassa Verification Service API
//	@version		0.1.0
//	@description	Two-factor verification flows for the Nzassa marketplace: session
//	@description	creation, channel selection (authenticator app or SMS), code dispatch
//	@description	with resend cooldown, and 6-digit code verification.
//
//	@contact.name				Nzassa Platform Team
//	@contact.url				https://github.com/nzassa/verify
//
//	@license.name				MIT
//	@license.url				https://opensource.org/licenses/MIT
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				JWT access token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// ScopeAccountVerify is the marketplace scope granting access to the
// verification flow.
const ScopeAccountVerify = "account:verify"

func (r *Router) registerVerification() {
	h := &VerificationHandler{
		SessionService:  r.SessionService,
		DispatchService: r.DispatchService,
		VerifyService:   r.VerifyService,
	}

	authn := httpx.AuthnMiddleware(r.verifier)
	scope := httpx.RequireAnyScope(ScopeAccountVerify)

	// Session lifecycle - moderate rate limit per user
	r.Mux.Handle("POST /v1/verification",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			authn,
			scope,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("GET /v1/verification/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleGet),
			authn,
			scope,
			httpx.RateLimitByUser(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/verification/{id}/channel",
		httpx.Chain(http.HandlerFunc(h.HandleChannel),
			authn,
			scope,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
	r.Mux.Handle("DELETE /v1/verification/{id}",
		httpx.Chain(http.HandlerFunc(h.HandleAbandon),
			authn,
			scope,
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)

	// Dispatch and submission - strict rate limit, these drive SMS spend
	// and brute-force exposure
	r.Mux.Handle("POST /v1/verification/{id}/dispatch",
		httpx.Chain(http.HandlerFunc(h.HandleDispatch),
			authn,
			scope,
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/verification/{id}/resend",
		httpx.Chain(http.HandlerFunc(h.HandleResend),
			authn,
			scope,
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/verification/{id}/submit",
		httpx.Chain(http.HandlerFunc(h.HandleSubmit),
			authn,
			scope,
			httpx.RateLimitByUser(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

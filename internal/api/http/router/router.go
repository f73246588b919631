package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/dtroode/accounts-server/internal/api/http/handler"
	"github.com/dtroode/accounts-server/internal/api/http/middleware"
	"github.com/dtroode/accounts-server/internal/api/http/response"
	"github.com/dtroode/accounts-server/internal/logger"
	"github.com/dtroode/accounts-server/internal/metrics"
	"github.com/dtroode/accounts-server/internal/model"
)

// Options tunes the outer HTTP surface.
type Options struct {
	RequestTimeout time.Duration
	IPRateLimit    int
	IPRatePeriod   time.Duration
	AllowedOrigins []string
	MetricsPath    string
	AvatarMaxBytes int64
	// Gatherer backs the metrics endpoint. Nil disables it.
	Gatherer prometheus.Gatherer
}

// Router wires the account handlers and middleware onto a chi mux.
type Router struct {
	accountService handler.AccountService
	tokenService   middleware.TokenService
	contextManager model.ContextManager
	opts           Options
	logger         *logger.Logger
}

// New creates a new Router instance.
func New(
	accountService handler.AccountService,
	tokenService middleware.TokenService,
	contextManager model.ContextManager,
	opts Options,
	logger *logger.Logger,
) *Router {
	return &Router{
		accountService: accountService,
		tokenService:   tokenService,
		contextManager: contextManager,
		opts:           opts,
		logger:         logger,
	}
}

// Register builds the HTTP handler with every route mounted.
func (r *Router) Register() http.Handler {
	accounts := handler.NewAccount(r.accountService, r.contextManager, r.opts.AvatarMaxBytes, r.logger)
	authenticate := middleware.NewAuthenticate(r.tokenService, r.contextManager, r.logger)
	logging := middleware.NewLogging(r.logger)

	mux := chi.NewRouter()

	mux.Use(chimw.RequestID)
	mux.Use(chimw.RealIP)
	mux.Use(logging.Handle)
	mux.Use(middleware.Metrics)
	mux.Use(chimw.Recoverer)
	if r.opts.RequestTimeout > 0 {
		mux.Use(chimw.Timeout(r.opts.RequestTimeout))
	}
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins:   r.opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-RateLimit-Remaining", "X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	if r.opts.IPRateLimit > 0 {
		mux.Use(httprate.Limit(
			r.opts.IPRateLimit,
			r.opts.IPRatePeriod,
			httprate.WithKeyFuncs(httprate.KeyByIP),
			httprate.WithLimitHandler(func(w http.ResponseWriter, _ *http.Request) {
				response.Error(w, model.NewRateLimited("too many requests"))
			}),
		))
	}

	mux.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		response.Error(w, model.NewNotFound("route not found"))
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		response.JSON(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	mux.Get("/healthz", accounts.Health)
	if r.opts.Gatherer != nil && r.opts.MetricsPath != "" {
		mux.Handle(r.opts.MetricsPath, metrics.Handler(r.opts.Gatherer))
	}

	mux.Route("/auth", func(auth chi.Router) {
		auth.Post("/register", accounts.Register)
		auth.Post("/token", accounts.Token)
		auth.Post("/token/refresh", accounts.Refresh)
		auth.Post("/sms/send", accounts.SendSMS)
		auth.Post("/sms/login", accounts.SMSLogin)
	})

	mux.Route("/accounts", func(acc chi.Router) {
		acc.Get("/{id}/avatar", accounts.Avatar)

		acc.Group(func(private chi.Router) {
			private.Use(authenticate.Handle)

			private.Get("/", accounts.List)
			private.Get("/me", accounts.Me)
			private.Put("/me/password", accounts.ChangePassword)
			private.Put("/me/avatar", accounts.UploadAvatar)
			private.Get("/deleted", accounts.ListDeleted)
			private.Get("/{id}", accounts.Get)
			private.Patch("/{id}", accounts.Update)
			private.Delete("/{id}", accounts.SoftDelete)
			private.Post("/{id}/restore", accounts.Restore)
			private.Delete("/{id}/hard", accounts.HardDelete)
		})
	})

	return mux
}

package http

import (
	"net/http"
	"time"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"sharelooped/internal/config"
	"sharelooped/internal/i18n"
	"sharelooped/internal/session"
)

// RouterDeps bundles everything the router wires together.
type RouterDeps struct {
	Manager *session.Manager
	Google  googleAuthenticator // nil disables the OAuth endpoints
	Catalog *i18n.Catalog
	State   *i18n.State
	Metrics http.Handler // nil disables /metrics
	Logger  *slog.Logger
}

// NewRouter wires application routes and middleware using chi.
func NewRouter(cfg config.Config, deps RouterDeps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(newSecurityHeadersMiddleware(cfg.Environment))
	r.Use(newSlogMiddleware(deps.Logger))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"status":      "ok",
			"environment": cfg.Environment,
		})
	})

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	sessionHandler := NewSessionHandler(deps.Manager, cfg.SessionTTL, cfg.Environment, deps.Logger)
	i18nHandler := NewI18nHandler(deps.Catalog, deps.State, deps.Logger)

	r.Route("/api", func(r chi.Router) {
		// The session watch stream is long-lived and ends on client
		// disconnect, so it stays outside the request timeout.
		r.Get("/auth/session/watch", sessionHandler.Watch)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(60 * time.Second))

			r.Post("/auth/register", sessionHandler.Register)
			r.Post("/auth/login", sessionHandler.Login)
			r.Get("/auth/session", sessionHandler.Status)
			r.Delete("/auth/session", sessionHandler.Logout)

			if deps.Google != nil {
				oauthHandler := NewOAuthHandler(deps.Google, deps.Manager, cfg.SessionTTL, cfg.FrontendURL, cfg.Environment, deps.Logger)
				r.Get("/auth/google", oauthHandler.InitiateGoogle)
				r.Get("/auth/google/callback", oauthHandler.CallbackGoogle)
			} else {
				deps.Logger.Warn("Google OAuth not configured; federated login disabled")
			}

			r.Get("/i18n/translate", i18nHandler.TranslateOne)
			r.Get("/i18n/{section}", i18nHandler.Section)

			r.Get("/language", i18nHandler.GetLanguage)
			r.Put("/language", i18nHandler.SetLanguage)

			r.Group(func(r chi.Router) {
				r.Use(newAuthMiddleware(deps.Manager, deps.Logger))
				r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
					writeJSON(w, http.StatusOK, IdentityFromContext(r.Context()))
				})
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found")
	})

	return r
}

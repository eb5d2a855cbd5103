package http

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/svca/portal/internal/apperr"
	"github.com/svca/portal/internal/auth"
	"github.com/svca/portal/internal/config"
	"github.com/svca/portal/internal/gateway"
	"github.com/svca/portal/internal/geocode"
	"github.com/svca/portal/internal/guard"
	httpmiddleware "github.com/svca/portal/internal/http/middleware"
	"github.com/svca/portal/internal/policy"
	"github.com/svca/portal/internal/session"
)

// Deps reúne as dependências do roteador.
type Deps struct {
	Config    *config.Config
	Persister session.Persister
	Gateway   *gateway.Client
	Geocoder  *geocode.Client
	Tokens    *auth.TokenManager
	// Ready verifica dependências externas; nil considera o portal pronto.
	Ready func(ctx context.Context) error
}

type Handler struct {
	cfg           *config.Config
	gateway       *gateway.Client
	geocoder      *geocode.Client
	nav           *guard.Navigator
	ready         func(ctx context.Context) error
	publicLimiter *httpmiddleware.RateLimiter
	authLimiter   *httpmiddleware.RateLimiter
	sessions      httpmiddleware.SessionConfig
	now           func() time.Time
}

// NewRouter devolve roteador configurado.
func NewRouter(deps Deps) http.Handler {
	cfg := deps.Config
	h := &Handler{
		cfg:           cfg,
		gateway:       deps.Gateway,
		geocoder:      deps.Geocoder,
		nav:           guard.NewNavigator(),
		ready:         deps.Ready,
		publicLimiter: httpmiddleware.NewRateLimiter(cfg.RateLimitPublic.RequestsPerSecond, cfg.RateLimitPublic.Burst),
		authLimiter:   httpmiddleware.NewRateLimiter(cfg.RateLimitAuth.RequestsPerSecond, cfg.RateLimitAuth.Burst),
		now:           time.Now,
	}

	secure := len(cfg.AllowOrigins) > 0
	for _, origin := range cfg.AllowOrigins {
		if strings.Contains(origin, "localhost") {
			secure = false
			break
		}
	}

	h.sessions = httpmiddleware.SessionConfig{
		Tokens:    deps.Tokens,
		Persister: deps.Persister,
		Secure:    secure,
	}

	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(httpmiddleware.Recover)
	r.Use(httpmiddleware.CORS(httpmiddleware.CORSConfig{
		AllowOrigins: cfg.AllowOrigins,
		Prefix:       "/api",
		MaxAge:       10 * time.Minute,
	}))

	r.Group(func(ops chi.Router) {
		ops.Use(httpmiddleware.Logging)
		ops.Get("/health", h.Health)
		ops.Get("/ready", h.Ready)
		if cfg.MetricsEnabled {
			ops.Handle("/metrics", promhttp.Handler())
		}
	})

	r.Group(func(app chi.Router) {
		app.Use(httpmiddleware.IPRateLimit(h.publicLimiter))
		app.Use(httpmiddleware.Sessions(h.sessions))
		app.Use(httpmiddleware.Logging)

		app.Route("/api", func(api chi.Router) {
			api.Get("/session", h.Session)
			api.Get("/navigate", h.Navigate)
			api.Get("/ranking", h.Ranking)

			api.Route("/auth", func(a chi.Router) {
				a.Post("/login", h.Login)
				a.Post("/logout", h.Logout)
				a.Post("/register", h.Register)
				a.Post("/forgot-password", h.ForgotPassword)
				a.Post("/reset-password/{token}", h.ResetPassword)
			})

			api.Group(func(user chi.Router) {
				user.Use(httpmiddleware.RequireAccess(policy.AccessUsuario))
				user.Use(httpmiddleware.SessionRateLimit(h.authLimiter))

				user.Get("/dashboard", h.Dashboard)
				user.Get("/profile", h.GetProfile)
				user.Put("/profile", h.UpdateProfile)
				user.Get("/profile/page", h.ProfilePage)
				user.Get("/my-occurrences", h.MyOccurrences)
				user.Post("/occurrences", h.CreateOccurrence)
				user.Get("/occurrences/{id}", h.ViewOccurrence)
				user.Get("/status", h.ListStatus)
				user.Get("/map", h.MapFeatures)
				user.Get("/map/sidebar", h.MapSidebar)
				user.Get("/geocode", h.Geocode)
			})

			api.Group(func(mod chi.Router) {
				mod.Use(httpmiddleware.RequireAccess(policy.AccessModerador))
				mod.Use(httpmiddleware.SessionRateLimit(h.authLimiter))

				mod.Route("/manage/occurrences", func(m chi.Router) {
					m.Get("/", h.ListOccurrences)
					m.Get("/{id}", h.ManageOccurrence)
					m.Put("/{id}", h.UpdateOccurrence)
					m.Delete("/{id}", h.DeleteOccurrence)
					m.Post("/{id}/notifications", h.SendNotification)
				})
				mod.Route("/organizations", func(o chi.Router) {
					o.Get("/", h.ListOrganizations)
					o.Post("/", h.CreateOrganization)
					o.Get("/{id}", h.GetOrganization)
					o.Put("/{id}", h.UpdateOrganization)
					o.Delete("/{id}", h.DeleteOrganization)
				})
			})

			api.Group(func(admin chi.Router) {
				admin.Use(httpmiddleware.RequireAccess(policy.AccessAdministrador))
				admin.Use(httpmiddleware.SessionRateLimit(h.authLimiter))

				admin.Get("/users", h.ListUsers)
				admin.Put("/users/{id}", h.UpdateUser)
				admin.Delete("/users/{id}", h.DeleteUser)
				admin.Get("/profiles", h.ListProfiles)
			})
		})

		app.With(httpmiddleware.RequirePage(h.nav)).Get("/*", h.Page)
	})

	return r
}

// Health responde status simples.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Ready valida a conexão com o armazenamento de sessões.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	if h.ready == nil {
		WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.ready(ctx); err != nil {
		WriteError(w, http.StatusServiceUnavailable, "INTERNAL", "dependências indisponíveis", map[string]any{
			"sessions": err.Error(),
		})
		return
	}

	WriteJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

func (h *Handler) store(r *http.Request) *session.Store {
	return httpmiddleware.StoreFrom(r.Context())
}

// backend devolve o gateway usando os cookies da sessão atual.
func (h *Handler) backend(r *http.Request) *gateway.Client {
	return h.gateway.WithJar(h.store(r).Jar())
}

func (h *Handler) capabilities(r *http.Request) policy.Capabilities {
	store := h.store(r)
	return policy.CapabilitiesFor(store.Authenticated(), store.CurrentRole())
}

// fail aplica o erro à sessão e responde. Se a sessão foi encerrada, o
// cliente recebe o destino de login em details.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error, pageLoad bool) {
	if h.store(r).Observe(r.Context(), err, pageLoad) {
		writeAppError(w, err, map[string]string{"redirect": policy.PathLogin})
		return
	}
	if k := apperr.KindOf(err); k == apperr.KindServer || k == apperr.KindNetwork || k == apperr.KindUnknown {
		log.Warn().Err(err).Str("path", r.URL.Path).Msg("falha ao atender requisição")
	}
	writeAppError(w, err, nil)
}

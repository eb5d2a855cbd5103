package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/svca/portal/internal/auth"
	"github.com/svca/portal/internal/policy"
	"github.com/svca/portal/internal/session"
)

type contextKey string

const contextKeyStore contextKey = "session_store"

// SessionConfig descreve como o cookie do portal é emitido.
type SessionConfig struct {
	Tokens    *auth.TokenManager
	Persister session.Persister
	// Secure desliga o atributo Secure em desenvolvimento local.
	Secure bool
}

// Sessions abre o Store referenciado pelo cookie do portal e o injeta no
// contexto. Sem cookie válido, uma nova chave é emitida. Cookies renovados
// pelo backend são persistidos ao fim da requisição.
func Sessions(cfg SessionConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sid := ""
			if c, err := r.Cookie(auth.CookieName); err == nil {
				if parsed, err := cfg.Tokens.Parse(c.Value); err == nil {
					sid = parsed
				}
			}
			if sid == "" {
				sid = auth.NewSessionID()
				if err := IssueSessionCookie(w, cfg, sid); err != nil {
					log.Error().Err(err).Msg("falha ao emitir cookie de sessão")
					writeError(w, http.StatusInternalServerError, "INTERNAL", "erro interno")
					return
				}
			}

			store, err := session.Open(r.Context(), cfg.Persister, sid)
			if err != nil {
				log.Error().Err(err).Str("component", "session").Msg("falha ao carregar sessão")
				writeError(w, http.StatusServiceUnavailable, "INTERNAL", "sessão indisponível")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithStore(r.Context(), store)))

			if err := store.Flush(context.WithoutCancel(r.Context())); err != nil {
				log.Warn().Err(err).Str("component", "session").Msg("falha ao persistir cookies do backend")
			}
		})
	}
}

// IssueSessionCookie assina sid e grava o cookie do portal.
func IssueSessionCookie(w http.ResponseWriter, cfg SessionConfig, sid string) error {
	token, err := cfg.Tokens.Issue(sid)
	if err != nil {
		return err
	}
	SetSessionCookie(w, token, time.Now().Add(cfg.Tokens.TTL()), cfg.Secure)
	return nil
}

// RotateSession troca a chave do Store e reemite o cookie. Chamado quando a
// sessão passa de anônima para autenticada.
func RotateSession(ctx context.Context, w http.ResponseWriter, cfg SessionConfig, store *session.Store) error {
	sid := auth.NewSessionID()
	if err := store.Rotate(ctx, sid); err != nil {
		return err
	}
	return IssueSessionCookie(w, cfg, sid)
}

// SetSessionCookie grava o cookie do portal.
func SetSessionCookie(w http.ResponseWriter, token string, expires time.Time, secure bool) {
	sameSite := http.SameSiteLaxMode
	if secure {
		sameSite = http.SameSiteNoneMode
	}
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   secure,
		SameSite: sameSite,
	})
}

// WithStore injeta o Store no contexto.
func WithStore(ctx context.Context, store *session.Store) context.Context {
	return context.WithValue(ctx, contextKeyStore, store)
}

// StoreFrom recupera o Store da requisição.
func StoreFrom(ctx context.Context) *session.Store {
	store, _ := ctx.Value(contextKeyStore).(*session.Store)
	return store
}

// RequireAccess restringe endpoints de API ao nível informado. Sem sessão
// responde 401; perfil insuficiente responde 403.
func RequireAccess(level policy.Access) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			store := StoreFrom(r.Context())
			authenticated := store != nil && store.Authenticated()
			if level != policy.AccessPublic && !authenticated {
				writeError(w, http.StatusUnauthorized, "AUTH", "sessão ausente")
				return
			}
			role := session.RoleAnonymous
			if store != nil {
				role = store.CurrentRole()
			}
			if !policy.Allows(authenticated, role, policy.Route{Access: level}) {
				writeError(w, http.StatusForbidden, "FORBIDDEN", "acesso restrito a "+level.String())
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"data": nil,
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

package middleware

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/svca/portal/internal/guard"
	"github.com/svca/portal/internal/metrics"
	"github.com/svca/portal/internal/session"
)

const contextKeyDecision contextKey = "guard_decision"

type anonymous struct{}

func (anonymous) Authenticated() bool       { return false }
func (anonymous) CurrentRole() session.Role { return session.RoleAnonymous }

// RequirePage aplica o guard de rotas a caminhos de página. Caminhos não
// visíveis, inclusive desconhecidos, recebem 303 para o fallback; o
// redirecionamento substitui a entrada do histórico.
func RequirePage(nav *guard.Navigator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var viewer guard.Viewer = anonymous{}
			if store := StoreFrom(r.Context()); store != nil {
				viewer = store
			}

			d := nav.Evaluate(viewer, r.URL.Path)
			metrics.GuardDecisionsTotal.WithLabelValues(d.State.String()).Inc()
			if d.State != guard.StateAllowed {
				log.Debug().Str("component", "guard").Str("path", d.Path).Str("target", d.Target).Msg("redirecionando página")
				http.Redirect(w, r, d.Target, http.StatusSeeOther)
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), contextKeyDecision, d)))
		})
	}
}

// DecisionFrom recupera a decisão do guard para a página atual.
func DecisionFrom(ctx context.Context) (guard.Decision, bool) {
	d, ok := ctx.Value(contextKeyDecision).(guard.Decision)
	return d, ok
}

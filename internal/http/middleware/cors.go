package middleware

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// CORSConfig limita o compartilhamento de recursos ao front-end do portal.
type CORSConfig struct {
	// AllowOrigins aceita origens exatas (http://localhost:3000) e
	// subdomínios com *. (*.svca.org.br).
	AllowOrigins []string
	// Prefix restringe a política a um grupo de rotas, ex.: /api.
	Prefix string
	MaxAge time.Duration
}

var (
	corsMethods = []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}
	corsHeaders = "Content-Type, X-Requested-With, X-Request-Id"
)

type originMatcher struct {
	exact    map[string]struct{}
	suffixes []string
}

func newOriginMatcher(entries []string) originMatcher {
	m := originMatcher{exact: make(map[string]struct{}, len(entries))}
	for _, entry := range entries {
		e := strings.ToLower(strings.TrimSpace(entry))
		switch {
		case e == "":
		case strings.HasPrefix(e, "*."):
			m.suffixes = append(m.suffixes, e[1:])
		default:
			m.exact[strings.TrimRight(e, "/")] = struct{}{}
		}
	}
	return m
}

func (m originMatcher) allows(origin string) bool {
	origin = strings.ToLower(origin)
	if _, ok := m.exact[origin]; ok {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	for _, suffix := range m.suffixes {
		// exige subdomínio: o domínio raiz não casa com *.dominio
		if strings.HasSuffix(host, suffix) && host != suffix[1:] {
			return true
		}
	}
	return false
}

func corsMethodAllowed(method string) bool {
	for _, m := range corsMethods {
		if m == method {
			return true
		}
	}
	return false
}

// CORS libera o Origin configurado com credenciais, já que a sessão vive no
// cookie do portal. Preflight de origem ou método não liberado recebe 403
// antes de abrir sessão; requisições simples seguem sem cabeçalhos CORS.
func CORS(cfg CORSConfig) func(http.Handler) http.Handler {
	matcher := newOriginMatcher(cfg.AllowOrigins)
	maxAge := ""
	if cfg.MaxAge > 0 {
		maxAge = strconv.Itoa(int(cfg.MaxAge.Seconds()))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" || !strings.HasPrefix(r.URL.Path, cfg.Prefix) {
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Add("Vary", "Origin")
			allowed := matcher.allows(origin)
			preflight := r.Method == http.MethodOptions && r.Header.Get("Access-Control-Request-Method") != ""

			if preflight {
				w.Header().Add("Vary", "Access-Control-Request-Method")
				if !allowed || !corsMethodAllowed(r.Header.Get("Access-Control-Request-Method")) {
					writeError(w, http.StatusForbidden, "FORBIDDEN", "origem não autorizada")
					return
				}
				h := w.Header()
				h.Set("Access-Control-Allow-Origin", origin)
				h.Set("Access-Control-Allow-Credentials", "true")
				h.Set("Access-Control-Allow-Methods", strings.Join(corsMethods, ","))
				h.Set("Access-Control-Allow-Headers", corsHeaders)
				if maxAge != "" {
					h.Set("Access-Control-Max-Age", maxAge)
				}
				w.WriteHeader(http.StatusNoContent)
				return
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}
			next.ServeHTTP(w, r)
		})
	}
}

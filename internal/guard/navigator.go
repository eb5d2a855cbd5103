package guard

import (
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/svca/portal/internal/policy"
	"github.com/svca/portal/internal/session"
)

// State é a etapa de uma tentativa de navegação.
type State int

const (
	StateIdle State = iota
	StateEvaluating
	StateAllowed
	StateRedirecting
)

func (s State) String() string {
	switch s {
	case StateEvaluating:
		return "evaluating"
	case StateAllowed:
		return "allowed"
	case StateRedirecting:
		return "redirecting"
	default:
		return "idle"
	}
}

func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Viewer é a visão da sessão que o guard consulta.
type Viewer interface {
	Authenticated() bool
	CurrentRole() session.Role
}

// Decision é o resultado de uma navegação.
type Decision struct {
	State   State             `json:"state"`
	Path    string            `json:"path"`
	Route   *policy.Route     `json:"route,omitempty"`
	Params  map[string]string `json:"params,omitempty"`
	Target  string            `json:"target,omitempty"`
	Replace bool              `json:"replace"`
}

// Navigator resolve caminhos contra a tabela de rotas e aplica a política.
// Nunca acessa a rede.
type Navigator struct {
	mux      *chi.Mux
	patterns map[string]policy.Route

	mu       sync.Mutex
	state    State
	observer func(from, to State)
}

// NewNavigator monta a árvore de rotas a partir da política.
func NewNavigator() *Navigator {
	n := &Navigator{
		mux:      chi.NewRouter(),
		patterns: make(map[string]policy.Route),
	}
	noop := func(http.ResponseWriter, *http.Request) {}
	for _, r := range policy.Routes() {
		n.mux.Get(r.Pattern, noop)
		n.patterns[r.Pattern] = r
	}
	return n
}

// OnTransition registra callback para cada mudança de estado.
func (n *Navigator) OnTransition(fn func(from, to State)) {
	n.mu.Lock()
	n.observer = fn
	n.mu.Unlock()
}

// State devolve o estado da última tentativa.
func (n *Navigator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

// Resolve encontra a rota declarada para path.
func (n *Navigator) Resolve(path string) (policy.Route, map[string]string, bool) {
	path = normalize(path)
	rctx := chi.NewRouteContext()
	if !n.mux.Match(rctx, http.MethodGet, path) || len(rctx.RoutePatterns) == 0 {
		return policy.Route{}, nil, false
	}
	route, ok := n.patterns[rctx.RoutePatterns[len(rctx.RoutePatterns)-1]]
	if !ok {
		return policy.Route{}, nil, false
	}
	var params map[string]string
	if len(rctx.URLParams.Keys) > 0 {
		params = make(map[string]string, len(rctx.URLParams.Keys))
		for i, key := range rctx.URLParams.Keys {
			params[key] = rctx.URLParams.Values[i]
		}
	}
	return route, params, true
}

// Evaluate calcula a decisão sem alterar o estado do navigator.
func (n *Navigator) Evaluate(v Viewer, path string) Decision {
	path = normalize(path)
	authenticated := v.Authenticated()
	role := v.CurrentRole()

	route, params, ok := n.Resolve(path)
	if ok && policy.Allows(authenticated, role, route) {
		return Decision{State: StateAllowed, Path: path, Route: &route, Params: params}
	}

	d := Decision{
		State:   StateRedirecting,
		Path:    path,
		Target:  policy.Fallback(authenticated),
		Replace: true,
	}
	if ok {
		d.Route = &route
	}
	return d
}

// Navigate executa uma tentativa completa: Idle → Evaluating → Allowed | Redirecting.
func (n *Navigator) Navigate(v Viewer, path string) Decision {
	n.transition(StateEvaluating)
	d := n.Evaluate(v, path)
	n.transition(d.State)
	return d
}

func (n *Navigator) transition(to State) {
	n.mu.Lock()
	from := n.state
	n.state = to
	observer := n.observer
	n.mu.Unlock()
	if observer != nil {
		observer(from, to)
	}
}

func normalize(path string) string {
	if u, err := url.Parse(path); err == nil {
		path = u.Path
	}
	if path == "" {
		return "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			path = "/"
		}
	}
	return path
}

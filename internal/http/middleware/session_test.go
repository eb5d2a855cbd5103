package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/svca/portal/internal/auth"
	"github.com/svca/portal/internal/guard"
	"github.com/svca/portal/internal/policy"
	"github.com/svca/portal/internal/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func loggedIn(t *testing.T, persister session.Persister, tokens *auth.TokenManager, role session.Role) *http.Cookie {
	t.Helper()
	sid := auth.NewSessionID()
	store := session.New(persister, sid)
	if err := store.Login(context.Background(), session.Identity{UserID: "1", DisplayName: "Ana", Role: role}); err != nil {
		t.Fatalf("login: %v", err)
	}
	token, err := tokens.Issue(sid)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	return &http.Cookie{Name: auth.CookieName, Value: token}
}

func TestSessionsIssuesCookieForNewVisitor(t *testing.T) {
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	var seen *session.Store
	h := Sessions(SessionConfig{Tokens: tokens, Persister: session.NewMemoryPersister()})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = StoreFrom(r.Context())
		}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if seen == nil || seen.Authenticated() {
		t.Fatalf("expected anonymous store, got %+v", seen)
	}
	cookies := rec.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Name != auth.CookieName {
		t.Fatalf("cookies = %+v", cookies)
	}
	sid, err := tokens.Parse(cookies[0].Value)
	if err != nil || sid != seen.Key() {
		t.Fatalf("cookie sid = %q (%v), store key %q", sid, err, seen.Key())
	}
}

func TestSessionsRestoresExistingSession(t *testing.T) {
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	persister := session.NewMemoryPersister()
	cookie := loggedIn(t, persister, tokens, session.RoleModerador)

	var role session.Role
	h := Sessions(SessionConfig{Tokens: tokens, Persister: persister})(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role = StoreFrom(r.Context()).CurrentRole()
		}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if role != session.RoleModerador {
		t.Fatalf("role = %v", role)
	}
	if len(rec.Result().Cookies()) != 0 {
		t.Fatalf("valid cookie should not be reissued")
	}
}

func TestRequireAccess(t *testing.T) {
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	persister := session.NewMemoryPersister()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })

	cases := []struct {
		name   string
		role   session.Role
		level  policy.Access
		status int
	}{
		{name: "anonimo", level: policy.AccessUsuario, status: http.StatusUnauthorized},
		{name: "usuario em moderacao", role: session.RoleUsuario, level: policy.AccessModerador, status: http.StatusForbidden},
		{name: "moderador em moderacao", role: session.RoleModerador, level: policy.AccessModerador, status: http.StatusNoContent},
		{name: "moderador em administracao", role: session.RoleModerador, level: policy.AccessAdministrador, status: http.StatusForbidden},
		{name: "administrador", role: session.RoleAdministrador, level: policy.AccessAdministrador, status: http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := Sessions(SessionConfig{Tokens: tokens, Persister: persister})(RequireAccess(tc.level)(ok))
			req := httptest.NewRequest(http.MethodGet, "/api/x", nil)
			if tc.role != session.RoleAnonymous {
				req.AddCookie(loggedIn(t, persister, tokens, tc.role))
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tc.status {
				t.Fatalf("status = %d, want %d", rec.Code, tc.status)
			}
		})
	}
}

func TestRequirePage(t *testing.T) {
	nav := guard.NewNavigator()
	var got guard.Decision
	h := RequirePage(nav)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = DecisionFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/perfil", nil))
	if rec.Code != http.StatusSeeOther || rec.Header().Get("Location") != policy.PathLogin {
		t.Fatalf("anonymous /perfil: %d %q", rec.Code, rec.Header().Get("Location"))
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reset-password/abc", nil))
	if rec.Code != http.StatusOK || got.State != guard.StateAllowed || got.Params["token"] != "abc" {
		t.Fatalf("reset page: %d %+v", rec.Code, got)
	}
}

func TestSessionRateLimitSkipsAnonymous(t *testing.T) {
	limiter := NewRateLimiter(0.001, 1)
	tokens := auth.NewTokenManager(testSecret, time.Hour)
	persister := session.NewMemoryPersister()
	ok := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) })
	h := Sessions(SessionConfig{Tokens: tokens, Persister: persister})(SessionRateLimit(limiter)(ok))

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("anonymous request %d limited: %d", i, rec.Code)
		}
	}

	cookie := loggedIn(t, persister, tokens, session.RoleUsuario)
	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(cookie)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[0] != http.StatusNoContent || codes[1] != http.StatusTooManyRequests {
		t.Fatalf("codes = %v", codes)
	}
}

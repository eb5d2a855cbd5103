package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/svca/portal/internal/auth"
	"github.com/svca/portal/internal/config"
	"github.com/svca/portal/internal/gateway"
	"github.com/svca/portal/internal/geocode"
	"github.com/svca/portal/internal/session"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type backendStub struct {
	profile string
	userID  int
	mux     *http.ServeMux
	puts    atomic.Int32
	deletes atomic.Int32
}

func newBackendStub(profile string, userID int) *backendStub {
	b := &backendStub{profile: profile, userID: userID, mux: http.NewServeMux()}
	b.mux.HandleFunc("/login", func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, &http.Cookie{Name: "session", Value: "backend-sid", Path: "/"})
		writeStubJSON(w, http.StatusOK, map[string]any{
			"message":      "Login realizado com sucesso!",
			"user_id":      b.userID,
			"user_name":    "Ana",
			"user_profile": b.profile,
		})
	})
	b.mux.HandleFunc("/logout", func(w http.ResponseWriter, r *http.Request) {
		writeStubJSON(w, http.StatusOK, map[string]string{"message": "Logout realizado"})
	})
	b.mux.HandleFunc("/status-ocorrencias", func(w http.ResponseWriter, r *http.Request) {
		writeStubJSON(w, http.StatusOK, []map[string]any{
			{"id": 1, "nome": "Pendente"},
			{"id": 4, "nome": "Recusada"},
			{"id": 5, "nome": "Fechada com solução"},
		})
	})
	b.mux.HandleFunc("/occurrence/5", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPut:
			b.puts.Add(1)
			writeStubJSON(w, http.StatusOK, map[string]string{"message": "Ocorrência atualizada"})
		case http.MethodDelete:
			b.deletes.Add(1)
			writeStubJSON(w, http.StatusOK, map[string]string{"message": "Ocorrência excluída"})
		default:
			writeStubJSON(w, http.StatusOK, map[string]any{
				"id":            5,
				"titulo":        "Vazamento",
				"descricao":     "Cano quebrado",
				"endereco":      "Rua A, 10",
				"status_id":     1,
				"status_nome":   "Pendente",
				"data_registro": "2024-05-01 10:00:00",
				"usuario_id":    3,
				"usuario_nome":  "Bruno",
			})
		}
	})
	b.mux.HandleFunc("/user/", func(w http.ResponseWriter, r *http.Request) {
		b.deletes.Add(1)
		writeStubJSON(w, http.StatusOK, map[string]string{"message": "Usuário excluído"})
	})
	return b
}

func (b *backendStub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.mux.ServeHTTP(w, r)
}

func writeStubJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type portal struct {
	srv    *httptest.Server
	client *http.Client
}

func newPortal(t *testing.T, backend http.Handler) *portal {
	t.Helper()

	be := httptest.NewServer(backend)
	t.Cleanup(be.Close)

	gw, err := gateway.New(gateway.Config{BaseURL: be.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("gateway: %v", err)
	}

	cfg := &config.Config{
		SessionSecret:   testSecret,
		SessionTTL:      time.Hour,
		RateLimitPublic: config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
		RateLimitAuth:   config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 1000},
	}
	router := NewRouter(Deps{
		Config:    cfg,
		Persister: session.NewMemoryPersister(),
		Gateway:   gw,
		Geocoder:  geocode.New(geocode.Config{BaseURL: be.URL, Limiter: rate.NewLimiter(rate.Inf, 1)}),
		Tokens:    auth.NewTokenManager(testSecret, time.Hour),
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)

	jar, _ := cookiejar.New(nil)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &portal{srv: srv, client: client}
}

func (p *portal) do(t *testing.T, method, path string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, p.srv.URL+path, reader)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&env)
	return resp, env
}

func (p *portal) login(t *testing.T) {
	t.Helper()
	resp, env := p.do(t, http.MethodPost, "/api/auth/login", map[string]string{"email": "ana@svca.org", "password": "segredo"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d, body %v", resp.StatusCode, env)
	}
}

func errorCode(env map[string]any) string {
	e, _ := env["error"].(map[string]any)
	code, _ := e["code"].(string)
	return code
}

func TestHealth(t *testing.T) {
	p := newPortal(t, http.NotFoundHandler())
	resp, env := p.do(t, http.MethodGet, "/health", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	data, _ := env["data"].(map[string]any)
	if data["status"] != "ok" {
		t.Fatalf("unexpected body %v", env)
	}
}

func TestPageGuardRedirects(t *testing.T) {
	p := newPortal(t, newBackendStub("Usuario", 3))

	cases := []struct {
		name   string
		path   string
		login  bool
		status int
		target string
	}{
		{name: "anonimo em rota protegida", path: "/dashboard", status: http.StatusSeeOther, target: "/login"},
		{name: "anonimo em rota desconhecida", path: "/nao-existe", status: http.StatusSeeOther, target: "/login"},
		{name: "anonimo em rota publica", path: "/ranking-semanal", status: http.StatusOK},
		{name: "usuario em rota de moderador", path: "/gerenciar-ocorrencias", login: true, status: http.StatusSeeOther, target: "/dashboard"},
		{name: "usuario em rota desconhecida", path: "/nao-existe", login: true, status: http.StatusSeeOther, target: "/dashboard"},
		{name: "usuario no detalhe publico", path: "/ocorrencia/5", login: true, status: http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.login {
				p.login(t)
			}
			resp, _ := p.do(t, http.MethodGet, tc.path, nil)
			if resp.StatusCode != tc.status {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tc.status)
			}
			if tc.target != "" && resp.Header.Get("Location") != tc.target {
				t.Fatalf("location = %q, want %q", resp.Header.Get("Location"), tc.target)
			}
		})
	}
}

func TestAPIRequiresSession(t *testing.T) {
	p := newPortal(t, newBackendStub("Usuario", 3))

	resp, env := p.do(t, http.MethodGet, "/api/dashboard", nil)
	if resp.StatusCode != http.StatusUnauthorized || errorCode(env) != "AUTH" {
		t.Fatalf("anonymous dashboard: status %d code %q", resp.StatusCode, errorCode(env))
	}

	p.login(t)
	resp, env = p.do(t, http.MethodGet, "/api/dashboard", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("dashboard status = %d", resp.StatusCode)
	}
	data, _ := env["data"].(map[string]any)
	if data["greeting"] != "Ana" {
		t.Fatalf("greeting = %v", data["greeting"])
	}

	resp, env = p.do(t, http.MethodGet, "/api/users", nil)
	if resp.StatusCode != http.StatusForbidden || errorCode(env) != "FORBIDDEN" {
		t.Fatalf("usuario em /api/users: status %d code %q", resp.StatusCode, errorCode(env))
	}
}

func TestBackendCookieReachesLaterCalls(t *testing.T) {
	stub := newBackendStub("Usuario", 3)
	var seen atomic.Value
	stub.mux.HandleFunc("/my-occurrences", func(w http.ResponseWriter, r *http.Request) {
		if c, err := r.Cookie("session"); err == nil {
			seen.Store(c.Value)
		}
		writeStubJSON(w, http.StatusOK, []any{})
	})
	p := newPortal(t, stub)
	p.login(t)

	resp, _ := p.do(t, http.MethodGet, "/api/my-occurrences", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if got, _ := seen.Load().(string); got != "backend-sid" {
		t.Fatalf("backend cookie = %q", got)
	}
}

func TestPageLoadAuthFailureEndsSession(t *testing.T) {
	stub := newBackendStub("Usuario", 3)
	stub.mux.HandleFunc("/my-occurrences", func(w http.ResponseWriter, r *http.Request) {
		writeStubJSON(w, http.StatusUnauthorized, map[string]string{"error": "Não autenticado"})
	})
	p := newPortal(t, stub)
	p.login(t)

	resp, env := p.do(t, http.MethodGet, "/api/my-occurrences", nil)
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	e, _ := env["error"].(map[string]any)
	details, _ := e["details"].(map[string]any)
	if details["redirect"] != "/login" {
		t.Fatalf("details = %v", e["details"])
	}

	_, env = p.do(t, http.MethodGet, "/api/session", nil)
	data, _ := env["data"].(map[string]any)
	if data["authenticated"] != false {
		t.Fatalf("session after 401 = %v", data)
	}
}

func TestActionForbiddenKeepsSession(t *testing.T) {
	stub := newBackendStub("Moderador", 9)
	stub.mux.HandleFunc("/orgao-responsavel/2", func(w http.ResponseWriter, r *http.Request) {
		writeStubJSON(w, http.StatusForbidden, map[string]string{"error": "Sem permissão para excluir"})
	})
	p := newPortal(t, stub)
	p.login(t)

	resp, env := p.do(t, http.MethodDelete, "/api/organizations/2", nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	e, _ := env["error"].(map[string]any)
	if e["message"] != "Sem permissão para excluir" {
		t.Fatalf("message = %v", e["message"])
	}

	_, env = p.do(t, http.MethodGet, "/api/session", nil)
	data, _ := env["data"].(map[string]any)
	if data["authenticated"] != true {
		t.Fatalf("session after action 403 = %v", data)
	}
}

func TestRejectionWithoutJustificationSkipsBackend(t *testing.T) {
	stub := newBackendStub("Moderador", 9)
	p := newPortal(t, stub)
	p.login(t)

	resp, env := p.do(t, http.MethodPut, "/api/manage/occurrences/5", map[string]any{"status_id": 4})
	if resp.StatusCode != http.StatusBadRequest || errorCode(env) != "VALIDATION" {
		t.Fatalf("status %d code %q", resp.StatusCode, errorCode(env))
	}
	if n := stub.puts.Load(); n != 0 {
		t.Fatalf("backend PUT chamado %d vezes", n)
	}

	resp, env = p.do(t, http.MethodPut, "/api/manage/occurrences/5", map[string]any{
		"status_id":            4,
		"justificativa_recusa": "Fora da área atendida",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, env)
	}
	if n := stub.puts.Load(); n != 1 {
		t.Fatalf("backend PUT chamado %d vezes", n)
	}
	data, _ := env["data"].(map[string]any)
	occ, _ := data["ocorrencia"].(map[string]any)
	if occ["justificativa_recusa"] != "Fora da área atendida" {
		t.Fatalf("ocorrencia = %v", occ)
	}
	if occ["data_finalizacao"] == nil {
		t.Fatalf("recusa deveria registrar data de finalização")
	}
}

func TestPublicDetailHidesModeration(t *testing.T) {
	stub := newBackendStub("Moderador", 9)
	stub.mux.HandleFunc("/view-occurrence/5", func(w http.ResponseWriter, r *http.Request) {
		writeStubJSON(w, http.StatusOK, map[string]any{
			"id":                     5,
			"titulo":                 "Vazamento",
			"status_id":              4,
			"status_nome":            "Recusada",
			"justificativa_recusa":   "interno",
			"historico_notificacoes": []any{map[string]any{"mensagem": "x"}},
		})
	})
	p := newPortal(t, stub)
	p.login(t)

	resp, env := p.do(t, http.MethodGet, "/api/occurrences/5", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	raw, _ := json.Marshal(env["data"])
	body := string(raw)
	for _, leaked := range []string{"justificativa_recusa", "historico_notificacoes", "controles", "gerenciar"} {
		if strings.Contains(body, leaked) {
			t.Fatalf("detalhe público expõe %q: %s", leaked, body)
		}
	}
}

func TestAdminCannotDeleteOwnAccount(t *testing.T) {
	stub := newBackendStub("Administrador", 7)
	p := newPortal(t, stub)
	p.login(t)

	resp, env := p.do(t, http.MethodDelete, "/api/users/7", nil)
	if resp.StatusCode != http.StatusBadRequest || errorCode(env) != "VALIDATION" {
		t.Fatalf("status %d code %q", resp.StatusCode, errorCode(env))
	}
	if n := stub.deletes.Load(); n != 0 {
		t.Fatalf("backend DELETE chamado %d vezes", n)
	}

	resp, _ = p.do(t, http.MethodDelete, "/api/users/8", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	if n := stub.deletes.Load(); n != 1 {
		t.Fatalf("backend DELETE chamado %d vezes", n)
	}
}

func TestLogoutClearsSession(t *testing.T) {
	p := newPortal(t, newBackendStub("Usuario", 3))
	p.login(t)

	resp, _ := p.do(t, http.MethodPost, "/api/auth/logout", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("logout status = %d", resp.StatusCode)
	}
	resp, _ = p.do(t, http.MethodGet, "/dashboard", nil)
	if resp.StatusCode != http.StatusSeeOther || resp.Header.Get("Location") != "/login" {
		t.Fatalf("dashboard after logout: %d %q", resp.StatusCode, resp.Header.Get("Location"))
	}
}

func portalCookie(t *testing.T, p *portal) *http.Cookie {
	t.Helper()
	u, _ := url.Parse(p.srv.URL)
	for _, c := range p.client.Jar.Cookies(u) {
		if c.Name == auth.CookieName {
			return c
		}
	}
	return nil
}

func TestLoginRotatesPortalSession(t *testing.T) {
	p := newPortal(t, newBackendStub("Usuario", 3))

	p.do(t, http.MethodGet, "/api/session", nil)
	before := portalCookie(t, p)
	if before == nil {
		t.Fatal("anonymous visitor should receive a portal cookie")
	}

	p.login(t)
	after := portalCookie(t, p)
	if after == nil || after.Value == before.Value {
		t.Fatalf("portal cookie not rotated on login")
	}

	req, _ := http.NewRequest(http.MethodGet, p.srv.URL+"/api/session", nil)
	req.AddCookie(&http.Cookie{Name: auth.CookieName, Value: before.Value})
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var env map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&env)
	data, _ := env["data"].(map[string]any)
	if data["authenticated"] != false {
		t.Fatalf("pre-login cookie still authenticated: %v", data)
	}
}

func TestUpdateUserKeepsOmittedFields(t *testing.T) {
	stub := newBackendStub("Administrador", 9)
	stub.mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		writeStubJSON(w, http.StatusOK, []map[string]any{
			{"id": 7, "nome": "Bia", "email": "bia@svca.org", "telefone": "83988887777", "perfil": "Usuario", "perfil_id": 1, "pontos": 40},
		})
	})
	var sent atomic.Value
	stub.mux.HandleFunc("/user/7", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		sent.Store(body)
		writeStubJSON(w, http.StatusOK, map[string]string{"message": "Usuário atualizado"})
	})
	p := newPortal(t, stub)
	p.login(t)

	resp, env := p.do(t, http.MethodPut, "/api/users/7", map[string]any{"perfil_id": 2})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, env)
	}
	body, _ := sent.Load().(map[string]any)
	if body["nome"] != "Bia" || body["email"] != "bia@svca.org" || body["telefone"] != "83988887777" {
		t.Fatalf("contact data lost: %v", body)
	}
	if body["pontos"] != float64(40) || body["perfil_id"] != float64(2) {
		t.Fatalf("pontos/perfil = %v", body)
	}

	sent.Store(map[string]any(nil))
	resp, env = p.do(t, http.MethodPut, "/api/users/7", map[string]any{"nome": ""})
	if resp.StatusCode != http.StatusBadRequest || errorCode(env) != "VALIDATION" {
		t.Fatalf("blank nome: status %d code %q", resp.StatusCode, errorCode(env))
	}
	if got, _ := sent.Load().(map[string]any); got != nil {
		t.Fatalf("backend PUT chamado com nome vazio: %v", got)
	}

	resp, _ = p.do(t, http.MethodPut, "/api/users/99", map[string]any{"perfil_id": 2})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown user status = %d", resp.StatusCode)
	}
}

func TestUpdateProfileSendsFullDocument(t *testing.T) {
	stub := newBackendStub("Usuario", 3)
	var sent atomic.Value
	stub.mux.HandleFunc("/user-profile", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			var body map[string]any
			_ = json.NewDecoder(r.Body).Decode(&body)
			sent.Store(body)
			writeStubJSON(w, http.StatusOK, map[string]string{"message": "Perfil atualizado"})
			return
		}
		writeStubJSON(w, http.StatusOK, map[string]any{
			"id": 3, "nome": "Ana", "sobrenome": "Souza", "email": "ana@svca.org",
			"telefone": "83999990000", "cpf": "12345678900", "apelido": "aninha", "avatar_url": "/avatar2.svg",
		})
	})
	p := newPortal(t, stub)
	p.login(t)

	resp, env := p.do(t, http.MethodPut, "/api/profile", map[string]any{
		"nome": "Ana", "email": "ana@svca.org", "telefone": "83999990000", "avatar_url": "/avatar3.svg",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %v", resp.StatusCode, env)
	}
	body, _ := sent.Load().(map[string]any)
	if body["sobrenome"] != "Souza" || body["cpf"] != "12345678900" || body["apelido"] != "aninha" {
		t.Fatalf("partial document forwarded: %v", body)
	}
	if body["avatar_url"] != "/avatar3.svg" {
		t.Fatalf("avatar = %v", body["avatar_url"])
	}

	data, _ := env["data"].(map[string]any)
	user, _ := data["user"].(map[string]any)
	if user["display_name"] != "Ana Souza" || user["avatar_url"] != "/avatar3.svg" {
		t.Fatalf("session identity = %v", user)
	}
}

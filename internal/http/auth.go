package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/svca/portal/internal/account"
	"github.com/svca/portal/internal/gateway"
	httpmiddleware "github.com/svca/portal/internal/http/middleware"
	"github.com/svca/portal/internal/policy"
	"github.com/svca/portal/internal/session"
)

type sessionView struct {
	Authenticated bool                `json:"authenticated"`
	User          *session.Identity   `json:"user"`
	Capabilities  policy.Capabilities `json:"capabilities"`
	Menu          []policy.MenuEntry  `json:"menu"`
}

func (h *Handler) sessionView(r *http.Request) sessionView {
	store := h.store(r)
	view := sessionView{
		Authenticated: store.Authenticated(),
		Capabilities:  h.capabilities(r),
		Menu:          policy.Menu(store.Authenticated(), store.CurrentRole()),
	}
	if view.Authenticated {
		id := store.Identity()
		view.User = &id
	}
	return view
}

// Session devolve a sessão atual e o que ela pode acessar.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.sessionView(r))
}

// Navigate avalia um caminho sem alterar estado.
func (h *Handler) Navigate(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimSpace(r.URL.Query().Get("path"))
	if path == "" {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "path é obrigatório", nil)
		return
	}
	WriteJSON(w, http.StatusOK, h.nav.Evaluate(h.store(r), path))
}

// Login autentica no backend e grava a identidade na sessão.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var cred gateway.Credentials
	if err := decodeJSON(r, &cred, false); err != nil {
		writeAppError(w, err, nil)
		return
	}

	id, err := h.backend(r).Login(r.Context(), cred)
	if err != nil {
		// credenciais inválidas não encerram a sessão anônima
		writeAppError(w, err, nil)
		return
	}

	store := h.store(r)
	if err := store.Login(r.Context(), id); err != nil {
		log.Error().Err(err).Str("component", "session").Msg("falha ao gravar sessão")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível iniciar a sessão", nil)
		return
	}
	if !store.Authenticated() {
		WriteError(w, http.StatusBadGateway, "INTERNAL", "resposta de login incompleta", nil)
		return
	}
	if err := httpmiddleware.RotateSession(r.Context(), w, h.sessions, store); err != nil {
		log.Error().Err(err).Str("component", "session").Msg("falha ao renovar chave da sessão")
		WriteError(w, http.StatusInternalServerError, "INTERNAL", "não foi possível iniciar a sessão", nil)
		return
	}

	view := h.sessionView(r)
	WriteJSON(w, http.StatusOK, map[string]any{
		"session":  view,
		"redirect": policy.PathDashboard,
	})
}

// Logout encerra a sessão no backend e depois localmente.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	if !store.Authenticated() {
		WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out", "redirect": policy.PathLogin})
		return
	}
	if err := store.Logout(r.Context(), h.backend(r)); err != nil {
		h.fail(w, r, err, false)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "logged_out", "redirect": policy.PathLogin})
}

// Register cria uma conta de cidadão.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var reg account.Registration
	if err := decodeJSON(r, &reg, false); err != nil {
		writeAppError(w, err, nil)
		return
	}
	ack, err := h.backend(r).Register(r.Context(), reg)
	if err != nil {
		writeAppError(w, err, nil)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"message": ack.Message, "redirect": policy.PathLogin})
}

// ForgotPassword solicita o e-mail de redefinição.
func (h *Handler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Email string `json:"email"`
	}
	if err := decodeJSON(r, &payload, false); err != nil {
		writeAppError(w, err, nil)
		return
	}
	ack, err := h.backend(r).ForgotPassword(r.Context(), payload.Email)
	if err != nil {
		writeAppError(w, err, nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": ack.Message})
}

// ResetPassword conclui a redefinição com o token do link.
func (h *Handler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var reset account.PasswordReset
	if err := decodeJSON(r, &reset, false); err != nil {
		writeAppError(w, err, nil)
		return
	}
	reset.Token = chi.URLParam(r, "token")

	ack, err := h.backend(r).ResetPassword(r.Context(), reset)
	if err != nil {
		writeAppError(w, err, nil)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": ack.Message, "redirect": policy.PathLogin})
}

// Dashboard monta a saudação e os cartões do menu.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	store := h.store(r)
	id := store.Identity()
	WriteJSON(w, http.StatusOK, map[string]any{
		"greeting":     id.DisplayName,
		"avatar_url":   id.AvatarURL,
		"role":         id.Role,
		"menu":         policy.Menu(true, id.Role),
		"capabilities": h.capabilities(r),
	})
}

package http

import (
	"net/http"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/svca/portal/internal/account"
	"github.com/svca/portal/internal/apperr"
	"github.com/svca/portal/internal/occurrence"
)

// GetProfile devolve o formulário de conta preenchido e as opções de avatar.
func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile, err := h.backend(r).GetProfile(r.Context())
	if err != nil {
		h.fail(w, r, err, true)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"profile": profile,
		"form":    account.UpdateFrom(profile),
		"avatars": account.AvatarOptions,
	})
}

// UpdateProfile reenvia o documento completo e atualiza nome e avatar da sessão.
// Campos ausentes no corpo mantêm o valor do perfil atual.
func (h *Handler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	gw := h.backend(r)
	current, err := gw.GetProfile(r.Context())
	if err != nil {
		h.fail(w, r, err, false)
		return
	}
	upd := account.UpdateFrom(current)
	if err := decodeJSON(r, &upd, false); err != nil {
		writeAppError(w, err, nil)
		return
	}

	ack, err := gw.UpdateProfile(r.Context(), upd)
	if err != nil {
		h.fail(w, r, err, false)
		return
	}

	if err := h.store(r).UpdateDisplay(r.Context(), upd.DisplayName(), upd.AvatarURL); err != nil {
		log.Warn().Err(err).Str("component", "session").Msg("falha ao atualizar nome da sessão")
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"message": ack.Message,
		"user":    h.store(r).Identity(),
	})
}

// ProfilePage junta o perfil e as ocorrências do cidadão.
func (h *Handler) ProfilePage(w http.ResponseWriter, r *http.Request) {
	gw := h.backend(r)
	profile, err := gw.GetProfile(r.Context())
	if err != nil {
		h.fail(w, r, err, true)
		return
	}
	mine, err := gw.MyOccurrences(r.Context())
	if err != nil {
		h.fail(w, r, err, true)
		return
	}

	validated := 0
	for _, o := range mine {
		if o.Phase() == occurrence.PhaseClosedResolved {
			validated++
		}
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"profile":      profile,
		"display_name": profile.DisplayName(),
		"avatar_url":   profile.Avatar(),
		"occurrences":  mine,
		"total":        len(mine),
		"validated":    validated,
	})
}

// Ranking devolve o ranking semanal, acessível sem login.
func (h *Handler) Ranking(w http.ResponseWriter, r *http.Request) {
	entries, err := h.backend(r).ListRanking(r.Context())
	if err != nil {
		h.fail(w, r, err, false)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"ranking": entries})
}

// ListUsers lista usuários para a administração.
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.backend(r).ListUsers(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.fail(w, r, err, true)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"users": users})
}

// ListProfiles devolve os perfis atribuíveis.
func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.backend(r).ListProfiles(r.Context())
	if err != nil {
		h.fail(w, r, err, true)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"profiles": profiles})
}

// UpdateUser altera um usuário.
func (h *Handler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeAppError(w, err, nil)
		return
	}
	gw := h.backend(r)
	users, err := gw.ListUsers(r.Context(), "")
	if err != nil {
		h.fail(w, r, err, false)
		return
	}
	current, ok := findUser(users, id)
	if !ok {
		writeAppError(w, apperr.FromStatus(http.StatusNotFound, "Usuário não encontrado."), nil)
		return
	}

	// campos ausentes mantêm o valor atual
	var payload struct {
		account.UserUpdate
		ConfirmPassword string `json:"confirma_senha"`
	}
	payload.UserUpdate = account.UserUpdateFrom(current)
	if err := decodeJSON(r, &payload, false); err != nil {
		writeAppError(w, err, nil)
		return
	}
	upd := payload.UserUpdate
	upd.ConfirmPassword = payload.ConfirmPassword

	ack, err := gw.UpdateUser(r.Context(), id, upd)
	if err != nil {
		h.fail(w, r, err, false)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": ack.Message})
}

func findUser(users []account.User, id int) (account.User, bool) {
	for _, u := range users {
		if u.ID == id {
			return u, true
		}
	}
	return account.User{}, false
}

// DeleteUser remove um usuário. A própria conta não pode ser removida.
func (h *Handler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeAppError(w, err, nil)
		return
	}
	if h.store(r).Identity().UserID == strconv.Itoa(id) {
		WriteError(w, http.StatusBadRequest, "VALIDATION", "Você não pode excluir sua própria conta.", nil)
		return
	}

	ack, err := h.backend(r).DeleteUser(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, false)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": ack.Message})
}

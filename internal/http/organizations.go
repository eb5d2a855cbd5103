package http

import (
	"net/http"

	"github.com/svca/portal/internal/occurrence"
)

// ListOrganizations lista órgãos responsáveis.
func (h *Handler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.backend(r).ListOrganizations(r.Context(), r.URL.Query().Get("search"))
	if err != nil {
		h.fail(w, r, err, true)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"organizations": orgs})
}

// GetOrganization devolve o formulário de edição preenchido.
func (h *Handler) GetOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeAppError(w, err, nil)
		return
	}
	org, err := h.backend(r).GetOrganization(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, true)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"organization": org,
		"form":         occurrence.OrganizationInputFrom(org),
	})
}

// CreateOrganization cadastra um órgão.
func (h *Handler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var in occurrence.OrganizationInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeAppError(w, err, nil)
		return
	}
	ack, err := h.backend(r).CreateOrganization(r.Context(), in)
	if err != nil {
		h.fail(w, r, err, false)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{"message": ack.Message, "id": ack.ID, "redirect": "/gerenciar-orgaos"})
}

// UpdateOrganization altera um órgão.
func (h *Handler) UpdateOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeAppError(w, err, nil)
		return
	}
	var in occurrence.OrganizationInput
	if err := decodeJSON(r, &in, false); err != nil {
		writeAppError(w, err, nil)
		return
	}
	ack, err := h.backend(r).UpdateOrganization(r.Context(), id, in)
	if err != nil {
		h.fail(w, r, err, false)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"message": ack.Message, "redirect": "/gerenciar-orgaos"})
}

// DeleteOrganization remove um órgão.
func (h *Handler) DeleteOrganization(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeAppError(w, err, nil)
		return
	}
	ack, err := h.backend(r).DeleteOrganization(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, false)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": ack.Message})
}

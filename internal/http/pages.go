package http

import (
	"net/http"

	httpmiddleware "github.com/svca/portal/internal/http/middleware"
)

// Page devolve a decisão do guard para a página permitida e o menu da sessão.
func (h *Handler) Page(w http.ResponseWriter, r *http.Request) {
	d, _ := httpmiddleware.DecisionFrom(r.Context())
	WriteJSON(w, http.StatusOK, map[string]any{
		"decision": d,
		"session":  h.sessionView(r),
	})
}

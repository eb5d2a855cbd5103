package http

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/svca/portal/internal/apperr"
	"github.com/svca/portal/internal/gateway"
	"github.com/svca/portal/internal/occurrence"
	"github.com/svca/portal/internal/policy"
)

const (
	maxUploadMemory = 32 << 20
	maxImages       = 10
)

// ListOccurrences lista ocorrências para a moderação.
func (h *Handler) ListOccurrences(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	items, err := h.backend(r).ListOccurrences(r.Context(), gateway.Filter{
		Status: q.Get("status"),
		Search: q.Get("search"),
	})
	if err != nil {
		h.fail(w, r, err, true)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"occurrences": items})
}

// MyOccurrences lista as ocorrências do usuário autenticado.
func (h *Handler) MyOccurrences(w http.ResponseWriter, r *http.Request) {
	items, err := h.backend(r).MyOccurrences(r.Context())
	if err != nil {
		h.fail(w, r, err, true)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"occurrences": items})
}

// ListStatus devolve o catálogo de status.
func (h *Handler) ListStatus(w http.ResponseWriter, r *http.Request) {
	items, err := h.backend(r).ListStatusOptions(r.Context())
	if err != nil {
		h.fail(w, r, err, false)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"status": items})
}

// CreateOccurrence recebe o formulário multipart e o repassa ao backend.
func (h *Handler) CreateOccurrence(w http.ResponseWriter, r *http.Request) {
	sub, err := parseSubmission(r)
	if err != nil {
		writeAppError(w, err, nil)
		return
	}
	ack, err := h.backend(r).CreateOccurrence(r.Context(), sub)
	if err != nil {
		h.fail(w, r, err, false)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{
		"message":  ack.Message,
		"id":       ack.ID,
		"redirect": "/minhas-ocorrencias",
	})
}

// parseSubmission lê os campos do formulário. Sem endereço livre, o endereço
// é composto pelas partes estruturadas.
func parseSubmission(r *http.Request) (occurrence.Submission, error) {
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		return occurrence.Submission{}, apperr.Validation("Formulário inválido.")
	}
	form := r.MultipartForm

	sub := occurrence.Submission{
		Title:       r.FormValue("titulo"),
		Address:     r.FormValue("endereco"),
		Description: r.FormValue("descricao"),
	}
	if strings.TrimSpace(sub.Address) == "" {
		sub.Address = occurrence.ComposeAddress(occurrence.AddressParts{
			Street:       r.FormValue("rua"),
			Number:       r.FormValue("numero"),
			Neighborhood: r.FormValue("bairro"),
			City:         r.FormValue("cidade"),
			State:        r.FormValue("estado"),
			Postcode:     r.FormValue("cep"),
		})
	}

	var err error
	if sub.Latitude, err = formFloat(r, "latitude"); err != nil {
		return occurrence.Submission{}, err
	}
	if sub.Longitude, err = formFloat(r, "longitude"); err != nil {
		return occurrence.Submission{}, err
	}

	files := form.File["imagens"]
	if len(files) > maxImages {
		return occurrence.Submission{}, apperr.Validation("Envie no máximo 10 imagens.",
			apperr.FieldError{Field: "imagens", Message: "excesso"})
	}
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return occurrence.Submission{}, apperr.Validation("Imagem inválida: " + fh.Filename + ".")
		}
		data, err := io.ReadAll(f)
		_ = f.Close()
		if err != nil {
			return occurrence.Submission{}, apperr.Validation("Imagem inválida: " + fh.Filename + ".")
		}
		sub.Images = append(sub.Images, occurrence.Image{
			Name:        fh.Filename,
			ContentType: fh.Header.Get("Content-Type"),
			Data:        data,
		})
	}
	return sub, nil
}

func formFloat(r *http.Request, name string) (*float64, error) {
	raw := strings.TrimSpace(r.FormValue(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", "."), 64)
	if err != nil {
		return nil, apperr.Validation("Coordenadas inválidas.", apperr.FieldError{Field: name, Message: "inválido"})
	}
	return &v, nil
}

// ViewOccurrence devolve o detalhe público, somente leitura.
func (h *Handler) ViewOccurrence(w http.ResponseWriter, r *http.Request) {
	h.detail(w, r, policy.ModePublic)
}

// ManageOccurrence devolve o detalhe editável da moderação.
func (h *Handler) ManageOccurrence(w http.ResponseWriter, r *http.Request) {
	h.detail(w, r, policy.ModeManagement)
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request, mode policy.AccessMode) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeAppError(w, err, nil)
		return
	}
	d, err := occurrence.LoadDetail(r.Context(), h.backend(r), h.capabilities(r), mode, id)
	if err != nil {
		h.fail(w, r, err, true)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"mode": d.Mode.String(), "detail": d})
}

type changePayload struct {
	Title          string `json:"titulo"`
	Description    string `json:"descricao"`
	Address        string `json:"endereco"`
	StatusID       int    `json:"status_id"`
	OrganizationID *int   `json:"orgao_responsavel_id"`
	Justification  string `json:"justificativa_recusa"`
}

// UpdateOccurrence valida a alteração inteira, envia o PUT completo e
// devolve a entidade resultante. Campos ausentes mantêm o valor atual.
func (h *Handler) UpdateOccurrence(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeAppError(w, err, nil)
		return
	}
	gw := h.backend(r)
	ctx := r.Context()

	current, err := gw.GetOccurrence(ctx, id)
	if err != nil {
		h.fail(w, r, err, false)
		return
	}
	catalog, err := gw.StatusCatalog(ctx)
	if err != nil {
		h.fail(w, r, err, false)
		return
	}

	base := occurrence.ChangeFrom(current)
	payload := changePayload{
		Title:          base.Title,
		Description:    base.Description,
		Address:        base.Address,
		StatusID:       base.StatusID,
		OrganizationID: base.OrganizationID,
		Justification:  base.Justification,
	}
	if err := decodeJSON(r, &payload, false); err != nil {
		writeAppError(w, err, nil)
		return
	}

	caps := h.capabilities(r)
	upd, err := occurrence.PrepareUpdate(caps, catalog, current, occurrence.Change{
		Title:          payload.Title,
		Description:    payload.Description,
		Address:        payload.Address,
		StatusID:       payload.StatusID,
		OrganizationID: payload.OrganizationID,
		Justification:  payload.Justification,
	})
	if err != nil {
		writeAppError(w, err, nil)
		return
	}

	ack, err := gw.UpdateOccurrence(ctx, id, upd)
	if err != nil {
		h.fail(w, r, err, false)
		return
	}

	var orgs []occurrence.Organization
	if upd.OrganizationID != nil {
		if orgs, err = gw.ListOrganizations(ctx, ""); err != nil {
			// o PUT já foi aceito; o órgão segue apenas com o id
			orgs = nil
		}
	}
	next := upd.Apply(current, catalog, orgs, h.now())
	WriteJSON(w, http.StatusOK, map[string]any{
		"message":    ack.Message,
		"ocorrencia": next,
		"controles":  occurrence.Editable(caps, next, next.Phase()),
	})
}

// DeleteOccurrence remove a ocorrência.
func (h *Handler) DeleteOccurrence(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeAppError(w, err, nil)
		return
	}
	if !h.capabilities(r).DeleteOccurrence {
		writeAppError(w, apperr.Forbidden(""), nil)
		return
	}
	ack, err := h.backend(r).DeleteOccurrence(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, false)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"message": ack.Message, "redirect": "/gerenciar-ocorrencias"})
}

// SendNotification notifica o órgão responsável e devolve o histórico atualizado.
func (h *Handler) SendNotification(w http.ResponseWriter, r *http.Request) {
	id, err := parseIDParam(r, "id")
	if err != nil {
		writeAppError(w, err, nil)
		return
	}
	var payload struct {
		Message string `json:"mensagem"`
	}
	if err := decodeJSON(r, &payload, true); err != nil {
		writeAppError(w, err, nil)
		return
	}

	gw := h.backend(r)
	current, err := gw.GetOccurrence(r.Context(), id)
	if err != nil {
		h.fail(w, r, err, false)
		return
	}
	next, err := occurrence.SendNotification(r.Context(), gw, h.capabilities(r), current, payload.Message)
	if err != nil {
		h.fail(w, r, err, false)
		return
	}
	WriteJSON(w, http.StatusCreated, map[string]any{
		"historico_notificacoes": next.NotificationHistory,
	})
}

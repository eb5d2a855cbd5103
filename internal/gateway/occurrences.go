package gateway

import (
	"bytes"
	"context"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"

	"github.com/svca/portal/internal/apperr"
	"github.com/svca/portal/internal/occurrence"
)

// Filter restringe a listagem de ocorrências.
type Filter struct {
	Status string
	Search string
}

func (f Filter) query() url.Values {
	q := url.Values{}
	if s := strings.TrimSpace(f.Status); s != "" {
		q.Set("status", s)
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		q.Set("search", s)
	}
	return q
}

// detailWire é o formato plano devolvido por /occurrence/{id} e /view-occurrence/{id}.
type detailWire struct {
	ID                int                       `json:"id"`
	Title             string                    `json:"titulo"`
	Description       string                    `json:"descricao"`
	Address           string                    `json:"endereco"`
	Latitude          *float64                  `json:"latitude"`
	Longitude         *float64                  `json:"longitude"`
	StatusID          int                       `json:"status_id"`
	StatusName        string                    `json:"status_nome"`
	RegisteredAt      occurrence.Timestamp      `json:"data_registro"`
	ClosedAt          *occurrence.Timestamp     `json:"data_finalizacao"`
	ReporterID        flexID                    `json:"usuario_id"`
	ReporterName      string                    `json:"usuario_nome"`
	OrganizationID    *int                      `json:"orgao_responsavel_id"`
	OrganizationName  string                    `json:"orgao_responsavel_nome"`
	OrganizationEmail string                    `json:"orgao_responsavel_email"`
	OrganizationPhone string                    `json:"orgao_responsavel_telefone"`
	Images            []string                  `json:"imagens"`
	Justification     *string                   `json:"justificativa_recusa"`
	Notifications     []occurrence.Notification `json:"historico_notificacoes"`
}

func (w detailWire) toOccurrence() occurrence.Occurrence {
	o := occurrence.Occurrence{
		ID:           w.ID,
		Title:        w.Title,
		Description:  w.Description,
		Address:      w.Address,
		Latitude:     w.Latitude,
		Longitude:    w.Longitude,
		Status:       occurrence.StatusRef{ID: w.StatusID, Name: w.StatusName},
		RegisteredAt: w.RegisteredAt,
		ReporterName: w.ReporterName,
		Images:       append([]string(nil), w.Images...),
	}
	if id, err := strconv.Atoi(string(w.ReporterID)); err == nil {
		o.ReporterID = id
	}
	if w.ClosedAt != nil && !w.ClosedAt.IsZero() {
		ts := *w.ClosedAt
		o.ClosedAt = &ts
	}
	if w.OrganizationID != nil && *w.OrganizationID > 0 {
		o.Organization = &occurrence.Organization{
			ID:    *w.OrganizationID,
			Name:  w.OrganizationName,
			Email: w.OrganizationEmail,
			Phone: w.OrganizationPhone,
		}
	}
	if w.Justification != nil && strings.TrimSpace(*w.Justification) != "" {
		j := *w.Justification
		o.RejectionJustification = &j
	}
	o.NotificationHistory = append([]occurrence.Notification(nil), w.Notifications...)
	return o
}

// ListOccurrences lista todas as ocorrências para a moderação.
func (c *Client) ListOccurrences(ctx context.Context, f Filter) ([]occurrence.Summary, error) {
	var out []occurrence.Summary
	err := c.call(ctx, "list_occurrences", http.MethodGet, "/occurrences", f.query(), nil, &out)
	return out, err
}

// MyOccurrences lista as ocorrências registradas pelo usuário autenticado.
func (c *Client) MyOccurrences(ctx context.Context) ([]occurrence.Summary, error) {
	var out []occurrence.Summary
	err := c.call(ctx, "my_occurrences", http.MethodGet, "/my-occurrences", nil, nil, &out)
	return out, err
}

// GetOccurrence busca o detalhe completo pelo canal de moderação.
func (c *Client) GetOccurrence(ctx context.Context, id int) (occurrence.Occurrence, error) {
	var w detailWire
	if err := c.call(ctx, "get_occurrence", http.MethodGet, idPath("/occurrence/%d", id), nil, nil, &w); err != nil {
		return occurrence.Occurrence{}, err
	}
	return w.toOccurrence(), nil
}

// ViewOccurrence busca a projeção pública. Histórico e justificativa são
// descartados mesmo que o backend os envie.
func (c *Client) ViewOccurrence(ctx context.Context, id int) (occurrence.PublicOccurrence, error) {
	var w detailWire
	if err := c.call(ctx, "view_occurrence", http.MethodGet, idPath("/view-occurrence/%d", id), nil, nil, &w); err != nil {
		return occurrence.PublicOccurrence{}, err
	}
	return w.toOccurrence().Public(), nil
}

// CreateOccurrence envia o formulário multipart de registro. As imagens
// seguem a ordem da submissão.
func (c *Client) CreateOccurrence(ctx context.Context, sub occurrence.Submission) (Ack, error) {
	if err := sub.Validate(); err != nil {
		return Ack{}, err
	}

	body, contentType, err := encodeSubmission(sub)
	if err != nil {
		return Ack{}, apperr.Network(err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("/register-occurrence", nil), bytes.NewReader(body))
	if err != nil {
		return Ack{}, apperr.Network(err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	var ack Ack
	err = c.do("create_occurrence", req, &ack)
	return ack, err
}

func encodeSubmission(sub occurrence.Submission) ([]byte, string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	fields := []struct{ name, value string }{
		{"titulo", strings.TrimSpace(sub.Title)},
		{"endereco", strings.TrimSpace(sub.Address)},
		{"descricao", strings.TrimSpace(sub.Description)},
		{"latitude", strconv.FormatFloat(*sub.Latitude, 'f', -1, 64)},
		{"longitude", strconv.FormatFloat(*sub.Longitude, 'f', -1, 64)},
	}
	for _, f := range fields {
		if err := w.WriteField(f.name, f.value); err != nil {
			return nil, "", err
		}
	}

	for _, img := range sub.Images {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="imagens"; filename=%q`, img.Name))
		ct := img.ContentType
		if ct == "" {
			ct = http.DetectContentType(img.Data)
		}
		h.Set("Content-Type", ct)
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf.Bytes(), w.FormDataContentType(), nil
}

// UpdateOccurrence envia o corpo completo preparado por occurrence.PrepareUpdate.
func (c *Client) UpdateOccurrence(ctx context.Context, id int, upd occurrence.Update) (Ack, error) {
	var ack Ack
	err := c.call(ctx, "update_occurrence", http.MethodPut, idPath("/occurrence/%d", id), nil, upd, &ack)
	return ack, err
}

// DeleteOccurrence remove a ocorrência.
func (c *Client) DeleteOccurrence(ctx context.Context, id int) (Ack, error) {
	var ack Ack
	err := c.call(ctx, "delete_occurrence", http.MethodDelete, idPath("/occurrence/%d", id), nil, nil, &ack)
	return ack, err
}

// SendNotification registra uma notificação ao órgão responsável.
// Implementa occurrence.NotificationSender.
func (c *Client) SendNotification(ctx context.Context, id int, req occurrence.NotificationRequest) (occurrence.Notification, error) {
	var n occurrence.Notification
	err := c.call(ctx, "send_notification", http.MethodPost, idPath("/occurrence/%d/notificacoes", id), nil, req, &n)
	return n, err
}

// ListStatusOptions devolve o catálogo de status.
func (c *Client) ListStatusOptions(ctx context.Context) ([]occurrence.StatusRef, error) {
	var out []occurrence.StatusRef
	err := c.call(ctx, "list_status", http.MethodGet, "/status-ocorrencias", nil, nil, &out)
	return out, err
}

// StatusCatalog busca o catálogo já indexado.
func (c *Client) StatusCatalog(ctx context.Context) (occurrence.StatusCatalog, error) {
	items, err := c.ListStatusOptions(ctx)
	if err != nil {
		return occurrence.StatusCatalog{}, err
	}
	return occurrence.NewStatusCatalog(items), nil
}

// ListActiveMapOccurrences devolve as ocorrências exibidas no mapa.
func (c *Client) ListActiveMapOccurrences(ctx context.Context) ([]occurrence.MapPoint, error) {
	var out []occurrence.MapPoint
	err := c.call(ctx, "active_occurrences", http.MethodGet, "/active-occurrences", nil, nil, &out)
	return out, err
}

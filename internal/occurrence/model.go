package occurrence

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// StatusRef referencia um status do catálogo externo.
type StatusRef struct {
	ID   int    `json:"id"`
	Name string `json:"nome"`
}

// Phase classifica o status pelo nome.
func (s StatusRef) Phase() Phase {
	return ClassifyStatus(s.Name)
}

// Organization é o órgão responsável.
type Organization struct {
	ID    int    `json:"id"`
	Name  string `json:"nome"`
	Email string `json:"email"`
	Phone string `json:"telefone"`
}

// Notification é uma entrada do histórico de notificações.
type Notification struct {
	Message        string    `json:"mensagem"`
	SentAt         Timestamp `json:"data_envio"`
	RecipientEmail string    `json:"email_destino"`
}

// Occurrence é a visão completa usada pela moderação.
type Occurrence struct {
	ID                     int            `json:"id"`
	Title                  string         `json:"titulo"`
	Description            string         `json:"descricao"`
	Address                string         `json:"endereco"`
	Latitude               *float64       `json:"latitude"`
	Longitude              *float64       `json:"longitude"`
	Status                 StatusRef      `json:"status"`
	RegisteredAt           Timestamp      `json:"data_registro"`
	ClosedAt               *Timestamp     `json:"data_finalizacao"`
	ReporterID             int            `json:"usuario_id"`
	ReporterName           string         `json:"usuario_nome"`
	Organization           *Organization  `json:"orgao_responsavel"`
	Images                 []string       `json:"imagens"`
	RejectionJustification *string        `json:"justificativa_recusa"`
	NotificationHistory    []Notification `json:"historico_notificacoes"`
}

// Phase devolve a fase canônica do status atual.
func (o Occurrence) Phase() Phase {
	return o.Status.Phase()
}

// PublicOccurrence é a projeção somente leitura. Não possui histórico de
// notificações nem justificativa, então o canal público não consegue carregá-los.
type PublicOccurrence struct {
	ID               int        `json:"id"`
	Title            string     `json:"titulo"`
	Description      string     `json:"descricao"`
	Address          string     `json:"endereco"`
	Latitude         *float64   `json:"latitude"`
	Longitude        *float64   `json:"longitude"`
	Status           StatusRef  `json:"status"`
	RegisteredAt     Timestamp  `json:"data_registro"`
	ClosedAt         *Timestamp `json:"data_finalizacao"`
	ReporterName     string     `json:"usuario_nome"`
	OrganizationName string     `json:"orgao_responsavel_nome,omitempty"`
	Images           []string   `json:"imagens"`
}

// Public projeta a ocorrência para visualização sem privilégios.
func (o Occurrence) Public() PublicOccurrence {
	p := PublicOccurrence{
		ID:           o.ID,
		Title:        o.Title,
		Description:  o.Description,
		Address:      o.Address,
		Latitude:     o.Latitude,
		Longitude:    o.Longitude,
		Status:       o.Status,
		RegisteredAt: o.RegisteredAt,
		ClosedAt:     o.ClosedAt,
		ReporterName: o.ReporterName,
		Images:       append([]string(nil), o.Images...),
	}
	if o.Organization != nil {
		p.OrganizationName = o.Organization.Name
	}
	return p
}

// Summary é um item das listagens.
type Summary struct {
	ID           int       `json:"id"`
	Title        string    `json:"titulo"`
	Description  string    `json:"descricao"`
	Address      string    `json:"endereco"`
	RegisteredAt Timestamp `json:"data_registro"`
	Status       string    `json:"status"`
	ReporterName string    `json:"usuario_nome,omitempty"`
	Images       []string  `json:"imagens"`
}

// Phase classifica o status textual do item.
func (s Summary) Phase() Phase {
	return ClassifyStatus(s.Status)
}

// MapPoint é uma ocorrência ativa exibida no mapa.
type MapPoint struct {
	ID           int       `json:"id"`
	Title        string    `json:"titulo"`
	Address      string    `json:"endereco"`
	Latitude     *float64  `json:"latitude"`
	Longitude    *float64  `json:"longitude"`
	Status       string    `json:"status"`
	RegisteredAt Timestamp `json:"data_registro"`
}

// DetailPath é o caminho público de detalhe usado pelo mapa e pela barra lateral.
func DetailPath(id int) string {
	return fmt.Sprintf("/ocorrencia/%d", id)
}

// Timestamp aceita os formatos de data enviados pelo backend.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC1123,
	"2006-01-02",
}

// ParseTimestamp interpreta uma data do backend.
func ParseTimestamp(raw string) (Timestamp, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Timestamp{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return Timestamp{t}, nil
		}
	}
	return Timestamp{}, fmt.Errorf("data inválida: %q", raw)
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(data, []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

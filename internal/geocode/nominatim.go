package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/svca/portal/internal/apperr"
	"github.com/svca/portal/internal/metrics"
	"github.com/svca/portal/internal/occurrence"
)

const (
	// DefaultBaseURL é o endpoint público do Nominatim.
	DefaultBaseURL = "https://nominatim.openstreetmap.org"
	// DefaultUserAgent identifica o portal, exigido pela política de uso do Nominatim.
	DefaultUserAgent = "SVCA/1.0"
	// MsgNotFound é exibida quando o endereço não gera coordenadas.
	MsgNotFound = "Coordenadas não encontradas para o endereço fornecido."
)

// ErrNotFound indica que a busca não retornou resultados.
var ErrNotFound = errors.New("geocode: endereço não encontrado")

// Coordinates é o par gerado para o formulário de registro.
type Coordinates struct {
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	DisplayName string  `json:"display_name,omitempty"`
}

// Config descreve o endpoint e a identificação do cliente.
type Config struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration
	// Limiter substitui o limite padrão de 1 requisição por segundo.
	Limiter *rate.Limiter
}

// Client consulta o Nominatim respeitando o limite de requisições.
type Client struct {
	httpClient *http.Client
	baseURL    string
	userAgent  string
	limiter    *rate.Limiter
}

// New cria o cliente com padrões do serviço público.
func New(cfg Config) *Client {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = DefaultBaseURL
	}
	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = DefaultUserAgent
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Every(time.Second), 1)
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    base,
		userAgent:  ua,
		limiter:    limiter,
	}
}

type searchResult struct {
	Lat         string `json:"lat"`
	Lon         string `json:"lon"`
	DisplayName string `json:"display_name"`
}

// Search geocodifica um endereço livre.
func (c *Client) Search(ctx context.Context, address string) (Coordinates, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return Coordinates{}, apperr.Validation("Preencha o endereço para gerar as coordenadas.",
			apperr.FieldError{Field: "endereco", Message: "obrigatório"})
	}
	coords, err := c.search(ctx, address)
	result := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		result = "not_found"
	case err != nil:
		result = "error"
	}
	metrics.GeocodeRequestsTotal.WithLabelValues(result).Inc()
	if err != nil {
		log.Warn().Str("component", "geocode").Err(err).Msg("falha ao geocodificar endereço")
	}
	return coords, err
}

// SearchParts compõe o endereço estruturado antes da busca.
func (c *Client) SearchParts(ctx context.Context, parts occurrence.AddressParts) (Coordinates, error) {
	return c.Search(ctx, occurrence.ComposeAddress(parts))
}

func (c *Client) search(ctx context.Context, address string) (Coordinates, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return Coordinates{}, apperr.Network(err)
	}

	q := url.Values{}
	q.Set("format", "json")
	q.Set("limit", "1")
	q.Set("q", address)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return Coordinates{}, apperr.Network(err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Coordinates{}, apperr.Network(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Coordinates{}, apperr.Network(fmt.Errorf("nominatim: status %d", resp.StatusCode))
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return Coordinates{}, apperr.Network(fmt.Errorf("nominatim: %w", err))
	}
	if len(results) == 0 {
		return Coordinates{}, notFound()
	}

	lat, errLat := strconv.ParseFloat(results[0].Lat, 64)
	lon, errLon := strconv.ParseFloat(results[0].Lon, 64)
	if errLat != nil || errLon != nil {
		return Coordinates{}, notFound()
	}
	return Coordinates{Latitude: lat, Longitude: lon, DisplayName: results[0].DisplayName}, nil
}

func notFound() error {
	return &apperr.Error{
		Kind:    apperr.KindValidation,
		Message: MsgNotFound,
		Fields:  []apperr.FieldError{{Field: "endereco", Message: "sem resultados"}},
		Err:     ErrNotFound,
	}
}

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/svca/portal/internal/apperr"
	"github.com/svca/portal/internal/metrics"
)

const (
	defaultBaseURL = "http://localhost:5000"
	defaultTimeout = 15 * time.Second
	maxErrorBody   = 64 << 10
)

// Client encapsula as chamadas ao backend REST. As credenciais seguem pelo
// cookie jar da sessão; nenhum método recebe token explícito.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Config descreve o backend e o jar de cookies da sessão.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	Jar       http.CookieJar
	Transport http.RoundTripper
}

// New cria um cliente para o backend informado.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		base = defaultBaseURL
	}
	u, err := url.Parse(base)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("gateway: url do backend inválida: %q", base)
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout, Jar: cfg.Jar, Transport: cfg.Transport},
		baseURL:    strings.TrimRight(base, "/"),
	}, nil
}

// WithJar devolve uma cópia que usa o jar de outra sessão e compartilha o transporte.
func (c *Client) WithJar(jar http.CookieJar) *Client {
	hc := *c.httpClient
	hc.Jar = jar
	return &Client{httpClient: &hc, baseURL: c.baseURL}
}

// BaseURL devolve o endereço do backend.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Ack é a confirmação devolvida pelas operações de escrita.
type Ack struct {
	Message string `json:"message"`
	ID      int    `json:"id,omitempty"`
}

func (c *Client) endpoint(path string, query url.Values) string {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.endpoint(path, query), reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}

func (c *Client) call(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return apperr.Network(err)
	}
	return c.do(op, req, out)
}

// do executa a requisição e traduz a resposta para a taxonomia de erros.
func (c *Client) do(op string, req *http.Request, out any) error {
	start := time.Now()
	err := c.roundTrip(req, out)
	elapsed := time.Since(start)

	result := "ok"
	if err != nil {
		result = apperr.KindOf(err).String()
	}
	metrics.GatewayRequestsTotal.WithLabelValues(op, result).Inc()
	metrics.GatewayRequestDurationSeconds.WithLabelValues(op).Observe(elapsed.Seconds())

	logger := log.With().Str("component", "gateway").Str("op", op).Logger()
	if err != nil {
		logger.Warn().
			Str("method", req.Method).
			Str("path", req.URL.Path).
			Str("kind", result).
			Dur("duration", elapsed).
			Err(err).
			Msg("falha na chamada ao backend")
		return err
	}
	logger.Debug().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Dur("duration", elapsed).
		Msg("chamada ao backend")
	return nil
}

func (c *Client) roundTrip(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperr.Network(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return apperr.FromStatus(resp.StatusCode, serverMessage(raw))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Network(fmt.Errorf("decodificar resposta: %w", err))
	}
	return nil
}

// serverMessage extrai o motivo informado em "error" ou "message".
func serverMessage(raw []byte) string {
	var payload struct {
		Error   json.RawMessage `json:"error"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(raw, &payload); err != nil {
		return ""
	}
	if len(payload.Error) > 0 {
		var text string
		if err := json.Unmarshal(payload.Error, &text); err == nil && strings.TrimSpace(text) != "" {
			return strings.TrimSpace(text)
		}
		var nested struct {
			Message string `json:"message"`
		}
		if err := json.Unmarshal(payload.Error, &nested); err == nil && strings.TrimSpace(nested.Message) != "" {
			return strings.TrimSpace(nested.Message)
		}
	}
	return strings.TrimSpace(payload.Message)
}

func idPath(format string, id int) string {
	return fmt.Sprintf(format, id)
}

func searchQuery(term string) url.Values {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil
	}
	return url.Values{"search": []string{term}}
}

package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/svca/portal/internal/account"
	"github.com/svca/portal/internal/apperr"
	"github.com/svca/portal/internal/session"
)

// DefaultUserName é exibido quando o backend não devolve user_name.
const DefaultUserName = "Usuário"

// Credentials é o corpo de POST /login.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// flexID aceita identificadores numéricos ou textuais.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexID(n.String())
	return nil
}

type loginResponse struct {
	Message     string `json:"message"`
	UserID      flexID `json:"user_id"`
	UserName    string `json:"user_name"`
	UserProfile string `json:"user_profile"`
	AvatarURL   string `json:"avatar_url"`
}

// Login autentica e devolve a identidade informada pelo backend. Os cookies
// de sessão do backend ficam no jar do cliente.
func (c *Client) Login(ctx context.Context, cred Credentials) (session.Identity, error) {
	if strings.TrimSpace(cred.Email) == "" || cred.Password == "" {
		return session.Identity{}, apperr.Validation("Por favor, preencha todos os campos.")
	}
	var resp loginResponse
	if err := c.call(ctx, "login", http.MethodPost, "/login", nil, cred, &resp); err != nil {
		return session.Identity{}, err
	}
	name := strings.TrimSpace(resp.UserName)
	if name == "" {
		name = DefaultUserName
	}
	return session.Identity{
		UserID:      string(resp.UserID),
		DisplayName: name,
		Role:        session.ParseRole(resp.UserProfile),
		AvatarURL:   resp.AvatarURL,
	}, nil
}

// Logout encerra a sessão no backend. Implementa session.Invalidator.
func (c *Client) Logout(ctx context.Context) error {
	return c.call(ctx, "logout", http.MethodPost, "/logout", nil, nil, nil)
}

// Register cria a conta após a validação local.
func (c *Client) Register(ctx context.Context, reg account.Registration) (Ack, error) {
	if err := reg.Validate(); err != nil {
		return Ack{}, err
	}
	var ack Ack
	err := c.call(ctx, "register", http.MethodPost, "/register", nil, reg, &ack)
	return ack, err
}

// ForgotPassword solicita o e-mail de redefinição.
func (c *Client) ForgotPassword(ctx context.Context, email string) (Ack, error) {
	if err := account.ValidateForgotPassword(email); err != nil {
		return Ack{}, err
	}
	var ack Ack
	body := map[string]string{"email": strings.TrimSpace(email)}
	err := c.call(ctx, "forgot_password", http.MethodPost, "/forgot-password", nil, body, &ack)
	return ack, err
}

// ResetPassword conclui a redefinição com o token recebido por e-mail.
func (c *Client) ResetPassword(ctx context.Context, reset account.PasswordReset) (Ack, error) {
	if err := reset.Validate(); err != nil {
		return Ack{}, err
	}
	var ack Ack
	path := "/reset-password/" + url.PathEscape(reset.Token)
	err := c.call(ctx, "reset_password", http.MethodPost, path, nil, reset, &ack)
	return ack, err
}

// GetProfile busca o perfil do usuário autenticado.
func (c *Client) GetProfile(ctx context.Context) (account.Profile, error) {
	var p account.Profile
	err := c.call(ctx, "get_profile", http.MethodGet, "/user-profile", nil, nil, &p)
	return p, err
}

// UpdateProfile envia o documento completo do perfil.
func (c *Client) UpdateProfile(ctx context.Context, upd account.ProfileUpdate) (Ack, error) {
	if err := upd.Validate(); err != nil {
		return Ack{}, err
	}
	var ack Ack
	err := c.call(ctx, "update_profile", http.MethodPut, "/user-profile", nil, upd, &ack)
	return ack, err
}

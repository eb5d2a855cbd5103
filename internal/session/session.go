package session

import (
	"strings"
	"time"
)

// Role representa o perfil do usuário autenticado.
type Role string

const (
	RoleAnonymous     Role = ""
	RoleUsuario       Role = "Usuario"
	RoleModerador     Role = "Moderador"
	RoleAdministrador Role = "Administrador"
)

// DefaultAvatar é usado quando o backend não informa avatar.
const DefaultAvatar = "/avatar.svg"

// ParseRole converte o user_profile do backend. Valores desconhecidos viram anônimo.
func ParseRole(raw string) Role {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "usuario", "usuário":
		return RoleUsuario
	case "moderador":
		return RoleModerador
	case "administrador":
		return RoleAdministrador
	default:
		return RoleAnonymous
	}
}

// Rank ordena os perfis; anônimo é zero.
func (r Role) Rank() int {
	switch r {
	case RoleUsuario:
		return 1
	case RoleModerador:
		return 2
	case RoleAdministrador:
		return 3
	default:
		return 0
	}
}

// Valid informa se o perfil é um dos três conhecidos.
func (r Role) Valid() bool {
	return r.Rank() > 0
}

func (r Role) String() string {
	if r == RoleAnonymous {
		return "anonymous"
	}
	return string(r)
}

// Identity é o resultado de um login bem-sucedido.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Role        Role   `json:"role"`
	AvatarURL   string `json:"avatar_url"`
}

// Complete exige todos os campos obrigatórios.
func (i Identity) Complete() bool {
	return strings.TrimSpace(i.UserID) != "" &&
		strings.TrimSpace(i.DisplayName) != "" &&
		i.Role.Valid()
}

// Cookie guarda um cookie do backend associado à sessão.
type Cookie struct {
	Name    string    `json:"name"`
	Value   string    `json:"value"`
	Path    string    `json:"path,omitempty"`
	Expires time.Time `json:"expires,omitempty"`
}

// Session é o registro persistido.
type Session struct {
	UserID      string    `json:"user_id,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Role        Role      `json:"role,omitempty"`
	AvatarURL   string    `json:"avatar_url,omitempty"`
	Cookies     []Cookie  `json:"cookies,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (s Session) identity() Identity {
	return Identity{UserID: s.UserID, DisplayName: s.DisplayName, Role: s.Role, AvatarURL: s.AvatarURL}
}

// consistent verifica que perfil existe sse o usuário existe.
func (s Session) consistent() bool {
	if s.UserID == "" && s.Role == RoleAnonymous {
		return true
	}
	return s.UserID != "" && s.Role.Valid()
}

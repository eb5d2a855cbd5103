package policy

import (
	"github.com/svca/portal/internal/session"
)

// Access é o nível mínimo exigido por uma rota.
type Access int

const (
	AccessPublic Access = iota
	AccessUsuario
	AccessModerador
	AccessAdministrador
)

func (a Access) String() string {
	switch a {
	case AccessUsuario:
		return "usuario"
	case AccessModerador:
		return "moderador"
	case AccessAdministrador:
		return "administrador"
	default:
		return "public"
	}
}

// Caminhos de fallback do guard.
const (
	PathDashboard = "/dashboard"
	PathLogin     = "/login"
)

// Route descreve uma rota de página do portal.
type Route struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
	Access  Access `json:"-"`
	Menu    string `json:"menu,omitempty"`
}

var routes = []Route{
	{Name: "home", Pattern: "/", Access: AccessPublic},
	{Name: "login", Pattern: "/login", Access: AccessPublic},
	{Name: "register", Pattern: "/register", Access: AccessPublic},
	{Name: "policies", Pattern: "/politicas", Access: AccessPublic},
	{Name: "about", Pattern: "/sobre-nos", Access: AccessPublic},
	{Name: "contact", Pattern: "/contato", Access: AccessPublic},
	{Name: "forgot-password", Pattern: "/forgot-password", Access: AccessPublic},
	{Name: "reset-password", Pattern: "/reset-password/{token}", Access: AccessPublic},
	{Name: "ranking", Pattern: "/ranking-semanal", Access: AccessPublic, Menu: "Ranking Semanal"},

	{Name: "dashboard", Pattern: "/dashboard", Access: AccessUsuario},
	{Name: "register-occurrence", Pattern: "/registrar-ocorrencia", Access: AccessUsuario, Menu: "Registrar Ocorrência"},
	{Name: "my-occurrences", Pattern: "/minhas-ocorrencias", Access: AccessUsuario, Menu: "Minhas Ocorrências"},
	{Name: "map", Pattern: "/mapa-ocorrencias", Access: AccessUsuario, Menu: "Mapa de Ocorrências"},
	{Name: "manage-account", Pattern: "/gerenciar-conta", Access: AccessUsuario, Menu: "Gerenciar Conta"},
	{Name: "profile", Pattern: "/perfil", Access: AccessUsuario, Menu: "Meu Perfil"},
	{Name: "occurrence-detail", Pattern: "/ocorrencia/{id}", Access: AccessUsuario},

	{Name: "manage-occurrences", Pattern: "/gerenciar-ocorrencias", Access: AccessModerador, Menu: "Gerenciar Ocorrências"},
	{Name: "manage-occurrence-detail", Pattern: "/gerenciar-ocorrencias/{id}", Access: AccessModerador},
	{Name: "manage-organizations", Pattern: "/gerenciar-orgaos", Access: AccessModerador, Menu: "Gerenciar Órgãos"},
	{Name: "create-organization", Pattern: "/gerenciar-orgaos/cadastrar", Access: AccessModerador},
	{Name: "edit-organization", Pattern: "/gerenciar-orgaos/editar/{id}", Access: AccessModerador},

	{Name: "manage-users", Pattern: "/gerenciar-usuarios", Access: AccessAdministrador, Menu: "Gerenciar Usuários"},
}

// Routes devolve cópia da tabela de rotas.
func Routes() []Route {
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}

// Lookup encontra a rota pelo padrão declarado.
func Lookup(pattern string) (Route, bool) {
	for _, r := range routes {
		if r.Pattern == pattern {
			return r, true
		}
	}
	return Route{}, false
}

// Allows decide se a rota é visível. Autenticação é avaliada antes do perfil.
func Allows(authenticated bool, role session.Role, r Route) bool {
	if r.Access == AccessPublic {
		return true
	}
	if !authenticated {
		return false
	}
	return role.Rank() >= int(r.Access)
}

// Visible lista as rotas visíveis para o par autenticação/perfil.
func Visible(authenticated bool, role session.Role) []Route {
	out := make([]Route, 0, len(routes))
	for _, r := range routes {
		if Allows(authenticated, role, r) {
			out = append(out, r)
		}
	}
	return out
}

// Fallback devolve o destino de redirecionamento para rotas negadas.
func Fallback(authenticated bool) string {
	if authenticated {
		return PathDashboard
	}
	return PathLogin
}

// MenuEntry é um cartão do dashboard.
type MenuEntry struct {
	Label string `json:"label"`
	Path  string `json:"path"`
}

// Menu deriva a navegação do mesmo conjunto de rotas visíveis.
func Menu(authenticated bool, role session.Role) []MenuEntry {
	if !authenticated {
		return nil
	}
	var out []MenuEntry
	for _, r := range Visible(authenticated, role) {
		if r.Menu == "" {
			continue
		}
		out = append(out, MenuEntry{Label: r.Menu, Path: r.Pattern})
	}
	return out
}

// AccessMode define qual canal o detalhe de ocorrência utiliza.
type AccessMode int

const (
	ModePublic AccessMode = iota
	ModeManagement
)

func (m AccessMode) String() string {
	if m == ModeManagement {
		return "management"
	}
	return "public"
}

// Capabilities agrupa as ações de UI liberadas.
type Capabilities struct {
	RegisterOccurrence  bool       `json:"register_occurrence"`
	EditOccurrence      bool       `json:"edit_occurrence"`
	DeleteOccurrence    bool       `json:"delete_occurrence"`
	SendNotification    bool       `json:"send_notification"`
	ManageOrganizations bool       `json:"manage_organizations"`
	ManageUsers         bool       `json:"manage_users"`
	DetailMode          AccessMode `json:"-"`
}

// CapabilitiesFor calcula as ações a partir das mesmas regras das rotas.
func CapabilitiesFor(authenticated bool, role session.Role) Capabilities {
	moderation := allowsAccess(authenticated, role, AccessModerador)
	caps := Capabilities{
		RegisterOccurrence:  allowsAccess(authenticated, role, AccessUsuario),
		EditOccurrence:      moderation,
		DeleteOccurrence:    moderation,
		SendNotification:    moderation,
		ManageOrganizations: moderation,
		ManageUsers:         allowsAccess(authenticated, role, AccessAdministrador),
		DetailMode:          ModePublic,
	}
	if moderation {
		caps.DetailMode = ModeManagement
	}
	return caps
}

func allowsAccess(authenticated bool, role session.Role, a Access) bool {
	return Allows(authenticated, role, Route{Access: a})
}

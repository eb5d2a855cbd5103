package policy

import (
	"testing"

	"github.com/svca/portal/internal/session"
)

func TestAllowsMatrix(t *testing.T) {
	tests := []struct {
		pattern string
		anon    bool
		usuario bool
		mod     bool
		admin   bool
	}{
		{"/", true, true, true, true},
		{"/reset-password/{token}", true, true, true, true},
		{"/dashboard", false, true, true, true},
		{"/ocorrencia/{id}", false, true, true, true},
		{"/gerenciar-ocorrencias/{id}", false, false, true, true},
		{"/gerenciar-orgaos/cadastrar", false, false, true, true},
		{"/gerenciar-usuarios", false, false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			r, ok := Lookup(tt.pattern)
			if !ok {
				t.Fatalf("route %s not declared", tt.pattern)
			}
			cases := []struct {
				auth bool
				role session.Role
				want bool
			}{
				{false, session.RoleAnonymous, tt.anon},
				{true, session.RoleUsuario, tt.usuario},
				{true, session.RoleModerador, tt.mod},
				{true, session.RoleAdministrador, tt.admin},
			}
			for _, c := range cases {
				if got := Allows(c.auth, c.role, r); got != c.want {
					t.Errorf("Allows(%v, %v) = %v, want %v", c.auth, c.role, got, c.want)
				}
			}
		})
	}
}

func TestAuthenticationPrecedesRole(t *testing.T) {
	r, _ := Lookup("/gerenciar-usuarios")
	if Allows(false, session.RoleAdministrador, r) {
		t.Fatal("unauthenticated caller must never pass role gates")
	}
	if Fallback(false) != PathLogin {
		t.Fatal("unauthenticated fallback must be login")
	}
	if Fallback(true) != PathDashboard {
		t.Fatal("authenticated fallback must be dashboard")
	}
}

func TestMenuFollowsVisibleRoutes(t *testing.T) {
	for _, role := range []session.Role{session.RoleUsuario, session.RoleModerador, session.RoleAdministrador} {
		visible := map[string]bool{}
		for _, r := range Visible(true, role) {
			visible[r.Pattern] = true
		}
		for _, entry := range Menu(true, role) {
			if !visible[entry.Path] {
				t.Errorf("%v: menu entry %s not visible", role, entry.Path)
			}
		}
	}

	hasUsers := func(entries []MenuEntry) bool {
		for _, e := range entries {
			if e.Path == "/gerenciar-usuarios" {
				return true
			}
		}
		return false
	}
	if hasUsers(Menu(true, session.RoleModerador)) {
		t.Fatal("moderador must not see manage-users")
	}
	if !hasUsers(Menu(true, session.RoleAdministrador)) {
		t.Fatal("administrador must see manage-users")
	}
	if Menu(false, session.RoleAnonymous) != nil {
		t.Fatal("anonymous menu must be empty")
	}
}

func TestCapabilities(t *testing.T) {
	user := CapabilitiesFor(true, session.RoleUsuario)
	if user.EditOccurrence || user.SendNotification || user.ManageUsers || user.DetailMode != ModePublic {
		t.Fatalf("unexpected usuario capabilities %+v", user)
	}
	if !user.RegisterOccurrence {
		t.Fatal("usuario must register occurrences")
	}

	mod := CapabilitiesFor(true, session.RoleModerador)
	if !mod.EditOccurrence || !mod.ManageOrganizations || mod.ManageUsers || mod.DetailMode != ModeManagement {
		t.Fatalf("unexpected moderador capabilities %+v", mod)
	}

	admin := CapabilitiesFor(true, session.RoleAdministrador)
	if !admin.ManageUsers || !admin.DeleteOccurrence {
		t.Fatalf("unexpected administrador capabilities %+v", admin)
	}

	anon := CapabilitiesFor(false, session.RoleAdministrador)
	if anon != (Capabilities{}) {
		t.Fatalf("unauthenticated capabilities must be empty, got %+v", anon)
	}
}

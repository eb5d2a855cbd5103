package occurrence

import (
	"testing"

	"github.com/svca/portal/internal/apperr"
)

func TestOrganizationInputValidate(t *testing.T) {
	tests := []struct {
		name string
		in   OrganizationInput
		msg  string
	}{
		{"ok", OrganizationInput{Name: " Compesa ", Email: "ouvidoria@compesa.com.br", Phone: "0800"}, ""},
		{"sem telefone", OrganizationInput{Name: "Compesa", Email: "ouvidoria@compesa.com.br"}, "Todos os campos são obrigatórios."},
		{"email inválido", OrganizationInput{Name: "Compesa", Email: "compesa", Phone: "0800"}, "E-mail inválido."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.in.Validate()
			if tt.msg == "" {
				if err != nil {
					t.Fatalf("unexpected %v", err)
				}
				return
			}
			if !apperr.Is(err, apperr.KindValidation) || apperr.Message(err) != tt.msg {
				t.Fatalf("got %v, want %q", err, tt.msg)
			}
		})
	}

	in := OrganizationInputFrom(Organization{ID: 1, Name: "Compesa ", Email: " a@b.com"}).Normalize()
	if in.Name != "Compesa" || in.Email != "a@b.com" {
		t.Fatalf("normalize = %+v", in)
	}
}

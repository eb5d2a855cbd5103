package occurrence

import (
	"strings"

	"github.com/svca/portal/internal/apperr"
	"github.com/svca/portal/internal/util"
)

// OrganizationInput é o corpo de criação e edição de órgão responsável.
type OrganizationInput struct {
	Name  string `json:"nome"`
	Email string `json:"email"`
	Phone string `json:"telefone"`
}

// OrganizationInputFrom preenche o formulário de edição.
func OrganizationInputFrom(o Organization) OrganizationInput {
	return OrganizationInput{Name: o.Name, Email: o.Email, Phone: o.Phone}
}

// Normalize remove espaços das bordas.
func (in OrganizationInput) Normalize() OrganizationInput {
	return OrganizationInput{
		Name:  strings.TrimSpace(in.Name),
		Email: strings.TrimSpace(in.Email),
		Phone: strings.TrimSpace(in.Phone),
	}
}

// Validate exige todos os campos e um e-mail válido.
func (in OrganizationInput) Validate() error {
	in = in.Normalize()
	var fields []apperr.FieldError
	if in.Name == "" {
		fields = append(fields, apperr.FieldError{Field: "nome", Message: "obrigatório"})
	}
	if in.Email == "" {
		fields = append(fields, apperr.FieldError{Field: "email", Message: "obrigatório"})
	}
	if in.Phone == "" {
		fields = append(fields, apperr.FieldError{Field: "telefone", Message: "obrigatório"})
	}
	if len(fields) > 0 {
		return apperr.Validation("Todos os campos são obrigatórios.", fields...)
	}
	if err := util.ValidateEmail(in.Email); err != nil {
		return apperr.Validation("E-mail inválido.", apperr.FieldError{Field: "email", Message: err.Error()})
	}
	return nil
}

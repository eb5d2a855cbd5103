package util

import (
	"errors"
	"testing"
)

func TestValidators(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"email vazio", ValidateEmail("  "), ErrEmailRequired},
		{"email inválido", ValidateEmail("ana@"), ErrEmailInvalid},
		{"email ok", ValidateEmail("ana@svca.org"), nil},
		{"senha curta", ValidatePassword("12345"), ErrPasswordShort},
		{"senha acentuada conta runas", ValidatePassword("áéíóúç"), nil},
		{"senhas diferentes", ValidatePasswordPair("123456", "654321"), ErrPasswordMismatch},
		{"par curto", ValidatePasswordPair("123", "123"), ErrPasswordShort},
		{"par ok", ValidatePasswordPair("segredo", "segredo"), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Fatalf("got %v, want %v", tt.err, tt.want)
			}
		})
	}

	if err := RequireString(" ", "nome"); err == nil || err.Error() != "nome obrigatório" {
		t.Fatalf("unexpected %v", err)
	}
}

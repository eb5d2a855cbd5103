package util

import (
	"errors"
	"net/mail"
	"strings"
)

// MinPasswordLength é o tamanho mínimo aceito pelo backend.
const MinPasswordLength = 6

var (
	ErrEmailRequired    = errors.New("email obrigatório")
	ErrEmailInvalid     = errors.New("email inválido")
	ErrPasswordShort    = errors.New("a senha deve ter pelo menos 6 caracteres")
	ErrPasswordMismatch = errors.New("as senhas não coincidem")
)

// ValidateEmail retorna erro para e-mails inválidos.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return ErrEmailRequired
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return ErrEmailInvalid
	}
	return nil
}

// ValidatePassword verifica requisitos mínimos de senha.
func ValidatePassword(password string) error {
	if len([]rune(password)) < MinPasswordLength {
		return ErrPasswordShort
	}
	return nil
}

// ValidatePasswordPair confere confirmação antes do tamanho, como os formulários.
func ValidatePasswordPair(password, confirmation string) error {
	if password != confirmation {
		return ErrPasswordMismatch
	}
	return ValidatePassword(password)
}

// RequireString garante string não vazia.
func RequireString(value, field string) error {
	if strings.TrimSpace(value) == "" {
		return errors.New(field + " obrigatório")
	}
	return nil
}

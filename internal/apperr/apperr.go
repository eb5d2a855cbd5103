package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifica falhas visíveis ao usuário.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindAuth
	KindForbidden
	KindNotFound
	KindNetwork
	KindServer
)

// Mensagens genéricas usadas quando o backend não informa o motivo.
const (
	MsgNetwork   = "Erro ao conectar ao servidor. Tente novamente mais tarde."
	MsgAuth      = "Sessão expirada. Faça login novamente."
	MsgForbidden = "Você não tem permissão para realizar esta ação."
	MsgNotFound  = "Registro não encontrado."
	MsgServer    = "Ocorreu um erro inesperado. Tente novamente."
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindNetwork:
		return "network"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Code devolve o código usado no envelope HTTP.
func (k Kind) Code() string {
	switch k {
	case KindValidation:
		return "VALIDATION"
	case KindAuth:
		return "AUTH"
	case KindForbidden:
		return "FORBIDDEN"
	case KindNotFound:
		return "NOT_FOUND"
	case KindNetwork:
		return "NETWORK"
	default:
		return "INTERNAL"
	}
}

// HTTPStatus devolve o status que o portal responde para o tipo.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindAuth:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindNetwork:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FieldError aponta o campo inválido de um formulário.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// Error é a variante etiquetada retornada por validações e pelo gateway.
type Error struct {
	Kind    Kind
	Message string
	Status  int
	Fields  []FieldError
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Validation cria erro de validação local.
func Validation(message string, fields ...FieldError) *Error {
	return &Error{Kind: KindValidation, Message: message, Fields: fields}
}

// Forbidden cria erro de permissão local.
func Forbidden(message string) *Error {
	if message == "" {
		message = MsgForbidden
	}
	return &Error{Kind: KindForbidden, Message: message, Status: http.StatusForbidden}
}

// Network envolve falhas de transporte.
func Network(err error) *Error {
	return &Error{Kind: KindNetwork, Message: MsgNetwork, Err: err}
}

// FromStatus traduz uma resposta não-2xx. message vem do corpo quando existir.
func FromStatus(status int, message string) *Error {
	kind := KindServer
	fallback := MsgServer
	switch {
	case status == http.StatusUnauthorized:
		kind, fallback = KindAuth, MsgAuth
	case status == http.StatusForbidden:
		kind, fallback = KindForbidden, MsgForbidden
	case status == http.StatusNotFound:
		kind, fallback = KindNotFound, MsgNotFound
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity || status == http.StatusConflict:
		kind, fallback = KindValidation, MsgServer
	}
	if message == "" {
		message = fallback
	}
	return &Error{Kind: kind, Message: message, Status: status}
}

// KindOf extrai o tipo de qualquer erro da cadeia.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is informa se err é do tipo indicado.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// Message devolve texto adequado para exibição inline.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return MsgServer
}

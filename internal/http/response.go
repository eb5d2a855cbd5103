package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/svca/portal/internal/apperr"
)

const maxJSONBody = 1 << 20

// SuccessEnvelope padroniza respostas com dados.
type SuccessEnvelope struct {
	Data  any `json:"data"`
	Error any `json:"error"`
}

// ErrorEnvelope padroniza respostas de erro.
type ErrorEnvelope struct {
	Data  any        `json:"data"`
	Error *ErrorBody `json:"error"`
}

// ErrorBody descreve falhas normalizadas.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// WriteJSON escreve envelope de sucesso.
func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(SuccessEnvelope{Data: data, Error: nil})
}

// WriteError escreve envelope de erro e mantém formato consistente.
func WriteError(w http.ResponseWriter, status int, code, message string, details interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(ErrorEnvelope{
		Data:  nil,
		Error: &ErrorBody{Code: code, Message: message, Details: details},
	})
}

// writeAppError traduz erros etiquetados para o envelope. Sem details
// explícitos, os campos inválidos são anexados.
func writeAppError(w http.ResponseWriter, err error, details any) {
	kind := apperr.KindOf(err)
	if kind == apperr.KindUnknown {
		kind = apperr.KindServer
	}
	if details == nil {
		var e *apperr.Error
		if errors.As(err, &e) && len(e.Fields) > 0 {
			details = map[string]any{"fields": e.Fields}
		}
	}
	WriteError(w, kind.HTTPStatus(), kind.Code(), apperr.Message(err), details)
}

// decodeJSON lê o corpo em dst. Corpo vazio é aceito quando allowEmpty.
func decodeJSON(r *http.Request, dst any, allowEmpty bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if allowEmpty && errors.Is(err, io.EOF) {
			return nil
		}
		return apperr.Validation("JSON inválido")
	}
	return nil
}

func parseIDParam(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, apperr.Validation("id inválido")
	}
	return id, nil
}

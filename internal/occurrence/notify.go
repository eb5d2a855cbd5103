package occurrence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/svca/portal/internal/apperr"
	"github.com/svca/portal/internal/policy"
)

// ErrNotificationDisabled indica que o envio não está liberado.
var ErrNotificationDisabled = errors.New("envio de notificação indisponível")

// NotificationRequest é o corpo enviado ao backend.
type NotificationRequest struct {
	Message        string `json:"mensagem"`
	RecipientEmail string `json:"email_destino"`
}

// NotificationSender entrega a notificação pelo canal de moderação.
type NotificationSender interface {
	SendNotification(ctx context.Context, occurrenceID int, req NotificationRequest) (Notification, error)
}

// CanNotify exige órgão responsável e permissão de edição.
func CanNotify(caps policy.Capabilities, o Occurrence) bool {
	return caps.EditOccurrence && caps.SendNotification && o.Organization != nil
}

// DefaultNotificationMessage monta o texto padrão enviado ao órgão.
func DefaultNotificationMessage(o Occurrence) string {
	return fmt.Sprintf("Ocorrência #%d \"%s\" em %s foi encaminhada para acompanhamento. Status atual: %s.",
		o.ID, o.Title, o.Address, o.Status.Name)
}

// SendNotification dispara a notificação e devolve a ocorrência com o histórico
// acrescido. Falhas mantêm o histórico original.
func SendNotification(ctx context.Context, sender NotificationSender, caps policy.Capabilities, o Occurrence, message string) (Occurrence, error) {
	if !CanNotify(caps, o) {
		return o, &apperr.Error{
			Kind:    apperr.KindForbidden,
			Message: "Atribua um órgão responsável antes de enviar notificações.",
			Err:     ErrNotificationDisabled,
		}
	}
	recipient := strings.TrimSpace(o.Organization.Email)
	if recipient == "" {
		return o, apperr.Validation("O órgão responsável não possui e-mail cadastrado.",
			apperr.FieldError{Field: "email_destino", Message: "obrigatório"})
	}
	message = strings.TrimSpace(message)
	if message == "" {
		message = DefaultNotificationMessage(o)
	}

	sent, err := sender.SendNotification(ctx, o.ID, NotificationRequest{Message: message, RecipientEmail: recipient})
	if err != nil {
		return o, err
	}
	if sent.Message == "" {
		sent.Message = message
	}
	if sent.RecipientEmail == "" {
		sent.RecipientEmail = recipient
	}

	next := o
	next.NotificationHistory = make([]Notification, 0, len(o.NotificationHistory)+1)
	next.NotificationHistory = append(next.NotificationHistory, o.NotificationHistory...)
	next.NotificationHistory = append(next.NotificationHistory, sent)
	return next, nil
}

package occurrence

import (
	"errors"
	"strings"
	"time"

	"github.com/svca/portal/internal/apperr"
	"github.com/svca/portal/internal/policy"
)

var (
	// ErrClosedAtOutsideTerminal indica data de finalização em status não terminal.
	ErrClosedAtOutsideTerminal = errors.New("data de finalização só existe em status terminal")
	// ErrJustificationMismatch indica justificativa ausente em recusa ou presente fora dela.
	ErrJustificationMismatch = errors.New("justificativa deve existir somente em ocorrências recusadas")
)

// Validate confere os invariantes da entidade recebida.
func (o Occurrence) Validate() error {
	phase := o.Phase()
	if o.ClosedAt != nil && !o.ClosedAt.IsZero() && !phase.Terminal() {
		return ErrClosedAtOutsideTerminal
	}
	hasJustification := o.RejectionJustification != nil && strings.TrimSpace(*o.RejectionJustification) != ""
	if hasJustification != (phase == PhaseRejected) {
		return ErrJustificationMismatch
	}
	return nil
}

// Controls indica quais controles do detalhe ficam habilitados.
type Controls struct {
	Title            bool `json:"titulo"`
	Description      bool `json:"descricao"`
	Address          bool `json:"endereco"`
	Status           bool `json:"status"`
	Organization     bool `json:"orgao_responsavel"`
	Justification    bool `json:"justificativa_recusa"`
	SendNotification bool `json:"enviar_notificacao"`
	Delete           bool `json:"excluir"`
}

// Editable calcula os campos editáveis considerando o status de destino.
func Editable(caps policy.Capabilities, current Occurrence, target Phase) Controls {
	if !caps.EditOccurrence {
		return Controls{}
	}
	open := !current.Phase().Terminal()
	return Controls{
		Title:            open,
		Description:      open,
		Address:          open,
		Status:           true,
		Organization:     true,
		Justification:    target == PhaseRejected,
		SendNotification: CanNotify(caps, current),
		Delete:           caps.DeleteOccurrence,
	}
}

// Change é o formulário de edição preenchido pelo moderador.
type Change struct {
	Title          string
	Description    string
	Address        string
	StatusID       int
	OrganizationID *int
	Justification  string
}

// ChangeFrom preenche o formulário com os valores atuais.
func ChangeFrom(o Occurrence) Change {
	c := Change{
		Title:       o.Title,
		Description: o.Description,
		Address:     o.Address,
		StatusID:    o.Status.ID,
	}
	if o.Organization != nil {
		id := o.Organization.ID
		c.OrganizationID = &id
	}
	if o.RejectionJustification != nil {
		c.Justification = *o.RejectionJustification
	}
	return c
}

// Update é o corpo completo do PUT /occurrence/{id}.
type Update struct {
	Title          string  `json:"titulo"`
	Description    string  `json:"descricao"`
	Address        string  `json:"endereco"`
	StatusID       int     `json:"status_id"`
	OrganizationID *int    `json:"orgao_responsavel_id"`
	Justification  *string `json:"justificativa_recusa"`
}

// PrepareUpdate valida a alteração inteira antes de qualquer chamada remota.
// Uma recusa sem justificativa rejeita a atualização completa.
func PrepareUpdate(caps policy.Capabilities, catalog StatusCatalog, current Occurrence, change Change) (Update, error) {
	if !caps.EditOccurrence {
		return Update{}, apperr.Forbidden("Apenas moderadores e administradores podem alterar ocorrências.")
	}

	upd := Update{
		Title:       strings.TrimSpace(change.Title),
		Description: strings.TrimSpace(change.Description),
		Address:     strings.TrimSpace(change.Address),
		StatusID:    change.StatusID,
	}

	var missing []apperr.FieldError
	if upd.Title == "" {
		missing = append(missing, apperr.FieldError{Field: "titulo", Message: "obrigatório"})
	}
	if upd.Description == "" {
		missing = append(missing, apperr.FieldError{Field: "descricao", Message: "obrigatório"})
	}
	if upd.Address == "" {
		missing = append(missing, apperr.FieldError{Field: "endereco", Message: "obrigatório"})
	}
	if upd.StatusID <= 0 {
		missing = append(missing, apperr.FieldError{Field: "status_id", Message: "obrigatório"})
	}
	if len(missing) > 0 {
		return Update{}, apperr.Validation("Título, Descrição, Endereço e Status são obrigatórios.", missing...)
	}

	status, ok := catalog.ByID(upd.StatusID)
	if !ok {
		return Update{}, apperr.Validation("Status inválido.", apperr.FieldError{Field: "status_id", Message: "desconhecido"})
	}
	target := status.Phase()
	controls := Editable(caps, current, target)

	var locked []apperr.FieldError
	if !controls.Title && upd.Title != current.Title {
		locked = append(locked, apperr.FieldError{Field: "titulo", Message: "bloqueado"})
	}
	if !controls.Description && upd.Description != current.Description {
		locked = append(locked, apperr.FieldError{Field: "descricao", Message: "bloqueado"})
	}
	if !controls.Address && upd.Address != current.Address {
		locked = append(locked, apperr.FieldError{Field: "endereco", Message: "bloqueado"})
	}
	if len(locked) > 0 {
		return Update{}, apperr.Validation("Ocorrências encerradas só permitem alterar status e órgão responsável.", locked...)
	}

	if change.OrganizationID != nil && *change.OrganizationID > 0 {
		id := *change.OrganizationID
		upd.OrganizationID = &id
	}

	if target == PhaseRejected {
		justification := strings.TrimSpace(change.Justification)
		if justification == "" {
			return Update{}, apperr.Validation("Informe a justificativa da recusa.", apperr.FieldError{Field: "justificativa_recusa", Message: "obrigatório"})
		}
		upd.Justification = &justification
	}

	return upd, nil
}

// Apply devolve a entidade resultante após o backend aceitar a atualização.
func (u Update) Apply(current Occurrence, catalog StatusCatalog, orgs []Organization, now time.Time) Occurrence {
	next := current
	next.Title = u.Title
	next.Description = u.Description
	next.Address = u.Address
	if status, ok := catalog.ByID(u.StatusID); ok {
		next.Status = status
	} else {
		next.Status = StatusRef{ID: u.StatusID}
	}

	next.Organization = nil
	if u.OrganizationID != nil {
		org := Organization{ID: *u.OrganizationID}
		for _, o := range orgs {
			if o.ID == org.ID {
				org = o
				break
			}
		}
		next.Organization = &org
	}

	next.RejectionJustification = nil
	if u.Justification != nil {
		j := *u.Justification
		next.RejectionJustification = &j
	}

	if next.Phase().Terminal() {
		if next.ClosedAt == nil || next.ClosedAt.IsZero() {
			next.ClosedAt = &Timestamp{now.UTC()}
		}
	} else {
		next.ClosedAt = nil
	}

	next.NotificationHistory = append([]Notification(nil), current.NotificationHistory...)
	return next
}

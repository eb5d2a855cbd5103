package occurrence

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/svca/portal/internal/apperr"
	"github.com/svca/portal/internal/policy"
)

// DetailSource são as leituras remotas usadas pelo detalhe.
type DetailSource interface {
	GetOccurrence(ctx context.Context, id int) (Occurrence, error)
	ViewOccurrence(ctx context.Context, id int) (PublicOccurrence, error)
	ListStatusOptions(ctx context.Context) ([]StatusRef, error)
	ListOrganizations(ctx context.Context, search string) ([]Organization, error)
}

// ManageView é o detalhe editável da moderação.
type ManageView struct {
	Occurrence        Occurrence     `json:"ocorrencia"`
	Statuses          []StatusRef    `json:"status"`
	Organizations     []Organization `json:"orgaos"`
	Controls          Controls       `json:"controles"`
	RejectedStatusIDs []int          `json:"status_recusa"`
}

// PublicView é o detalhe somente leitura. Não há controles de moderação,
// nem mesmo desabilitados.
type PublicView struct {
	Occurrence PublicOccurrence `json:"ocorrencia"`
	ReadOnly   bool             `json:"somente_leitura"`
}

// Detail carrega exatamente um dos modos.
type Detail struct {
	Mode   policy.AccessMode `json:"-"`
	Manage *ManageView       `json:"gerenciar,omitempty"`
	Public *PublicView       `json:"publico,omitempty"`
}

// LoadDetail busca o detalhe pelo canal indicado em mode. O modo é explícito;
// a rota atual nunca é consultada.
func LoadDetail(ctx context.Context, src DetailSource, caps policy.Capabilities, mode policy.AccessMode, id int) (Detail, error) {
	if mode == policy.ModePublic {
		occ, err := src.ViewOccurrence(ctx, id)
		if err != nil {
			return Detail{}, err
		}
		return Detail{Mode: mode, Public: &PublicView{Occurrence: occ, ReadOnly: true}}, nil
	}

	if !caps.EditOccurrence {
		return Detail{}, apperr.Forbidden("")
	}

	occ, err := src.GetOccurrence(ctx, id)
	if err != nil {
		return Detail{}, err
	}
	if err := occ.Validate(); err != nil {
		log.Warn().Err(err).Int("occurrence_id", id).Msg("ocorrência com invariantes inconsistentes")
	}
	statuses, err := src.ListStatusOptions(ctx)
	if err != nil {
		return Detail{}, err
	}
	orgs, err := src.ListOrganizations(ctx, "")
	if err != nil {
		return Detail{}, err
	}

	view := &ManageView{
		Occurrence:    occ,
		Statuses:      statuses,
		Organizations: orgs,
		Controls:      Editable(caps, occ, occ.Phase()),
	}
	for _, s := range statuses {
		if s.Phase() == PhaseRejected {
			view.RejectedStatusIDs = append(view.RejectedStatusIDs, s.ID)
		}
	}
	return Detail{Mode: mode, Manage: view}, nil
}

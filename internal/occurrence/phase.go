package occurrence

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Phase é a classificação canônica de um status.
type Phase int

const (
	PhaseUnknown Phase = iota
	PhasePending
	PhaseValidated
	PhaseInProgress
	PhaseRejected
	PhaseClosedResolved
	PhaseClosedUnresolved
)

func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "pending"
	case PhaseValidated:
		return "validated"
	case PhaseInProgress:
		return "in_progress"
	case PhaseRejected:
		return "rejected"
	case PhaseClosedResolved:
		return "closed_resolved"
	case PhaseClosedUnresolved:
		return "closed_unresolved"
	default:
		return "unknown"
	}
}

// Terminal informa se a fase encerra a ocorrência.
func (p Phase) Terminal() bool {
	return p == PhaseRejected || p == PhaseClosedResolved || p == PhaseClosedUnresolved
}

var phaseNames = map[string]Phase{
	"registrada":          PhasePending,
	"pendente":            PhasePending,
	"validada":            PhaseValidated,
	"em andamento":        PhaseInProgress,
	"recusada":            PhaseRejected,
	"fechada com solucao": PhaseClosedResolved,
	"fechada sem solucao": PhaseClosedUnresolved,
}

// ClassifyStatus reconhece o nome ignorando acentos, caixa e espaços extras.
func ClassifyStatus(name string) Phase {
	if p, ok := phaseNames[foldName(name)]; ok {
		return p
	}
	return PhaseUnknown
}

func foldName(name string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, name)
	if err != nil {
		folded = name
	}
	return strings.Join(strings.Fields(strings.ToLower(folded)), " ")
}

// StatusCatalog é o conjunto de status devolvido pelo backend.
type StatusCatalog struct {
	items []StatusRef
}

// NewStatusCatalog copia as opções recebidas.
func NewStatusCatalog(items []StatusRef) StatusCatalog {
	return StatusCatalog{items: append([]StatusRef(nil), items...)}
}

// Options devolve as opções na ordem do backend.
func (c StatusCatalog) Options() []StatusRef {
	return append([]StatusRef(nil), c.items...)
}

// ByID procura o status pelo identificador.
func (c StatusCatalog) ByID(id int) (StatusRef, bool) {
	for _, s := range c.items {
		if s.ID == id {
			return s, true
		}
	}
	return StatusRef{}, false
}

// ByPhase devolve o primeiro status da fase.
func (c StatusCatalog) ByPhase(p Phase) (StatusRef, bool) {
	for _, s := range c.items {
		if s.Phase() == p {
			return s, true
		}
	}
	return StatusRef{}, false
}

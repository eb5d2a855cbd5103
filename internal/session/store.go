package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/svca/portal/internal/apperr"
	"github.com/svca/portal/internal/metrics"
)

// Invalidator encerra a sessão no backend.
type Invalidator interface {
	Logout(ctx context.Context) error
}

// Store mantém a sessão de um usuário e a sincroniza com o Persister.
type Store struct {
	mu        sync.RWMutex
	persister Persister
	key       string
	sess      Session
	dirty     bool
	now       func() time.Time
}

// New cria store anônimo sem consultar o armazenamento.
func New(persister Persister, key string) *Store {
	return &Store{persister: persister, key: key, now: time.Now}
}

// Open reidrata a sessão persistida. Registro ausente resulta em store anônimo.
func Open(ctx context.Context, persister Persister, key string) (*Store, error) {
	s := New(persister, key)
	if key == "" {
		return s, nil
	}

	stored, err := persister.Load(ctx, key)
	if errors.Is(err, ErrNotFound) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("carregar sessão: %w", err)
	}

	if !stored.consistent() {
		log.Warn().Str("component", "session").Msg("sessão persistida inconsistente descartada")
		return s, nil
	}
	s.sess = *stored
	return s, nil
}

// Key devolve a chave de persistência.
func (s *Store) Key() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.key
}

// Login grava a identidade. Identidade incompleta é ignorada sem erro.
func (s *Store) Login(ctx context.Context, id Identity) error {
	if !id.Complete() {
		log.Debug().Str("component", "session").Msg("login ignorado: identidade incompleta")
		return nil
	}
	if strings.TrimSpace(id.AvatarURL) == "" {
		id.AvatarURL = DefaultAvatar
	}

	s.mu.Lock()
	now := s.now().UTC()
	next := s.sess
	next.UserID = strings.TrimSpace(id.UserID)
	next.DisplayName = strings.TrimSpace(id.DisplayName)
	next.Role = id.Role
	next.AvatarURL = id.AvatarURL
	if next.CreatedAt.IsZero() {
		next.CreatedAt = now
	}
	next.UpdatedAt = now
	s.mu.Unlock()

	if err := s.persister.Save(ctx, s.Key(), &next); err != nil {
		return fmt.Errorf("persistir sessão: %w", err)
	}

	s.mu.Lock()
	s.sess = next
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// Logout só limpa o estado local quando o backend confirma o encerramento.
func (s *Store) Logout(ctx context.Context, inv Invalidator) error {
	if err := inv.Logout(ctx); err != nil {
		return err
	}
	return s.clear(ctx)
}

// ForceLogout limpa a sessão após o backend rejeitar as credenciais.
func (s *Store) ForceLogout(ctx context.Context) error {
	log.Info().Str("component", "session").Str("user_id", s.Identity().UserID).Msg("sessão encerrada pelo backend")
	metrics.ForcedLogoutsTotal.Inc()
	return s.clear(ctx)
}

func (s *Store) clear(ctx context.Context) error {
	if err := s.persister.Delete(ctx, s.Key()); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("remover sessão: %w", err)
	}
	s.mu.Lock()
	s.sess = Session{}
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// Observe aplica a resposta de uma chamada remota ao estado da sessão.
// 401 sempre encerra a sessão; 403 encerra quando a conta foi bloqueada ou
// quando a chamada carregava uma página que exige autenticação.
func (s *Store) Observe(ctx context.Context, err error, pageLoad bool) (loggedOut bool) {
	if err == nil {
		return false
	}
	force := false
	switch apperr.KindOf(err) {
	case apperr.KindAuth:
		force = true
	case apperr.KindForbidden:
		force = pageLoad || accountBlocked(err)
	}
	if !force {
		return false
	}
	if clearErr := s.ForceLogout(ctx); clearErr != nil {
		log.Error().Err(clearErr).Str("component", "session").Msg("falha ao limpar sessão")
	}
	return true
}

func accountBlocked(err error) bool {
	return strings.Contains(strings.ToLower(apperr.Message(err)), "bloquead")
}

// CurrentRole devolve o perfil ou RoleAnonymous.
func (s *Store) CurrentRole() Role {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.Role
}

// Authenticated informa se há identidade válida.
func (s *Store) Authenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.UserID != "" && s.sess.Role.Valid()
}

// Identity devolve cópia da identidade atual.
func (s *Store) Identity() Identity {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sess.identity()
}

// UpdateDisplay atualiza nome e avatar após edição do perfil.
func (s *Store) UpdateDisplay(ctx context.Context, name, avatar string) error {
	s.mu.Lock()
	if s.sess.UserID == "" {
		s.mu.Unlock()
		return nil
	}
	next := s.sess
	if name = strings.TrimSpace(name); name != "" {
		next.DisplayName = name
	}
	if avatar = strings.TrimSpace(avatar); avatar != "" {
		next.AvatarURL = avatar
	}
	next.UpdatedAt = s.now().UTC()
	s.mu.Unlock()

	if err := s.persister.Save(ctx, s.Key(), &next); err != nil {
		return fmt.Errorf("persistir sessão: %w", err)
	}
	s.mu.Lock()
	s.sess = next
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// Flush persiste cookies renovados pelo backend. Sessões anônimas não são
// gravadas, e um registro já removido por um logout concorrente não é recriado.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	if !s.dirty || s.sess.UserID == "" {
		s.mu.Unlock()
		return nil
	}
	s.sess.UpdatedAt = s.now().UTC()
	snapshot := s.sess
	snapshot.Cookies = append([]Cookie(nil), s.sess.Cookies...)
	key := s.key
	s.dirty = false
	s.mu.Unlock()

	err := s.persister.Update(ctx, key, &snapshot)
	if errors.Is(err, ErrNotFound) {
		log.Debug().Str("component", "session").Msg("sessão removida durante a requisição; cookies descartados")
		s.mu.Lock()
		s.sess = Session{}
		s.mu.Unlock()
		return nil
	}
	if err != nil {
		return fmt.Errorf("persistir cookies: %w", err)
	}
	return nil
}

// Rotate move a sessão para uma nova chave e remove a anterior. Usado após o
// login para que a chave emitida ao visitante anônimo deixe de valer.
func (s *Store) Rotate(ctx context.Context, key string) error {
	s.mu.Lock()
	old := s.key
	snapshot := s.sess
	snapshot.Cookies = append([]Cookie(nil), s.sess.Cookies...)
	s.mu.Unlock()

	if key == "" || key == old {
		return errors.New("nova chave de sessão inválida")
	}
	if snapshot.UserID != "" {
		if err := s.persister.Save(ctx, key, &snapshot); err != nil {
			return fmt.Errorf("persistir sessão: %w", err)
		}
	}
	if err := s.persister.Delete(ctx, old); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("remover sessão anterior: %w", err)
	}

	s.mu.Lock()
	s.key = key
	s.mu.Unlock()
	return nil
}

package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// ErrNotFound indica que não há sessão persistida para a chave.
var ErrNotFound = errors.New("sessão não encontrada")

// Persister guarda sessões de forma durável.
type Persister interface {
	Load(ctx context.Context, key string) (*Session, error)
	Save(ctx context.Context, key string, s *Session) error
	// Update grava apenas se o registro ainda existir; caso contrário ErrNotFound.
	Update(ctx context.Context, key string, s *Session) error
	Delete(ctx context.Context, key string) error
}

// MemoryPersister mantém sessões no processo.
type MemoryPersister struct {
	mu    sync.RWMutex
	items map[string]Session
}

// NewMemoryPersister cria persister em memória.
func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{items: make(map[string]Session)}
}

func (m *MemoryPersister) Load(ctx context.Context, key string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.items[key]
	if !ok {
		return nil, ErrNotFound
	}
	s.Cookies = append([]Cookie(nil), s.Cookies...)
	return &s, nil
}

func (m *MemoryPersister) Save(ctx context.Context, key string, s *Session) error {
	cp := *s
	cp.Cookies = append([]Cookie(nil), s.Cookies...)
	m.mu.Lock()
	m.items[key] = cp
	m.mu.Unlock()
	return nil
}

func (m *MemoryPersister) Update(ctx context.Context, key string, s *Session) error {
	cp := *s
	cp.Cookies = append([]Cookie(nil), s.Cookies...)
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.items[key]; !ok {
		return ErrNotFound
	}
	m.items[key] = cp
	return nil
}

func (m *MemoryPersister) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.items, key)
	m.mu.Unlock()
	return nil
}

// FilePersister grava uma única sessão em arquivo JSON. A chave é ignorada.
type FilePersister struct {
	path string
	mu   sync.Mutex
}

// NewFilePersister usa path como arquivo de sessão.
func NewFilePersister(path string) *FilePersister {
	return &FilePersister{path: path}
}

// Path devolve o caminho do arquivo.
func (f *FilePersister) Path() string {
	return f.path
}

func (f *FilePersister) Load(ctx context.Context, key string) (*Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	raw, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("arquivo de sessão inválido: %w", err)
	}
	return &s, nil
}

func (f *FilePersister) Save(ctx context.Context, key string, s *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(s)
}

func (f *FilePersister) Update(ctx context.Context, key string, s *Session) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, err := os.Stat(f.path); errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	return f.write(s)
}

func (f *FilePersister) write(s *Session) error {
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), ".session-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), f.path)
}

func (f *FilePersister) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

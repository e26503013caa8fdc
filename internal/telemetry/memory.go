package telemetry

import (
	"context"
	"sync"
)

// MemoryStore é uma store de estado em memória.
// Usada quando o Redis está desabilitado e nos testes.
type MemoryStore struct {
	mu        sync.RWMutex
	data      map[string]Reading
	listeners []func(entityID string)
}

// NewMemoryStore cria uma store vazia
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[string]Reading),
	}
}

// OnChange registra uma função chamada após cada escrita
func (m *MemoryStore) OnChange(fn func(entityID string)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listeners = append(m.listeners, fn)
}

// SetState grava a leitura e notifica os ouvintes
func (m *MemoryStore) SetState(ctx context.Context, entityID string, r Reading) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	// Atualização sem unidade mantém a unidade anterior
	if r.Unit == "" {
		r.Unit = m.data[entityID].Unit
	}
	m.data[entityID] = r
	listeners := make([]func(string), len(m.listeners))
	copy(listeners, m.listeners)
	m.mu.Unlock()

	for _, fn := range listeners {
		fn(entityID)
	}
	return nil
}

// Set é um atalho para SetState sem contexto
func (m *MemoryStore) Set(entityID, state, unit string) {
	_ = m.SetState(context.Background(), entityID, Reading{State: state, Unit: unit})
}

// Delete remove a entidade
func (m *MemoryStore) Delete(entityID string) {
	m.mu.Lock()
	delete(m.data, entityID)
	m.mu.Unlock()
}

// Len retorna a quantidade de entidades armazenadas
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}

// Snapshot copia as leituras presentes para as chaves pedidas
func (m *MemoryStore) Snapshot(ctx context.Context, keys []string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	snap := make(Snapshot, len(keys))
	for _, k := range keys {
		if r, ok := m.data[k]; ok {
			snap[k] = r
		}
	}
	return snap, nil
}

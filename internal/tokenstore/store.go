// Package tokenstore persists OAuth2 tokens scoped by (session, provider).
// Scoping by session keeps concurrent end users of a host application from
// sharing one token namespace per process. Three backends: an in-memory map
// for tests and single-shot tools, an atomic-write JSON file tree, and an
// embedded SQLite database.
package tokenstore

import (
	"context"
	"sync"

	"golang.org/x/oauth2"
)

// Store is the scoped get/set contract OAuth drivers use for token
// persistence. Get returns (nil, nil) when no token is stored — absence is
// not an error.
type Store interface {
	Get(ctx context.Context, session, provider string) (*oauth2.Token, error)
	Put(ctx context.Context, session, provider string, tok *oauth2.Token) error
	Delete(ctx context.Context, session, provider string) error
}

// Memory is a Store backed by an in-process map. Safe for concurrent use.
type Memory struct {
	mu     sync.RWMutex
	tokens map[string]*oauth2.Token
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{tokens: make(map[string]*oauth2.Token)}
}

func memKey(session, provider string) string {
	return session + "\x00" + provider
}

func (m *Memory) Get(_ context.Context, session, provider string) (*oauth2.Token, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tok, ok := m.tokens[memKey(session, provider)]
	if !ok {
		return nil, nil //nolint:nilnil // sentinel for "not found"
	}

	cp := *tok

	return &cp, nil
}

func (m *Memory) Put(_ context.Context, session, provider string, tok *oauth2.Token) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	cp := *tok
	m.tokens[memKey(session, provider)] = &cp

	return nil
}

func (m *Memory) Delete(_ context.Context, session, provider string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.tokens, memKey(session, provider))

	return nil
}

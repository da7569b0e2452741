package service

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sync"

	"github.com/fjod/storefront/internal/cache"
	"github.com/fjod/storefront/internal/gateway"
	"github.com/fjod/storefront/internal/notify"
)

// MockCache implements cache.Cache in memory and records evictions.
type MockCache struct {
	mu       sync.Mutex
	data     map[string][]byte
	Evicted  []string
	Patterns []string
	Gets     int
	GetErr   error
}

func NewMockCache() *MockCache {
	return &MockCache{data: make(map[string][]byte)}
}

func (m *MockCache) Get(_ context.Context, key string, dst any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Gets++
	if m.GetErr != nil {
		return m.GetErr
	}
	data, ok := m.data[key]
	if !ok {
		return cache.ErrCacheMiss
	}
	return json.Unmarshal(data, dst)
}

func (m *MockCache) Put(_ context.Context, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = data
	return nil
}

func (m *MockCache) Evict(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.data, key)
	}
	m.Evicted = append(m.Evicted, keys...)
	return nil
}

func (m *MockCache) EvictPattern(_ context.Context, pattern string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for key := range m.data {
		if ok, _ := path.Match(pattern, key); ok {
			delete(m.data, key)
		}
	}
	m.Patterns = append(m.Patterns, pattern)
	return nil
}

func (m *MockCache) Has(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.data[key]
	return ok
}

// MockGateway implements gateway.Gateway, returning one session per
// idempotency key like a real provider. Like the provider, it rejects a reused
// key whose request parameters differ.
type MockGateway struct {
	mu       sync.Mutex
	Requests []gateway.CheckoutRequest
	Err      error
	sessions map[string]mockSession
}

type mockSession struct {
	session     *gateway.Session
	fingerprint string
}

func (m *MockGateway) CreateCheckoutSession(_ context.Context, req gateway.CheckoutRequest) (*gateway.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Requests = append(m.Requests, req)
	if m.Err != nil {
		return nil, m.Err
	}
	if m.sessions == nil {
		m.sessions = make(map[string]mockSession)
	}
	if s, ok := m.sessions[req.IdempotencyKey]; ok {
		if s.fingerprint != req.Fingerprint() {
			return nil, fmt.Errorf("idempotency key %s reused with different parameters", req.IdempotencyKey)
		}
		return s.session, nil
	}
	s := &gateway.Session{
		ID:  "cs_" + req.ClientReferenceID,
		URL: "https://checkout.example.com/" + req.ClientReferenceID,
	}
	m.sessions[req.IdempotencyKey] = mockSession{session: s, fingerprint: req.Fingerprint()}
	return s, nil
}

// MockNotifier implements notify.Notifier for testing
type MockNotifier struct {
	mu   sync.Mutex
	Sent []notify.OrderNotification
	Err  error
}

func (m *MockNotifier) Notify(_ context.Context, n notify.OrderNotification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, n)
	return m.Err
}

func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Sent)
}

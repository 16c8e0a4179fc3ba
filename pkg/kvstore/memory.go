// Package kvstore — in-memory implementasyon.
//
// Memory, Store interface'inin mutex korumalı map implementasyonudur.
// İki kullanım alanı var:
// 1. Testler — Redis gerektirmeden tüm engine test edilebilir
// 2. Tek instance'lı development ortamı (REDIS_ADDR boş bırakılırsa)
//
// TTL davranışı Redis ile aynıdır: süresi dolan string anahtar okuma
// sırasında lazy olarak yok sayılır ve silinir — arka planda sweep
// goroutine'i yoktur, gerek de yoktur (bayat kayıt zararsızdır).
package kvstore

import (
	"context"
	"sync"
	"time"
)

// memoryEntry, string anahtarlar için value + son kullanma tarihi.
// expiresAt zero value ise anahtar süresizdir.
type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Memory, Store'un in-memory implementasyonu.
type Memory struct {
	mu      sync.RWMutex
	strings map[string]memoryEntry
	hashes  map[string]map[string]string
	sets    map[string]map[string]struct{}
}

// NewMemory, boş bir in-memory store oluşturur.
func NewMemory() *Memory {
	return &Memory{
		strings: make(map[string]memoryEntry),
		hashes:  make(map[string]map[string]string),
		sets:    make(map[string]map[string]struct{}),
	}
}

func (m *Memory) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.strings[key]
	if !ok {
		return "", nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		delete(m.strings, key)
		return "", nil
	}
	return entry.value, nil
}

func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.strings[key] = entry
	return nil
}

func (m *Memory) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Süresi dolmuş anahtar "yok" sayılır — Redis ile aynı semantik.
	existing, ok := m.strings[key]
	if ok && (existing.expiresAt.IsZero() || time.Now().Before(existing.expiresAt)) {
		return false, nil
	}

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	m.strings[key] = entry
	return true, nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.strings, key)
	delete(m.hashes, key)
	delete(m.sets, key)
	return nil
}

func (m *Memory) HGet(_ context.Context, key, field string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.hashes[key][field], nil
}

func (m *Memory) HSet(_ context.Context, key, field, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hashes[key] == nil {
		m.hashes[key] = make(map[string]string)
	}
	m.hashes[key][field] = value
	return nil
}

func (m *Memory) HDel(_ context.Context, key string, fields ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	hash, ok := m.hashes[key]
	if !ok {
		return nil
	}
	for _, f := range fields {
		delete(hash, f)
	}
	if len(hash) == 0 {
		delete(m.hashes, key)
	}
	return nil
}

func (m *Memory) HGetAll(_ context.Context, key string) (map[string]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	// Kopya döndür — caller map'i değiştirirse store bozulmasın
	out := make(map[string]string, len(m.hashes[key]))
	for f, v := range m.hashes[key] {
		out[f] = v
	}
	return out, nil
}

func (m *Memory) SAdd(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sets[key] == nil {
		m.sets[key] = make(map[string]struct{})
	}
	for _, member := range members {
		m.sets[key][member] = struct{}{}
	}
	return nil
}

func (m *Memory) SRem(_ context.Context, key string, members ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	set, ok := m.sets[key]
	if !ok {
		return nil
	}
	for _, member := range members {
		delete(set, member)
	}
	if len(set) == 0 {
		delete(m.sets, key)
	}
	return nil
}

func (m *Memory) SMembers(_ context.Context, key string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.sets[key]))
	for member := range m.sets[key] {
		out = append(out, member)
	}
	return out, nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	if val, _ := m.Get(ctx, key); val != "" {
		return true, nil
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.hashes[key]; ok {
		return true, nil
	}
	_, ok := m.sets[key]
	return ok, nil
}

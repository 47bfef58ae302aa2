package cache

import (
	"sync"
	"time"
)

// DebugEntry is one recorded ERP exchange kept for operator debugging.
type DebugEntry struct {
	Timestamp    time.Time `json:"timestamp"`
	Operation    string    `json:"operation"`
	RequestBody  string    `json:"requestBody"`
	ResponseBody string    `json:"responseBody"`
	StatusCode   int       `json:"statusCode"`
	Success      bool      `json:"success"`
	Message      string    `json:"message"`
}

// DebugBuffer keeps the last N request/response pairs per key (CNPJ) for
// ERP troubleshooting. It is process-local and never persisted; entries are
// lost on restart. The buffer is bounded per key but unbounded across keys.
type DebugBuffer struct {
	mu      sync.RWMutex
	size    int
	entries map[string][]DebugEntry
}

// NewDebugBuffer creates a buffer keeping the last size entries per key.
func NewDebugBuffer(size int) *DebugBuffer {
	if size <= 0 {
		size = 10
	}
	return &DebugBuffer{
		size:    size,
		entries: make(map[string][]DebugEntry),
	}
}

// Append records an entry for the given key, evicting the oldest entry once
// the per-key capacity is reached.
func (b *DebugBuffer) Append(key string, entry DebugEntry) {
	b.mu.Lock()
	defer b.mu.Unlock()

	list := append(b.entries[key], entry)
	if len(list) > b.size {
		list = list[len(list)-b.size:]
	}
	b.entries[key] = list
}

// Get returns a copy of the entries recorded for the given key, oldest first.
func (b *DebugBuffer) Get(key string) []DebugEntry {
	b.mu.RLock()
	defer b.mu.RUnlock()

	list := b.entries[key]
	out := make([]DebugEntry, len(list))
	copy(out, list)
	return out
}

// Keys returns every key with at least one recorded entry.
func (b *DebugBuffer) Keys() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	keys := make([]string, 0, len(b.entries))
	for k := range b.entries {
		keys = append(keys, k)
	}
	return keys
}

// Clear drops all entries for the given key.
func (b *DebugBuffer) Clear(key string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.entries, key)
}

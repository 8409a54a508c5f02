package history

import (
	"fmt"
	"strings"
	"sync"

	"github.com/vbonduro/lensquery/internal/textwrap"
)

const (
	// DefaultCapacity is the number of exchanges kept when none is configured.
	DefaultCapacity = 10
	// DefaultAssistantLabel prefixes the response line of each entry.
	DefaultAssistantLabel = "Assistant"
)

// Entry is one recorded exchange. Entries are never modified after Append.
type Entry struct {
	Query     string
	Response  string
	Formatted string
}

// Buffer keeps the most recent exchanges up to a fixed capacity, dropping the
// oldest first. It is safe for concurrent use.
type Buffer struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	label    string
}

func New(capacity int, assistantLabel string) *Buffer {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	if strings.TrimSpace(assistantLabel) == "" {
		assistantLabel = DefaultAssistantLabel
	}
	return &Buffer{
		entries:  make([]Entry, 0, capacity),
		capacity: capacity,
		label:    assistantLabel,
	}
}

// Append records an exchange and evicts from the front once over capacity.
func (b *Buffer) Append(query, response string) {
	entry := Entry{
		Query:     query,
		Response:  response,
		Formatted: fmt.Sprintf("User: %s\n%s: %s", query, b.label, response),
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = append(b.entries, entry)
	if over := len(b.entries) - b.capacity; over > 0 {
		// Copy down so the backing array does not grow without bound.
		n := copy(b.entries, b.entries[over:])
		clear(b.entries[n:])
		b.entries = b.entries[:n]
	}
}

// Render returns every entry, oldest first, wrapped to width for display.
func (b *Buffer) Render(width int) string {
	return textwrap.Wrap(b.PromptContext(), width)
}

// PromptContext returns the unwrapped entries, oldest first, for inclusion
// in outbound requests.
func (b *Buffer) PromptContext() string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	parts := make([]string, len(b.entries))
	for i, e := range b.entries {
		parts[i] = e.Formatted
	}
	return strings.Join(parts, "\n")
}

func (b *Buffer) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.entries)
}

func (b *Buffer) Capacity() int {
	return b.capacity
}

// Entries returns a copy of the retained entries, oldest first.
func (b *Buffer) Entries() []Entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

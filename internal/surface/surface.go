// Package surface provides in-memory text surfaces standing in for the
// glasses' text components: the prompt input, the primary output and the
// diagnostic panel.
package surface

import "sync"

// Text holds the current contents of one text component.
type Text struct {
	mu      sync.RWMutex
	text    string
	updates int
}

// NewText returns a surface pre-filled with initial. Pre-filling does not
// count as an update.
func NewText(initial string) *Text {
	return &Text{text: initial}
}

// SetText replaces the contents.
func (t *Text) SetText(s string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.text = s
	t.updates++
}

func (t *Text) Text() string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.text
}

// Updates counts SetText calls since creation.
func (t *Text) Updates() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.updates
}

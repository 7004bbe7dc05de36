package coach

import "sync"

// History is the process-held conversation memory, one ordered list of turns
// per user. Turns are only ever appended; Clear drops a user's list in bulk.
type History struct {
	mu    sync.RWMutex
	turns map[string][]Turn
}

func NewHistory() *History {
	return &History{turns: make(map[string][]Turn)}
}

// Snapshot returns a copy that callers may extend freely.
func (h *History) Snapshot(userKey string) []Turn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	src := h.turns[userKey]
	out := make([]Turn, len(src), len(src)+3)
	copy(out, src)
	return out
}

func (h *History) Len(userKey string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.turns[userKey])
}

// Append adds all turns under one lock, so readers never see half a turn.
func (h *History) Append(userKey string, turns ...Turn) {
	if len(turns) == 0 {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.turns[userKey] = append(h.turns[userKey], turns...)
}

func (h *History) Clear(userKey string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.turns, userKey)
}

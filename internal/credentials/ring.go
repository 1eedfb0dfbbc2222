package credentials

import (
	"strings"
	"sync"
)

// Normalize splits raw values on commas and newlines, trims whitespace, drops
// empties, and de-duplicates while keeping first-seen order.
func Normalize(values ...string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, value := range values {
		for _, part := range strings.FieldsFunc(value, func(r rune) bool {
			return r == ',' || r == '\n' || r == '\r'
		}) {
			key := strings.TrimSpace(part)
			if key == "" {
				continue
			}
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, key)
		}
	}
	return out
}

// Ring holds an ordered credential list and the active position.
type Ring struct {
	mu     sync.Mutex
	keys   []string
	active int
	backup int
}

// NewRing builds a ring over the normalized form of keys.
func NewRing(keys ...string) *Ring {
	return &Ring{keys: Normalize(keys...), backup: -1}
}

// Len returns the number of distinct credentials.
func (r *Ring) Len() int {
	if r == nil {
		return 0
	}
	return len(r.keys)
}

// Current returns the active credential and its zero-based position.
func (r *Ring) Current() (string, int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) == 0 {
		return "", -1
	}
	return r.keys[r.active], r.active
}

// Backup returns the position that was active before the last rotation,
// or -1 when no rotation has happened.
func (r *Ring) Backup() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.backup
}

// RotateFrom advances past the credential at position failed. When another
// caller already moved the ring off that position the current state is kept,
// so concurrent failures on one key rotate only once. It returns the new
// active position and whether a different credential is now active.
func (r *Ring) RotateFrom(failed int) (int, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.keys) < 2 {
		return r.active, false
	}
	if r.active != failed {
		return r.active, true
	}
	r.backup = r.active
	r.active = (r.active + 1) % len(r.keys)
	return r.active, true
}

// Label returns a log-safe identifier for the credential at position i.
func (r *Ring) Label(i int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i < 0 || i >= len(r.keys) {
		return "none"
	}
	return Mask(r.keys[i])
}

// Mask hides all but the last four characters of a credential.
func Mask(key string) string {
	runes := []rune(key)
	if len(runes) <= 4 {
		return strings.Repeat("*", len(runes))
	}
	return strings.Repeat("*", 4) + string(runes[len(runes)-4:])
}

package prompts

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Registry maps opaque prompt ids to server-held system prompt text.
// It is built once at cold start and only read afterwards, so it is safe for
// concurrent use without locking.
type Registry struct {
	entries map[string]string
}

// New returns a Registry holding a copy of entries.
func New(entries map[string]string) *Registry {
	copied := make(map[string]string, len(entries))
	for id, text := range entries {
		copied[id] = text
	}
	return &Registry{entries: copied}
}

// Lookup returns the prompt text for an exact id match. A miss is a normal
// outcome and means no injection applies.
func (r *Registry) Lookup(id string) (string, bool) {
	if r == nil || id == "" {
		return "", false
	}
	text, ok := r.entries[id]
	return text, ok
}

// Len returns the number of registered prompts.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.entries)
}

// Merge layers overlays over base; later tables win on id collisions.
func Merge(base map[string]string, overlays ...map[string]string) map[string]string {
	out := make(map[string]string, len(base))
	for id, text := range base {
		out[id] = text
	}
	for _, overlay := range overlays {
		for id, text := range overlay {
			out[id] = text
		}
	}
	return out
}

// ParseTable decodes a JSON object of prompt id to prompt text, as stored in
// a parameter store value.
func ParseTable(raw string) (map[string]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("prompts: table is empty")
	}
	var table map[string]string
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		return nil, fmt.Errorf("prompts: decode table: %w", err)
	}
	if err := Validate(table); err != nil {
		return nil, err
	}
	return table, nil
}

// Validate rejects entries with a blank id or blank prompt text.
func Validate(table map[string]string) error {
	for id, text := range table {
		if strings.TrimSpace(id) == "" {
			return errors.New("prompts: entry with empty id")
		}
		if strings.TrimSpace(text) == "" {
			return fmt.Errorf("prompts: entry %q has empty prompt text", id)
		}
	}
	return nil
}

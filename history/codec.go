package history

import (
	"fmt"
	"strings"
)

// DefaultPrefKey is the preference key the history is stored under.
const DefaultPrefKey = "Import History"

// delimiter separates entries in the persisted string. Keys never contain it
// because Normalize turns every backslash into a forward slash.
const delimiter = `\`

// Encode joins entries with the delimiter.
func Encode(entries []PathKey) string {
	var sb strings.Builder
	for i, e := range entries {
		if i > 0 {
			sb.WriteString(delimiter)
		}
		sb.WriteString(string(e))
	}
	return sb.String()
}

// Decode splits a persisted string, discarding empty segments.
func Decode(s string) []PathKey {
	parts := strings.Split(s, delimiter)
	entries := make([]PathKey, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			entries = append(entries, PathKey(p))
		}
	}
	return entries
}

// Codec reads and writes the history under one fixed key of a PrefStore.
type Codec struct {
	prefs PrefStore
	key   string
}

// NewCodec creates a codec. An empty key falls back to DefaultPrefKey.
func NewCodec(prefs PrefStore, key string) *Codec {
	if key == "" {
		key = DefaultPrefKey
	}
	return &Codec{prefs: prefs, key: key}
}

// Key returns the preference key in use.
func (c *Codec) Key() string { return c.key }

// Load returns the persisted sequence. A store failure is logged and reads as
// an empty history: the history is a convenience, never a reason to fail.
func (c *Codec) Load() []PathKey {
	l := sub("codec")
	s, err := c.prefs.GetString(c.key)
	if err != nil {
		l.Warn("load failed, starting with empty history", "key", c.key, "err", err)
		return nil
	}
	entries := Decode(s)
	l.Debug("loaded", "key", c.key, "count", len(entries))
	return entries
}

// Save writes the sequence.
func (c *Codec) Save(entries []PathKey) error {
	if err := c.prefs.SetString(c.key, Encode(entries)); err != nil {
		return fmt.Errorf("save history %q: %w", c.key, err)
	}
	sub("codec").Debug("saved", "key", c.key, "count", len(entries))
	return nil
}

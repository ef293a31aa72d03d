package history

import (
	"log/slog"
	"slices"
)

// DefaultHistoryLength is the default number of entries kept.
const DefaultHistoryLength = 32

// HistoryStore is the bounded most-recently-used list of asset paths,
// newest first, with no duplicates. Every logical change sets the dirty flag;
// only a successful TryWrite clears it.
//
// Not safe for concurrent use.
type HistoryStore struct {
	entries []PathKey
	index   map[PathKey]struct{}
	max     int
	filter  *ExtensionFilter
	codec   *Codec
	dirty   bool
}

// NewHistoryStore creates an empty store holding at most limit entries
// (DefaultHistoryLength if limit <= 0). codec may be nil for a store that is
// never persisted.
func NewHistoryStore(limit int, filter *ExtensionFilter, codec *Codec) *HistoryStore {
	if limit <= 0 {
		limit = DefaultHistoryLength
	}
	return &HistoryStore{
		index:  make(map[PathKey]struct{}),
		max:    limit,
		filter: filter,
		codec:  codec,
	}
}

// Add moves path to the front, inserting it if new and evicting from the tail
// past the bound. Paths with an ignored extension are dropped; Add reports
// whether the path was accepted.
func (h *HistoryStore) Add(path string) bool {
	key := Normalize(path)
	if h.filter.Ignores(key) {
		if logEnabled(slog.LevelDebug) {
			sub("store").Debug("add ignored by extension", "path", key)
		}
		return false
	}

	h.remove(key)
	h.entries = slices.Insert(h.entries, 0, key)
	h.index[key] = struct{}{}

	for len(h.entries) > h.max {
		last := h.entries[len(h.entries)-1]
		h.entries = h.entries[:len(h.entries)-1]
		delete(h.index, last)
		sub("store").Debug("evicted", "path", last)
	}

	h.dirty = true
	if logEnabled(slog.LevelDebug) {
		sub("store").Debug("add", "path", key, "len", len(h.entries))
	}
	return true
}

// Remove drops path if present. The store is marked dirty either way.
func (h *HistoryStore) Remove(path string) {
	key := Normalize(path)
	removed := h.remove(key)
	h.dirty = true
	if logEnabled(slog.LevelDebug) {
		sub("store").Debug("remove", "path", key, "removed", removed, "len", len(h.entries))
	}
}

func (h *HistoryStore) remove(key PathKey) bool {
	if _, ok := h.index[key]; !ok {
		return false
	}
	h.entries = slices.DeleteFunc(h.entries, func(e PathKey) bool { return e == key })
	delete(h.index, key)
	return true
}

// Clear empties the store. Callers flush right after: an explicit clear must
// be durable immediately.
func (h *HistoryStore) Clear() {
	h.entries = nil
	h.index = make(map[PathKey]struct{})
	h.dirty = true
	sub("store").Debug("clear")
}

// Entries returns a copy of the sequence, newest first. Never nil.
func (h *HistoryStore) Entries() []PathKey {
	return append([]PathKey{}, h.entries...)
}

// Contains reports whether path is in the history.
func (h *HistoryStore) Contains(path string) bool {
	_, ok := h.index[Normalize(path)]
	return ok
}

func (h *HistoryStore) Len() int    { return len(h.entries) }
func (h *HistoryStore) Dirty() bool { return h.dirty }
func (h *HistoryStore) Max() int    { return h.max }

// Filter returns the active extension filter.
func (h *HistoryStore) Filter() *ExtensionFilter { return h.filter }

// SetFilter swaps the extension filter. Existing entries are kept; the new
// table only applies to later Adds.
func (h *HistoryStore) SetFilter(f *ExtensionFilter) {
	h.filter = f
}

// TryRead loads the persisted history when the in-memory list is empty.
// An unflushed store is authoritative and is never reloaded over.
// Loaded data is sanitized: duplicates keep their first position and the
// list is cut to the bound.
func (h *HistoryStore) TryRead() {
	if len(h.entries) > 0 || h.dirty || h.codec == nil {
		return
	}

	loaded := h.codec.Load()
	h.entries = make([]PathKey, 0, min(len(loaded), h.max))
	h.index = make(map[PathKey]struct{}, len(loaded))
	for _, key := range loaded {
		if len(h.entries) == h.max {
			break
		}
		if _, dup := h.index[key]; dup {
			continue
		}
		h.entries = append(h.entries, key)
		h.index[key] = struct{}{}
	}
	if len(loaded) > 0 {
		sub("store").Info("history loaded", "count", len(h.entries), "stored", len(loaded))
	}
}

// TryWrite persists the history if it is dirty. On failure the flag stays set
// so the next call retries.
func (h *HistoryStore) TryWrite() error {
	if !h.dirty || h.codec == nil {
		return nil
	}
	if err := h.codec.Save(h.entries); err != nil {
		return err
	}
	h.dirty = false
	return nil
}

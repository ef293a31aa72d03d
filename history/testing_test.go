package history

import (
	"errors"
)

var errPrefsDown = errors.New("prefs unavailable")

// flakyPrefs wraps MemoryPrefs and fails reads or writes on demand.
type flakyPrefs struct {
	*MemoryPrefs
	failGet bool
	failSet bool
	sets    int
}

func newFlakyPrefs() *flakyPrefs {
	return &flakyPrefs{MemoryPrefs: NewMemoryPrefs()}
}

func (p *flakyPrefs) GetString(key string) (string, error) {
	if p.failGet {
		return "", errPrefsDown
	}
	return p.MemoryPrefs.GetString(key)
}

func (p *flakyPrefs) SetString(key, value string) error {
	if p.failSet {
		return errPrefsDown
	}
	p.sets++
	return p.MemoryPrefs.SetString(key, value)
}

func keys(paths ...string) []PathKey {
	return normalizeAll(paths)
}

func newTestStore(prefs PrefStore) *HistoryStore {
	var codec *Codec
	if prefs != nil {
		codec = NewCodec(prefs, "")
	}
	return NewHistoryStore(DefaultHistoryLength, NewExtensionFilter(DefaultIgnoredExtensions()...), codec)
}

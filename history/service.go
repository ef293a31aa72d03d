package history

import (
	"fmt"
	gosync "sync"
)

// Config holds the tunables of a Service.
type Config struct {
	HistoryLength     int
	BulkThreshold     int
	IgnoredExtensions []string
	PrefKey           string
}

// DefaultConfig returns the built-in settings.
func DefaultConfig() Config {
	return Config{
		HistoryLength:     DefaultHistoryLength,
		BulkThreshold:     DefaultBulkThreshold,
		IgnoredExtensions: DefaultIgnoredExtensions(),
		PrefKey:           DefaultPrefKey,
	}
}

// Service owns the history state of one host session: the shared ignore set,
// the store, both notifiers and the event bus. It is created at session start
// and closed at session end.
//
// Every method holds one mutex, so concurrent adapters (HTTP handlers, the
// extensions watcher) still see the strictly sequential delivery the core
// types expect.
type Service struct {
	mu         gosync.Mutex
	store      *HistoryStore
	ignores    *IgnoreSet
	pre        *PreChangeNotifier
	reconciler *Reconciler
	bus        *EventBus
}

// NewService creates a service persisting into prefs.
func NewService(cfg Config, prefs PrefStore) *Service {
	exts := cfg.IgnoredExtensions
	if exts == nil {
		exts = DefaultIgnoredExtensions()
	}
	ignores := NewIgnoreSet("shared")
	store := NewHistoryStore(cfg.HistoryLength, NewExtensionFilter(exts...), NewCodec(prefs, cfg.PrefKey))

	s := &Service{
		store:      store,
		ignores:    ignores,
		pre:        NewPreChangeNotifier(ignores),
		reconciler: NewReconciler(store, ignores, cfg.BulkThreshold),
		bus:        NewEventBus(),
	}
	sub("service").Info("history service created",
		"length", store.Max(), "bulkThreshold", s.reconciler.Threshold(),
		"ignoredExtensions", store.Filter().Extensions())
	return s
}

// Events returns the bus history changes are published on.
func (s *Service) Events() *EventBus {
	return s.bus
}

// NotifyWillCreate is the host's "about to create an asset" callback.
func (s *Service) NotifyWillCreate(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pre.WillCreate(path)
}

// NotifyWillSave is the host's "about to save these paths" callback. The
// returned slice is the set of paths the host should go on to save.
func (s *Service) NotifyWillSave(paths []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pre.WillSave(paths)
}

// NotifyWillMove is the host's "about to move an asset" callback.
func (s *Service) NotifyWillMove(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pre.WillMove(from, to)
}

// NotifyBatch is the host's post-change callback. The reconciled history is
// flushed at the end of the pass; a flush error is returned but the in-memory
// history stays authoritative.
func (s *Service) NotifyBatch(b Batch) (Result, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.store.TryRead()
	res := s.reconciler.Reconcile(b)
	if res.Bulk {
		return res, nil
	}

	err := s.flush("batch")
	if res.Added > 0 || res.Removed > 0 {
		s.publish(HistoryEvent{Type: EventBatch, Result: &res})
	}
	return res, err
}

// History returns the current list, newest first, loading it on first use.
func (s *Service) History() []PathKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.TryRead()
	return s.store.Entries()
}

// Add records path directly, as a user action, and flushes.
// It reports whether the path passed the extension filter.
func (s *Service) Add(path string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.TryRead()
	if !s.store.Add(path) {
		return false, nil
	}
	err := s.flush("add")
	s.publish(HistoryEvent{Type: EventAdd, Path: Normalize(path)})
	return true, err
}

// Remove evicts path, for entries the UI found no longer load, and flushes.
func (s *Service) Remove(path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.TryRead()
	s.store.Remove(path)
	err := s.flush("remove")
	s.publish(HistoryEvent{Type: EventRemove, Path: Normalize(path)})
	return err
}

// Clear empties the history and flushes immediately.
func (s *Service) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.store.Clear()
	err := s.flush("clear")
	s.publish(HistoryEvent{Type: EventClear})
	return err
}

// SetIgnoredExtensions replaces the extension table for later additions.
func (s *Service) SetIgnoredExtensions(exts []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := NewExtensionFilter(exts...)
	s.store.SetFilter(f)
	sub("service").Info("ignored extensions updated", "extensions", f.Extensions())
	s.publish(HistoryEvent{Type: EventReload})
}

// Flush writes the history if it has unsaved changes.
func (s *Service) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flush("flush")
}

// Stats returns a snapshot for diagnostics.
func (s *Service) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Stats{
		Length:            s.store.Len(),
		Max:               s.store.Max(),
		Dirty:             s.store.Dirty(),
		PendingMarks:      s.ignores.Len(),
		PendingCreates:    s.pre.PendingCreates(),
		BulkThreshold:     s.reconciler.Threshold(),
		IgnoredExtensions: s.store.Filter().Extensions(),
		RecentErrors:      RecentErrors(),
	}
}

// Close flushes pending changes at session end.
func (s *Service) Close() error {
	if err := s.Flush(); err != nil {
		return fmt.Errorf("close history service: %w", err)
	}
	sub("service").Info("history service closed")
	return nil
}

func (s *Service) flush(reason string) error {
	if err := s.store.TryWrite(); err != nil {
		sub("service").Error("flush failed, will retry on next change", "reason", reason, "err", err)
		return err
	}
	return nil
}

// publish must be called with s.mu held.
func (s *Service) publish(ev HistoryEvent) {
	ev.Time = nowFunc()
	ev.Entries = s.store.Entries()
	s.bus.Publish(ev)
}

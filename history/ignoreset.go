package history

import "log/slog"

// IgnoreSet holds one-shot suppression marks: "the next post-change event for
// this path was caused by the host itself". Marks never expire on their own;
// they are consumed by a matching event or dropped by Clear.
//
// Not safe for concurrent use. Delivery is sequential; Service serializes.
type IgnoreSet struct {
	name  string
	marks map[PathKey]struct{}
}

// NewIgnoreSet creates an empty set. name only tags log lines.
func NewIgnoreSet(name string) *IgnoreSet {
	return &IgnoreSet{
		name:  name,
		marks: make(map[PathKey]struct{}),
	}
}

// Mark records a suppression for path. Marking twice is a no-op.
func (s *IgnoreSet) Mark(path string) {
	key := Normalize(path)
	s.marks[key] = struct{}{}
	if logEnabled(slog.LevelDebug) {
		sub("ignore").Debug("mark", "set", s.name, "path", key, "pending", len(s.marks))
	}
}

// Consume removes the mark for path and reports whether it was there.
// true means the event is self-inflicted and must be suppressed.
func (s *IgnoreSet) Consume(path string) bool {
	key := Normalize(path)
	if _, ok := s.marks[key]; !ok {
		return false
	}
	delete(s.marks, key)
	if logEnabled(slog.LevelDebug) {
		sub("ignore").Debug("consume", "set", s.name, "path", key, "pending", len(s.marks))
	}
	return true
}

// Contains reports whether path is currently marked, without consuming it.
func (s *IgnoreSet) Contains(path string) bool {
	_, ok := s.marks[Normalize(path)]
	return ok
}

// Clear drops every mark.
func (s *IgnoreSet) Clear() {
	if n := len(s.marks); n > 0 {
		sub("ignore").Debug("clear", "set", s.name, "dropped", n)
	}
	s.marks = make(map[PathKey]struct{})
}

// Len returns the number of pending marks.
func (s *IgnoreSet) Len() int {
	return len(s.marks)
}

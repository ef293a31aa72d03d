package history

import "strings"

// MetaSuffix is the sidecar suffix the host appends to an asset's metadata
// file.
const MetaSuffix = ".meta"

// PreChangeNotifier receives the host's "about to change" callbacks and
// records which upcoming post-change events are the host's own doing.
//
// It works with two sets. created is private: assets that were just created,
// whose first save must not be treated as host noise. shared is the
// reconciler's set: paths whose next post-change event is suppressed.
type PreChangeNotifier struct {
	created *IgnoreSet
	shared  *IgnoreSet
}

// NewPreChangeNotifier creates a notifier marking into shared.
func NewPreChangeNotifier(shared *IgnoreSet) *PreChangeNotifier {
	return &PreChangeNotifier{
		created: NewIgnoreSet("created"),
		shared:  shared,
	}
}

// WillCreate remembers that path is being created by the user.
func (n *PreChangeNotifier) WillCreate(path string) {
	n.created.Mark(path)
}

// WillSave is called before the host saves paths. A path just announced
// through WillCreate uses up that announcement; any other path is a host
// re-save, so its primary asset (sidecar suffix stripped) is marked in the
// shared set. The paths are returned unchanged: every one of them is saved.
func (n *PreChangeNotifier) WillSave(paths []string) []string {
	marked := 0
	for _, p := range paths {
		if n.created.Consume(p) {
			continue
		}
		n.shared.Mark(strings.TrimSuffix(p, MetaSuffix))
		marked++
	}
	sub("notifier").Debug("will save", "paths", len(paths), "marked", marked)
	return paths
}

// WillMove marks the destination: that is the path the post-change batch
// will report.
func (n *PreChangeNotifier) WillMove(from, to string) {
	n.shared.Mark(to)
	sub("notifier").Debug("will move", "from", Normalize(from), "to", Normalize(to))
}

// PendingCreates returns how many creations have not been saved yet.
func (n *PreChangeNotifier) PendingCreates() int {
	return n.created.Len()
}

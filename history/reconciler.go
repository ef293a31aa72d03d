package history

import (
	"github.com/samber/lo"
)

// DefaultBulkThreshold is the batch size above which a batch is treated as a
// bulk automated operation and dropped.
const DefaultBulkThreshold = 300

// Batch is one post-change notification from the host. Moved holds
// destination paths, MovedFrom the matching source paths.
type Batch struct {
	Imported  []string `json:"imported"`
	Deleted   []string `json:"deleted"`
	Moved     []string `json:"moved"`
	MovedFrom []string `json:"movedFrom"`
}

// Total is the size used by the bulk guard. MovedFrom is not counted: it
// mirrors Moved.
func (b Batch) Total() int {
	return len(b.Deleted) + len(b.Moved) + len(b.Imported)
}

// Result summarizes one reconciliation pass. Removed counts removal requests,
// whether or not the path was in the history.
type Result struct {
	Bulk       bool `json:"bulk"`
	Removed    int  `json:"removed"`
	Added      int  `json:"added"`
	Suppressed int  `json:"suppressed"`
	Filtered   int  `json:"filtered"`
}

// Reconciler applies post-change batches to the history, using the shared
// ignore set to drop events the host caused itself.
type Reconciler struct {
	store     *HistoryStore
	ignores   *IgnoreSet
	threshold int
}

// NewReconciler creates a reconciler. threshold <= 0 means
// DefaultBulkThreshold.
func NewReconciler(store *HistoryStore, ignores *IgnoreSet, threshold int) *Reconciler {
	if threshold <= 0 {
		threshold = DefaultBulkThreshold
	}
	return &Reconciler{store: store, ignores: ignores, threshold: threshold}
}

// Reconcile applies b. Removals go first so a move nets out to
// "source gone, destination at the front".
func (r *Reconciler) Reconcile(b Batch) Result {
	l := sub("reconciler")

	if total := b.Total(); total > r.threshold {
		dropped := r.ignores.Len()
		r.ignores.Clear()
		l.Info("bulk batch skipped", "total", total, "threshold", r.threshold, "marksDropped", dropped)
		return Result{Bulk: true}
	}

	var res Result
	for _, p := range b.Deleted {
		r.store.Remove(p)
		res.Removed++
	}
	for _, p := range b.MovedFrom {
		r.store.Remove(p)
		res.Removed++
	}

	// A rename is reported both as a move and as an import of the same
	// destination; the import pass handles it so the ignore mark is consumed
	// once.
	imported := lo.SliceToMap(normalizeAll(b.Imported), func(k PathKey) (PathKey, struct{}) {
		return k, struct{}{}
	})
	for _, p := range b.Moved {
		if _, ok := imported[Normalize(p)]; ok {
			continue
		}
		r.accept(p, &res)
	}
	for _, p := range b.Imported {
		r.accept(p, &res)
	}

	l.Debug("batch reconciled",
		"imported", len(b.Imported), "deleted", len(b.Deleted), "moved", len(b.Moved),
		"removed", res.Removed, "added", res.Added, "suppressed", res.Suppressed, "filtered", res.Filtered)
	return res
}

func (r *Reconciler) accept(path string, res *Result) {
	if r.ignores.Consume(path) {
		res.Suppressed++
		return
	}
	if r.store.Add(path) {
		res.Added++
	} else {
		res.Filtered++
	}
}

// Threshold returns the bulk threshold in use.
func (r *Reconciler) Threshold() int { return r.threshold }

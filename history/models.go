package history

import "time"

// nowFunc is the time source, replaceable in tests.
var nowFunc = time.Now

// Event types published on the EventBus.
const (
	EventBatch  = "batch"
	EventAdd    = "add"
	EventRemove = "remove"
	EventClear  = "clear"
	EventReload = "reload"
)

// HistoryEvent tells subscribers the history changed. Entries is the full
// list after the change, newest first.
type HistoryEvent struct {
	Type    string    `json:"type"`
	Time    time.Time `json:"time"`
	Entries []PathKey `json:"entries"`
	Result  *Result   `json:"result,omitempty"`
	Path    PathKey   `json:"path,omitempty"`
}

// Stats is a snapshot of the service state.
type Stats struct {
	Length            int        `json:"length"`
	Max               int        `json:"max"`
	Dirty             bool       `json:"dirty"`
	PendingMarks      int        `json:"pendingMarks"`
	PendingCreates    int        `json:"pendingCreates"`
	BulkThreshold     int        `json:"bulkThreshold"`
	IgnoredExtensions []string   `json:"ignoredExtensions"`
	RecentErrors      []LogEntry `json:"recentErrors"`
}

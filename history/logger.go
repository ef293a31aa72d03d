package history

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	gosync "sync"
	"time"

	"gopkg.in/natefinch/lumberjack.v2"
)

// logger is the package-level structured logger. Until InitLogger is called
// it only feeds the recent-errors ring, so embedding hosts stay quiet but
// still see failed flushes in Stats.
var logger = defaultLogger()

func defaultLogger() *slog.Logger {
	return slog.New(&multiHandler{handlers: []slog.Handler{&errorCaptureHandler{}}})
}

// InitLogger configures the history package logger.
// Console INFO goes to infoOut (os.Stdout when nil); WARN/ERROR always go to
// stderr. Commands whose stdout is their result pass os.Stderr.
// If logDir is non-empty, records are also written to level-split files:
//   - history_warn.log:  WARN + ERROR
//   - history_info.log:  INFO only (1MB, 1 backup)
//   - history_debug.log: DEBUG only (1MB, 1 backup)
func InitLogger(logDir string, infoOut io.Writer) {
	if infoOut == nil {
		infoOut = os.Stdout
	}
	console := &consoleHandler{
		stdout: slog.NewTextHandler(infoOut, &slog.HandlerOptions{Level: slog.LevelInfo}),
		stderr: slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}),
	}

	handlers := []slog.Handler{console, &errorCaptureHandler{}}

	if logDir != "" {
		os.MkdirAll(logDir, 0750) //nolint:errcheck

		handlers = append(handlers,
			slog.NewTextHandler(rotating(logDir, "history_warn.log", 100, 3),
				&slog.HandlerOptions{Level: slog.LevelWarn}),
			onlyLevel(slog.LevelInfo, rotating(logDir, "history_info.log", 1, 1)),
			onlyLevel(slog.LevelDebug, rotating(logDir, "history_debug.log", 1, 1)),
		)
	}

	logger = slog.New(&multiHandler{handlers: handlers})
}

func rotating(dir, name string, maxSizeMB, backups int) io.Writer {
	return &lumberjack.Logger{
		Filename:   filepath.Join(dir, name),
		MaxSize:    maxSizeMB,
		MaxBackups: backups,
	}
}

func onlyLevel(level slog.Level, w io.Writer) slog.Handler {
	return &levelRangeHandler{
		min:   level,
		max:   level,
		inner: slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}),
	}
}

// sub returns a child logger tagged with the given component name.
func sub(component string) *slog.Logger {
	return logger.With("comp", component)
}

// Logger returns the package logger tagged with component, for code wiring
// the service from outside the package.
func Logger(component string) *slog.Logger {
	return sub(component)
}

// logEnabled guards DEBUG logging that would otherwise allocate per path.
func logEnabled(level slog.Level) bool {
	return logger.Enabled(context.Background(), level)
}

// --- consoleHandler: routes INFO→stdout, WARN+→stderr ---

type consoleHandler struct {
	stdout slog.Handler
	stderr slog.Handler
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelInfo
}

func (h *consoleHandler) Handle(ctx context.Context, r slog.Record) error {
	if r.Level >= slog.LevelWarn {
		return h.stderr.Handle(ctx, r)
	}
	return h.stdout.Handle(ctx, r)
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &consoleHandler{stdout: h.stdout.WithAttrs(attrs), stderr: h.stderr.WithAttrs(attrs)}
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	return &consoleHandler{stdout: h.stdout.WithGroup(name), stderr: h.stderr.WithGroup(name)}
}

// --- errorCaptureHandler: remembers the latest ERROR records ---

// LogEntry is a captured error record, exposed through the stats endpoint so
// failed flushes are visible to the embedding layer.
type LogEntry struct {
	Time    time.Time `json:"time"`
	Comp    string    `json:"comp"`
	Message string    `json:"message"`
	Error   string    `json:"error,omitempty"`
}

const errorRingSize = 2

var errorRing struct {
	mu      gosync.Mutex
	entries [errorRingSize]LogEntry
	count   int
}

// RecentErrors returns the most recent error records, newest first. Errors
// are captured whether or not InitLogger has been called.
func RecentErrors() []LogEntry {
	errorRing.mu.Lock()
	defer errorRing.mu.Unlock()
	n := min(errorRing.count, errorRingSize)
	out := make([]LogEntry, n)
	for i := 0; i < n; i++ {
		out[i] = errorRing.entries[(errorRing.count-1-i)%errorRingSize]
	}
	return out
}

type errorCaptureHandler struct {
	attrs []slog.Attr
}

func (h *errorCaptureHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= slog.LevelError
}

func (h *errorCaptureHandler) Handle(_ context.Context, r slog.Record) error {
	entry := LogEntry{Time: r.Time, Message: r.Message}
	capture := func(a slog.Attr) bool {
		switch a.Key {
		case "comp":
			entry.Comp = a.Value.String()
		case "err":
			entry.Error = a.Value.String()
		}
		return true
	}
	for _, a := range h.attrs {
		capture(a)
	}
	r.Attrs(capture)

	errorRing.mu.Lock()
	errorRing.entries[errorRing.count%errorRingSize] = entry
	errorRing.count++
	errorRing.mu.Unlock()
	return nil
}

// WithAttrs keeps the attrs so the "comp" set by sub() is still captured.
func (h *errorCaptureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := append(append([]slog.Attr{}, h.attrs...), attrs...)
	return &errorCaptureHandler{attrs: merged}
}

func (h *errorCaptureHandler) WithGroup(_ string) slog.Handler { return h }

// --- levelRangeHandler: passes only a specific level range ---

type levelRangeHandler struct {
	min, max slog.Level
	inner    slog.Handler
}

func (h *levelRangeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.min && level <= h.max
}

func (h *levelRangeHandler) Handle(ctx context.Context, r slog.Record) error {
	return h.inner.Handle(ctx, r)
}

func (h *levelRangeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &levelRangeHandler{min: h.min, max: h.max, inner: h.inner.WithAttrs(attrs)}
}

func (h *levelRangeHandler) WithGroup(name string) slog.Handler {
	return &levelRangeHandler{min: h.min, max: h.max, inner: h.inner.WithGroup(name)}
}

// --- multiHandler: fans out to multiple handlers ---

type multiHandler struct {
	handlers []slog.Handler
}

func (h *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, hh := range h.handlers {
		if hh.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (h *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	for _, hh := range h.handlers {
		if !hh.Enabled(ctx, r.Level) {
			continue
		}
		if err := hh.Handle(ctx, r.Clone()); err != nil {
			return err
		}
	}
	return nil
}

func (h *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	hs := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		hs[i] = hh.WithAttrs(attrs)
	}
	return &multiHandler{handlers: hs}
}

func (h *multiHandler) WithGroup(name string) slog.Handler {
	hs := make([]slog.Handler, len(h.handlers))
	for i, hh := range h.handlers {
		hs[i] = hh.WithGroup(name)
	}
	return &multiHandler{handlers: hs}
}

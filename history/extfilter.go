package history

import (
	"bufio"
	"fmt"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// NoExtension is how the empty extension is written in an extensions file.
const NoExtension = "<none>"

// DefaultIgnoredExtensions returns the built-in ignore table: extensionless
// paths (mostly folders) and single-file serialized objects that are not
// worth revisiting.
func DefaultIgnoredExtensions() []string {
	return []string{"", ".pxf", ".prefab", ".asset", ".mat"}
}

// ExtensionFilter decides which paths never enter the history.
// Matching is case-insensitive.
type ExtensionFilter struct {
	exts map[string]struct{}
}

// NewExtensionFilter builds a filter from extension strings. A missing
// leading dot is added; "" stays the empty extension.
func NewExtensionFilter(exts ...string) *ExtensionFilter {
	f := &ExtensionFilter{exts: make(map[string]struct{}, len(exts))}
	for _, e := range exts {
		f.exts[canonicalExt(e)] = struct{}{}
	}
	return f
}

func canonicalExt(e string) string {
	e = strings.ToLower(strings.TrimSpace(e))
	if e == "" || e == "." {
		return ""
	}
	if !strings.HasPrefix(e, ".") {
		e = "." + e
	}
	return e
}

// extensionOf returns the lowercased extension of the last path element.
// A lone trailing dot counts as no extension.
func extensionOf(key PathKey) string {
	ext := path.Ext(strings.ToLower(string(key)))
	if ext == "." {
		return ""
	}
	return ext
}

// Ignores reports whether key's extension is in the table.
func (f *ExtensionFilter) Ignores(key PathKey) bool {
	if f == nil {
		return false
	}
	_, ok := f.exts[extensionOf(key)]
	return ok
}

// Extensions returns the table in natural order. The empty extension sorts
// first.
func (f *ExtensionFilter) Extensions() []string {
	if f == nil {
		return nil
	}
	out := make([]string, 0, len(f.exts))
	for e := range f.exts {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return natural.Less(out[i], out[j]) })
	return out
}

// LoadExtensionFile reads an extensions file: one extension per line, blank
// lines and # comments skipped, NoExtension for the empty extension.
// Unlike the store backends, a missing file is an error here: the caller
// asked for this file explicitly.
func LoadExtensionFile(name string) ([]string, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open extensions file: %w", err)
	}
	defer f.Close()

	exts := []string{}
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if line == NoExtension {
			line = ""
		}
		exts = append(exts, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read extensions file: %w", err)
	}
	return exts, nil
}

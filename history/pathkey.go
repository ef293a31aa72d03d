package history

import "strings"

// PathKey is a forward-slash asset path. Two paths name the same asset iff
// their keys are equal.
type PathKey string

// Normalize converts every backslash to a forward slash. Nothing else changes:
// case, dots and trailing separators are kept as given.
func Normalize(path string) PathKey {
	return PathKey(strings.ReplaceAll(path, `\`, "/"))
}

func (k PathKey) String() string { return string(k) }

func normalizeAll(paths []string) []PathKey {
	keys := make([]PathKey, len(paths))
	for i, p := range paths {
		keys[i] = Normalize(p)
	}
	return keys
}

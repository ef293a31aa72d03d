package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	gosync "sync"

	"github.com/spf13/afero"
)

// FilePrefs is a PrefStore kept as one JSON object in a file. Writes go to a
// temp file which is then renamed over the original.
type FilePrefs struct {
	mu   gosync.Mutex
	fs   afero.Fs
	path string
}

// NewFilePrefs creates a store at path on fsys.
func NewFilePrefs(fsys afero.Fs, path string) *FilePrefs {
	return &FilePrefs{fs: fsys, path: path}
}

func (p *FilePrefs) read() (map[string]string, error) {
	data, err := afero.ReadFile(p.fs, p.path)
	if errors.Is(err, fs.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read prefs file: %w", err)
	}
	values := map[string]string{}
	if len(data) == 0 {
		return values, nil
	}
	if err := json.Unmarshal(data, &values); err != nil {
		return nil, fmt.Errorf("decode prefs file %s: %w", p.path, err)
	}
	return values, nil
}

func (p *FilePrefs) GetString(key string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	values, err := p.read()
	if err != nil {
		return "", err
	}
	return values[key], nil
}

// SetString rewrites the whole file. A corrupt file is replaced rather than
// blocking the write.
func (p *FilePrefs) SetString(key, value string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	values, err := p.read()
	if err != nil {
		sub("prefs").Warn("prefs file unreadable, rewriting", "path", p.path, "err", err)
		values = map[string]string{}
	}
	values[key] = value

	data, err := json.MarshalIndent(values, "", "  ")
	if err != nil {
		return fmt.Errorf("encode prefs: %w", err)
	}

	dir := filepath.Dir(p.path)
	if err := p.fs.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create prefs dir: %w", err)
	}
	// Another process may be writing the same file, so each write gets its
	// own temp file.
	f, err := afero.TempFile(p.fs, dir, "."+filepath.Base(p.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create prefs temp file: %w", err)
	}
	tmp := f.Name()
	_, err = f.Write(data)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		p.fs.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("write prefs temp file: %w", err)
	}
	if err := p.fs.Rename(tmp, p.path); err != nil {
		p.fs.Remove(tmp) //nolint:errcheck
		return fmt.Errorf("replace prefs file: %w", err)
	}
	sub("prefs").Debug("prefs file written", "path", p.path, "key", key)
	return nil
}

// Package prefs persists small client-side state in named key-value
// namespaces that survive restarts of the same installation.
package prefs

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/voyagen/goodytv/internal/logging"
)

// KV is one namespace of persisted client state.
type KV interface {
	// Get returns the value for key and whether it was present.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores value under key.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
}

// Memory is an in-process KV. The zero value is not usable; use NewMemory.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory namespace.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

// File is a KV namespace stored as one JSON object at <dir>/<namespace>.json.
// Writes replace the file atomically. A file that no longer decodes reads as
// an empty namespace; the next write moves it aside to <namespace>.json.corrupt.
type File struct {
	path string
	log  *logrus.Entry
	mu   sync.Mutex
}

// NewFile opens (lazily) the namespace file under dir, creating dir if needed.
// A nil log discards the corrupt-file warning.
func NewFile(dir, namespace string, log *logrus.Entry) (*File, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("prefs dir %s: %w", dir, err)
	}
	if log == nil {
		log = logging.Discard()
	}
	return &File{
		path: filepath.Join(dir, namespace+".json"),
		log:  log.WithField("namespace", namespace),
	}, nil
}

func (f *File) Get(_ context.Context, key string) ([]byte, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, _, err := f.read()
	if err != nil {
		return nil, false, err
	}
	v, ok := data[key]
	if !ok {
		return nil, false, nil
	}
	return []byte(v), true, nil
}

func (f *File) Set(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, corrupt, err := f.read()
	if err != nil {
		return err
	}
	data[key] = string(value)
	return f.write(data, corrupt)
}

func (f *File) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, corrupt, err := f.read()
	if err != nil {
		return err
	}
	if _, ok := data[key]; !ok {
		return nil
	}
	delete(data, key)
	return f.write(data, corrupt)
}

// read loads the namespace. A missing or empty file is an empty namespace,
// and so is one that does not decode, reported through corrupt.
func (f *File) read() (data map[string]string, corrupt bool, err error) {
	raw, err := os.ReadFile(f.path)
	if os.IsNotExist(err) {
		return map[string]string{}, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read %s: %w", f.path, err)
	}
	data = map[string]string{}
	if len(raw) == 0 {
		return data, false, nil
	}
	if err := json.Unmarshal(raw, &data); err != nil {
		f.log.WithError(err).Warn("namespace file unreadable, treating as empty")
		return map[string]string{}, true, nil
	}
	return data, false, nil
}

// write replaces the namespace file. A corrupt predecessor is kept next to it
// rather than overwritten.
func (f *File) write(data map[string]string, corrupt bool) error {
	if corrupt {
		if err := os.Rename(f.path, f.path+".corrupt"); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("move aside %s: %w", f.path, err)
		}
	}
	raw, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", f.path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(f.path), filepath.Base(f.path)+".*")
	if err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	if err := os.Rename(tmp.Name(), f.path); err != nil {
		return fmt.Errorf("write %s: %w", f.path, err)
	}
	return nil
}

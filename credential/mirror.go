package credential

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// Record is the non-sensitive mirror of a credential: the expiry marker and the decoded
// claims. The raw token is never part of it.
type Record struct {
	ExpiryEpochMillis int64   `json:"expiryEpochMillis,omitempty"`
	Claims            *Claims `json:"claims,omitempty"`
}

// Mirror stores the Record somewhere that outlives the in-memory token
type Mirror interface {
	Save(rec Record) error
	Load() (Record, bool, error)
	Remove() error
}

type MemoryMirror struct {
	mu  sync.Mutex
	rec *Record
}

func NewMemoryMirror() *MemoryMirror {
	return &MemoryMirror{}
}

func (m *MemoryMirror) Save(rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = &rec
	return nil
}

func (m *MemoryMirror) Load() (Record, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.rec == nil {
		return Record{}, false, nil
	}
	return *m.rec, true, nil
}

func (m *MemoryMirror) Remove() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rec = nil
	return nil
}

// FileMirror keeps the Record as a JSON file readable only by the operator
type FileMirror struct {
	mu   sync.Mutex
	path string
}

func NewFileMirror(path string) *FileMirror {
	return &FileMirror{path: path}
}

func (f *FileMirror) Save(rec Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("[FileMirror Save] %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("[FileMirror Save] %w", err)
	}

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("[FileMirror Save] %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("[FileMirror Save] %w", err)
	}
	return nil
}

func (f *FileMirror) Load() (Record, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, fmt.Errorf("[FileMirror Load] %w", err)
	}

	rec := Record{}
	if err := json.Unmarshal(data, &rec); err != nil {
		return Record{}, false, fmt.Errorf("[FileMirror Load] %w", err)
	}
	return rec, true, nil
}

func (f *FileMirror) Remove() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := os.Remove(f.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("[FileMirror Remove] %w", err)
	}
	return nil
}

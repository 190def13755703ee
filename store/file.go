package store

import (
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// fileDoc is the on-disk layout of a flags file
type fileDoc struct {
	Visitor string            `yaml:"visitor"`
	Flags   map[string]string `yaml:"flags"` // key -> time it was set
}

// FileFlags keeps like flags in a YAML file. The whole file is rewritten
// on every Set through a temp file and rename, so a crash never leaves it
// half written.
type FileFlags struct {
	mu   sync.RWMutex
	path string
	doc  fileDoc
	now  func() time.Time
}

// OpenFile loads flags from path, creating the file and a visitor id if needed
func OpenFile(path string) (*FileFlags, error) {
	f := &FileFlags{
		path: path,
		doc:  fileDoc{Flags: make(map[string]string)},
		now:  time.Now,
	}

	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &f.doc); err != nil {
			return nil, errors.Wrapf(err, "parse %s", path)
		}
		if f.doc.Flags == nil {
			f.doc.Flags = make(map[string]string)
		}
	case os.IsNotExist(err):
	default:
		return nil, errors.Wrapf(err, "read %s", path)
	}

	if f.doc.Visitor == "" {
		f.doc.Visitor = uuid.NewString()
		if err := f.save(); err != nil {
			return nil, err
		}
	}
	return f, nil
}

// Visitor is the id stored alongside the flags, stable across runs
func (f *FileFlags) Visitor() string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.doc.Visitor
}

func (f *FileFlags) Has(key string) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	_, ok := f.doc.Flags[key]
	return ok
}

func (f *FileFlags) Set(key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.doc.Flags[key]; ok {
		return nil
	}
	f.doc.Flags[key] = f.now().UTC().Format(time.RFC3339)
	if err := f.save(); err != nil {
		delete(f.doc.Flags, key)
		return err
	}
	return nil
}

// Keys lists the set flags in order
func (f *FileFlags) Keys() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()
	keys := make([]string, 0, len(f.doc.Flags))
	for k := range f.doc.Flags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// save must be called with the lock held
func (f *FileFlags) save() error {
	raw, err := yaml.Marshal(&f.doc)
	if err != nil {
		return errors.Wrap(err, "encode flags")
	}

	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "create %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "create temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return errors.Wrap(err, "write flags")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "close flags")
	}
	return errors.Wrap(os.Rename(tmp.Name(), f.path), "replace flags file")
}

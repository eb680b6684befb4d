package storage

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
)

var emptyObject = []byte("{}")

// FileBackend keeps each store in <dir>/<name>.json.
type FileBackend struct {
	dir string
	mu  sync.Mutex
}

func NewFileBackend(dir string) *FileBackend {
	if dir == "" {
		dir = "data"
	}
	return &FileBackend{dir: dir}
}

func (f *FileBackend) Path(name string) string {
	return filepath.Join(f.dir, name+".json")
}

func (f *FileBackend) Load(_ context.Context, name string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b, err := os.ReadFile(f.Path(name))
	if err == nil {
		return b, nil
	}
	if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "load %s", name)
	}
	if err := f.write(name, emptyObject); err != nil {
		return nil, err
	}
	return emptyObject, nil
}

func (f *FileBackend) Save(_ context.Context, name string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.write(name, data)
}

func (f *FileBackend) Close() error { return nil }

func (f *FileBackend) write(name string, data []byte) error {
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		return errors.Wrapf(err, "create data dir %s", f.dir)
	}
	tmp, err := os.CreateTemp(f.dir, name+".*.tmp")
	if err != nil {
		return errors.Wrapf(err, "save %s", name)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return errors.Wrapf(err, "save %s", name)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "save %s", name)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), f.Path(name)), "save %s", name)
}

package storage

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const tempFilePrefix = ".bloog-tmp-"

// FilesystemStorage implements Storage using the local filesystem.
// Keys map to nested files below the base directory, directories left empty
// by a delete are removed again.
type FilesystemStorage struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFilesystemStorage creates a new filesystem-backed storage.
func NewFilesystemStorage(baseDir string) (*FilesystemStorage, error) {
	abs, err := filepath.Abs(baseDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0700); err != nil {
		return nil, err
	}
	return &FilesystemStorage{baseDir: abs}, nil
}

func (f *FilesystemStorage) path(key string) (string, error) {
	p := filepath.Join(f.baseDir, filepath.FromSlash(key))
	if p != f.baseDir && !strings.HasPrefix(p, f.baseDir+string(filepath.Separator)) {
		return "", errors.Errorf("key %q escapes the storage directory", key)
	}
	return p, nil
}

func (f *FilesystemStorage) Put(_ context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path, err := f.path(key)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}
	// write and rename so readers never observe a partial object
	tmp, err := os.CreateTemp(dir, tempFilePrefix+"*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		_ = os.Remove(tmp.Name())
		return err
	}
	return nil
}

func (f *FilesystemStorage) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	path, err := f.path(key)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, os.ErrNotExist
		}
		return nil, err
	}
	return data, nil
}

func (f *FilesystemStorage) Head(_ context.Context, key string) (ObjectMeta, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	path, err := f.path(key)
	if err != nil {
		return ObjectMeta{}, err
	}
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ObjectMeta{}, os.ErrNotExist
		}
		return ObjectMeta{}, err
	}
	if info.IsDir() {
		return ObjectMeta{}, os.ErrNotExist
	}
	return ObjectMeta{Key: key, Size: info.Size(), LastModified: info.ModTime()}, nil
}

// List walks the deepest directory named by prefix and returns every file whose
// key starts with prefix.
func (f *FilesystemStorage) List(_ context.Context, prefix string) ([]ObjectMeta, error) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	root := f.baseDir
	if i := strings.LastIndex(prefix, Delimiter); i >= 0 {
		p, err := f.path(prefix[:i])
		if err != nil {
			return nil, err
		}
		root = p
	}

	var objects []ObjectMeta
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempFilePrefix) {
			return nil
		}
		rel, err := filepath.Rel(f.baseDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if !strings.HasPrefix(key, prefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		objects = append(objects, ObjectMeta{Key: key, Size: info.Size(), LastModified: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(objects, func(i, j int) bool {
		return objects[i].Key < objects[j].Key
	})
	return objects, nil
}

func (f *FilesystemStorage) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	path, err := f.path(key)
	if err != nil {
		return err
	}
	err = os.Remove(path)
	if os.IsNotExist(err) {
		return nil
	} else if err != nil {
		return err
	}
	f.pruneEmptyDirs(filepath.Dir(path))
	return nil
}

func (f *FilesystemStorage) pruneEmptyDirs(dir string) {
	for dir != f.baseDir && strings.HasPrefix(dir, f.baseDir) {
		if err := os.Remove(dir); err != nil {
			return
		}
		dir = filepath.Dir(dir)
	}
}

func (f *FilesystemStorage) Close() error {
	return nil
}

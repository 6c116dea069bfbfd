package filestorage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/placeshare/placeshare/internal/usecase"
)

const tempPrefix = ".upload-"

// LocalStorage keeps objects as files under dir.
type LocalStorage struct {
	dir        string
	publicBase string
}

func NewLocalStorage(dir, publicBase string) *LocalStorage {
	return &LocalStorage{
		dir:        dir,
		publicBase: strings.TrimRight(publicBase, "/"),
	}
}

func (l *LocalStorage) Dir() string {
	return l.dir
}

func (l *LocalStorage) path(key string) string {
	return filepath.Join(l.dir, filepath.FromSlash(key))
}

// Put writes to a temp file in the target directory and renames it in place,
// so a failed write never leaves a partial object under key.
func (l *LocalStorage) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) error {
	dst := l.path(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(dst), tempPrefix+"*")
	if err != nil {
		return err
	}
	tmp := f.Name()

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

func (l *LocalStorage) Delete(_ context.Context, key string) error {
	err := os.Remove(l.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func (l *LocalStorage) List(_ context.Context, prefix string) ([]usecase.StoredObject, error) {
	root := l.path(prefix)
	var objects []usecase.StoredObject

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == root {
				return filepath.SkipDir
			}
			return err
		}
		if d.IsDir() || strings.HasPrefix(d.Name(), tempPrefix) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(l.dir, p)
		if err != nil {
			return err
		}
		objects = append(objects, usecase.StoredObject{
			Path:    filepath.ToSlash(rel),
			ModTime: info.ModTime(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return objects, nil
}

func (l *LocalStorage) URL(key string) string {
	return l.publicBase + "/uploads/" + key
}

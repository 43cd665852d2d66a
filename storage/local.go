package storage

import (
	"context"
	"io"
	"io/fs"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// Local stores files beneath a directory on disk
type Local struct {
	root string
}

// NewLocal returns a Local store rooted at dir, creating dir if needed
func NewLocal(dir string) (*Local, error) {
	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return nil, err
	}

	return &Local{root: dir}, nil
}

func (l *Local) filename(key string) (string, error) {
	clean, err := CleanKey(key)
	if err != nil {
		return "", err
	}

	return filepath.Join(l.root, filepath.FromSlash(clean)), nil
}

// Put implements Store
func (l *Local) Put(
	_ context.Context,
	key string,
	data []byte,
	_ string,
) error {
	fn, err := l.filename(key)
	if err != nil {
		return err
	}

	err = os.MkdirAll(filepath.Dir(fn), 0o755)
	if err != nil {
		return err
	}

	// Write then rename so readers never see a partial file
	tmp := fn + ".tmp"
	err = os.WriteFile(tmp, data, 0o644)
	if err != nil {
		return err
	}

	return os.Rename(tmp, fn)
}

// Get implements Store
func (l *Local) Get(ctx context.Context, key string) (io.ReadCloser, Object, error) {
	obj, err := l.Stat(ctx, key)
	if err != nil {
		return nil, Object{}, err
	}

	fn, _ := l.filename(key)
	f, err := os.Open(fn)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, Object{}, ErrNotFound
		}
		return nil, Object{}, err
	}

	return f, obj, nil
}

// Stat implements Store
func (l *Local) Stat(_ context.Context, key string) (Object, error) {
	fn, err := l.filename(key)
	if err != nil {
		return Object{}, err
	}

	fi, err := os.Stat(fn)
	if err != nil {
		if os.IsNotExist(err) {
			return Object{}, ErrNotFound
		}
		return Object{}, err
	}

	if fi.IsDir() {
		return Object{}, ErrNotFound
	}

	return l.object(fn, fi)
}

func (l *Local) object(fn string, fi fs.FileInfo) (Object, error) {
	rel, err := filepath.Rel(l.root, fn)
	if err != nil {
		return Object{}, err
	}
	key := filepath.ToSlash(rel)

	return Object{
		Key:         key,
		Size:        fi.Size(),
		ContentType: mime.TypeByExtension(path.Ext(key)),
		ModTime:     fi.ModTime(),
	}, nil
}

// Delete implements Store
func (l *Local) Delete(_ context.Context, key string) error {
	fn, err := l.filename(key)
	if err != nil {
		return err
	}

	err = os.Remove(fn)
	if err != nil && os.IsNotExist(err) {
		return ErrNotFound
	}

	return err
}

// List implements Store
func (l *Local) List(ctx context.Context) ([]Object, error) {
	var objects []Object

	err := filepath.WalkDir(l.root, func(fn string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if d.IsDir() || strings.HasSuffix(fn, ".tmp") {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}

		obj, err := l.object(fn, fi)
		if err != nil {
			return err
		}
		objects = append(objects, obj)

		return nil
	})
	if err != nil {
		return nil, err
	}

	return objects, nil
}

package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

const localScheme = "local"

// Local keeps documents on the filesystem under a root directory.
type Local struct {
	root string
}

func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("creating blob root: %w", err)
	}

	return &Local{root: root}, nil
}

func (l *Local) path(key string) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	return filepath.Join(l.root, filepath.FromSlash(key)), nil
}

func (l *Local) Put(_ context.Context, key, _ string, r io.Reader) (string, error) {
	p, err := l.path(key)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o750); err != nil {
		return "", fmt.Errorf("creating blob dir: %w", err)
	}

	f, err := os.OpenFile(p, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o640)
	if err != nil {
		return "", fmt.Errorf("creating blob: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(p)

		return "", fmt.Errorf("writing blob: %w", err)
	}

	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing blob: %w", err)
	}

	return localScheme + "://" + key, nil
}

func (l *Local) Open(_ context.Context, uri string) (io.ReadCloser, error) {
	key, err := splitURI(uri, localScheme)
	if err != nil {
		return nil, err
	}

	p, err := l.path(key)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("opening blob: %w", err)
	}

	return f, nil
}

func (l *Local) Delete(_ context.Context, uri string) error {
	key, err := splitURI(uri, localScheme)
	if err != nil {
		return err
	}

	p, err := l.path(key)
	if err != nil {
		return err
	}

	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("deleting blob: %w", err)
	}

	return nil
}

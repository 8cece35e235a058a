// Package blob stores uploaded invoice documents. Stored objects are addressed
// by a URI whose scheme names the backend that wrote them.
package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound   = errors.New("blob not found")
	ErrInvalidURI = errors.New("invalid blob uri")
)

type Store interface {
	Put(ctx context.Context, key, contentType string, r io.Reader) (string, error)
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
	Delete(ctx context.Context, uri string) error
}

var extensions = map[string]string{
	"application/pdf": "pdf",
	"image/png":       "png",
	"image/jpeg":      "jpg",
}

// DocumentKey returns invoice-documents/<owner>/<unix millis>-<suffix>.<ext>.
// The random suffix keeps two uploads in the same millisecond apart.
func DocumentKey(ownerID uuid.UUID, at time.Time, contentType string) string {
	ext, ok := extensions[contentType]
	if !ok {
		ext = "bin"
	}

	return fmt.Sprintf("invoice-documents/%s/%d-%s.%s", ownerID, at.UnixMilli(), uuid.NewString()[:8], ext)
}

// Name returns the last path element of a blob URI.
func Name(uri string) string {
	return path.Base(uri)
}

func splitURI(uri, scheme string) (string, error) {
	rest, ok := strings.CutPrefix(uri, scheme+"://")
	if !ok || rest == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}

	return rest, nil
}

func cleanKey(key string) (string, error) {
	clean := path.Clean("/" + key)[1:]
	if clean == "" || clean != strings.TrimPrefix(key, "/") {
		return "", fmt.Errorf("%w: key %q", ErrInvalidURI, key)
	}

	return clean, nil
}

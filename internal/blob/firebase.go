package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
)

const gsScheme = "gs"

// Firebase stores documents in a Firebase Storage bucket.
type Firebase struct {
	bucket *gcs.BucketHandle
	name   string
}

// NewFirebase connects to bucketName. credentialsJSON may be empty, in which
// case application default credentials are used.
func NewFirebase(ctx context.Context, bucketName, credentialsJSON string) (*Firebase, error) {
	var opts []option.ClientOption
	if credentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(credentialsJSON)))
	}

	app, err := firebase.NewApp(ctx, &firebase.Config{StorageBucket: bucketName}, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}

	client, err := app.Storage(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating storage client: %w", err)
	}

	bucket, err := client.DefaultBucket()
	if err != nil {
		return nil, fmt.Errorf("opening bucket %s: %w", bucketName, err)
	}

	return &Firebase{bucket: bucket, name: bucketName}, nil
}

func (f *Firebase) object(uri string) (*gcs.ObjectHandle, error) {
	rest, err := splitURI(uri, gsScheme)
	if err != nil {
		return nil, err
	}

	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket != f.name || key == "" {
		return nil, fmt.Errorf("%w: %q is not in bucket %s", ErrInvalidURI, uri, f.name)
	}

	return f.bucket.Object(key), nil
}

func (f *Firebase) Put(ctx context.Context, key, contentType string, r io.Reader) (string, error) {
	key, err := cleanKey(key)
	if err != nil {
		return "", err
	}

	w := f.bucket.Object(key).If(gcs.Conditions{DoesNotExist: true}).NewWriter(ctx)
	w.ContentType = contentType

	if _, err := io.Copy(w, r); err != nil {
		w.Close()
		return "", fmt.Errorf("uploading blob: %w", err)
	}

	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalizing upload: %w", err)
	}

	return fmt.Sprintf("%s://%s/%s", gsScheme, f.name, key), nil
}

func (f *Firebase) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	obj, err := f.object(uri)
	if err != nil {
		return nil, err
	}

	rc, err := obj.NewReader(ctx)
	if err != nil {
		if errors.Is(err, gcs.ErrObjectNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("opening blob: %w", err)
	}

	return rc, nil
}

func (f *Firebase) Delete(ctx context.Context, uri string) error {
	obj, err := f.object(uri)
	if err != nil {
		return err
	}

	if err := obj.Delete(ctx); err != nil && !errors.Is(err, gcs.ErrObjectNotExist) {
		return fmt.Errorf("deleting blob: %w", err)
	}

	return nil
}

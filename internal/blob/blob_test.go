package blob_test

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Apurv-15/ai-invoice-track/internal/blob"
)

func TestDocumentKey(t *testing.T) {
	owner := uuid.MustParse("2b1f7a4e-8a3c-4c1e-9a0b-6b8b1f0e2d11")
	at := time.UnixMilli(1718445600123)

	pattern := `^invoice-documents/2b1f7a4e-8a3c-4c1e-9a0b-6b8b1f0e2d11/1718445600123-[0-9a-f]{8}\.`

	assert.Regexp(t, pattern+`pdf$`, blob.DocumentKey(owner, at, "application/pdf"))
	assert.Regexp(t, pattern+`jpg$`, blob.DocumentKey(owner, at, "image/jpeg"))
	assert.Regexp(t, pattern+`bin$`, blob.DocumentKey(owner, at, "image/gif"))
}

func TestDocumentKey_SameMillisecond(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	at := time.UnixMilli(1718445600123)

	store, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)

	first := blob.DocumentKey(owner, at, "image/png")
	second := blob.DocumentKey(owner, at, "image/png")
	assert.NotEqual(t, first, second)

	_, err = store.Put(ctx, first, "image/png", bytes.NewReader([]byte("a")))
	require.NoError(t, err)

	_, err = store.Put(ctx, second, "image/png", bytes.NewReader([]byte("b")))
	assert.NoError(t, err)
}

func TestLocal_RoundTrip(t *testing.T) {
	ctx := context.Background()

	store, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)

	uri, err := store.Put(ctx, "invoice-documents/u1/1.png", "image/png", bytes.NewReader([]byte("png-bytes")))
	require.NoError(t, err)
	assert.Equal(t, "local://invoice-documents/u1/1.png", uri)
	assert.Equal(t, "1.png", blob.Name(uri))

	rc, err := store.Open(ctx, uri)
	require.NoError(t, err)

	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "png-bytes", string(data))

	_, err = store.Put(ctx, "invoice-documents/u1/1.png", "image/png", bytes.NewReader(nil))
	assert.Error(t, err, "existing objects are never overwritten")

	require.NoError(t, store.Delete(ctx, uri))
	require.NoError(t, store.Delete(ctx, uri), "deleting twice is not an error")

	_, err = store.Open(ctx, uri)
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestLocal_RejectsEscapingKeys(t *testing.T) {
	ctx := context.Background()

	store, err := blob.NewLocal(t.TempDir())
	require.NoError(t, err)

	_, err = store.Put(ctx, "../outside.txt", "text/plain", bytes.NewReader(nil))
	assert.ErrorIs(t, err, blob.ErrInvalidURI)

	_, err = store.Open(ctx, "local://a/../../etc/passwd")
	assert.ErrorIs(t, err, blob.ErrInvalidURI)

	_, err = store.Open(ctx, "gs://bucket/key")
	assert.ErrorIs(t, err, blob.ErrInvalidURI)
}

package storage

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ponesicek/s4chat/internal/config"
)

func newTestStore(t *testing.T, baseURL string) *LocalBlobStore {
	t.Helper()
	store, err := NewLocalBlobStore(&config.Config{
		BlobStoragePath: t.TempDir(),
		BlobBaseURL:     baseURL,
	})
	require.NoError(t, err)
	return store
}

func TestStoreAndOpenRoundTrip(t *testing.T) {
	store := newTestStore(t, "")
	ctx := context.Background()

	ref, err := store.Store(ctx, []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(ref, "blob_"))

	reader, contentType, err := store.Open(ctx, ref)
	require.NoError(t, err)
	defer reader.Close()

	data, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))
	assert.Equal(t, "image/png", contentType)
}

func TestResolveURLUsesConfiguredBase(t *testing.T) {
	store := newTestStore(t, "http://localhost:8080/v1/media/")
	ctx := context.Background()

	ref, err := store.Store(ctx, []byte("x"), "image/jpeg")
	require.NoError(t, err)

	url, err := store.ResolveURL(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/v1/media/"+ref, url)
}

func TestResolveURLFallsBackToFileScheme(t *testing.T) {
	store := newTestStore(t, "")
	ctx := context.Background()

	ref, err := store.Store(ctx, []byte("x"), "image/png")
	require.NoError(t, err)

	url, err := store.ResolveURL(ctx, ref)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(url, "file://"))
}

func TestResolveURLUnknownRef(t *testing.T) {
	store := newTestStore(t, "")

	_, err := store.ResolveURL(context.Background(), "blob_doesnotexist")
	assert.Error(t, err)
}

func TestOpenRejectsTraversalRefs(t *testing.T) {
	store := newTestStore(t, "")

	for _, ref := range []string{"", "../etc/passwd", "a/b", `a\b`, "blob.png"} {
		_, _, err := store.Open(context.Background(), ref)
		assert.Error(t, err, "ref %q should be rejected", ref)
	}
}

func TestUnknownContentTypeStoredAsBinary(t *testing.T) {
	store := newTestStore(t, "")
	ctx := context.Background()

	ref, err := store.Store(ctx, []byte("data"), "application/zip")
	require.NoError(t, err)

	reader, contentType, err := store.Open(ctx, ref)
	require.NoError(t, err)
	defer reader.Close()
	assert.Equal(t, "application/octet-stream", contentType)
}

package s3

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/prakriti/internal/photostore"
)

func TestNewRejectsBadEndpoint(t *testing.T) {
	_, err := New(Options{Endpoint: "http://bad endpoint", Bucket: "photos"})
	assert.Error(t, err)
}

// TestPhotoStoreRoundTrip runs against a live MinIO when
// PRAKRITI_TEST_S3_ENDPOINT is set.
func TestPhotoStoreRoundTrip(t *testing.T) {
	endpoint := os.Getenv("PRAKRITI_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("PRAKRITI_TEST_S3_ENDPOINT not set")
	}
	ctx := context.Background()

	store, err := New(Options{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("PRAKRITI_TEST_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("PRAKRITI_TEST_S3_SECRET_KEY"),
		Bucket:    "prakriti-test-" + uuid.NewString()[:8],
		Region:    "us-east-1",
	})
	require.NoError(t, err)
	require.NoError(t, store.EnsureBucket(ctx))

	key, err := store.Save(ctx, "before", "image/png", bytes.NewReader([]byte("png bytes")))
	require.NoError(t, err)

	rc, mimeType, err := store.Get(ctx, key)
	require.NoError(t, err)
	data, err := io.ReadAll(rc)
	require.NoError(t, err)
	require.NoError(t, rc.Close())
	assert.Equal(t, "image/png", mimeType)
	assert.Equal(t, []byte("png bytes"), data)

	require.NoError(t, store.Delete(ctx, key))
	_, _, err = store.Get(ctx, key)
	assert.ErrorIs(t, err, photostore.ErrNotFound)
	assert.ErrorIs(t, store.Delete(ctx, key), photostore.ErrNotFound)
}

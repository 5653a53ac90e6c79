package blob

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prompt-gallery/internal/config"
)

func TestLocal_PutServeDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(dir, "/uploads/")
	require.NoError(t, err)
	ctx := context.Background()

	url, err := store.Put(ctx, "prompts/img_1.png", []byte("png-bytes"), "image/png")
	require.NoError(t, err)
	assert.Equal(t, "/uploads/prompts/img_1.png", url)

	data, err := os.ReadFile(filepath.Join(dir, "prompts", "img_1.png"))
	require.NoError(t, err)
	assert.Equal(t, "png-bytes", string(data))

	mux := http.NewServeMux()
	mux.Handle(store.Prefix(), store.Handler())

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, url, nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "png-bytes", rec.Body.String())

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/uploads/prompts/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, store.Delete(ctx, "prompts/img_1.png"))
	require.NoError(t, store.Delete(ctx, "prompts/img_1.png"))
	_, err = os.Stat(filepath.Join(dir, "prompts", "img_1.png"))
	assert.True(t, os.IsNotExist(err))
}

func TestLocal_KeyCannotEscapeDir(t *testing.T) {
	dir := t.TempDir()
	store, err := NewLocal(filepath.Join(dir, "blobs"), "/uploads")
	require.NoError(t, err)

	_, err = store.Put(context.Background(), "../../escape.txt", []byte("x"), "text/plain")
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, "escape.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, "blobs", "escape.txt"))
	assert.NoError(t, err)
}

func TestS3_URL(t *testing.T) {
	s, err := NewS3(context.Background(), config.BlobConfig{Bucket: "prompts", Region: "eu-west-1", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "https://prompts.s3.eu-west-1.amazonaws.com/prompts/a.png", s.URL("prompts/a.png"))

	s, err = NewS3(context.Background(), config.BlobConfig{Bucket: "prompts", Region: "us-east-1", Endpoint: "http://minio:9000/", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "http://minio:9000/prompts/prompts/a.png", s.URL("prompts/a.png"))
}

func TestNew_UnknownDriver(t *testing.T) {
	_, err := New(context.Background(), config.BlobConfig{Driver: "ftp"})
	assert.Error(t, err)
}

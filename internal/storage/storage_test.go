package storage

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testConfig(endpoint string) Config {
	return Config{
		Endpoint:  endpoint,
		Region:    "us-east-1",
		Bucket:    "interviews",
		AccessKey: "test-access",
		SecretKey: "test-secret",
		PathStyle: true,
	}
}

func TestNewClientRequiresBucket(t *testing.T) {
	_, err := NewClient(Config{})
	require.Error(t, err)
	require.Contains(t, err.Error(), "bucket")
}

func TestUploadPutsObjectUnderKey(t *testing.T) {
	var gotPath, gotMethod, gotContentType string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		gotContentType = r.Header.Get("Content-Type")
		w.Header().Set("ETag", `"abc"`)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	err = client.Upload(context.Background(), "user-1/ada-001.jpg", []byte{0xff, 0xd8}, "image/jpeg")
	require.NoError(t, err)
	require.Equal(t, http.MethodPut, gotMethod)
	require.Equal(t, "/interviews/user-1/ada-001.jpg", gotPath)
	require.Equal(t, "image/jpeg", gotContentType)
}

func TestUploadSurfacesServerFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	err = client.Upload(context.Background(), "k", []byte{1}, "image/jpeg")
	require.Error(t, err)
	require.Contains(t, err.Error(), "upload k")
}

func TestSignedURLIsLocalAndTimeLimited(t *testing.T) {
	cfg := testConfig("http://localhost:9000")
	cfg.SignedURLTTL = time.Hour

	client, err := NewClient(cfg)
	require.NoError(t, err)

	url, err := client.SignedURL(context.Background(), "user-1/ada-001.jpg")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "http://localhost:9000/interviews/user-1/ada-001.jpg"))
	require.Contains(t, url, "X-Amz-Expires=3600")
	require.Contains(t, url, "X-Amz-Signature=")
}

func TestSignedURLTTLDefaultsToOneHour(t *testing.T) {
	client, err := NewClient(testConfig("http://localhost:9000"))
	require.NoError(t, err)

	url, err := client.SignedURL(context.Background(), "k")
	require.NoError(t, err)
	require.Contains(t, url, "X-Amz-Expires=3600")
}

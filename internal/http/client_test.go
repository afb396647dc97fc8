package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateURL(t *testing.T) {
	tests := []struct {
		url     string
		wantErr bool
	}{
		{"https://example.com/mod.jar", false},
		{"http://127.0.0.1:8080/mod.jar", false},
		{"example.com/mod.jar", true},
		{"ftp://example.com/mod.jar", true},
		{"https:///mod.jar", true},
		{"https://exa mple.com/%zz", true},
	}

	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			err := ValidateURL(tt.url)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidURL)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestClient_DownloadFile(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		gotUA = r.Header.Get("User-Agent")
		switch r.URL.Path {
		case "/mod.jar":
			fmt.Fprint(w, "jar-bytes")
		case "/missing.jar":
			nethttp.NotFound(w, r)
		default:
			nethttp.Error(w, "boom", nethttp.StatusBadGateway)
		}
	}))
	defer srv.Close()

	client := NewClient(Config{UserAgent: "test-agent"})
	dir := t.TempDir()

	t.Run("success overwrites existing file", func(t *testing.T) {
		dest := filepath.Join(dir, "mod.jar")
		require.NoError(t, os.WriteFile(dest, []byte("stale content that is longer"), 0o644))

		var lastWritten int64
		err := client.DownloadFile(context.Background(), srv.URL+"/mod.jar", dest, func(written, _ int64) {
			lastWritten = written
		})
		require.NoError(t, err)

		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, "jar-bytes", string(data))
		assert.Equal(t, int64(len("jar-bytes")), lastWritten)
		assert.Equal(t, "test-agent", gotUA)
	})

	t.Run("404 is ErrNotFound", func(t *testing.T) {
		dest := filepath.Join(dir, "missing.jar")
		err := client.DownloadFile(context.Background(), srv.URL+"/missing.jar", dest, nil)
		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoFileExists(t, dest)
	})

	t.Run("5xx is StatusError", func(t *testing.T) {
		err := client.DownloadFile(context.Background(), srv.URL+"/broken", filepath.Join(dir, "broken"), nil)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, nethttp.StatusBadGateway, statusErr.StatusCode)
		assert.False(t, errors.Is(err, ErrNotFound))
	})

	t.Run("missing scheme is ErrInvalidURL", func(t *testing.T) {
		err := client.DownloadFile(context.Background(), "example.com/mod.jar", filepath.Join(dir, "x"), nil)
		assert.ErrorIs(t, err, ErrInvalidURL)
	})
}

type roundTripFunc func(*nethttp.Request) (*nethttp.Response, error)

func (f roundTripFunc) RoundTrip(r *nethttp.Request) (*nethttp.Response, error) {
	return f(r)
}

func TestClient_TransportErrorsAreNotClassifiedFatal(t *testing.T) {
	client := NewClient(Config{Transport: roundTripFunc(func(*nethttp.Request) (*nethttp.Response, error) {
		return nil, errors.New("connection refused")
	})})

	_, err := client.Get(context.Background(), "https://example.com/mods.json")
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidURL))
	assert.Contains(t, err.Error(), "connection refused")
}

func TestClient_Get(t *testing.T) {
	client := NewClient(Config{Transport: roundTripFunc(func(r *nethttp.Request) (*nethttp.Response, error) {
		return &nethttp.Response{
			StatusCode: nethttp.StatusOK,
			Status:     "200 OK",
			Body:       io.NopCloser(strings.NewReader(`[]`)),
			Request:    r,
		}, nil
	})})

	body, err := client.Get(context.Background(), "https://example.com/mods.json")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(body))
}

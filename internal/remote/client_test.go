package remote

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/graphload/internal/record"
	"github.com/roach88/graphload/internal/upload"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := New(srv.URL+"/", "secret", 2*time.Second)
	require.NoError(t, err)
	return c
}

func TestNew_InvalidURL(t *testing.T) {
	_, err := New("not a url", "", time.Second)
	assert.Error(t, err)

	_, err = New("", "", time.Second)
	assert.Error(t, err)
}

func TestCreate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, PathResources, r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get(RequestIDHeader))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"id":"A"}`, string(body))
		_, _ = w.Write([]byte(`{"@id":"http://rdf.test/A"}`))
	})

	handle, err := c.Create(context.Background(), []byte(`{"id":"A"}`))
	require.NoError(t, err)
	assert.Equal(t, "http://rdf.test/A", handle)
}

func TestCreate_StatusClassification(t *testing.T) {
	tests := []struct {
		status int
		kind   upload.ErrorKind
	}{
		{http.StatusBadRequest, upload.KindRejected},
		{http.StatusForbidden, upload.KindRejected},
		{http.StatusInternalServerError, upload.KindRejected},
		{http.StatusNotFound, upload.KindConnection},
		{http.StatusBadGateway, upload.KindConnection},
		{http.StatusServiceUnavailable, upload.KindConnection},
		{http.StatusGatewayTimeout, upload.KindConnection},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "nope", tt.status)
			})

			_, err := c.Create(context.Background(), []byte(`{}`))
			var re *upload.RemoteError
			require.ErrorAs(t, err, &re)
			assert.Equal(t, tt.kind, re.Kind)
			assert.Equal(t, "create", re.Op)
		})
	}
}

func TestCreate_MissingHandle(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	})

	_, err := c.Create(context.Background(), []byte(`{}`))
	var re *upload.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, upload.KindRejected, re.Kind)
}

func TestCreate_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := New(url, "", time.Second)
	require.NoError(t, err)

	_, err = c.Create(context.Background(), []byte(`{}`))
	assert.True(t, upload.IsConnectionLost(err))
}

func TestCreate_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	c, err := New(srv.URL, "", 50*time.Millisecond)
	require.NoError(t, err)

	_, err = c.Create(context.Background(), []byte(`{}`))
	assert.True(t, upload.IsTimeout(err))
}

func TestUpdate(t *testing.T) {
	var got upload.Update
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, PathValues, r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusOK)
	})

	u := upload.Update{
		Handle:   "http://rdf.test/A",
		Type:     "Thing",
		Property: "hasB",
		Kind:     record.KindLink,
		Value:    "http://rdf.test/B",
	}
	require.NoError(t, c.Update(context.Background(), u))
	assert.Equal(t, u, got)
}

func TestIngest(t *testing.T) {
	asset := filepath.Join(t.TempDir(), "d.png")
	require.NoError(t, os.WriteFile(asset, []byte("png-bytes"), 0o644))

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathAssets, r.URL.Path)
		f, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		assert.Equal(t, "d.png", header.Filename)
		assert.Equal(t, "png-bytes", string(data))
		_, _ = w.Write([]byte(`{"internalFilename":"abc.png"}`))
	})

	name, err := c.Ingest(context.Background(), asset)
	require.NoError(t, err)
	assert.Equal(t, "abc.png", name)
}

func TestIngest_MissingFileIsRejected(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})

	_, err := c.Ingest(context.Background(), filepath.Join(t.TempDir(), "missing.png"))
	var re *upload.RemoteError
	require.ErrorAs(t, err, &re)
	assert.Equal(t, upload.KindRejected, re.Kind)
	assert.False(t, called)
}

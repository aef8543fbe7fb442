package caller

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequestValidation(t *testing.T) {
	_, err := NewRequest("FETCH", "http://localhost")
	assert.ErrorIs(t, err, ErrInvalidMethod)

	_, err = NewRequest(GET, "localhost:8000/api")
	assert.ErrorIs(t, err, ErrInvalidURL)

	_, err = NewRequest(GET, "ftp://example.com")
	assert.ErrorIs(t, err, ErrInvalidURL)

	r, err := NewRequest(POST, "https://example.com/api")
	require.NoError(t, err)
	assert.NotEmpty(t, r.ID)
}

func TestNewRequestFromMap(t *testing.T) {
	r, err := NewRequestFromMap(map[string]any{
		"method":   "head",
		"url":      "http://127.0.0.1:8000/health",
		"headers":  map[string]any{"accept": "text/plain"},
		"expected": []any{200, 204},
	})
	require.NoError(t, err)
	assert.Equal(t, HEAD, r.Method)
	assert.Equal(t, "text/plain", r.Headers["accept"])
	assert.Equal(t, []int{200, 204}, r.Expected)

	r, err = NewRequestFromMap(map[string]any{"url": "http://127.0.0.1/"})
	require.NoError(t, err)
	assert.Equal(t, GET, r.Method)

	_, err = NewRequestFromMap(map[string]any{"url": "not a url"})
	assert.ErrorIs(t, err, ErrInvalidURL)
}

func TestBuildIsFreshEachTime(t *testing.T) {
	tmpl := Get("http://example.com/path").
		WithBody("application/json", `{"ping":true}`)
	tmpl.Method = POST

	first, err := tmpl.Build(context.Background())
	require.NoError(t, err)
	second, err := tmpl.Build(context.Background())
	require.NoError(t, err)

	assert.NotEqual(t, first.Header.Get(RequestIDHeader), second.Header.Get(RequestIDHeader))
	assert.Equal(t, "application/json", first.Header.Get("Content-Type"))

	b1, _ := io.ReadAll(first.Body)
	b2, _ := io.ReadAll(second.Body)
	assert.Equal(t, `{"ping":true}`, string(b1))
	assert.Equal(t, string(b1), string(b2))
}

func TestAccepts(t *testing.T) {
	r := Get("http://example.com")
	assert.True(t, r.Accepts(200))
	assert.True(t, r.Accepts(304))
	assert.False(t, r.Accepts(404))

	r.Expect(404)
	assert.True(t, r.Accepts(404))
	assert.False(t, r.Accepts(200))
}

func TestExecute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		switch req.URL.Path {
		case "/ok":
			assert.NotEmpty(t, req.Header.Get(RequestIDHeader))
			assert.Equal(t, "yes", req.Header.Get("X-Probe"))
			_, _ = w.Write([]byte("pong"))
		default:
			http.Error(w, "missing", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	resp, err := Get(srv.URL+"/ok").WithHeader("X-Probe", "yes").Execute(context.Background(), srv.Client())
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "pong", resp.String())
	assert.Greater(t, int64(resp.Latency), int64(0))

	resp, err = Get(srv.URL+"/nope").Execute(context.Background(), nil)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestExecuteUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	_, err := Get(addr).Execute(context.Background(), nil)
	require.Error(t, err)
	var statusErr *StatusError
	assert.False(t, errors.As(err, &statusErr))
}

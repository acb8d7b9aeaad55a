package server

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouterServesFiles(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.html"), []byte("<p>a</p>"), 0644))

	rec := httptest.NewRecorder()
	NewRouter(dir).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/a.html", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<p>a</p>", rec.Body.String())

	rec = httptest.NewRecorder()
	NewRouter(dir).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/missing.html", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStartAndResolve(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "sub"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "b.html"), []byte("b"), 0644))

	s, err := Start(dir)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })

	u, err := s.Resolve("/sub/b.html")
	require.NoError(t, err)

	resp, err := http.Get(u)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "b", string(body))
}

func TestStartRejectsMissingDir(t *testing.T) {
	_, err := Start(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}

func TestResolve(t *testing.T) {
	base, err := url.Parse("http://127.0.0.1:8123/")
	require.NoError(t, err)

	got, err := Resolve(base, "pages/a.html?x=1")
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:8123/pages/a.html?x=1", got)

	got, err = Resolve(nil, "https://example.com/")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", got)

	got, err = Resolve(nil, "about:blank")
	require.NoError(t, err)
	assert.Equal(t, "about:blank", got)

	_, err = Resolve(nil, "a.html")
	assert.Error(t, err)
}

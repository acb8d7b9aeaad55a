package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daryltucker/page-cycler/internal/server"
)

func TestResolveInitialURL(t *testing.T) {
	got, err := resolveInitialURL("", nil)
	require.NoError(t, err)
	assert.Equal(t, "about:blank", got)

	got, err = resolveInitialURL("https://example.com/", nil)
	require.NoError(t, err)
	assert.Equal(t, "https://example.com/", got)

	_, err = resolveInitialURL("start.html", nil)
	assert.Error(t, err)

	srv, err := server.Start(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })

	// With a page-set server the warm-up load lands on the same origin.
	got, err = resolveInitialURL("", srv)
	require.NoError(t, err)
	assert.Equal(t, srv.URL()+"nonexistent.html", got)

	got, err = resolveInitialURL("start.html", srv)
	require.NoError(t, err)
	assert.Equal(t, srv.URL()+"start.html", got)
}

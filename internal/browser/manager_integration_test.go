//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gubanews/internal/browser"
	"gubanews/internal/config"

	"github.com/stretchr/testify/require"
)

func TestManagerNavigationIntegration(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, `<html><body><div class="newstext">integration body</div></body></html>`)
	}))
	defer ts.Close()

	cfg := config.BrowserConfig{
		Headless:            true,
		NavigationTimeoutMs: 10000,
	}
	m := browser.NewManager(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	defer func() {
		require.NoError(t, m.Shutdown(context.Background()))
	}()

	require.NoError(t, m.Start(ctx))
	require.True(t, m.IsConnected())

	page, err := m.OpenPage(ctx, ts.URL)
	require.NoError(t, err)
	defer m.ClosePage(page)

	html, err := m.HTML(ctx, page)
	require.NoError(t, err)
	require.True(t, strings.Contains(html, "integration body"))

	text, err := m.ElementText(ctx, page, ".newstext")
	require.NoError(t, err)
	require.Equal(t, "integration body", text)

	landed, err := m.PageURL(page)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(landed, ts.URL))
}

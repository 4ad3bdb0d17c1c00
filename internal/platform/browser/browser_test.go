package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os/exec"
	"strings"
	"testing"
	"time"
)

// requireChrome skips tests that need a local Chrome or Chromium.
func requireChrome(t *testing.T) {
	t.Helper()
	for _, name := range []string{"google-chrome", "google-chrome-stable", "chromium", "chromium-browser", "headless-shell"} {
		if _, err := exec.LookPath(name); err == nil {
			return
		}
	}
	t.Skip("no chrome binary on PATH")
}

func TestRender_AfterClose(t *testing.T) {
	r := New(Config{})
	r.Close()

	if _, err := r.Render(context.Background(), "about:blank"); !errors.Is(err, ErrClosed) {
		t.Fatalf("expected ErrClosed, got %v", err)
	}
}

func TestClose_Twice(t *testing.T) {
	r := New(Config{})
	r.Close()
	r.Close()
}

func TestRender_ScriptBuiltTable(t *testing.T) {
	requireChrome(t)

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, `<html><body><div id="reports"></div><script>
			document.getElementById("reports").innerHTML =
				"<table><tbody><tr><td><a href='/r.pdf'>Annual</a></td><td>PDF</td><td>Mar 1, 2024</td></tr></tbody></table>";
		</script></body></html>`)
	}))
	defer ts.Close()

	r := New(Config{Timeout: 20 * time.Second, NoSandbox: true})
	defer r.Close()

	html, err := r.Render(context.Background(), ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(html, "Annual") {
		t.Errorf("expected script output in rendered html, got %q", html)
	}
}

func TestRender_CancelledContext(t *testing.T) {
	requireChrome(t)

	r := New(Config{NoSandbox: true})
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := r.Render(ctx, "about:blank"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

//go:build integration

package browser_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"frameplay/internal/browser"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// viewerPage mimics the viewer's filter input and records committed edits in
// a data attribute the test can read back.
const viewerPage = `<html><body>
<input placeholder="Filter tags (regex)">
<script>
const el = document.querySelector('input');
document.body.addEventListener('input', () => { document.body.dataset.live = el.value; });
document.body.addEventListener('change', () => { document.body.dataset.committed = el.value; });
</script>
</body></html>`

func TestSessionDispatchesLiveEdit(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, viewerPage)
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := browser.DefaultConfig()
	cfg.Headless = true

	sess, err := browser.Connect(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.Open(ctx, ts.URL))

	ctl, err := sess.FilterControl(ctx, `input[placeholder="Filter tags (regex)"]`)
	require.NoError(t, err)

	require.NoError(t, ctl.SetFilter(ctx, "frame_0043"))

	// Both notifications must have bubbled to the body listeners, which
	// mirror the committed value into data attributes we can select on.
	_, err = sess.FilterControl(ctx, `body[data-live="frame_0043"]`)
	require.NoError(t, err, "input event did not bubble")
	_, err = sess.FilterControl(ctx, `body[data-committed="frame_0043"]`)
	require.NoError(t, err, "change event did not bubble")

	png, err := sess.Screenshot(ctx, false)
	require.NoError(t, err)
	require.NotEmpty(t, png)
}

func TestFilterControlNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html><body>no inputs here</body></html>")
	}))
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	cfg := browser.DefaultConfig()
	cfg.Headless = true
	cfg.ElementTimeoutMs = 1000

	sess, err := browser.Connect(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer sess.Close()

	require.NoError(t, sess.Open(ctx, ts.URL))

	_, err = sess.FilterControl(ctx, `input[placeholder="Filter tags (regex)"]`)
	require.ErrorIs(t, err, browser.ErrElementNotFound)
}

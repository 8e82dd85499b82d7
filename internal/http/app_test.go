package handlers_test

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"garagesale/internal/clock"
	"garagesale/internal/config"
	"garagesale/internal/http/handlers"
	applog "garagesale/internal/log"
	"garagesale/internal/metrics"
	"garagesale/internal/repos"
)

var now = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type testApp struct {
	app   *fiber.App
	deps  *handlers.Deps
	db    *sqlx.DB
	clk   *clock.MockClock
	media string
}

// newTestApp wires the full server over an in-memory store seeded with the
// demo catalog. Rate limits are off unless the caller overrides cfg.
func newTestApp(t *testing.T, tweak ...func(*config.Config)) *testApp {
	t.Helper()
	cfg := config.Config{
		DBDSN:            ":memory:",
		MediaDir:         t.TempDir(),
		TemplatesDir:     "../../web/templates",
		PageSize:         15,
		CORSOrigins:      "*",
		BrowseSessionTTL: 30 * time.Minute,
	}
	for _, fn := range tweak {
		fn(&cfg)
	}
	db, err := repos.OpenDB(cfg.DBDSN)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, repos.SeedDemo(db, now))

	clk := clock.NewMock(now)
	deps := handlers.NewDeps(db, cfg, handlers.Options{Clock: clk, Metrics: metrics.New("test")})
	return &testApp{app: handlers.NewApp(cfg, deps), deps: deps, db: db, clk: clk, media: cfg.MediaDir}
}

func (ta *testApp) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (ta *testApp) get(t *testing.T, url string) *http.Response {
	t.Helper()
	return ta.do(t, httptest.NewRequest(http.MethodGet, url, nil))
}

func (ta *testApp) post(t *testing.T, url, body string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, url, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return ta.do(t, req)
}

// getJSON decodes the body into out and returns the status code.
func (ta *testApp) getJSON(t *testing.T, url string, out any) int {
	t.Helper()
	return decode(t, ta.get(t, url), out)
}

func (ta *testApp) postJSON(t *testing.T, url, body string, out any) int {
	t.Helper()
	return decode(t, ta.post(t, url, body), out)
}

func decode(t *testing.T, resp *http.Response, out any) int {
	t.Helper()
	defer resp.Body.Close()
	if out != nil {
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		require.NoError(t, json.NewDecoder(bytes.NewReader(raw)).Decode(out), string(raw))
	}
	return resp.StatusCode
}

func bodyString(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(raw)
}

func (ta *testApp) counters(t *testing.T, id int64) (views, searches int64) {
	t.Helper()
	require.NoError(t, ta.db.QueryRow(`SELECT views, searches FROM listings WHERE id = ?`, id).Scan(&views, &searches))
	return views, searches
}

// eventuallyViews waits for background view counting to reach want.
func (ta *testApp) eventuallyViews(t *testing.T, id, want int64) {
	t.Helper()
	require.Eventually(t, func() bool {
		var views int64
		return ta.db.Get(&views, `SELECT views FROM listings WHERE id = ?`, id) == nil && views == want
	}, 2*time.Second, 10*time.Millisecond)
}

func (ta *testApp) writeMedia(t *testing.T, name, content string) {
	t.Helper()
	p := filepath.Join(ta.media, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
}

// captureLogs routes the process logger into an observer for the test.
func captureLogs(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zap.DebugLevel)
	prev := applog.L()
	applog.Use(zap.New(core))
	t.Cleanup(func() { applog.Use(prev) })
	return logs
}

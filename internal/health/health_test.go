package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/telebot.v3"

	"github.com/Proton-105/rewards-bot/internal/lifecycle"
	"github.com/Proton-105/rewards-bot/internal/testutil"
)

func TestCheckerReportsEveryComponent(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	checker := NewChecker(testutil.DiscardLogger())
	checker.AddCheck("database", NewDBChecker(testutil.NewSQLite(t)))
	checker.AddCheck("redis", NewRedisChecker(client))
	checker.AddCheck("telegram", &TelegramChecker{me: func() *telebot.User { return &telebot.User{ID: 1} }})

	report := checker.Check(context.Background())
	assert.True(t, report.Healthy())
	assert.Equal(t, map[string]string{"database": StatusOK, "redis": StatusOK, "telegram": StatusOK}, report.Components)
	assert.Equal(t, []string{"database", "redis", "telegram"}, checker.Names())

	mr.Close()
	report = checker.Check(context.Background())
	assert.False(t, report.Healthy())
	assert.NotEqual(t, StatusOK, report.Components["redis"])
}

func TestTelegramCheckerWithoutLogin(t *testing.T) {
	assert.Error(t, NewTelegramChecker(nil).HealthCheck(context.Background()))
}

func TestRouterEndpoints(t *testing.T) {
	checker := NewChecker(testutil.DiscardLogger())
	var down atomic.Bool
	checker.AddCheck("database", CheckFunc(func(context.Context) error {
		if down.Load() {
			return errors.New("down")
		}
		return nil
	}))

	probes := lifecycle.NewProbes(nil, testutil.DiscardLogger())
	srv := httptest.NewServer(NewRouter(checker, probes, testutil.DiscardLogger()))
	t.Cleanup(srv.Close)

	get := func(path string) (*http.Response, map[string]any) {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		require.NoError(t, err)
		defer resp.Body.Close()
		var body map[string]any
		_ = json.NewDecoder(resp.Body).Decode(&body)
		return resp, body
	}

	resp, body := get("/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, StatusOK, body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))

	down.Store(true)
	resp, body = get("/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, StatusDegraded, body["status"])

	resp, _ = get("/readyz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	probes.MarkReady()
	resp, _ = get("/readyz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, _ = get("/livez")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

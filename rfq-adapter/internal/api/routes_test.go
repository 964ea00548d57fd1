package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/portcall/adapters/rfq-adapter/internal/store"
)

type stubEvents struct {
	backend string
	err     error
}

func (s stubEvents) Healthy() error  { return s.err }
func (s stubEvents) Backend() string { return s.backend }

func setup(t *testing.T, events HealthChecker) (*fiber.App, *store.HybridStore, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	st := store.New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), nil, time.Hour, zap.NewNop())
	app := fiber.New()
	RegisterRoutes(app, st, events, "list")
	return app, st, mr
}

func decode(t *testing.T, body io.Reader) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(body).Decode(&out))
	return out
}

func TestHealth_OK(t *testing.T) {
	app, _, _ := setup(t, stubEvents{backend: "amqp"})

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode(t, resp.Body)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "amqp", body["events_backend"])
}

func TestHealth_EventsDown(t *testing.T) {
	app, _, _ := setup(t, stubEvents{err: errors.New("nats disconnected")})

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	body := decode(t, resp.Body)
	assert.Equal(t, "degraded", body["status"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "nats disconnected", checks["events"])
	assert.Equal(t, "ok", checks["store"])
}

func TestHealth_StoreDown(t *testing.T) {
	app, _, mr := setup(t, nil)
	mr.Close()

	resp, err := app.Test(httptest.NewRequest("GET", "/health", nil), 5000)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	body := decode(t, resp.Body)
	assert.Equal(t, "none", body["events_backend"])
	checks := body["checks"].(map[string]any)
	assert.Equal(t, "not configured", checks["events"])
	assert.NotEqual(t, "ok", checks["store"])
}

func TestMetricsEndpoint(t *testing.T) {
	app, _, _ := setup(t, stubEvents{})

	resp, err := app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "go_goroutines")
}

func TestSync(t *testing.T) {
	app, st, _ := setup(t, stubEvents{})

	resp, err := app.Test(httptest.NewRequest("GET", "/sync", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	at := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, st.SetLastSync(context.Background(), "list", store.SyncState{At: at, Total: 4, Discovered: 1}))

	resp, err = app.Test(httptest.NewRequest("GET", "/sync", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	body := decode(t, resp.Body)
	assert.Equal(t, "list", body["feed"])
	last := body["last_sync"].(map[string]any)
	assert.Equal(t, float64(4), last["total"])
	assert.Equal(t, "2026-03-01T12:00:00Z", last["at"])
}

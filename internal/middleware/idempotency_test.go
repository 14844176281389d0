package middleware

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/vaultline/vaultline/internal/identity"
	"github.com/vaultline/vaultline/internal/logging"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.Close() })
	return cache
}

func setupIdempotencyApp(t *testing.T) (*fiber.App, *int) {
	t.Helper()
	calls := 0
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if id := c.Get("X-Test-User"); id != "" {
			identity.WithUser(c, identity.User{ID: id})
		}
		return c.Next()
	})
	app.Use(Idempotency(newRedis(t), time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error {
		calls++
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"ok": true, "call": calls})
	})
	return app, &calls
}

func postResource(t *testing.T, app *fiber.App, key, user string) (int, string) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodPost, "/resource", strings.NewReader("{}"))
	req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	if key != "" {
		req.Header.Set(idempotencyKeyHeader, key)
	}
	if user != "" {
		req.Header.Set("X-Test-User", user)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func TestIdempotencyRequiresHeader(t *testing.T) {
	app, _ := setupIdempotencyApp(t)

	status, _ := postResource(t, app, "", "")
	require.Equal(t, fiber.StatusBadRequest, status)
}

func TestIdempotencyReturnsCachedResponse(t *testing.T) {
	app, calls := setupIdempotencyApp(t)

	status, first := postResource(t, app, "abc123", "")
	require.Equal(t, fiber.StatusCreated, status)

	// The second request replays the stored response without invoking the handler.
	status, second := postResource(t, app, "abc123", "")
	require.Equal(t, fiber.StatusCreated, status)
	require.Equal(t, first, second)
	require.Equal(t, 1, *calls)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal([]byte(second), &decoded))
	require.EqualValues(t, 1, decoded["call"])
}

func TestIdempotencyReleasesKeyOnFailure(t *testing.T) {
	calls := 0
	app := fiber.New()
	app.Use(Idempotency(newRedis(t), time.Minute, logging.Discard()))
	app.Post("/resource", func(c *fiber.Ctx) error {
		calls++
		if calls == 1 {
			return fiber.NewError(fiber.StatusBadGateway, "mail down")
		}
		return c.SendStatus(fiber.StatusAccepted)
	})

	status, _ := postResource(t, app, "retry-me", "")
	require.Equal(t, fiber.StatusBadGateway, status)

	status, _ = postResource(t, app, "retry-me", "")
	require.Equal(t, fiber.StatusAccepted, status)
	require.Equal(t, 2, calls)
}

func TestIdempotencyKeysAreScopedPerUser(t *testing.T) {
	app, calls := setupIdempotencyApp(t)

	_, _ = postResource(t, app, "same-key", "user-a")
	_, _ = postResource(t, app, "same-key", "user-b")
	require.Equal(t, 2, *calls)

	_, _ = postResource(t, app, "same-key", "user-a")
	require.Equal(t, 2, *calls)
}

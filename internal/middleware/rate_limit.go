package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	rateLimitPrefix    = "rl:"
	defaultRateLimit   = 5
	rateLimitWindow    = time.Minute
	rateLimitedMessage = "Too many attempts, try again later"
)

// RateLimit caps requests per scope and subject to maxPerMin using a Redis
// INCR/EXPIRE counter. The subject is the lower-cased JSON body field named
// field, or the client IP when the body carries none. It fails open on cache
// errors and when cache is nil.
func RateLimit(cache *redis.Client, scope, field string, maxPerMin int, baseLogger zerolog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = defaultRateLimit
	}
	logger := baseLogger.With().Str("component", "rate_limit").Str("scope", scope).Logger()
	return func(c *fiber.Ctx) error {
		if cache == nil {
			return c.Next()
		}
		subject := bodyField(c, field)
		if subject == "" {
			subject = c.IP()
		}

		ctx, cancel := context.WithTimeout(context.Background(), cacheTimeout)
		defer cancel()

		key := rateLimitPrefix + scope + ":" + subject
		cnt, err := cache.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn().Err(err).Msg("rate limit counter unavailable")
			return c.Next()
		}
		if cnt == 1 {
			cache.Expire(ctx, key, rateLimitWindow)
		}
		if cnt > int64(maxPerMin) {
			logger.Info().Str("subject", subject).Int64("count", cnt).Msg("rate limited")
			return fiber.NewError(http.StatusTooManyRequests, rateLimitedMessage)
		}
		return c.Next()
	}
}

// SignInRateLimit throttles sign-in per submitted identifier.
func SignInRateLimit(cache *redis.Client, maxPerMin int, logger zerolog.Logger) fiber.Handler {
	return RateLimit(cache, "signin", "identifier", maxPerMin, logger)
}

// EmailRateLimit throttles a passcode endpoint per submitted email.
func EmailRateLimit(cache *redis.Client, scope string, maxPerMin int, logger zerolog.Logger) fiber.Handler {
	return RateLimit(cache, scope, "email", maxPerMin, logger)
}

func bodyField(c *fiber.Ctx, field string) string {
	var body map[string]any
	if err := c.BodyParser(&body); err != nil {
		return ""
	}
	value, _ := body[field].(string)
	return strings.ToLower(strings.TrimSpace(value))
}

package passcode

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/vaultline/vaultline/internal/logging"
)

const email = "rvsanchez255@gmail.com"

var sixDigits = regexp.MustCompile(`^[0-9]{6}$`)

func newIssuer(t *testing.T, store Store) *Issuer {
	t.Helper()
	return NewIssuer(store, Options{TTL: time.Minute, MaxAttempts: 3, HashCost: bcrypt.MinCost}, logging.Discard())
}

func redisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisStore(client), mr
}

// wrong returns a six-digit code guaranteed to differ from code.
func wrong(code string) string {
	if code == "000000" {
		return "111111"
	}
	return "000000"
}

func TestGenerateFormat(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 200; i++ {
		code, err := Generate()
		require.NoError(t, err)
		require.Regexp(t, sixDigits, code)
		seen[code] = true
	}
	require.Greater(t, len(seen), 150)
}

func TestVerifyIsSingleUse(t *testing.T) {
	for name, store := range map[string]Store{"memory": NewMemoryStore(), "redis": func() Store { s, _ := redisStore(t); return s }()} {
		t.Run(name, func(t *testing.T) {
			issuer := newIssuer(t, store)
			ctx := context.Background()

			code, err := issuer.Issue(ctx, email, PurposeSignIn)
			require.NoError(t, err)
			require.Regexp(t, sixDigits, code)

			require.NoError(t, issuer.Verify(ctx, email, PurposeSignIn, code))
			require.ErrorIs(t, issuer.Verify(ctx, email, PurposeSignIn, code), ErrInvalid)
		})
	}
}

func TestReissueInvalidatesPrevious(t *testing.T) {
	issuer := newIssuer(t, NewMemoryStore())
	ctx := context.Background()

	first, err := issuer.Issue(ctx, email, PurposeSignIn)
	require.NoError(t, err)
	second, err := issuer.Issue(ctx, email, PurposeSignIn)
	require.NoError(t, err)

	if first != second {
		require.ErrorIs(t, issuer.Verify(ctx, email, PurposeSignIn, first), ErrInvalid)
	}
	require.NoError(t, issuer.Verify(ctx, email, PurposeSignIn, second))
}

func TestVerifyRejectsOtherPurpose(t *testing.T) {
	issuer := newIssuer(t, NewMemoryStore())
	ctx := context.Background()

	code, err := issuer.Issue(ctx, email, PurposePasswordReset)
	require.NoError(t, err)

	require.ErrorIs(t, issuer.Verify(ctx, email, PurposeSignIn, code), ErrInvalid)
	require.NoError(t, issuer.Verify(ctx, email, PurposePasswordReset, code))
}

func TestVerifyLocksAfterMaxAttempts(t *testing.T) {
	issuer := newIssuer(t, NewMemoryStore())
	ctx := context.Background()

	code, err := issuer.Issue(ctx, email, PurposeSignIn)
	require.NoError(t, err)

	require.ErrorIs(t, issuer.Verify(ctx, email, PurposeSignIn, wrong(code)), ErrInvalid)
	require.ErrorIs(t, issuer.Verify(ctx, email, PurposeSignIn, wrong(code)), ErrInvalid)
	require.ErrorIs(t, issuer.Verify(ctx, email, PurposeSignIn, wrong(code)), ErrTooManyAttempts)
	require.ErrorIs(t, issuer.Verify(ctx, email, PurposeSignIn, code), ErrInvalid)
}

func TestVerifyCountsConcurrentAttempts(t *testing.T) {
	const guesses = 50
	for name, store := range map[string]Store{"memory": NewMemoryStore(), "redis": func() Store { s, _ := redisStore(t); return s }()} {
		t.Run(name, func(t *testing.T) {
			issuer := NewIssuer(store, Options{TTL: time.Minute, MaxAttempts: 5, HashCost: bcrypt.MinCost}, logging.Discard())
			ctx := context.Background()

			code, err := issuer.Issue(ctx, email, PurposePasswordReset)
			require.NoError(t, err)

			var (
				wg                sync.WaitGroup
				mu                sync.Mutex
				rejected, blocked int
			)
			for i := 0; i < guesses; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					err := issuer.Verify(ctx, email, PurposePasswordReset, wrong(code))
					mu.Lock()
					defer mu.Unlock()
					switch {
					case errors.Is(err, ErrTooManyAttempts):
						blocked++
					case errors.Is(err, ErrInvalid):
						rejected++
					default:
						t.Errorf("unexpected verify result: %v", err)
					}
				}()
			}
			wg.Wait()

			require.GreaterOrEqual(t, blocked, 1)
			require.Equal(t, guesses, rejected+blocked)
			require.ErrorIs(t, issuer.Verify(ctx, email, PurposePasswordReset, code), ErrInvalid)
		})
	}
}

func TestStoreIncrAttempts(t *testing.T) {
	for name, store := range map[string]Store{"memory": NewMemoryStore(), "redis": func() Store { s, _ := redisStore(t); return s }()} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			_, err := store.IncrAttempts(ctx, email)
			require.ErrorIs(t, err, ErrNoRecord)

			now := time.Now().UTC()
			require.NoError(t, store.Put(ctx, email, Record{Hash: []byte("h"), Purpose: PurposeSignIn, IssuedAt: now, ExpiresAt: now.Add(time.Minute)}))

			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := store.IncrAttempts(ctx, email)
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			rec, err := store.Get(ctx, email)
			require.NoError(t, err)
			require.Equal(t, 20, rec.Attempts)

			removed, err := store.Delete(ctx, email)
			require.NoError(t, err)
			require.True(t, removed)
			removed, err = store.Delete(ctx, email)
			require.NoError(t, err)
			require.False(t, removed)
		})
	}
}

func TestVerifyExpired(t *testing.T) {
	issuer := newIssuer(t, NewMemoryStore())
	ctx := context.Background()

	code, err := issuer.Issue(ctx, email, PurposeSignIn)
	require.NoError(t, err)

	issuer.now = func() time.Time { return time.Now().Add(2 * time.Minute) }
	require.ErrorIs(t, issuer.Verify(ctx, email, PurposeSignIn, code), ErrExpired)

	issuer.now = time.Now
	require.ErrorIs(t, issuer.Verify(ctx, email, PurposeSignIn, code), ErrInvalid)
}

func TestRedisStoreStoresHashWithTTL(t *testing.T) {
	store, mr := redisStore(t)
	issuer := newIssuer(t, store)
	ctx := context.Background()

	code, err := issuer.Issue(ctx, email, PurposeSignIn)
	require.NoError(t, err)

	raw := mr.HGet(keyPrefix+email, fieldRecord)
	require.NotEmpty(t, raw)
	require.NotContains(t, raw, `"`+code+`"`)
	require.Greater(t, mr.TTL(keyPrefix+email), time.Duration(0))

	mr.FastForward(2 * time.Minute)
	require.ErrorIs(t, issuer.Verify(ctx, email, PurposeSignIn, code), ErrInvalid)
}

func TestClear(t *testing.T) {
	issuer := newIssuer(t, NewMemoryStore())
	ctx := context.Background()

	code, err := issuer.Issue(ctx, email, PurposeSignIn)
	require.NoError(t, err)
	require.NoError(t, issuer.Clear(ctx, email))
	require.ErrorIs(t, issuer.Verify(ctx, email, PurposeSignIn, code), ErrInvalid)
}

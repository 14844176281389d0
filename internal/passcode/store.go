package passcode

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix     = "passcode:v1:"
	fieldRecord   = "record"
	fieldAttempts = "attempts"
)

// incrAttempts bumps the counter only while the record is live so a late
// attempt cannot recreate an expired or consumed key without a TTL.
var incrAttempts = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 0 then
	return -1
end
return redis.call("HINCRBY", KEYS[1], ARGV[1], 1)
`)

// RedisStore keeps each record in a hash (record JSON plus attempt counter)
// whose TTL matches the record's expiry.
type RedisStore struct {
	client *redis.Client
	now    func() time.Time
}

// NewRedisStore builds a Redis-backed Store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client, now: time.Now}
}

func (s *RedisStore) Put(ctx context.Context, email string, rec Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	ttl := rec.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		_, err := s.Delete(ctx, email)
		return err
	}
	key := keyPrefix + email
	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, fieldRecord, payload, fieldAttempts, rec.Attempts)
		pipe.PExpire(ctx, key, ttl)
		return nil
	})
	return err
}

func (s *RedisStore) Get(ctx context.Context, email string) (Record, error) {
	fields, err := s.client.HGetAll(ctx, keyPrefix+email).Result()
	if err != nil {
		return Record{}, err
	}
	raw, ok := fields[fieldRecord]
	if !ok {
		return Record{}, ErrNoRecord
	}
	var rec Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return Record{}, err
	}
	if rec.Attempts, err = strconv.Atoi(fields[fieldAttempts]); err != nil {
		return Record{}, fmt.Errorf("decode attempts: %w", err)
	}
	return rec, nil
}

func (s *RedisStore) IncrAttempts(ctx context.Context, email string) (int, error) {
	n, err := incrAttempts.Run(ctx, s.client, []string{keyPrefix + email}, fieldAttempts).Int()
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, ErrNoRecord
	}
	return n, nil
}

func (s *RedisStore) Delete(ctx context.Context, email string) (bool, error) {
	n, err := s.client.Del(ctx, keyPrefix+email).Result()
	return n > 0, err
}

// MemoryStore is a process-local Store for tests and development.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
}

// NewMemoryStore builds an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Put(_ context.Context, email string, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[email] = rec
	return nil
}

func (s *MemoryStore) Get(_ context.Context, email string) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[email]
	if !ok {
		return Record{}, ErrNoRecord
	}
	return rec, nil
}

func (s *MemoryStore) IncrAttempts(_ context.Context, email string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[email]
	if !ok {
		return 0, ErrNoRecord
	}
	rec.Attempts++
	s.records[email] = rec
	return rec.Attempts, nil
}

func (s *MemoryStore) Delete(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[email]
	delete(s.records, email)
	return ok, nil
}

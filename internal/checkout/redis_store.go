package checkout

import (
	"context"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps each checkout session in a Redis hash. One hash per
// session id keeps the bag atomic to clear and cheap to expire.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis and verifies the connection
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	log.Println("Redis connection established")
	return &RedisStore{client: client}, nil
}

func sessionKey(sid string) string {
	return "checkout:" + sid
}

// Write sets one field and refreshes the session TTL
func (s *RedisStore) Write(ctx context.Context, sid, key, value string) error {
	hkey := sessionKey(sid)
	if err := s.client.HSet(ctx, hkey, key, value).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, hkey, sessionTTL).Err()
}

// Read returns ErrAbsent both for a missing field and a missing session
func (s *RedisStore) Read(ctx context.Context, sid, key string) (string, error) {
	val, err := s.client.HGet(ctx, sessionKey(sid), key).Result()
	if err == redis.Nil {
		return "", ErrAbsent
	}
	if err != nil {
		return "", err
	}
	return val, nil
}

// ClearTransient removes plan/transaction fields and stamps the last
// completed recharge so the next visit can show it.
func (s *RedisStore) ClearTransient(ctx context.Context, sid string) error {
	hkey := sessionKey(sid)

	lastTxn, err := s.client.HGet(ctx, hkey, KeyTxnID).Result()
	if err != nil && err != redis.Nil {
		return err
	}

	if err := s.client.HDel(ctx, hkey, transientKeys...).Err(); err != nil {
		return err
	}

	stamps := map[string]interface{}{
		KeyLastRechargeTime: time.Now().UTC().Format(time.RFC3339),
	}
	if lastTxn != "" {
		stamps[KeyLastTransactionID] = lastTxn
	}
	if err := s.client.HSet(ctx, hkey, stamps).Err(); err != nil {
		return err
	}
	return s.client.Expire(ctx, hkey, sessionTTL).Err()
}

// ClearAll drops the session hash entirely
func (s *RedisStore) ClearAll(ctx context.Context, sid string) error {
	return s.client.Del(ctx, sessionKey(sid)).Err()
}

// Close closes the Redis connection
func (s *RedisStore) Close() error {
	return s.client.Close()
}

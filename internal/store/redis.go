// redis.go
package store

import (
	"bytes"
	"context"
	"encoding/gob"
	"errors"
	"strconv"
	"time"

	"github.com/nipun22325/secret-sharing/internal/models"
	"github.com/redis/go-redis/v9"
)

var _ Store = (*RedisStore)(nil)

const (
	secretKeyPrefix = "secret:"
	createdKey      = "stats:total_created"
	viewedKey       = "stats:total_viewed"
)

type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(options *redis.Options) (*RedisStore, error) {
	client := redis.NewClient(options)

	// Verify connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	// Seed the global counters idempotently so Counters never reads a
	// missing key on a fresh database.
	if err := client.SetNX(ctx, createdKey, 0, 0).Err(); err != nil {
		return nil, err
	}
	if err := client.SetNX(ctx, viewedKey, 0, 0).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

func (r *RedisStore) Insert(ctx context.Context, secret *models.Secret) error {
	data, err := encode(secret)
	if err != nil {
		return err
	}

	ttl := time.Until(secret.ExpiresAt)
	if ttl <= 0 {
		return errors.New("secret already expired")
	}

	// SET NX doubles as the unique-id constraint; the key carries the
	// record's TTL so redis purges it natively at expiry.
	ok, err := r.client.SetNX(ctx, secretKey(secret.ID), data, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrDuplicateID
	}
	return nil
}

func (r *RedisStore) FindByID(ctx context.Context, id string) (*models.Secret, error) {
	data, err := r.client.Get(ctx, secretKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return decode(data)
}

var consumeReadScript = redis.NewScript(`
	local key = KEYS[1]
	local data = redis.call('GET', key)
	if not data then
		return nil
	end
	return data
`)

// TryConsume flips the consumed flag with an optimistic WATCH transaction:
// the flag write only commits if no concurrent writer touched the key
// between the read and the EXEC, so exactly one caller per id wins.
func (r *RedisStore) TryConsume(ctx context.Context, id string, now time.Time) (*models.Secret, error) {
	key := secretKey(id)
	var won *models.Secret

	txf := func(tx *redis.Tx) error {
		result := consumeReadScript.Run(ctx, tx, []string{key})
		if result.Err() != nil {
			if errors.Is(result.Err(), redis.Nil) {
				return ErrNotFound
			}
			return result.Err()
		}

		val, err := result.Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				return ErrNotFound
			}
			return err
		}

		var data []byte
		switch v := val.(type) {
		case string:
			data = []byte(v)
		case []byte:
			data = v
		default:
			return errors.New("unexpected data type from script")
		}

		secret, err := decode(data)
		if err != nil {
			return err
		}

		if secret.Consumed || secret.Expired(now) {
			return ErrNotFound
		}

		// Return the record as found; the stored copy is written back with
		// the flag set and its remaining TTL preserved.
		found := *secret
		secret.Consumed = true
		newData, err := encode(secret)
		if err != nil {
			return err
		}

		ttl := tx.TTL(ctx, key).Val()
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			if ttl > 0 {
				pipe.Set(ctx, key, newData, ttl)
			}
			return nil
		})
		if err != nil {
			return err
		}
		won = &found
		return nil
	}

	for i := 0; i < 3; i++ {
		err := r.client.Watch(ctx, txf, key)
		if err == nil {
			return won, nil
		}
		if errors.Is(err, redis.TxFailedErr) {
			// Raced with a concurrent consumer; re-read and retry.
			continue
		}
		return nil, err
	}

	// Every retry lost the race; the winner has already flipped the flag.
	return nil, ErrNotFound
}

func (r *RedisStore) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	// Redis purges keys natively via TTL; this sweep only catches records
	// whose stored expiry disagrees with the key TTL (clock drift, manual
	// writes). Deleting an already-gone key is a no-op.
	var deleted int64
	iter := r.client.Scan(ctx, 0, secretKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		data, err := r.client.Get(ctx, key).Bytes()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			return deleted, err
		}
		secret, err := decode(data)
		if err != nil {
			continue
		}
		if secret.Expired(now) {
			n, err := r.client.Del(ctx, key).Result()
			if err != nil {
				return deleted, err
			}
			deleted += n
		}
	}
	if err := iter.Err(); err != nil {
		return deleted, err
	}
	return deleted, nil
}

func (r *RedisStore) CountActive(ctx context.Context) (int64, error) {
	var count int64
	iter := r.client.Scan(ctx, 0, secretKeyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		count++
	}
	if err := iter.Err(); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *RedisStore) IncrementCreated(ctx context.Context) error {
	return r.client.Incr(ctx, createdKey).Err()
}

func (r *RedisStore) IncrementViewed(ctx context.Context) error {
	return r.client.Incr(ctx, viewedKey).Err()
}

func (r *RedisStore) Counters(ctx context.Context) (int64, int64, error) {
	vals, err := r.client.MGet(ctx, createdKey, viewedKey).Result()
	if err != nil {
		return 0, 0, err
	}
	created := parseCounter(vals[0])
	viewed := parseCounter(vals[1])
	return created, viewed, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}

// Helpers

func secretKey(id string) string {
	return secretKeyPrefix + id
}

func parseCounter(val any) int64 {
	s, ok := val.(string)
	if !ok {
		return 0
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func encode(secret *models.Secret) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(secret); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decode(data []byte) (*models.Secret, error) {
	var secret models.Secret
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&secret); err != nil {
		return nil, err
	}
	return &secret, nil
}

package store

import (
	"context"
	"errors"

	"bizonboard/internal/logging"
	"bizonboard/internal/profile"

	"github.com/redis/go-redis/v9"
)

// Redis stores each profile as a JSON string under "<collection>:<accountId>".
// Update uses WATCH/MULTI optimistic transactions.
type Redis struct {
	client     *redis.Client
	prefix     string
	maxRetries int
}

// NewRedis dials addr and verifies the connection.
func NewRedis(ctx context.Context, addr, password string, db int, collection string, maxRetries int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, unavailable("ping redis", err)
	}
	r, err := NewRedisFromClient(client, collection, maxRetries)
	if err != nil {
		client.Close()
		return nil, err
	}
	logging.Store("Redis profile store ready at %s (prefix=%s)", addr, collection)
	return r, nil
}

// NewRedisFromClient wraps an existing client. Close closes it.
func NewRedisFromClient(client *redis.Client, collection string, maxRetries int) (*Redis, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if maxRetries <= 0 {
		maxRetries = 10
	}
	return &Redis{client: client, prefix: collection + ":", maxRetries: maxRetries}, nil
}

func (r *Redis) key(accountID string) string {
	return r.prefix + accountID
}

func (r *Redis) Name() string { return "redis" }

func (r *Redis) Get(ctx context.Context, accountID string) (*profile.Profile, error) {
	data, err := r.client.Get(ctx, r.key(accountID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	return decode(data)
}

func (r *Redis) Create(ctx context.Context, p *profile.Profile) error {
	data, err := encode(p)
	if err != nil {
		return err
	}
	ok, err := r.client.SetNX(ctx, r.key(p.AccountID), data, 0).Result()
	if err != nil {
		return unavailable("create", err)
	}
	if !ok {
		return profile.ErrAlreadyExists
	}
	return nil
}

func (r *Redis) Put(ctx context.Context, p *profile.Profile) error {
	data, err := encode(p)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, r.key(p.AccountID), data, 0).Err(); err != nil {
		return unavailable("put", err)
	}
	return nil
}

// Update retries while another client modifies the watched key between our
// read and EXEC.
func (r *Redis) Update(ctx context.Context, accountID string, fn profile.UpdateFunc) (*profile.Profile, error) {
	key := r.key(accountID)
	for attempt := 1; attempt <= r.maxRetries; attempt++ {
		var out *profile.Profile
		var fnErr error

		err := r.client.Watch(ctx, func(tx *redis.Tx) error {
			var cur *profile.Profile
			data, err := tx.Get(ctx, key).Bytes()
			switch {
			case errors.Is(err, redis.Nil):
			case err != nil:
				return err
			default:
				if cur, err = decode(data); err != nil {
					return err
				}
			}

			next, err := fn(cur)
			if err != nil {
				fnErr = err
				return err
			}
			if next, err = prepare(accountID, next); err != nil {
				fnErr = err
				return err
			}
			enc, err := encode(next)
			if err != nil {
				return err
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, key, enc, 0)
				return nil
			})
			if err == nil {
				out = next
			}
			return err
		}, key)

		switch {
		case err == nil:
			return out, nil
		case fnErr != nil:
			return nil, fnErr
		case errors.Is(err, redis.TxFailedErr):
			logging.StoreDebug("redis update %s conflicted (attempt %d/%d)", accountID, attempt, r.maxRetries)
			continue
		default:
			return nil, unavailable("update", err)
		}
	}
	return nil, profile.ErrTransactionConflict
}

func (r *Redis) Close() error {
	return r.client.Close()
}

package registration

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "attendance:pending:"

// Redis keeps pending registrations as expiring keys so every API instance
// sees the same flows.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(client *redis.Client, ttl time.Duration) *Redis {
	return &Redis{client: client, ttl: ttl}
}

func (r *Redis) Begin(ctx context.Context) (Pending, error) {
	p := Pending{Token: uuid.NewString(), ExpiresAt: time.Now().Add(r.ttl)}
	ok, err := r.client.SetNX(ctx, keyPrefix+p.Token, 0, r.ttl).Result()
	if err != nil {
		return Pending{}, fmt.Errorf("begin registration: %w", err)
	}
	if !ok {
		return Pending{}, fmt.Errorf("begin registration: token collision %s", p.Token)
	}
	return p, nil
}

// Attach only overwrites an existing key and keeps its expiry.
func (r *Redis) Attach(ctx context.Context, token string, tagID int64) error {
	if tagID <= 0 {
		return ErrInvalidTag
	}
	_, err := r.client.SetArgs(ctx, keyPrefix+token, tagID, redis.SetArgs{Mode: "XX", KeepTTL: true}).Result()
	if errors.Is(err, redis.Nil) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("attach tag to %s: %w", token, err)
	}
	return nil
}

func (r *Redis) Lookup(ctx context.Context, token string) (int64, error) {
	val, err := r.client.Get(ctx, keyPrefix+token).Result()
	return parse(token, val, err)
}

func (r *Redis) Consume(ctx context.Context, token string) (int64, error) {
	val, err := r.client.GetDel(ctx, keyPrefix+token).Result()
	id, err := parse(token, val, err)
	if err == nil && id == 0 {
		return 0, ErrNotScanned
	}
	return id, err
}

func parse(token, val string, err error) (int64, error) {
	if errors.Is(err, redis.Nil) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("read registration %s: %w", token, err)
	}
	id, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("read registration %s: %w", token, err)
	}
	return id, nil
}

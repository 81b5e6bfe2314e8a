package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// Redis comparte el storage entre procesos. Cada escritura publica un
// redisChange en "<prefix>:changes"; las demás instancias lo reciben por
// pub/sub y lo entregan a sus suscriptores.
type Redis struct {
	client *redis.Client
	prefix string
	origin string
}

var _ Storage = (*Redis)(nil)

type redisChange struct {
	Origin  string `json:"origin"`
	Key     string `json:"key"`
	Value   string `json:"value,omitempty"`
	Deleted bool   `json:"deleted,omitempty"`
}

// NewRedis: prefix separa espacios de claves (p. ej. por usuario o dispositivo).
func NewRedis(client *redis.Client, prefix string) *Redis {
	if prefix == "" {
		prefix = "caregiver"
	}
	return &Redis{
		client: client,
		prefix: prefix,
		origin: uuid.NewString(),
	}
}

func (r *Redis) key(k string) string {
	return r.prefix + ":" + k
}

func (r *Redis) channel() string {
	return r.prefix + ":changes"
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, r.key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("storage: redis get: %w", err)
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key, value string) error {
	if err := r.client.Set(ctx, r.key(key), value, 0).Err(); err != nil {
		return fmt.Errorf("storage: redis set: %w", err)
	}
	return r.publish(ctx, redisChange{Key: key, Value: value})
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	n, err := r.client.Del(ctx, r.key(key)).Result()
	if err != nil {
		return fmt.Errorf("storage: redis del: %w", err)
	}
	if n == 0 {
		return nil
	}
	return r.publish(ctx, redisChange{Key: key, Deleted: true})
}

func (r *Redis) publish(ctx context.Context, c redisChange) error {
	c.Origin = r.origin
	b, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("storage: encode change: %w", err)
	}
	if err := r.client.Publish(ctx, r.channel(), b).Err(); err != nil {
		return fmt.Errorf("storage: redis publish: %w", err)
	}
	return nil
}

// Subscribe confirma la suscripción antes de volver: las escrituras hechas
// después ya se observan.
func (r *Redis) Subscribe(ctx context.Context, fn func(Change)) (func(), error) {
	ps := r.client.Subscribe(ctx, r.channel())
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("storage: redis subscribe: %w", err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ps.Channel() {
			var c redisChange
			if err := json.Unmarshal([]byte(msg.Payload), &c); err != nil || c.Origin == r.origin {
				continue
			}
			fn(Change{Key: c.Key, Value: c.Value, Deleted: c.Deleted})
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			_ = ps.Close()
			<-done
		})
	}, nil
}

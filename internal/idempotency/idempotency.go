package idempotency

import (
	"context"
	"time"

	redisadapter "github.com/robertarktes/table-reservations/internal/adapters/redis"
)

// Store is satisfied by the redis adapter.
type Store interface {
	Get(ctx context.Context, key string) (*redisadapter.IdempResponse, error)
	Set(ctx context.Context, key string, resp redisadapter.IdempResponse, ttl time.Duration) error
}

type Idempotency struct {
	store Store
	ttl   time.Duration
}

func NewIdempotency(store Store, ttl time.Duration) *Idempotency {
	return &Idempotency{store: store, ttl: ttl}
}

// Response is a stored reply. Fingerprint identifies the request that
// produced it, so a key reused for different input can be told apart.
type Response struct {
	Status      int
	ContentType string
	Result      []byte
	Fingerprint string
}

func (i *Idempotency) Get(ctx context.Context, key string) (*Response, error) {
	stored, err := i.store.Get(ctx, key)
	if err != nil || stored == nil {
		return nil, err
	}
	return &Response{
		Status:      stored.Status,
		ContentType: stored.ContentType,
		Result:      stored.Result,
		Fingerprint: stored.Fingerprint,
	}, nil
}

func (i *Idempotency) Set(ctx context.Context, key string, resp Response) error {
	return i.store.Set(ctx, key, redisadapter.IdempResponse{
		Status:      resp.Status,
		ContentType: resp.ContentType,
		Result:      resp.Result,
		Fingerprint: resp.Fingerprint,
	}, i.ttl)
}

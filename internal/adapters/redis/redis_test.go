package redis_test

import (
	"context"
	"testing"
	"time"

	redisclient "github.com/redis/go-redis/v9"
	redisadapter "github.com/robertarktes/table-reservations/internal/adapters/redis"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRedis(t *testing.T) *redisclient.Client {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)
	ctx := context.Background()

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { redisContainer.Terminate(ctx) })

	addr, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	client := redisclient.NewClient(&redisclient.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestCache_IncrWindow(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	cache := redisadapter.NewCache(client)

	for want := int64(1); want <= 3; want++ {
		got, err := cache.IncrWindow(ctx, "rl:test", time.Minute)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("expected count %d, got %d", want, got)
		}
	}

	ttl, err := client.TTL(ctx, "rl:test").Result()
	if err != nil {
		t.Fatal(err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("expected ttl within window, got %v", ttl)
	}
}

func TestIdempotency_RoundTrip(t *testing.T) {
	client := startRedis(t)
	ctx := context.Background()
	store := redisadapter.NewIdempotency(client)

	missing, err := store.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Fatalf("expected nil, nil for missing key, got %v, %v", missing, err)
	}

	want := redisadapter.IdempResponse{Status: 200, ContentType: "application/json", Result: []byte(`{"ok":true}`)}
	if err := store.Set(ctx, "key-0123456789abcdef", want, time.Minute); err != nil {
		t.Fatal(err)
	}
	got, err := store.Get(ctx, "key-0123456789abcdef")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != want.Status || string(got.Result) != string(want.Result) || got.ContentType != want.ContentType {
		t.Errorf("got %+v, want %+v", got, want)
	}
}

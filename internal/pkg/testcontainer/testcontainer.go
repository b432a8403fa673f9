// Package testcontainer starts throwaway Postgres and Redis instances for
// adapter integration tests. Tests are skipped with -short or when no
// container runtime is reachable.
package testcontainer

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"
)

const (
	postgresImage = "postgres:17-alpine"
	redisImage    = "redis:7-alpine"
)

func skipUnlessAvailable(t *testing.T) {
	t.Helper()

	if testing.Short() {
		t.Skip("integration test skipped in -short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)
}

// Redis returns a client connected to a fresh Redis container.
func Redis(t *testing.T) *redis.Client {
	t.Helper()
	skipUnlessAvailable(t)

	ctx := context.Background()
	ctr, err := tcredis.Run(ctx, redisImage)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start redis container: %v", err)
	}

	uri, err := ctr.ConnectionString(ctx)
	if err != nil {
		t.Fatalf("redis connection string: %v", err)
	}

	opt, err := redis.ParseURL(uri)
	if err != nil {
		t.Fatalf("parse redis url: %v", err)
	}

	client := redis.NewClient(opt)
	t.Cleanup(func() { _ = client.Close() })

	return client
}

// Postgres returns a pool connected to a fresh Postgres container with schema applied.
func Postgres(t *testing.T, schema string) *pgxpool.Pool {
	t.Helper()
	skipUnlessAvailable(t)

	ctx := context.Background()
	ctr, err := tcpostgres.Run(ctx, postgresImage,
		tcpostgres.WithDatabase("gonotif"),
		tcpostgres.WithUsername("gonotif"),
		tcpostgres.WithPassword("gonotif"),
		tcpostgres.BasicWaitStrategies(),
	)
	testcontainers.CleanupContainer(t, ctr)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	dsn, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("postgres connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect postgres: %v", err)
	}
	t.Cleanup(pool.Close)

	if schema != "" {
		if _, err := pool.Exec(ctx, schema); err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}

	return pool
}

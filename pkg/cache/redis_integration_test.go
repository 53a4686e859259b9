//go:build integration

package cache

import (
	"context"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedisContainer starts a Redis container for integration testing.
func setupRedisContainer(t *testing.T) *redis.Client {
	t.Helper()

	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("Failed to get container host: %v", err)
	}

	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("Failed to get container port: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: host + ":" + port.Port(),
	})

	t.Cleanup(func() {
		client.Close()
		container.Terminate(ctx)
	})

	return client
}

func TestRedisStore_Integration(t *testing.T) {
	storeContract(t, NewRedisStore(setupRedisContainer(t)))
}

func TestRedisStore_Integration_SharedAcrossStores(t *testing.T) {
	client := setupRedisContainer(t)
	ctx := context.Background()

	writer := NewRedisStore(client)
	reader := NewRedisStore(client)

	if err := writer.Set(ctx, "https://github.com", []byte("shared")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, err := reader.Get(ctx, "https://github.com")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got) != "shared" {
		t.Errorf("Get() = %q, want %q", got, "shared")
	}
}

//go:build integration

package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("failed to start redis container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return fmt.Sprintf("redis://%s:%s/0", host, port.Port())
}

func TestIntegration_GetSet(t *testing.T) {
	url := setupRedis(t)
	ctx := t.Context()

	c, err := New(ctx, Options{URL: url, Prefix: "study:"})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if _, ok, err := c.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = %v, %v, want absent", ok, err)
	}
	if err := c.Set(ctx, "dark_mode:abc", "true", time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, ok, err := c.Get(ctx, "dark_mode:abc")
	if err != nil || !ok || v != "true" {
		t.Fatalf("Get() = %q, %v, %v, want true", v, ok, err)
	}

	raw, err := c.Client.Get(ctx, "study:dark_mode:abc").Result()
	if err != nil || raw != "true" {
		t.Errorf("prefixed key = %q, %v", raw, err)
	}
	ttl, err := c.Client.TTL(ctx, "study:dark_mode:abc").Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, %v, want within a minute", ttl, err)
	}
}

func TestIntegration_HealthCheck(t *testing.T) {
	url := setupRedis(t)
	ctx := t.Context()

	c, err := New(ctx, Options{URL: url})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer c.Close()

	if err := c.HealthCheck(ctx); err != nil {
		t.Errorf("HealthCheck() error = %v", err)
	}
}

//go:build integration

package studied_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"

	"github.com/p-n-ai/pai-study/internal/studied"
)

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:17-alpine",
		postgres.WithDatabase("study"),
		postgres.WithUsername("study"),
		postgres.WithPassword("study"),
		postgres.BasicWaitStrategies(),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func TestIntegration_PostgresKV(t *testing.T) {
	pool := setupPostgres(t)
	ctx := t.Context()

	kv, err := studied.NewPostgresKV(ctx, pool)
	if err != nil {
		t.Fatalf("NewPostgresKV() error = %v", err)
	}
	// A second call must tolerate the existing table.
	if _, err := studied.NewPostgresKV(ctx, pool); err != nil {
		t.Fatalf("NewPostgresKV() second call error = %v", err)
	}

	if _, ok, err := kv.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("Get(missing) = %v, %v", ok, err)
	}
	if err := kv.Set(ctx, "k", "v1", time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := kv.Set(ctx, "k", "v2", 0); err != nil {
		t.Fatalf("Set() overwrite error = %v", err)
	}
	if v, ok, err := kv.Get(ctx, "k"); err != nil || !ok || v != "v2" {
		t.Errorf("Get() = %q, %v, %v, want v2", v, ok, err)
	}
}

func TestIntegration_PostgresKV_Expiry(t *testing.T) {
	pool := setupPostgres(t)
	ctx := t.Context()

	kv, err := studied.NewPostgresKV(ctx, pool)
	if err != nil {
		t.Fatalf("NewPostgresKV() error = %v", err)
	}
	if _, err := pool.Exec(ctx,
		`INSERT INTO study_kv (key, value, expires_at) VALUES ('old', 'x', NOW() - INTERVAL '1 minute')`,
	); err != nil {
		t.Fatalf("seed expired row: %v", err)
	}

	if _, ok, _ := kv.Get(ctx, "old"); ok {
		t.Error("Get() returned an expired row")
	}
	n, err := kv.DeleteExpired(ctx)
	if err != nil || n != 1 {
		t.Errorf("DeleteExpired() = %d, %v, want 1", n, err)
	}
}

func TestIntegration_TrackerOnPostgres(t *testing.T) {
	pool := setupPostgres(t)
	ctx := t.Context()

	kv, err := studied.NewPostgresKV(ctx, pool)
	if err != nil {
		t.Fatalf("NewPostgresKV() error = %v", err)
	}
	tr := studied.NewTracker(kv, 0)
	tr.MarkStudied(ctx, "alice", 0, 0, 1)
	tr.SetPreferences(ctx, "alice", studied.Preferences{DarkMode: true})

	if !tr.Studied(ctx, "alice").Has(0, 0, 1) {
		t.Error("studied page not persisted")
	}
	if !tr.Preferences(ctx, "alice").DarkMode {
		t.Error("dark mode not persisted")
	}
}

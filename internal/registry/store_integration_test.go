//go:build integration

// Run with:
//
//	go test -v -tags=integration ./internal/registry/...
package registry

import (
	"context"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/caption-prepro/pkg/postgres"
	"github.com/google/uuid"
)

// skipIfNoPostgres skips the test when PostgreSQL is unavailable.
func skipIfNoPostgres(t *testing.T) *postgres.Client {
	t.Helper()
	db, err := postgres.New(context.Background(), testPostgresConfig())
	if err != nil {
		t.Skipf("skipping integration test: postgres unavailable: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func testPostgresConfig() config.PostgresConfig {
	return config.PostgresConfig{
		Host:            envOrDefault("TEST_POSTGRES_HOST", "localhost"),
		Port:            envOrDefaultInt("TEST_POSTGRES_PORT", 5432),
		Database:        envOrDefault("TEST_POSTGRES_DB", "captionprepro_test"),
		User:            envOrDefault("TEST_POSTGRES_USER", "captionprepro"),
		Password:        envOrDefault("TEST_POSTGRES_PASSWORD", "localdev"),
		SSLMode:         "disable",
		MaxOpenConns:    2,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Minute,
	}
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func TestRecordAndLoadLatestRun(t *testing.T) {
	db := skipIfNoPostgres(t)
	ctx := context.Background()
	store := NewStore(db)
	if err := store.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	variant := "test-" + uuid.NewString()[:8]
	t.Cleanup(func() {
		db.DB.ExecContext(context.Background(), `DELETE FROM prepro_runs WHERE variant = $1`, variant)
	})

	now := time.Now().UTC().Truncate(time.Millisecond)
	older := Run{
		RunID: uuid.NewString(), Variant: variant, VocabSize: 10,
		Splits:    map[string]int{"train": 2},
		StartedAt: now.Add(-2 * time.Minute), FinishedAt: now.Add(-time.Minute),
	}
	newer := Run{
		RunID: uuid.NewString(), Variant: variant, VocabSize: 12, UnkCount: 3, ImageCount: 4,
		Splits:         map[string]int{"train": 3, "rest": 1},
		DictionaryPath: "dic.json", CaptionPath: "cap.json",
		StartedAt: now.Add(-time.Minute), FinishedAt: now,
	}
	for _, run := range []Run{older, newer} {
		if err := store.RecordRun(ctx, run); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	got, err := store.LatestRun(ctx, variant)
	if err != nil {
		t.Fatalf("LatestRun: %v", err)
	}
	if got == nil || got.RunID != newer.RunID {
		t.Fatalf("latest = %+v, want run %s", got, newer.RunID)
	}
	if got.Splits["rest"] != 1 || got.UnkCount != 3 || got.CaptionPath != "cap.json" {
		t.Errorf("latest = %+v", got)
	}

	none, err := store.LatestRun(ctx, variant+"-none")
	if err != nil || none != nil {
		t.Errorf("unknown variant: run = %+v err = %v", none, err)
	}
}

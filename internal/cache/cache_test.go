package cache

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/abhisek/skilltrace/internal/store"
)

func TestParseURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr bool
	}{
		{"valid-redis", "redis://localhost:6379", false},
		{"valid-with-db", "redis://localhost:6379/2", false},
		{"bad-scheme", "http://localhost:6379", true},
		{"empty", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseURL(tt.url)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseURL() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestKey(t *testing.T) {
	if got := Key("kid-1"); got != "skilltrace:mastery:kid-1" {
		t.Errorf("Key = %q", got)
	}
}

func TestEncodeDecode(t *testing.T) {
	snap := &store.Snapshot{
		LearnerID: "kid",
		Sequence:  42,
		Watermark: time.Date(2026, 3, 2, 9, 30, 0, 123456000, time.UTC),
		CreatedAt: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Data: store.SnapshotData{
			Version: 1,
			Tallies: map[string]store.TallyData{"addition": {Correct: 2, Total: 5}},
			Events:  5,
		},
	}
	b, err := encode(snap)
	if err != nil {
		t.Fatal(err)
	}
	got, err := decode(b)
	if err != nil {
		t.Fatal(err)
	}
	if got.Sequence != 42 || !got.Watermark.Equal(snap.Watermark) || got.Data.Tallies["addition"].Total != 5 {
		t.Errorf("decode(encode) = %+v, want %+v", got, snap)
	}
	if _, err := decode([]byte("{")); err == nil {
		t.Error("decode of truncated JSON succeeded")
	}
}

func TestNew_UnreachableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping unreachable host test in short mode")
	}
	if _, err := New(t.Context(), "redis://localhost:59999", time.Minute); err == nil {
		t.Fatal("New() should return error for unreachable host")
	}
}

// TestRedisIntegration exercises the snapshot store against a real server.
func TestRedisIntegration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping redis integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()
	ctr, err := testcontainers.Run(ctx, "redis:7-alpine",
		testcontainers.WithExposedPorts("6379/tcp"),
		testcontainers.WithWaitStrategy(wait.ForListeningPort("6379/tcp")),
	)
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate container: %v", err)
		}
	})
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	endpoint, err := ctr.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}

	c, err := New(ctx, "redis://"+endpoint, time.Minute)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	t.Cleanup(func() { c.Close() })

	if err := c.HealthCheck(ctx); err != nil {
		t.Fatalf("health check: %v", err)
	}

	missing, err := c.Latest(ctx, "kid")
	if err != nil || missing != nil {
		t.Fatalf("Latest(empty) = %v, %v; want nil, nil", missing, err)
	}

	snap := &store.Snapshot{
		LearnerID: "kid",
		Sequence:  7,
		Watermark: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Data:      store.SnapshotData{Version: 1, Tallies: map[string]store.TallyData{"counting": {Correct: 1, Total: 1}}},
	}
	if err := c.Save(ctx, snap); err != nil {
		t.Fatalf("save: %v", err)
	}
	ttl, err := c.Client.TTL(ctx, Key("kid")).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Errorf("TTL = %v, %v; want within a minute", ttl, err)
	}

	got, err := c.Latest(ctx, "kid")
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if got == nil || got.Sequence != 7 || got.Data.Tallies["counting"].Correct != 1 {
		t.Errorf("Latest = %+v", got)
	}

	if err := c.Delete(ctx, "kid"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := c.Latest(ctx, "kid"); got != nil {
		t.Errorf("Latest after delete = %+v, want nil", got)
	}
}

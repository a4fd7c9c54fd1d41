package prefs

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"

	"github.com/voyagen/goodytv/internal/cache"
)

// Requires a Redis instance; set TEST_REDIS_URL to run.
func TestRedisKV(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	rds, err := cache.New(url)
	if err != nil {
		t.Fatal(err)
	}
	defer rds.Close()
	ctx := context.Background()
	if err := rds.Ping(ctx); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}

	inst := "test-" + uuid.NewString()
	kv := NewRedisKV(rds, inst, NamespacePreferences)
	other := NewRedisKV(rds, inst, NamespacePaywall)
	defer rds.Del(ctx, kv.key, other.key)

	if _, ok, err := kv.Get(ctx, "playlist_url"); err != nil || ok {
		t.Fatalf("Expected missing key, got ok=%v err=%v", ok, err)
	}
	if err := kv.Set(ctx, "playlist_url", []byte("http://x/list.m3u")); err != nil {
		t.Fatal(err)
	}
	if v, ok, err := kv.Get(ctx, "playlist_url"); err != nil || !ok || string(v) != "http://x/list.m3u" {
		t.Fatalf("Expected stored value, got %q ok=%v err=%v", v, ok, err)
	}
	if _, ok, _ := other.Get(ctx, "playlist_url"); ok {
		t.Error("Expected namespaces to be isolated")
	}

	p := NewPreferences(kv)
	if got, _ := p.PlaylistURL(ctx); got != "http://x/list.m3u" {
		t.Errorf("Expected Preferences to read through RedisKV, got %q", got)
	}

	if err := kv.Delete(ctx, "playlist_url"); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := kv.Get(ctx, "playlist_url"); ok {
		t.Error("Expected key gone after Delete")
	}
}

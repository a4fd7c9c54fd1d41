package cache

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/voyagen/goodytv/internal/models"
)

// Requires a Redis instance; set TEST_REDIS_URL to run.
func testRedis(t *testing.T) *Redis {
	t.Helper()
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	r, err := New(url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { r.Close() })
	if err := r.Ping(context.Background()); err != nil {
		t.Skipf("redis unavailable: %v", err)
	}
	return r
}

func TestNew_BadURL(t *testing.T) {
	if _, err := New("not-a-redis-url"); err == nil {
		t.Error("Expected parse error for bad URL")
	}
}

func TestKey(t *testing.T) {
	if got := Key("license", "dev1"); got != "goodytv:license:dev1" {
		t.Errorf("Expected goodytv:license:dev1, got %s", got)
	}
}

func TestLicenseCache(t *testing.T) {
	r := testRedis(t)
	ctx := context.Background()
	device := "test-" + time.Now().Format("150405.000000")
	defer r.ForgetLicense(ctx, device)

	if _, err := r.License(ctx, device); !errors.Is(err, ErrMiss) {
		t.Fatalf("Expected ErrMiss before store, got %v", err)
	}
	issued := time.Date(2025, 7, 16, 23, 0, 0, 0, time.UTC)
	if err := r.StoreLicense(ctx, models.IssuedLicense{DeviceID: device, LicenseKey: "ABC", IssuedAt: issued}, time.Minute); err != nil {
		t.Fatal(err)
	}
	got, err := r.License(ctx, device)
	if err != nil || got.LicenseKey != "ABC" || !got.IssuedAt.Equal(issued) {
		t.Fatalf("Expected ABC, got %+v (%v)", got, err)
	}

	if err := r.client.Set(ctx, Key("license", device), "{broken", time.Minute).Err(); err != nil {
		t.Fatal(err)
	}
	if _, err := r.License(ctx, device); !errors.Is(err, ErrMiss) {
		t.Errorf("Expected an undecodable entry to be a miss, got %v", err)
	}
	_ = r.ForgetLicense(ctx, device)
	if _, err := r.License(ctx, device); !errors.Is(err, ErrMiss) {
		t.Errorf("Expected ErrMiss after forget, got %v", err)
	}
}

func TestHash(t *testing.T) {
	r := testRedis(t)
	ctx := context.Background()
	key := Key("test", "hash")
	defer r.Del(ctx, key)

	if _, ok, err := r.HashGet(ctx, key, "f"); err != nil || ok {
		t.Fatalf("Expected absent field, got ok=%v err=%v", ok, err)
	}
	_ = r.HashSet(ctx, key, "f", []byte("v"))
	if v, ok, _ := r.HashGet(ctx, key, "f"); !ok || string(v) != "v" {
		t.Errorf("Expected v, got %q ok=%v", v, ok)
	}
	_ = r.HashDel(ctx, key, "f")
	if _, ok, _ := r.HashGet(ctx, key, "f"); ok {
		t.Error("Expected field gone after HashDel")
	}
}

func TestLocker_Serialises(t *testing.T) {
	r := testRedis(t)
	ctx := context.Background()
	l := NewLocker(r, "goodytv:test:lock:", 5*time.Second)

	unlock, err := l.Lock(ctx, "dev")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := TryLock(ctx, r, "goodytv:test:lock:dev", time.Second); !errors.Is(err, ErrLocked) {
		t.Errorf("Expected ErrLocked while held, got %v", err)
	}

	short, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	if _, err := l.Lock(short, "dev"); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}

	unlock()
	again, err := l.Lock(ctx, "dev")
	if err != nil {
		t.Fatalf("Expected lock after release, got %v", err)
	}
	again()
}

func TestQueue_RoundTrip(t *testing.T) {
	r := testRedis(t)
	ctx := context.Background()
	q := "goodytv:test:queue"
	defer r.Del(ctx, q)

	if err := Enqueue(ctx, r, q, NotificationJob{DeviceID: "dev1", LicenseKey: "K"}); err != nil {
		t.Fatal(err)
	}
	job, err := Dequeue(ctx, r, q, time.Second)
	if err != nil || job == nil || job.DeviceID != "dev1" {
		t.Fatalf("Expected dev1 job, got %+v (%v)", job, err)
	}
	job, err = Dequeue(ctx, r, q, 100*time.Millisecond)
	if err != nil || job != nil {
		t.Errorf("Expected (nil, nil) on empty queue, got %+v (%v)", job, err)
	}
}

package sendlock

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/AlexZinkM/escrow-custody/internal/model"

	"github.com/google/uuid"
)

func TestKey(t *testing.T) {
	if got := Key(model.AssetUSDT, "0xabc"); got != "send:USDT:0xabc" {
		t.Errorf("Key() = %q", got)
	}
}

func exerciseLocker(t *testing.T, l Locker, key string) {
	t.Helper()
	ctx := context.Background()

	lease, err := l.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("Acquire() error: %v", err)
	}
	if _, err := l.Acquire(ctx, key); !errors.Is(err, model.ErrConflict) {
		t.Fatalf("second Acquire() error = %v, want conflict", err)
	}

	other, err := l.Acquire(ctx, key+":other")
	if err != nil {
		t.Fatalf("Acquire(other key) error: %v", err)
	}
	defer other.Release(ctx)

	if err := lease.Release(ctx); err != nil {
		t.Fatalf("Release() error: %v", err)
	}
	if err := lease.Release(ctx); err != nil {
		t.Fatalf("second Release() error: %v", err)
	}

	again, err := l.Acquire(ctx, key)
	if err != nil {
		t.Fatalf("Acquire() after release error: %v", err)
	}
	again.Release(ctx)
}

func TestLocal(t *testing.T) {
	exerciseLocker(t, NewLocal(), "send:BTC:bc1qexample")
}

func TestLocal_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLocal().Acquire(ctx, "k"); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, want context.Canceled", err)
	}
}

func TestRedis(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	r, err := NewRedis(context.Background(), url, time.Minute, nil)
	if err != nil {
		t.Fatalf("NewRedis() error: %v", err)
	}
	defer r.Close()

	exerciseLocker(t, r, "send:test:"+uuid.NewString())
}

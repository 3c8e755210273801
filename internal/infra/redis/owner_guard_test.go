package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestOwnerGuardSetsAndClearsKeys(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	guard := NewOwnerGuard(client)

	ok, err := guard.Acquire(ctx, "u1", "s1", time.Minute)
	if err != nil || !ok {
		t.Fatalf("expected acquire, got ok=%v err=%v", ok, err)
	}
	if !mr.Exists("quiz:active:u1") {
		t.Fatalf("expected redis key to be set")
	}
	if ok, _ := guard.Acquire(ctx, "u1", "s2", time.Minute); ok {
		t.Fatalf("expected second acquire to fail")
	}

	if err := guard.Release(ctx, "u1", "s2"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if !mr.Exists("quiz:active:u1") {
		t.Fatalf("foreign session must not release the guard")
	}

	if err := guard.Release(ctx, "u1", "s1"); err != nil {
		t.Fatalf("release: %v", err)
	}
	if mr.Exists("quiz:active:u1") {
		t.Fatalf("expected redis key to be removed")
	}
}

func TestOwnerGuardExpires(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	guard := NewOwnerGuard(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	_, _ = guard.Acquire(context.Background(), "u1", "s1", time.Minute)
	mr.FastForward(2 * time.Minute)
	if ok, _ := guard.Acquire(context.Background(), "u1", "s2", time.Minute); !ok {
		t.Fatalf("expected expired guard to be free")
	}
}

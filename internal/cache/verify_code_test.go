package cache

import (
	"context"
	"testing"
	"time"
)

func TestMemoryVerifyCodeStoreLifecycle(t *testing.T) {
	store := NewMemoryVerifyCodeStore()
	ctx := context.Background()

	if err := store.Set(ctx, "a@example.com", "123456", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	code, found, err := store.Get(ctx, "a@example.com")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if !found || code != "123456" {
		t.Fatalf("want 123456 got %q found=%v", code, found)
	}

	// 覆盖旧验证码
	if err := store.Set(ctx, "a@example.com", "654321", time.Minute); err != nil {
		t.Fatalf("overwrite failed: %v", err)
	}
	code, found, _ = store.Get(ctx, "a@example.com")
	if !found || code != "654321" {
		t.Fatalf("overwrite want 654321 got %q found=%v", code, found)
	}

	if err := store.Delete(ctx, "a@example.com"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, found, _ := store.Get(ctx, "a@example.com"); found {
		t.Fatalf("deleted code should not be found")
	}
}

func TestMemoryVerifyCodeStoreExpiry(t *testing.T) {
	store := NewMemoryVerifyCodeStore()
	ctx := context.Background()

	if err := store.Set(ctx, "b@example.com", "123456", -time.Second); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if _, found, _ := store.Get(ctx, "b@example.com"); found {
		t.Fatalf("expired code should not be found")
	}

	// 过期条目随下一次写入被剔除
	if err := store.Set(ctx, "c@example.com", "111111", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	store.mu.Lock()
	_, lingering := store.entries["b@example.com"]
	store.mu.Unlock()
	if lingering {
		t.Fatalf("expired entry should be pruned on write")
	}
}

func TestMemoryVerifyCodeStoreIsolatesEmails(t *testing.T) {
	store := NewMemoryVerifyCodeStore()
	ctx := context.Background()

	if err := store.Set(ctx, "a@example.com", "111111", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := store.Set(ctx, "b@example.com", "222222", time.Minute); err != nil {
		t.Fatalf("set failed: %v", err)
	}
	if err := store.Delete(ctx, "a@example.com"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	code, found, _ := store.Get(ctx, "b@example.com")
	if !found || code != "222222" {
		t.Fatalf("other email should be untouched, got %q found=%v", code, found)
	}
}

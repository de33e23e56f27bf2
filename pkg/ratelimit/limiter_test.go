package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestTokenBucketAllow(t *testing.T) {
	tb := NewTokenBucket(3, time.Second)

	for i := 0; i < 3; i++ {
		if !tb.Allow() {
			t.Fatalf("Request %d should be allowed", i+1)
		}
	}
	if tb.Allow() {
		t.Error("Fourth request should be denied")
	}
}

func TestTokenBucketRefill(t *testing.T) {
	tb := NewTokenBucket(2, 50*time.Millisecond)

	tb.Allow()
	tb.Allow()
	if tb.Allow() {
		t.Fatal("Bucket should be empty")
	}

	time.Sleep(60 * time.Millisecond)

	// Full refill once the period elapses
	if !tb.Allow() {
		t.Error("Expected token after refill")
	}
	if !tb.Allow() {
		t.Error("Refill restores full capacity")
	}
}

func TestTokenBucketWait(t *testing.T) {
	tb := NewTokenBucket(1, 50*time.Millisecond)

	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("First wait should not block: %v", err)
	}

	start := time.Now()
	if err := tb.Wait(context.Background()); err != nil {
		t.Fatalf("Second wait failed: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 30*time.Millisecond {
		t.Errorf("Second wait returned too quickly after %v", elapsed)
	}
}

func TestTokenBucketWaitCancelled(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	tb.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	if err := tb.Wait(ctx); err != context.DeadlineExceeded {
		t.Errorf("Expected deadline exceeded, got %v", err)
	}
}

func TestTokenBucketReset(t *testing.T) {
	tb := NewTokenBucket(1, time.Hour)
	tb.Allow()
	if tb.Allow() {
		t.Fatal("Bucket should be empty")
	}

	tb.Reset()
	if !tb.Allow() {
		t.Error("Reset should restore capacity")
	}
}

func TestPerSecond(t *testing.T) {
	tb := PerSecond(5)
	allowed := 0
	for i := 0; i < 10; i++ {
		if tb.Allow() {
			allowed++
		}
	}
	if allowed != 5 {
		t.Errorf("Expected 5 allowed requests, got %d", allowed)
	}
}

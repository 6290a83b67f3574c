package unitlock

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestLocal_LockUnlock(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	unlock, err := l.Lock(ctx, "unit:a")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	if n := l.held("unit:a"); n != 1 {
		t.Errorf("held: got %d, want 1", n)
	}
	unlock()
	unlock() // second call is a no-op

	if n := l.held("unit:a"); n != 0 {
		t.Errorf("held after unlock: got %d, want 0", n)
	}
}

func TestLocal_DifferentKeysDoNotBlock(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	unlockA, err := l.Lock(ctx, "unit:a")
	if err != nil {
		t.Fatalf("Lock a failed: %v", err)
	}
	defer unlockA()

	ctx2, cancel := context.WithTimeout(ctx, 100*time.Millisecond)
	defer cancel()
	unlockB, err := l.Lock(ctx2, "unit:b")
	if err != nil {
		t.Fatalf("Lock b should not block: %v", err)
	}
	unlockB()
}

func TestLocal_WaitHonoursContext(t *testing.T) {
	l := NewLocal()

	unlock, err := l.Lock(context.Background(), "unit:a")
	if err != nil {
		t.Fatalf("Lock failed: %v", err)
	}
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "unit:a")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if n := l.held("unit:a"); n != 1 {
		t.Errorf("waiter should be released after timeout, held = %d", n)
	}
}

func TestLocal_MutualExclusion(t *testing.T) {
	l := NewLocal()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(ctx, "unit:a")
			if err != nil {
				t.Errorf("Lock failed: %v", err)
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			unlock()
		}()
	}
	wg.Wait()

	if maxInside != 1 {
		t.Errorf("max concurrent holders: got %d, want 1", maxInside)
	}
	if n := l.held("unit:a"); n != 0 {
		t.Errorf("slot should be forgotten, held = %d", n)
	}
}

package buffer

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestPoolGetPut(t *testing.T) {
	p := NewPool()
	b, err := p.Get(196608)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if b.Strength() != Owning {
		t.Errorf("Strength = %v, want Owning", b.Strength())
	}
	if b.Size() != 0 {
		t.Errorf("Size = %d, want 0", b.Size())
	}
	if b.Capacity() < 196608 {
		t.Errorf("Capacity = %d, want >= 196608", b.Capacity())
	}
	p.Put(b)
	if used := p.MemoryUsed(); used != 0 {
		t.Errorf("MemoryUsed after Put = %d, want 0", used)
	}
}

func TestPoolOversizedAllocation(t *testing.T) {
	p := NewPool()
	b, err := p.Get(8 << 20)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if b.Capacity() != 8<<20 {
		t.Errorf("Capacity = %d, want %d", b.Capacity(), 8<<20)
	}
	p.Put(b)
	if used := p.MemoryUsed(); used != 0 {
		t.Errorf("MemoryUsed after Put = %d, want 0", used)
	}
}

func TestPoolMemoryLimit(t *testing.T) {
	p := NewPoolWithLimit(256 << 10)
	b, err := p.Get(196608)
	if err != nil {
		t.Fatalf("first Get: %v", err)
	}
	_, err = p.Get(196608)
	var limited *MemoryLimitExceededError
	if !errors.As(err, &limited) {
		t.Fatalf("second Get: err = %v, want *MemoryLimitExceededError", err)
	}
	p.Put(b)
	if _, err := p.Get(196608); err != nil {
		t.Errorf("Get after Put: %v", err)
	}
}

// TestPoolMemoryLimitConcurrent races many Gets against a limit that
// admits only a few of them. The reservation must never overshoot,
// regardless of interleaving.
func TestPoolMemoryLimitConcurrent(t *testing.T) {
	const class = 256 << 10
	const admit = 4
	p := NewPoolWithLimit(admit * class)

	var granted int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := p.Get(class); err == nil {
				atomic.AddInt64(&granted, 1)
			}
		}()
	}
	wg.Wait()

	if granted > admit {
		t.Errorf("granted %d allocations, limit admits %d", granted, admit)
	}
	if used := p.MemoryUsed(); used != granted*class {
		t.Errorf("MemoryUsed = %d, want %d", used, granted*class)
	}
}

func TestPoolIgnoresBorrowed(t *testing.T) {
	p := NewPool()
	backing := make([]byte, 64<<10)
	b := Wrap(backing)
	p.Put(b) // must not recycle caller-owned storage
	if b.Storage() == nil {
		t.Error("Put cleared a borrowed buffer")
	}
}

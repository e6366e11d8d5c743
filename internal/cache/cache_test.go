package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type counter struct {
	mu    sync.Mutex
	calls map[string]int
	fail  map[string]bool
}

func newCounter() *counter {
	return &counter{calls: map[string]int{}, fail: map[string]bool{}}
}

func (c *counter) upper(_ context.Context, s string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[s]++
	if c.fail[s] {
		return "", errors.New("upstream down")
	}
	return strings.ToUpper(s), nil
}

func (c *counter) count(s string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[s]
}

func TestMemo(t *testing.T) {
	ctx := context.Background()

	t.Run("hit equivalence", func(t *testing.T) {
		c := newCounter()
		m := New(4, Key, c.upper)
		defer m.Close()

		first, err := m.Get(ctx, "lofi")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		second, err := m.Get(ctx, "lofi")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if first != "LOFI" || first != second {
			t.Errorf("expected equal results, got %q and %q", first, second)
		}
		if c.count("lofi") != 1 {
			t.Errorf("expected one upstream call, got %d", c.count("lofi"))
		}

		stats := m.Stats()
		if stats.Hits != 1 || stats.Misses != 1 {
			t.Errorf("unexpected stats %+v", stats)
		}
	})

	t.Run("bounded size evicts least recently used", func(t *testing.T) {
		c := newCounter()
		m := New(2, Key, c.upper)
		defer m.Close()

		for _, k := range []string{"a", "b"} {
			if _, err := m.Get(ctx, k); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		// touch a so b becomes the eviction candidate
		if _, err := m.Get(ctx, "a"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if _, err := m.Get(ctx, "c"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if m.Len() != 2 {
			t.Fatalf("expected 2 entries, got %d", m.Len())
		}

		if _, err := m.Get(ctx, "a"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.count("a") != 1 {
			t.Errorf("expected a to stay cached, got %d calls", c.count("a"))
		}

		if _, err := m.Get(ctx, "b"); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if c.count("b") != 2 {
			t.Errorf("expected b to be evicted and refetched, got %d calls", c.count("b"))
		}
	})

	t.Run("size never exceeds capacity", func(t *testing.T) {
		c := newCounter()
		m := New(3, Key, c.upper)
		defer m.Close()

		for _, k := range []string{"a", "b", "c", "d", "e", "f", "g"} {
			if _, err := m.Get(ctx, k); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if m.Len() > 3 {
				t.Fatalf("cache grew to %d entries", m.Len())
			}
		}
	})

	t.Run("size stays within capacity on every call", func(t *testing.T) {
		c := newCounter()
		m := New(2, Key, c.upper)
		defer m.Close()

		for i := range 200 {
			k := string(rune('a' + i%26))
			if _, err := m.Get(ctx, k); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if n := m.Len(); n > 2 {
				t.Fatalf("call %d: cache holds %d entries", i, n)
			}
		}
	})

	t.Run("concurrent misses stay within capacity", func(t *testing.T) {
		const capacity = 15
		m := New(capacity, Key, func(_ context.Context, s string) (string, error) {
			return s, nil
		})
		defer m.Close()

		var (
			wg   sync.WaitGroup
			over atomic.Int32
		)
		for g := range 8 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range 500 {
					if _, err := m.Get(ctx, fmt.Sprintf("%d-%d", g, i)); err != nil {
						t.Errorf("unexpected error: %v", err)
						return
					}
					if m.Len() > capacity {
						over.Add(1)
					}
				}
			}()
		}
		wg.Wait()

		if n := over.Load(); n != 0 {
			t.Errorf("cache exceeded capacity on %d reads", n)
		}
		if n := m.Len(); n != capacity {
			t.Errorf("expected %d entries, got %d", capacity, n)
		}
	})

	t.Run("no negative caching", func(t *testing.T) {
		c := newCounter()
		c.fail["flaky"] = true
		m := New(4, Key, c.upper)
		defer m.Close()

		if _, err := m.Get(ctx, "flaky"); err == nil {
			t.Fatal("expected error")
		}
		if m.Len() != 0 {
			t.Errorf("failure should not be stored, got %d entries", m.Len())
		}

		c.mu.Lock()
		c.fail["flaky"] = false
		c.mu.Unlock()

		got, err := m.Get(ctx, "flaky")
		if err != nil {
			t.Fatalf("expected recovery, got %v", err)
		}
		if got != "FLAKY" || c.count("flaky") != 2 {
			t.Errorf("expected a second upstream call, got %q after %d calls", got, c.count("flaky"))
		}
	})

	t.Run("caches are independent", func(t *testing.T) {
		c := newCounter()
		one := New(1, Key, c.upper)
		two := New(1, Key, c.upper)
		defer one.Close()
		defer two.Close()

		one.Get(ctx, "x")
		two.Get(ctx, "x")
		if c.count("x") != 2 {
			t.Errorf("expected each cache to call upstream, got %d", c.count("x"))
		}
	})

	t.Run("concurrent misses share one call", func(t *testing.T) {
		var calls atomic.Int32
		release := make(chan struct{})
		m := New(4, Key, func(_ context.Context, s string) (string, error) {
			calls.Add(1)
			<-release
			return s, nil
		})
		defer m.Close()

		var wg sync.WaitGroup
		for range 20 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if got, err := m.Get(ctx, "same"); err != nil || got != "same" {
					t.Errorf("unexpected result %q, %v", got, err)
				}
			}()
		}
		close(release)
		wg.Wait()

		if calls.Load() != 1 {
			t.Errorf("expected one upstream call, got %d", calls.Load())
		}
	})

	t.Run("struct arguments use key function", func(t *testing.T) {
		type query struct {
			Term  string
			Limit int
		}
		var calls atomic.Int32
		m := New(4, func(q query) string { return q.Term }, func(_ context.Context, q query) ([]string, error) {
			calls.Add(1)
			return []string{q.Term}, nil
		})
		defer m.Close()

		m.Get(ctx, query{Term: "jazz", Limit: 1})
		m.Get(ctx, query{Term: "jazz", Limit: 2})
		if calls.Load() != 1 {
			t.Errorf("expected key function to collapse calls, got %d", calls.Load())
		}
	})

	t.Run("cancelled caller leaves joiners running", func(t *testing.T) {
		var calls atomic.Int32
		started := make(chan struct{})
		release := make(chan struct{})
		callErr := make(chan error, 1)
		m := New(4, Key, func(callCtx context.Context, s string) (string, error) {
			calls.Add(1)
			close(started)
			<-release
			callErr <- callCtx.Err()
			return strings.ToUpper(s), nil
		})
		defer m.Close()

		firstCtx, cancel := context.WithCancel(ctx)
		firstDone := make(chan error, 1)
		go func() {
			_, err := m.Get(firstCtx, "mix")
			firstDone <- err
		}()
		<-started

		type result struct {
			val string
			err error
		}
		joined := make(chan result, 1)
		go func() {
			v, err := m.Get(ctx, "mix")
			joined <- result{v, err}
		}()

		cancel()
		if err := <-firstDone; !errors.Is(err, context.Canceled) {
			t.Errorf("expected first caller to see cancellation, got %v", err)
		}
		close(release)

		got := <-joined
		if got.err != nil || got.val != "MIX" {
			t.Errorf("expected joiner to get MIX, got %q, %v", got.val, got.err)
		}
		if err := <-callErr; err != nil {
			t.Errorf("shared call saw cancellation: %v", err)
		}
		if calls.Load() != 1 {
			t.Errorf("expected one upstream call, got %d", calls.Load())
		}
		if m.Len() != 1 {
			t.Errorf("expected result stored, got %d entries", m.Len())
		}
	})

	t.Run("joiner deadline returns promptly", func(t *testing.T) {
		started := make(chan struct{})
		release := make(chan struct{})
		defer close(release)
		m := New(4, Key, func(_ context.Context, s string) (string, error) {
			close(started)
			<-release
			return s, nil
		})
		defer m.Close()

		go m.Get(ctx, "slow")
		<-started

		short, cancel := context.WithTimeout(ctx, 10*time.Millisecond)
		defer cancel()

		begin := time.Now()
		_, err := m.Get(short, "slow")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
		if elapsed := time.Since(begin); elapsed > 500*time.Millisecond {
			t.Errorf("joiner waited %v", elapsed)
		}
	})

	t.Run("shared call honors its own timeout", func(t *testing.T) {
		m := New(4, Key, func(callCtx context.Context, s string) (string, error) {
			<-callCtx.Done()
			return "", callCtx.Err()
		}, WithTimeout(20*time.Millisecond))
		defer m.Close()

		_, err := m.Get(ctx, "stuck")
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded, got %v", err)
		}
		if m.Len() != 0 {
			t.Errorf("timed out call should not be stored, got %d entries", m.Len())
		}
	})

	t.Run("done context skips the call", func(t *testing.T) {
		c := newCounter()
		m := New(4, Key, c.upper)
		defer m.Close()

		done, cancel := context.WithCancel(ctx)
		cancel()
		if _, err := m.Get(done, "late"); !errors.Is(err, context.Canceled) {
			t.Fatalf("expected canceled, got %v", err)
		}
		if c.count("late") != 0 {
			t.Errorf("expected no upstream call, got %d", c.count("late"))
		}
	})
}

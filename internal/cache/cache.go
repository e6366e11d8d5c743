// package cache memoizes outbound calls in bounded, least-recently-used stores.
package cache

import (
	"context"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"
)

// Func is an outbound call whose results can be memoized.
type Func[A, R any] func(ctx context.Context, arg A) (R, error)

// Option configures a [Memo].
type Option func(*options)

type options struct {
	timeout time.Duration
}

// WithTimeout bounds each shared call. Without it a shared call runs until fn returns.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// Memo wraps a [Func] with a fixed-capacity LRU store keyed by a string derived from the argument.
//
// Failures are never stored. Concurrent misses for the same key share a single call, which
// runs detached from any one caller: each caller stops waiting when its own context is done
// and the call carries on for the others. Insertion and eviction happen together, so the
// store never holds more than its capacity. A Memo is safe for concurrent use.
type Memo[A, R any] struct {
	key     func(A) string
	fn      Func[A, R]
	items   *lru.Cache[string, R]
	group   singleflight.Group
	timeout time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// Stats reports how a [Memo] has served calls so far.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// New builds a Memo holding at most capacity results of fn.
func New[A, R any](capacity int64, key func(A) string, fn func(context.Context, A) (R, error), opts ...Option) *Memo[A, R] {
	if capacity < 1 {
		capacity = 1
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	items, err := lru.New[string, R](int(capacity))
	if err != nil {
		panic(err) // only returned for a non-positive size
	}
	return &Memo[A, R]{key: key, fn: fn, items: items, timeout: o.timeout}
}

// Get returns the memoized result for arg, invoking the wrapped call on a miss.
//
// A hit makes the entry the most recently used.
func (m *Memo[A, R]) Get(ctx context.Context, arg A) (R, error) {
	var zero R
	k := m.key(arg)
	if r, ok := m.items.Get(k); ok {
		m.hits.Add(1)
		return r, nil
	}
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	ch := m.group.DoChan(k, func() (any, error) {
		if r, ok := m.items.Get(k); ok {
			m.hits.Add(1)
			return r, nil
		}
		m.misses.Add(1)

		callCtx, cancel := m.detach(ctx)
		defer cancel()

		r, err := m.fn(callCtx, arg)
		if err != nil {
			return nil, err
		}
		m.items.Add(k, r)
		return r, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		r, _ := res.Val.(R)
		return r, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	}
}

// detach keeps the values of ctx but none of its cancellation.
func (m *Memo[A, R]) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	base := context.WithoutCancel(ctx)
	if m.timeout > 0 {
		return context.WithTimeout(base, m.timeout)
	}
	return base, func() {}
}

// Len returns the number of stored results.
func (m *Memo[A, R]) Len() int {
	return m.items.Len()
}

// Stats returns hit and miss counters along with the current entry count.
func (m *Memo[A, R]) Stats() Stats {
	return Stats{Hits: m.hits.Load(), Misses: m.misses.Load(), Entries: m.items.Len()}
}

// Close drops every stored result.
func (m *Memo[A, R]) Close() {
	m.items.Purge()
}

// Key returns its argument and suits single-string calls.
func Key(s string) string { return s }

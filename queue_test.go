package signalsim_test

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tomasbasham/signalsim"
)

func entity(id uint64, category signalsim.Category, priority int) signalsim.Entity {
	return signalsim.Entity{ID: id, Category: category, Priority: priority}
}

func ids(entities []signalsim.Entity) []uint64 {
	out := make([]uint64, 0, len(entities))
	for _, e := range entities {
		out = append(out, e.ID)
	}
	return out
}

func TestQueue_Ordering(t *testing.T) {
	t.Parallel()

	car, bus, ambulance := signalsim.Categories.Car, signalsim.Categories.Bus, signalsim.Categories.Ambulance

	tests := map[string]struct {
		pushed []signalsim.Entity
		want   []uint64
	}{
		"entities are popped in priority order": {
			pushed: []signalsim.Entity{
				entity(1, car, 1),
				entity(2, ambulance, 5),
				entity(3, bus, 2),
			},
			want: []uint64{2, 3, 1},
		},
		"entities with same priority maintain FIFO order": {
			pushed: []signalsim.Entity{
				entity(1, car, 1),
				entity(2, car, 1),
				entity(3, car, 1),
			},
			want: []uint64{1, 2, 3},
		},
		"push order wins over id order among equals": {
			pushed: []signalsim.Entity{
				entity(9, bus, 2),
				entity(4, bus, 2),
				entity(7, bus, 2),
			},
			want: []uint64{9, 4, 7},
		},
		"negative priorities are served last": {
			pushed: []signalsim.Entity{
				entity(1, car, -3),
				entity(2, car, 0),
				entity(3, car, 100),
			},
			want: []uint64{3, 2, 1},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			q := signalsim.NewQueue()
			for _, e := range tt.pushed {
				q.Push(e)
			}

			var got []signalsim.Entity
			for range tt.pushed {
				e, ok := q.Next(context.Background())
				require.True(t, ok)
				got = append(got, e)
			}

			assert.Equal(t, tt.want, ids(got))
			assert.True(t, q.IsEmpty())
		})
	}
}

func TestQueue_MixedTrafficScenario(t *testing.T) {
	t.Parallel()

	q := signalsim.NewQueue()
	q.Push(entity(1, signalsim.Categories.Car, 1))
	q.Push(entity(2, signalsim.Categories.Ambulance, 5))
	q.Push(entity(3, signalsim.Categories.Car, 1))
	q.Push(entity(4, signalsim.Categories.Bus, 2))

	var got []string
	for range 4 {
		e, ok := q.Pop(context.Background(), time.Second)
		require.True(t, ok)
		got = append(got, fmt.Sprintf("%s#%d", e.Category, e.ID))
	}

	assert.Equal(t, []string{"Ambulance#2", "Bus#4", "Car#1", "Car#3"}, got)
}

func TestQueue_OrderingProperty(t *testing.T) {
	t.Parallel()

	r := rand.New(rand.NewPCG(1, 2))
	q := signalsim.NewQueue()

	const n = 500
	for i := range n {
		q.Push(entity(uint64(i+1), signalsim.Categories.Car, r.IntN(6)))
	}

	got := q.Drain()
	require.Len(t, got, n)

	for i := 1; i < len(got); i++ {
		prev, cur := got[i-1], got[i]
		require.GreaterOrEqual(t, prev.Priority, cur.Priority, "priority increased at %d", i)
		if prev.Priority == cur.Priority {
			require.Less(t, prev.ID, cur.ID, "equal priorities out of push order at %d", i)
		}
	}
}

func TestQueue_Peek(t *testing.T) {
	t.Parallel()

	q := signalsim.NewQueue()

	_, ok := q.Peek()
	assert.False(t, ok)

	q.Push(entity(1, signalsim.Categories.Car, 1))
	q.Push(entity(2, signalsim.Categories.Police, 3))

	e, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, uint64(2), e.ID)
	assert.Equal(t, 2, q.Len(), "peek must not remove")
}

func TestQueue_Pop(t *testing.T) {
	t.Parallel()

	t.Run("times out on an empty queue", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			q := signalsim.NewQueue()
			start := time.Now()

			_, ok := q.Pop(context.Background(), 1500*time.Millisecond)

			assert.False(t, ok)
			assert.Equal(t, 1500*time.Millisecond, time.Since(start))
		})
	})

	t.Run("wakes when an entity arrives", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			q := signalsim.NewQueue()
			start := time.Now()

			go func() {
				time.Sleep(300 * time.Millisecond)
				q.Push(entity(7, signalsim.Categories.Bus, 2))
			}()

			e, ok := q.Pop(context.Background(), 2*time.Second)

			require.True(t, ok)
			assert.Equal(t, uint64(7), e.ID)
			assert.Equal(t, 300*time.Millisecond, time.Since(start))
		})
	})

	t.Run("cancellation interrupts the wait", func(t *testing.T) {
		t.Parallel()

		synctest.Test(t, func(t *testing.T) {
			q := signalsim.NewQueue()
			ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
			defer cancel()
			start := time.Now()

			_, ok := q.Pop(ctx, time.Minute)

			assert.False(t, ok)
			assert.Equal(t, 100*time.Millisecond, time.Since(start))
		})
	})

	t.Run("nothing is released after cancellation", func(t *testing.T) {
		t.Parallel()

		q := signalsim.NewQueue()
		q.Push(entity(1, signalsim.Categories.Car, 1))

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, ok := q.Pop(ctx, time.Second)
		assert.False(t, ok)
		assert.Equal(t, 1, q.Len())
	})
}

func TestQueue_Entities(t *testing.T) {
	t.Parallel()

	synctest.Test(t, func(t *testing.T) {
		q := signalsim.NewQueue()
		q.Push(entity(1, signalsim.Categories.Car, 1))
		q.Push(entity(2, signalsim.Categories.FireTruck, 4))

		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		var got []uint64
		for e := range q.Entities(ctx) {
			got = append(got, e.ID)
		}

		assert.Equal(t, []uint64{2, 1}, got)
	})
}

func TestQueue_ConcurrentProducers(t *testing.T) {
	t.Parallel()

	const numProducers = 8
	const perProducer = 250

	var gen signalsim.IDGenerator
	q := signalsim.NewQueue()

	var wg sync.WaitGroup
	wg.Add(numProducers)
	for p := range numProducers {
		go func() {
			defer wg.Done()
			for i := range perProducer {
				q.Push(gen.NewEntity(signalsim.Categories.Car, (p+i)%5))
			}
		}()
	}

	// A single consumer drains concurrently with the producers.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consumed := make(chan []signalsim.Entity)
	go func() {
		var got []signalsim.Entity
		for e := range q.Entities(ctx) {
			got = append(got, e)
		}
		consumed <- got
	}()

	wg.Wait()
	require.Eventually(t, q.IsEmpty, 5*time.Second, time.Millisecond)
	cancel()

	got := append(<-consumed, q.Drain()...)
	require.Len(t, got, numProducers*perProducer)

	seen := make(map[uint64]bool, len(got))
	for _, e := range got {
		require.False(t, seen[e.ID], "entity %d popped twice", e.ID)
		seen[e.ID] = true
	}
}

type recordingHook struct {
	mu     sync.Mutex
	pushed []uint64
	popped []uint64
	depths []int
}

func (h *recordingHook) OnPush(e signalsim.Entity, depth int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pushed = append(h.pushed, e.ID)
	h.depths = append(h.depths, depth)
}

func (h *recordingHook) OnPop(e signalsim.Entity, depth int) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.popped = append(h.popped, e.ID)
	h.depths = append(h.depths, depth)
}

func TestQueue_Hook(t *testing.T) {
	t.Parallel()

	hook := &recordingHook{}
	q := signalsim.NewQueue(signalsim.WithQueueHook(hook))

	q.Push(entity(1, signalsim.Categories.Car, 1))
	q.Push(entity(2, signalsim.Categories.Ambulance, 5))
	_, ok := q.Next(context.Background())
	require.True(t, ok)

	assert.Equal(t, []uint64{1, 2}, hook.pushed)
	assert.Equal(t, []uint64{2}, hook.popped)
	assert.Equal(t, []int{1, 2, 1}, hook.depths)
}

func BenchmarkQueue_Throughput(b *testing.B) {
	for numProducers := 1; numProducers <= 4; numProducers++ {
		b.Run(fmt.Sprintf("%d_producers", numProducers), func(b *testing.B) {
			q := signalsim.NewQueue()

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			done := make(chan struct{})
			go func() {
				defer close(done)
				for e := range q.Entities(ctx) {
					_ = e.ID // simulate servicing.
				}
			}()

			b.ReportAllocs()
			b.ResetTimer()

			var wg sync.WaitGroup
			wg.Add(numProducers)
			for p := range numProducers {
				go func() {
					defer wg.Done()
					for i := p; i < b.N; i += numProducers {
						q.Push(entity(uint64(i), signalsim.Categories.Car, i%5))
					}
				}()
			}
			wg.Wait()

			// Explicitly cancel to stop the consumer and leave the timeout out of
			// the benchmark.
			cancel()
			<-done
		})
	}
}

package signalsim

import (
	"container/heap"
	"context"
	"iter"
	"sync"
	"time"
)

// Ensure entityHeap implements [heap.Interface].
var _ heap.Interface = (*entityHeap)(nil)

// QueueHook defines hooks for monitoring push and pop events on a [Queue].
// Depth is the number of entities left queued after the event.
type QueueHook interface {
	OnPush(e Entity, depth int)
	OnPop(e Entity, depth int)
}

// Queue is a priority queue of entities that supports any number of
// concurrent producers and a single consumer.
//
// Entities with higher priority are popped first. If two entities have the
// same priority, they are popped in the order they were pushed.
type Queue struct {
	mu   sync.Mutex
	hook QueueHook

	items entityHeap
	seqNo uint64

	notifyCh chan struct{}
}

// NewQueue creates a new empty [Queue] with the given options.
func NewQueue(opts ...Option) *Queue {
	o := newOptions(opts)

	q := &Queue{
		items:    make(entityHeap, 0),
		notifyCh: make(chan struct{}, 1),
		hook:     o.Hook,
	}

	heap.Init(&q.items)
	return q
}

// Push adds the entity to the queue. It never blocks.
func (q *Queue) Push(e Entity) {
	q.mu.Lock()
	heap.Push(&q.items, queued{entity: e, seqNo: q.seqNo})
	q.seqNo++
	depth := len(q.items)
	q.mu.Unlock()

	if q.hook != nil {
		q.hook.OnPush(e, depth)
	}

	q.notify()
}

func (q *Queue) notify() {
	select {
	case q.notifyCh <- struct{}{}:
	default:
	}
}

// Next removes and returns the highest priority [Entity] from the queue. If
// the queue is empty, Next blocks until an entity is pushed or the context is
// cancelled. It reports false once the context is done, even if entities are
// still queued.
func (q *Queue) Next(ctx context.Context) (Entity, bool) {
	for {
		if ctx.Err() != nil {
			return Entity{}, false
		}

		q.mu.Lock()
		if len(q.items) > 0 {
			item := heap.Pop(&q.items).(queued)
			depth := len(q.items)
			q.mu.Unlock()

			if q.hook != nil {
				q.hook.OnPop(item.entity, depth)
			}

			return item.entity, true
		}
		q.mu.Unlock()

		select {
		case <-q.notifyCh:
		case <-ctx.Done():
			return Entity{}, false
		}
	}
}

// Pop behaves like [Queue.Next] but gives up after timeout. An empty result
// is a normal outcome; callers can tell a timeout from cancellation by
// inspecting their own context.
func (q *Queue) Pop(ctx context.Context, timeout time.Duration) (Entity, bool) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return q.Next(ctx)
}

// Entities returns an iterator over queued entities. The iterator yields the
// highest priority [Entity], blocking until entities are available or the
// context is cancelled.
func (q *Queue) Entities(ctx context.Context) iter.Seq[Entity] {
	return func(yield func(Entity) bool) {
		for {
			e, ok := q.Next(ctx)
			if !ok {
				return
			}

			if !yield(e) {
				return
			}
		}
	}
}

// Peek returns the highest priority [Entity] without removing it.
func (q *Queue) Peek() (Entity, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) == 0 {
		return Entity{}, false
	}
	return q.items[0].entity, true
}

// Len returns the number of entities currently queued. The result may be
// stale by the time it is used.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// IsEmpty reports whether the queue currently holds no entities.
func (q *Queue) IsEmpty() bool {
	return q.Len() == 0
}

// Drain removes every queued entity and returns them in pop order.
func (q *Queue) Drain() []Entity {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]Entity, 0, len(q.items))
	for len(q.items) > 0 {
		out = append(out, heap.Pop(&q.items).(queued).entity)
	}
	return out
}

type queued struct {
	entity Entity

	// The seqNo keeps entities of equal priority in push order. It is assigned
	// under the queue lock and never reused.
	seqNo uint64
}

type entityHeap []queued

func (h entityHeap) Len() int { return len(h) }

func (h entityHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.entity.Priority != b.entity.Priority {
		return a.entity.Priority > b.entity.Priority
	}
	return a.seqNo < b.seqNo
}

func (h entityHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *entityHeap) Push(x any) { *h = append(*h, x.(queued)) }

func (h *entityHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[0 : n-1]
	return item
}

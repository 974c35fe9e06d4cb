package signalsim

import (
	"fmt"
	"sync/atomic"
	"time"
)

// Entity is a single vehicle waiting to pass a [Signal]. It is a value type
// and is never modified once created.
type Entity struct {
	ID          uint64    `json:"id"`
	Category    Category  `json:"category"`
	Priority    int       `json:"priority"`
	ArrivalTime time.Time `json:"arrival_time"`
}

func (e Entity) String() string {
	return fmt.Sprintf("%s#%d (priority %d)", e.Category, e.ID, e.Priority)
}

// IDGenerator hands out entity identifiers. It is safe for concurrent use and
// never returns the same identifier twice. The first identifier is 1.
type IDGenerator struct {
	next atomic.Uint64
}

// Next returns the next identifier.
func (g *IDGenerator) Next() uint64 {
	return g.next.Add(1)
}

// NewEntity creates an [Entity] with the next identifier from g, arriving now.
func (g *IDGenerator) NewEntity(category Category, priority int) Entity {
	return Entity{
		ID:          g.Next(),
		Category:    category,
		Priority:    priority,
		ArrivalTime: time.Now(),
	}
}

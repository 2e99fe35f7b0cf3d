package cache

import (
	"sync"

	"github.com/dgraph-io/ristretto"
)

// Cache is a process-wide read cache for on-demand aggregation results.
// Aggregate keys are tracked in a side set so any ledger write can clear every
// cached aggregate at once; invalidating per touched account would require
// knowing which date ranges a client asked for.
type Cache struct {
	store *ristretto.Cache

	mu            sync.RWMutex
	aggregateKeys map[string]struct{}
}

func New(numCounters, maxCost int64) (*Cache, error) {
	store, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: numCounters,
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &Cache{
		store:         store,
		aggregateKeys: make(map[string]struct{}),
	}, nil
}

func (c *Cache) GetAggregate(key string) (interface{}, bool) {
	return c.store.Get(key)
}

func (c *Cache) SetAggregate(key string, value interface{}) {
	c.mu.Lock()
	c.aggregateKeys[key] = struct{}{}
	c.mu.Unlock()
	c.store.Set(key, value, 1)
}

// ClearAggregates drops every cached aggregate. Called on any transaction
// write, soft delete, restore, or sync push that touches the ledger.
func (c *Cache) ClearAggregates() {
	c.mu.Lock()
	for key := range c.aggregateKeys {
		c.store.Del(key)
	}
	c.aggregateKeys = make(map[string]struct{})
	c.mu.Unlock()
}

func (c *Cache) Close() {
	c.store.Close()
}

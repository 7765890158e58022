package recommendations

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

type entry struct {
	workIDs   []int
	expiresAt time.Time
}

// ttlCache keeps recommendation results per work. A zero ttl disables it.
type ttlCache struct {
	mu    sync.RWMutex
	items map[int]entry
	ttl   time.Duration
	now   func() time.Time
}

func newTTLCache(ttl time.Duration) *ttlCache {
	return &ttlCache{items: make(map[int]entry), ttl: ttl, now: time.Now}
}

func (c *ttlCache) get(workID int) ([]int, bool) {
	if c.ttl <= 0 {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[workID]
	if !ok || c.now().After(item.expiresAt) {
		return nil, false
	}
	log.Debug().Int("work_id", workID).Msg("Recommendation cache hit")
	return item.workIDs, true
}

func (c *ttlCache) set(workID int, workIDs []int) {
	if c.ttl <= 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for id, item := range c.items {
		if now.After(item.expiresAt) {
			delete(c.items, id)
		}
	}
	c.items[workID] = entry{workIDs: workIDs, expiresAt: now.Add(c.ttl)}
}

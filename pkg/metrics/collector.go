package metrics

import (
	"time"

	"github.com/cuemby/graphcore/pkg/catalog"
	"github.com/cuemby/graphcore/pkg/kvstore"
	"github.com/cuemby/graphcore/pkg/types"
)

// Collector periodically samples gauge-shaped state that nothing on the
// request path naturally touches: Raft leadership and index state
// counts. The rebuild counter and histogram are updated inline by
// pkg/indexrebuild as rebuilds finish instead; the request counters and
// histograms are not updated by any package in this module.
type Collector struct {
	store   kvstore.Store
	catalog *catalog.Memory
	spaces  []int32
	stopCh  chan struct{}
}

// NewCollector builds a collector that samples store and spaces once
// per tick.
func NewCollector(store kvstore.Store, cat *catalog.Memory, spaces []int32) *Collector {
	return &Collector{store: store, catalog: cat, spaces: spaces, stopCh: make(chan struct{})}
}

// Start begins collecting metrics every 15 seconds.
func (c *Collector) Start() {
	ticker := time.NewTicker(15 * time.Second)
	go func() {
		c.collect()
		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				ticker.Stop()
				return
			}
		}
	}()
}

// Stop stops the collector.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectLeadership()
	c.collectIndexStates()
}

func (c *Collector) collectLeadership() {
	leaders := c.store.AllLeader()
	led := 0
	for _, isLeader := range leaders {
		if isLeader {
			led++
		}
	}
	PartitionsServed.Set(float64(led))
	if led > 0 {
		RaftLeader.Set(1)
	} else {
		RaftLeader.Set(0)
	}
}

func (c *Collector) collectIndexStates() {
	counts := map[types.IndexState]int{}
	for _, spaceID := range c.spaces {
		for _, idx := range c.catalog.Indexes(spaceID) {
			counts[idx.State]++
		}
	}
	IndexesByState.WithLabelValues("active").Set(float64(counts[types.IndexActive]))
	IndexesByState.WithLabelValues("rebuilding").Set(float64(counts[types.IndexRebuilding]))
	IndexesByState.WithLabelValues("locked").Set(float64(counts[types.IndexLocked]))
}

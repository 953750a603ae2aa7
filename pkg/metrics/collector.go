package metrics

import (
	"context"
	"sync"
	"time"

	"github.com/cuemby/meshrelay/pkg/storage"
)

// DefaultCollectInterval is how often the store is probed
const DefaultCollectInterval = 30 * time.Second

// Collector periodically probes the message store and publishes its health
// and the newest stored receive time
type Collector struct {
	store    storage.Store
	interval time.Duration
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewCollector creates a new store collector
func NewCollector(store storage.Store, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = DefaultCollectInterval
	}
	return &Collector{
		store:    store,
		interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		defer close(c.doneCh)
		defer ticker.Stop()

		// Collect immediately on start
		c.collect()

		for {
			select {
			case <-ticker.C:
				c.collect()
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop stops the collector and waits for it to exit
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopCh)
	})
	<-c.doneCh
}

// collect reads the newest record to verify the store is usable
func (c *Collector) collect() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	timer := NewTimer()
	records, err := c.store.Recent(ctx, 1)
	timer.ObserveDurationVec(StoreDuration, OpRecent)
	if err != nil {
		UpdateComponent(ComponentStore, false, err.Error())
		return
	}
	UpdateComponent(ComponentStore, true, "")

	if len(records) > 0 {
		LastStoredTimestamp.Set(float64(records[0].ReceivedAt.Unix()))
	}
}

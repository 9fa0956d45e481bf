package metrics

import (
	"sync"
	"time"

	"github.com/cuemby/tracething/pkg/log"
	"github.com/cuemby/tracething/pkg/slot"
	"github.com/cuemby/tracething/pkg/storage"
)

// DefaultCollectInterval is how often gauges are resampled
const DefaultCollectInterval = 15 * time.Second

// SlotStatter reports slot table occupancy
type SlotStatter interface {
	Stats() slot.Stats
}

// DocumentLister lists stored documents
type DocumentLister interface {
	ListDocuments() ([]*storage.Document, error)
}

// Collector periodically samples state that is not updated on the query path
type Collector struct {
	slots     SlotStatter
	documents DocumentLister
	interval  time.Duration
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// NewCollector creates a new metrics collector. documents may be nil.
func NewCollector(slots SlotStatter, documents DocumentLister, interval time.Duration) *Collector {
	if interval <= 0 {
		interval = DefaultCollectInterval
	}
	return &Collector{
		slots:     slots,
		documents: documents,
		interval:  interval,
		stopCh:    make(chan struct{}),
	}
}

// Start begins collecting metrics
func (c *Collector) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		// Collect immediately on start
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

// Stop stops the collector. It is safe to call more than once.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopCh) })
}

func (c *Collector) collect() {
	c.collectSlotMetrics()
	c.collectDocumentMetrics()
}

func (c *Collector) collectSlotMetrics() {
	if c.slots == nil {
		return
	}
	stats := c.slots.Stats()
	SlotsCapacity.Set(float64(stats.Capacity))
	SlotsInUse.Set(float64(stats.Used))
	SlotCursor.Set(float64(stats.Next))
}

func (c *Collector) collectDocumentMetrics() {
	if c.documents == nil {
		return
	}
	docs, err := c.documents.ListDocuments()
	if err != nil {
		log.Logger.Warn().
			Err(err).
			Str("component", "metrics").
			Msg("failed to count stored documents")
		return
	}
	DocumentsStored.Set(float64(len(docs)))
}

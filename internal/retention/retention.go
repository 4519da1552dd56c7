// Package retention periodically expires events older than the
// configured horizon from both the relational store and the search
// index.
package retention

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"loglite/internal/metrics"
	"loglite/internal/search"
	"loglite/internal/store"
)

// Collector runs the periodic expiry cycle.
type Collector struct {
	events    *store.EventStore
	index     *search.Index
	logger    *logrus.Logger
	interval  time.Duration
	retention time.Duration
	batchSize int
}

func New(events *store.EventStore, index *search.Index, logger *logrus.Logger, interval, retention time.Duration, batchSize int) *Collector {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if batchSize <= 0 {
		batchSize = 10000
	}
	return &Collector{
		events:    events,
		index:     index,
		logger:    logger,
		interval:  interval,
		retention: retention,
		batchSize: batchSize,
	}
}

// Run blocks, ticking every configured interval until ctx is canceled.
// The first cycle also runs any pending deletes left by a prior crash,
// before waiting for the first tick.
func (c *Collector) Run(ctx context.Context) {
	c.retryPendingDeletes()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.Cycle()
		}
	}
}

// Cycle performs exactly one expiry pass. Exported so callers (tests,
// an admin trigger) can run it synchronously.
func (c *Collector) Cycle() {
	c.retryPendingDeletes()

	cutoff := time.Now().UTC().Add(-c.retention)
	ids, err := c.events.SelectExpired(cutoff, c.batchSize)
	if err != nil {
		c.logger.WithError(err).Error("retention: failed to select expired events")
		return
	}
	if len(ids) == 0 {
		return
	}

	c.expire(ids)
}

// expire deletes the relational rows first, durably recording the id set
// so a crash before the index delete can still be cleaned up by the next
// cycle.
func (c *Collector) expire(ids []uint64) {
	if err := c.events.SavePendingDeletes(ids); err != nil {
		c.logger.WithError(err).Error("retention: failed to record pending deletes")
		return
	}
	if err := c.events.DeleteByIDs(ids); err != nil {
		c.logger.WithError(err).WithField("count", len(ids)).Error("retention: relational delete failed")
		return
	}
	metrics.RetentionDeletedTotal.Add(float64(len(ids)))
	c.deleteFromIndex(ids)
}

func (c *Collector) retryPendingDeletes() {
	ids, err := c.events.LoadPendingDeletes()
	if err != nil {
		c.logger.WithError(err).Error("retention: failed to load pending deletes")
		return
	}
	if len(ids) == 0 {
		return
	}
	c.logger.WithField("count", len(ids)).Info("retention: retrying pending index deletes from a prior cycle")
	c.deleteFromIndex(ids)
}

func (c *Collector) deleteFromIndex(ids []uint64) {
	if err := c.index.DeleteByIDs(ids); err != nil {
		c.logger.WithError(err).WithField("count", len(ids)).Error("retention: index delete failed")
		return
	}
	if err := c.index.Commit(); err != nil {
		c.logger.WithError(err).WithField("count", len(ids)).Error("retention: index commit failed")
		return
	}
	if n, err := c.index.DocCount(); err == nil {
		metrics.IndexDocCount.Set(float64(n))
	}
	if err := c.events.ClearPendingDeletes(ids); err != nil {
		c.logger.WithError(err).WithField("count", len(ids)).Warn("retention: failed to clear pending-delete ledger")
	}
}

package metrics

import (
	"context"
	"time"

	"mesa/internal/domain"
)

// TableSource lists registered tables.
type TableSource interface {
	List() []domain.Table
}

// OrderSource lists stored orders.
type OrderSource interface {
	List() []domain.Order
}

// ConnectionSource reports open realtime connections.
type ConnectionSource interface {
	ConnectionCount() int
}

// Collector periodically updates gauge metrics from server state
type Collector struct {
	tables      TableSource
	orders      OrderSource
	connections ConnectionSource
	interval    time.Duration
	now         func() time.Time
	stopCh      chan struct{}
}

// NewCollector creates a new metrics collector
func NewCollector(tables TableSource, orders OrderSource, connections ConnectionSource, interval time.Duration) *Collector {
	if interval == 0 {
		interval = 15 * time.Second
	}

	return &Collector{
		tables:      tables,
		orders:      orders,
		connections: connections,
		interval:    interval,
		now:         time.Now,
		stopCh:      make(chan struct{}),
	}
}

// Start begins periodic metrics collection
func (c *Collector) Start(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	c.collect()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			c.collect()
		}
	}
}

// Stop stops the metrics collector
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) collect() {
	c.collectTableMetrics()
	c.collectOrderMetrics()
	if c.connections != nil {
		RealtimeConnections.Set(float64(c.connections.ConnectionCount()))
	}
}

func (c *Collector) collectTableMetrics() {
	if c.tables == nil {
		return
	}

	type tableKey struct {
		status string
		kind   string
	}
	counts := make(map[tableKey]int)
	now := c.now()

	for _, t := range c.tables.List() {
		status := string(t.Status)
		if t.ExpiredAt(now) {
			status = "expired"
		}
		kind := "permanent"
		if t.Temporary() {
			kind = "temporary"
		}
		counts[tableKey{status: status, kind: kind}]++
	}

	TablesTotal.Reset()
	for key, count := range counts {
		TablesTotal.WithLabelValues(key.status, key.kind).Set(float64(count))
	}
}

func (c *Collector) collectOrderMetrics() {
	if c.orders == nil {
		return
	}

	counts := make(map[domain.OrderStatus]int)
	for _, o := range c.orders.List() {
		counts[o.Status]++
	}

	OrdersTotal.Reset()
	for _, status := range domain.OrderStatuses {
		OrdersTotal.WithLabelValues(string(status)).Set(float64(counts[status]))
	}
}

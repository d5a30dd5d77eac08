// internal/utils/metrics/collector.go
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "oracle_amm"

// MetricType names one collector held by Collector.
type MetricType string

const (
	QuoteCounterType   MetricType = "quote_counter"
	QuoteDurationType  MetricType = "quote_duration"
	PoolUpdateType     MetricType = "pool_update"
	RPCLatencyType     MetricType = "rpc_latency"
	PoolReserveType    MetricType = "pool_reserve"
	PoolMultiplierType MetricType = "pool_multiplier"
	PoolTargetType     MetricType = "pool_target"
)

// Collector owns the prometheus collectors for quoting and pool refreshes.
// Each Collector registers into its own registry so several can coexist.
type Collector struct {
	metrics  sync.Map
	registry *prometheus.Registry

	quotes         *prometheus.CounterVec
	quoteDuration  *prometheus.HistogramVec
	poolUpdates    *prometheus.CounterVec
	rpcLatency     *prometheus.HistogramVec
	poolReserve    *prometheus.GaugeVec
	poolMultiplier *prometheus.GaugeVec
	poolTarget     *prometheus.GaugeVec
}

// NewCollector creates a collector with a fresh registry.
func NewCollector() *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		quotes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "quotes_total",
				Help:      "Quotes computed, by pool, direction and outcome",
			},
			[]string{"pool", "direction", "status"},
		),
		quoteDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "quote_duration_seconds",
				Help:      "Time spent computing a quote",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 4, 10),
			},
			[]string{"pool"},
		),
		poolUpdates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "pool_updates_total",
				Help:      "Price and target refreshes applied to a pool",
			},
			[]string{"pool", "status"},
		),
		rpcLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_latency_seconds",
				Help:      "RPC request latency in seconds",
				Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
			},
			[]string{"method"},
		),
		poolReserve: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_reserve",
				Help:      "Live token balance backing a pool, raw units",
			},
			[]string{"pool", "token"},
		),
		poolMultiplier: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_multiplier",
				Help:      "Oracle value multiplier per side",
			},
			[]string{"pool", "side"},
		),
		poolTarget: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "pool_target",
				Help:      "Equilibrium target per side, raw units",
			},
			[]string{"pool", "side"},
		),
	}
	c.initializeMetrics()
	return c
}

func (c *Collector) initializeMetrics() {
	metricsMap := map[MetricType]prometheus.Collector{
		QuoteCounterType:   c.quotes,
		QuoteDurationType:  c.quoteDuration,
		PoolUpdateType:     c.poolUpdates,
		RPCLatencyType:     c.rpcLatency,
		PoolReserveType:    c.poolReserve,
		PoolMultiplierType: c.poolMultiplier,
		PoolTargetType:     c.poolTarget,
	}

	for metricType, metric := range metricsMap {
		c.metrics.Store(metricType, metric)
		c.registry.MustRegister(metric)
	}
}

// Registry exposes the registry for an HTTP handler or a test gatherer.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Reset clears every vector; handy between test cases.
func (c *Collector) Reset() {
	c.metrics.Range(func(_, value interface{}) bool {
		switch m := value.(type) {
		case *prometheus.CounterVec:
			m.Reset()
		case *prometheus.GaugeVec:
			m.Reset()
		case *prometheus.HistogramVec:
			m.Reset()
		}
		return true
	})
}

// RecordQuote counts one quote. status is "ok", "no_liquidity" or "error".
func (c *Collector) RecordQuote(pool, direction, status string, duration time.Duration) {
	c.quotes.WithLabelValues(pool, direction, status).Inc()
	c.quoteDuration.WithLabelValues(pool).Observe(duration.Seconds())
}

// RecordPoolUpdate counts one account refresh of a pool.
func (c *Collector) RecordPoolUpdate(pool string, success bool) {
	status := "success"
	if !success {
		status = "failure"
	}
	c.poolUpdates.WithLabelValues(pool, status).Inc()
}

// RecordRPCLatency observes one RPC round trip.
func (c *Collector) RecordRPCLatency(method string, duration time.Duration) {
	c.rpcLatency.WithLabelValues(method).Observe(duration.Seconds())
}

// UpdatePoolReserve sets the live balance gauge of one pool token.
func (c *Collector) UpdatePoolReserve(pool, token string, amount uint64) {
	c.poolReserve.WithLabelValues(pool, token).Set(float64(amount))
}

// UpdatePoolPricing sets the multiplier and target gauges of a pool.
func (c *Collector) UpdatePoolPricing(pool string, multX, multY, targetX, targetY uint64) {
	c.poolMultiplier.WithLabelValues(pool, "x").Set(float64(multX))
	c.poolMultiplier.WithLabelValues(pool, "y").Set(float64(multY))
	c.poolTarget.WithLabelValues(pool, "x").Set(float64(targetX))
	c.poolTarget.WithLabelValues(pool, "y").Set(float64(targetY))
}

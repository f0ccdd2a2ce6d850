// Package metrics exposes Prometheus metrics for the request lifecycle,
// rate limiting and the predicate cache. A nil *Collector is valid and
// records nothing.
package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Collector records client metrics. It is safe for concurrent use.
type Collector struct {
	requestsTotal      *prometheus.CounterVec
	requestDuration    *prometheus.HistogramVec
	rateLimitSleeps    *prometheus.CounterVec
	rateLimitSleepTime *prometheus.CounterVec
	cacheLookups       *prometheus.CounterVec
}

// New registers the collectors on registerer. Collectors already registered
// by another client on the same registerer are shared. A nil registerer
// returns nil.
func New(registerer prometheus.Registerer) *Collector {
	if registerer == nil {
		return nil
	}

	return &Collector{
		requestsTotal: register(registerer, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spacetrack_requests_total",
				Help: "Total number of HTTP requests sent to Space-Track",
			},
			[]string{"endpoint", "status_code"},
		)),
		requestDuration: register(registerer, prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "spacetrack_request_duration_seconds",
				Help:    "Time to response headers of Space-Track requests",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		)),
		rateLimitSleeps: register(registerer, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spacetrack_rate_limit_sleeps_total",
				Help: "Number of rate limit waits",
			},
			[]string{"reason"},
		)),
		rateLimitSleepTime: register(registerer, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spacetrack_rate_limit_sleep_seconds_total",
				Help: "Total time spent waiting for rate limits",
			},
			[]string{"reason"},
		)),
		cacheLookups: register(registerer, prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "spacetrack_predicate_cache_lookups_total",
				Help: "Predicate cache lookups by outcome",
			},
			[]string{"outcome"},
		)),
	}
}

func register[T prometheus.Collector](registerer prometheus.Registerer, collector T) T {
	err := registerer.Register(collector)
	if err != nil {
		var already prometheus.AlreadyRegisteredError
		if errors.As(err, &already) {
			if existing, ok := already.ExistingCollector.(T); ok {
				return existing
			}
		}
	}

	return collector
}

// RecordRequest records one HTTP exchange. status is 0 for transport
// errors.
func (c *Collector) RecordRequest(endpoint string, status int, duration time.Duration) {
	if c == nil {
		return
	}

	c.requestsTotal.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
	c.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordRateLimitSleep records one wait. reason is "local" or "server".
func (c *Collector) RecordRateLimitSleep(reason string, duration time.Duration) {
	if c == nil {
		return
	}

	c.rateLimitSleeps.WithLabelValues(reason).Inc()
	c.rateLimitSleepTime.WithLabelValues(reason).Add(duration.Seconds())
}

// RecordCacheLookup records one predicate cache lookup.
func (c *Collector) RecordCacheLookup(outcome string) {
	if c == nil {
		return
	}

	c.cacheLookups.WithLabelValues(outcome).Inc()
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the client-side instruments.
type Metrics struct {
	// record store
	storeRequestsTotal   *prometheus.CounterVec
	storeRequestDuration *prometheus.HistogramVec

	// change feed
	feedEventsTotal     *prometheus.CounterVec
	feedReconnectsTotal prometheus.Counter
	feedSubscriptions   prometheus.Gauge

	// synchronization hooks
	syncRefetchesTotal *prometheus.CounterVec
	syncErrorsTotal    *prometheus.CounterVec

	// alert feed
	alertFetchesTotal  *prometheus.CounterVec
	alertsInRadius     prometheus.Gauge
	cacheHitsTotal     prometheus.Counter
	cacheMissesTotal   prometheus.Counter
}

// New creates and registers the instruments with a registerer.
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		storeRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "store_requests_total",
				Help: "Total number of remote record store requests",
			},
			[]string{"table", "op", "status"},
		),
		storeRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "store_request_duration_seconds",
				Help:    "Remote record store request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"table", "op"},
		),
		feedEventsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "feed_events_total",
				Help: "Total number of change feed events received",
			},
			[]string{"table", "event"},
		),
		feedReconnectsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "feed_reconnects_total",
				Help: "Total number of change feed reconnects",
			},
		),
		feedSubscriptions: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "feed_subscriptions",
				Help: "Number of open change feed subscriptions",
			},
		),
		syncRefetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_refetches_total",
				Help: "Total number of snapshot re-fetches triggered by push events",
			},
			[]string{"hook"},
		),
		syncErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sync_errors_total",
				Help: "Total number of hook fetch failures",
			},
			[]string{"hook"},
		),
		alertFetchesTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "alert_fetches_total",
				Help: "Total number of public alert API fetches",
			},
			[]string{"status"},
		),
		alertsInRadius: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "alerts_in_radius",
				Help: "Alerts within the configured radius after the last refresh",
			},
		),
		cacheHitsTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "snapshot_cache_hits_total",
				Help: "Total number of snapshot cache hits",
			},
		),
		cacheMissesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "snapshot_cache_misses_total",
				Help: "Total number of snapshot cache misses",
			},
		),
	}
}

func (m *Metrics) ObserveStoreRequest(table, op string, err error, elapsed time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.storeRequestsTotal.WithLabelValues(table, op, status).Inc()
	m.storeRequestDuration.WithLabelValues(table, op).Observe(elapsed.Seconds())
}

func (m *Metrics) IncFeedEvent(table, event string) {
	m.feedEventsTotal.WithLabelValues(table, event).Inc()
}

func (m *Metrics) IncFeedReconnect()     { m.feedReconnectsTotal.Inc() }
func (m *Metrics) IncSubscriptions()     { m.feedSubscriptions.Inc() }
func (m *Metrics) DecSubscriptions()     { m.feedSubscriptions.Dec() }
func (m *Metrics) IncCacheHit()          { m.cacheHitsTotal.Inc() }
func (m *Metrics) IncCacheMiss()         { m.cacheMissesTotal.Inc() }
func (m *Metrics) SetAlertsInRadius(n int) { m.alertsInRadius.Set(float64(n)) }

func (m *Metrics) IncSyncRefetch(hook string) { m.syncRefetchesTotal.WithLabelValues(hook).Inc() }
func (m *Metrics) IncSyncError(hook string)   { m.syncErrorsTotal.WithLabelValues(hook).Inc() }

func (m *Metrics) IncAlertFetch(err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	m.alertFetchesTotal.WithLabelValues(status).Inc()
}

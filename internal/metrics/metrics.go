// Package metrics defines the Prometheus collectors of the booking engine.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "trainerbook"

// Commit outcomes.
const (
	OutcomeCommitted = "committed"
	OutcomeConflict  = "conflict"
	OutcomeRejected  = "rejected"
	OutcomeError     = "error"
)

type Metrics struct {
	BookingCommits  *prometheus.CounterVec
	CacheLookups    *prometheus.CounterVec
	SlotListing     *prometheus.HistogramVec
	GRPCRequests    *prometheus.CounterVec
	GRPCDuration    *prometheus.HistogramVec
	CompletionSweep prometheus.Counter
}

// New registers the collectors on reg. A nil reg uses a private registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	f := promauto.With(reg)
	return &Metrics{
		BookingCommits: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "booking_commits_total",
			Help:      "Booking writes that went through the conflict validator.",
		}, []string{"operation", "outcome"}),
		CacheLookups: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_lookups_total",
			Help:      "Occupancy cache lookups by result.",
		}, []string{"result"}),
		SlotListing: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "slot_listing_duration_seconds",
			Help:      "Time to compute available dates or hours.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		GRPCRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "grpc_requests_total",
			Help:      "Total number of gRPC requests.",
		}, []string{"method", "code"}),
		GRPCDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "grpc_request_duration_seconds",
			Help:      "Duration of gRPC requests.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method"}),
		CompletionSweep: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bookings_completed_total",
			Help:      "Bookings marked completed by the sweeper.",
		}),
	}
}

func (m *Metrics) ObserveCommit(operation, outcome string) {
	if m == nil {
		return
	}
	m.BookingCommits.WithLabelValues(operation, outcome).Inc()
}

func (m *Metrics) ObserveCache(hit bool) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
	}
	m.CacheLookups.WithLabelValues(result).Inc()
}

func (m *Metrics) ObserveListing(kind string, started time.Time) {
	if m == nil {
		return
	}
	m.SlotListing.WithLabelValues(kind).Observe(time.Since(started).Seconds())
}

func (m *Metrics) ObserveCompleted(n int) {
	if m == nil {
		return
	}
	m.CompletionSweep.Add(float64(n))
}

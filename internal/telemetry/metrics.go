package telemetry

import (
	"strconv"
	"strings"
	"time"

	"github.com/dukerupert/parcel/internal/address"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Split outcomes recorded by RecordSplit.
const (
	OutcomeSplit    = "split"
	OutcomeFallback = "fallback"
	OutcomeBypass   = "bypass"
)

// countryOther is the country label for every country without street
// decomposition. The cc query value is caller-controlled.
const countryOther = "other"

// Metrics holds the MyParcel client and street decomposition collectors.
// A nil *Metrics records nothing, so components can run without telemetry.
type Metrics struct {
	// MyParcel API
	APIRequests *prometheus.CounterVec
	APILatency  *prometheus.HistogramVec

	// Street decomposition
	StreetSplits *prometheus.CounterVec

	// Labels
	LabelsFetched *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
// A nil reg registers with the default Prometheus registry.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if namespace == "" {
		namespace = "parcel"
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		APIRequests: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "api_requests_total",
				Help:      "Total MyParcel API requests by endpoint and HTTP status",
			},
			[]string{"endpoint", "status"}, // status: HTTP code or "error" for transport failures
		),
		APILatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "api_request_duration_seconds",
				Help:      "MyParcel API request duration per attempt",
				Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
			},
			[]string{"endpoint"},
		),
		StreetSplits: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "street_splits_total",
				Help:      "Street lines decomposed by country and outcome",
			},
			[]string{"country", "outcome"}, // country: NL, BE or other; outcome: split, fallback, bypass
		),
		LabelsFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "labels_fetched_total",
				Help:      "Label links and PDFs fetched by paper format",
			},
			[]string{"format"},
		),
	}
}

// ObserveAPIRequest records one MyParcel request. A zero status marks a
// request that got no response.
func (m *Metrics) ObserveAPIRequest(endpoint string, status int, d time.Duration) {
	if m == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.APIRequests.WithLabelValues(endpoint, label).Inc()
	m.APILatency.WithLabelValues(endpoint).Observe(d.Seconds())
}

// RecordSplit counts the outcome of decomposing a street line for cc.
func (m *Metrics) RecordSplit(cc string, parts address.SplitAddress) {
	if m == nil {
		return
	}
	m.StreetSplits.WithLabelValues(countryLabel(cc), SplitOutcome(cc, parts)).Inc()
}

func countryLabel(cc string) string {
	if !address.SplitsStreet(cc) {
		return countryOther
	}
	return strings.ToUpper(strings.TrimSpace(cc))
}

// LabelFetched counts one label request in the given paper format.
func (m *Metrics) LabelFetched(format string) {
	if m == nil {
		return
	}
	m.LabelsFetched.WithLabelValues(format).Inc()
}

// SplitOutcome classifies a Split result.
func SplitOutcome(cc string, parts address.SplitAddress) string {
	switch {
	case !address.SplitsStreet(cc):
		return OutcomeBypass
	case parts.Number == 0:
		return OutcomeFallback
	}
	return OutcomeSplit
}

package telemetry_test

import (
	"fmt"
	"testing"
	"time"

	"github.com/dukerupert/parcel/internal/address"
	"github.com/dukerupert/parcel/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_ObserveAPIRequest(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics("test", reg)

	m.ObserveAPIRequest("shipments.create", 200, 120*time.Millisecond)
	m.ObserveAPIRequest("shipments.create", 200, 80*time.Millisecond)
	m.ObserveAPIRequest("shipments.create", 0, time.Second)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("shipments.create", "200")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.APIRequests.WithLabelValues("shipments.create", "error")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.APILatency))
}

func TestMetrics_RecordSplit(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics("test", reg)

	for _, in := range []struct{ street, cc string }{
		{"Koestraat 55", "NL"},
		{"hoofdstraat 16", "be"},
		{"Kerkstraat", "NL"},
		{"Unter den Linden 77", "DE"},
	} {
		m.RecordSplit(in.cc, address.Split(in.street, in.cc))
	}

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreetSplits.WithLabelValues("NL", telemetry.OutcomeSplit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreetSplits.WithLabelValues("BE", telemetry.OutcomeSplit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreetSplits.WithLabelValues("NL", telemetry.OutcomeFallback)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreetSplits.WithLabelValues("other", telemetry.OutcomeBypass)))
}

func TestMetrics_RecordSplitBoundsCountryLabel(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics("test", reg)

	for i := 0; i < 1000; i++ {
		cc := fmt.Sprintf("zz%d", i)
		m.RecordSplit(cc, address.Split("Koestraat 55", cc))
	}
	m.RecordSplit("nl", address.Split("Koestraat 55", "nl"))
	m.RecordSplit(" BE ", address.Split("Kerkstraat", "BE"))

	assert.Equal(t, 3, testutil.CollectAndCount(m.StreetSplits))
	assert.Equal(t, 1000.0, testutil.ToFloat64(m.StreetSplits.WithLabelValues("other", telemetry.OutcomeBypass)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreetSplits.WithLabelValues("NL", telemetry.OutcomeSplit)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StreetSplits.WithLabelValues("BE", telemetry.OutcomeFallback)))
}

func TestMetrics_LabelFetched(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics("test", reg)

	m.LabelFetched("A4")
	m.LabelFetched("A4")
	m.LabelFetched("A6")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LabelsFetched.WithLabelValues("A4")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.LabelsFetched.WithLabelValues("A6")))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *telemetry.Metrics

	assert.NotPanics(t, func() {
		m.ObserveAPIRequest("shipments.get", 500, time.Second)
		m.RecordSplit("NL", address.SplitAddress{})
		m.LabelFetched("A6")
	})
}

func TestSplitOutcome(t *testing.T) {
	assert.Equal(t, telemetry.OutcomeBypass, telemetry.SplitOutcome("FR", address.SplitAddress{Number: 12}))
	assert.Equal(t, telemetry.OutcomeFallback, telemetry.SplitOutcome("NL", address.SplitAddress{Street: "Kerkstraat"}))
	assert.Equal(t, telemetry.OutcomeSplit, telemetry.SplitOutcome("nl", address.SplitAddress{Street: "Kerkstraat", Number: 1}))
}

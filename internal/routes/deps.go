package routes

import (
	"net/http"

	"github.com/dukerupert/parcel/internal/handler"
)

// APIDeps contains dependencies for the /v1 API routes
type APIDeps struct {
	SplitHandler    *handler.SplitHandler
	ShipmentHandler *handler.ShipmentHandler
	LabelHandler    *handler.LabelHandler
}

// OpsDeps contains dependencies for operational routes
type OpsDeps struct {
	// MetricsHandler serves Prometheus metrics; nil leaves /metrics unrouted.
	MetricsHandler http.Handler

	// ArchiveDir is served under ArchivePrefix when set (local label archive).
	ArchiveDir    string
	ArchivePrefix string
}

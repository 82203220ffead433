package routes

import (
	"github.com/dukerupert/parcel/internal/handler"
	"github.com/dukerupert/parcel/internal/router"
)

// RegisterAPIRoutes registers the street splitter and MyParcel routes.
// The MyParcel API key comes from configuration or the X-MyParcel-Api-Key header.
func RegisterAPIRoutes(r *router.Router, deps APIDeps) {
	v1 := r.Group()

	v1.Get("/v1/split", deps.SplitHandler.ServeHTTP)

	// Shipments
	v1.Get("/v1/shipments", deps.ShipmentHandler.List)
	v1.Post("/v1/shipments", deps.ShipmentHandler.Create)
	v1.Get("/v1/shipments/{ids}", deps.ShipmentHandler.Get)
	v1.Delete("/v1/shipments/{ids}", deps.ShipmentHandler.Delete)
	v1.Post("/v1/shipments/{ids}/return-mail", deps.ShipmentHandler.ReturnMail)

	// Labels
	v1.Get("/v1/labels/{ids}", deps.LabelHandler.PDF)
	v1.Get("/v1/labels/{ids}/link", deps.LabelHandler.Link)
}

// RegisterOpsRoutes registers health, metrics and the local label archive.
func RegisterOpsRoutes(r *router.Router, deps OpsDeps) {
	r.Get("/healthz", handler.Health)

	if deps.MetricsHandler != nil {
		r.Handle("GET", "/metrics", deps.MetricsHandler)
	}

	if deps.ArchiveDir != "" && deps.ArchivePrefix != "" {
		r.Static(deps.ArchivePrefix, deps.ArchiveDir)
	}
}

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/parcel/internal/domain"
	"github.com/dukerupert/parcel/internal/middleware"
	"github.com/dukerupert/parcel/internal/shipping"
)

// APIKeyHeader overrides the configured MyParcel API key for one request.
const APIKeyHeader = "X-MyParcel-Api-Key"

const maxCreateBody = 1 << 20

// ShipmentHandler exposes concept and shipment operations.
type ShipmentHandler struct {
	provider shipping.Provider
	apiKey   string
	logger   *slog.Logger
}

// NewShipmentHandler creates a shipment handler using apiKey when the
// request carries none.
func NewShipmentHandler(provider shipping.Provider, apiKey string, logger *slog.Logger) *ShipmentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &ShipmentHandler{
		provider: provider,
		apiKey:   apiKey,
		logger:   logger.With("handler", "shipments"),
	}
}

type shipmentsResponse struct {
	Shipments []shipping.Shipment `json:"shipments"`
}

func newShipmentsResponse(col *shipping.Collection) shipmentsResponse {
	items := col.Consignments()
	out := shipmentsResponse{Shipments: make([]shipping.Shipment, 0, len(items))}
	for _, cons := range items {
		out.Shipments = append(out.Shipments, shipping.NewShipment(cons))
	}
	return out
}

// Get handles GET /v1/shipments/{ids}.
func (h *ShipmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	col, ok := h.registered(w, r)
	if !ok {
		return
	}

	if err := h.provider.Refresh(r.Context(), col, shipping.DefaultRefreshSize); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, newShipmentsResponse(col))
}

// List handles GET /v1/shipments?size=N.
func (h *ShipmentHandler) List(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := h.key(w, r)
	if !ok {
		return
	}

	size := shipping.DefaultRefreshSize
	if raw := r.URL.Query().Get("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			ErrorResponse(w, r, domain.Invalid("shipments.list", "size must be a positive integer"))
			return
		}
		size = n
	}

	col, err := h.provider.Recent(r.Context(), apiKey, size)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, newShipmentsResponse(col))
}

// Create handles POST /v1/shipments with a JSON array of consignments
// and registers them as concepts.
func (h *ShipmentHandler) Create(w http.ResponseWriter, r *http.Request) {
	apiKey, ok := h.key(w, r)
	if !ok {
		return
	}

	var reqs []shipping.ConsignmentRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxCreateBody)).Decode(&reqs); err != nil {
		ErrorResponse(w, r, domain.Invalid("shipments.create", "body must be a JSON array of consignments"))
		return
	}
	if len(reqs) == 0 {
		ErrorResponse(w, r, shipping.ErrEmptyCollection)
		return
	}

	col := &shipping.Collection{}
	for i, req := range reqs {
		cons, err := req.Consignment(apiKey)
		if err != nil {
			ValidationErrorResponse(w, r, domain.NewValidationError("shipments.create",
				"consignments["+strconv.Itoa(i)+"]", domain.ErrorMessage(err)))
			return
		}
		if err := col.Add(cons); err != nil {
			ErrorResponse(w, r, err)
			return
		}
	}

	if err := h.provider.CreateConcepts(r.Context(), col); err != nil {
		ValidationErrorResponse(w, r, err)
		return
	}

	ids, _ := col.IDs()
	middleware.GetLogger(r.Context(), h.logger).Info("concepts created", "ids", ids)

	respondJSON(w, http.StatusCreated, newShipmentsResponse(col))
}

// Delete handles DELETE /v1/shipments/{ids}.
func (h *ShipmentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	col, ok := h.registered(w, r)
	if !ok {
		return
	}

	if err := h.provider.DeleteConcepts(r.Context(), col); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReturnMail handles POST /v1/shipments/{ids}/return-mail. The first id is
// the parent shipment; its recipient gets the return label mail.
func (h *ShipmentHandler) ReturnMail(w http.ResponseWriter, r *http.Request) {
	col, ok := h.registered(w, r)
	if !ok {
		return
	}

	// The mail goes to the parent's recipient, which only MyParcel knows here.
	if err := h.provider.Refresh(r.Context(), col, shipping.DefaultRefreshSize); err != nil {
		ErrorResponse(w, r, err)
		return
	}
	if err := h.provider.SendReturnLabelMails(r.Context(), col); err != nil {
		ErrorResponse(w, r, err)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "sent"})
}

func (h *ShipmentHandler) key(w http.ResponseWriter, r *http.Request) (string, bool) {
	return requestAPIKey(w, r, h.apiKey)
}

// registered builds a collection from the {ids} path value.
func (h *ShipmentHandler) registered(w http.ResponseWriter, r *http.Request) (*shipping.Collection, bool) {
	return registeredFromPath(w, r, h.apiKey)
}

func requestAPIKey(w http.ResponseWriter, r *http.Request, fallback string) (string, bool) {
	key := strings.TrimSpace(r.Header.Get(APIKeyHeader))
	if key == "" {
		key = fallback
	}
	if key == "" {
		UnauthorizedResponse(w, r)
		return "", false
	}
	return key, true
}

func registeredFromPath(w http.ResponseWriter, r *http.Request, fallback string) (*shipping.Collection, bool) {
	apiKey, ok := requestAPIKey(w, r, fallback)
	if !ok {
		return nil, false
	}

	ids, err := shipping.ParseIDs(r.PathValue("ids"))
	if err != nil {
		ErrorResponse(w, r, err)
		return nil, false
	}

	col, err := shipping.RegisteredCollection(apiKey, ids)
	if err != nil {
		ErrorResponse(w, r, err)
		return nil, false
	}
	return col, true
}

package handler

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/dukerupert/parcel/internal/middleware"
	"github.com/dukerupert/parcel/internal/shipping"
	"github.com/dukerupert/parcel/internal/storage"
	"github.com/dukerupert/parcel/internal/telemetry"
)

// LabelArchiveHeader carries the archive URL of a served label.
const LabelArchiveHeader = "X-Label-Archive"

// LabelHandler serves label PDFs and download links.
type LabelHandler struct {
	provider shipping.Provider
	apiKey   string
	archive  storage.Storage // nil disables archiving
	logger   *slog.Logger
	now      func() time.Time
}

// NewLabelHandler creates a label handler. archive may be nil.
func NewLabelHandler(provider shipping.Provider, apiKey string, archive storage.Storage, logger *slog.Logger) *LabelHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LabelHandler{
		provider: provider,
		apiKey:   apiKey,
		archive:  archive,
		logger:   logger.With("handler", "labels"),
		now:      time.Now,
	}
}

// PDF handles GET /v1/labels/{ids}?format=A4&positions=2&inline=1.
func (h *LabelHandler) PDF(w http.ResponseWriter, r *http.Request) {
	col, format, ok := h.parse(w, r)
	if !ok {
		return
	}

	pdf, err := h.provider.LabelPDF(r.Context(), col, format)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	now := h.now()
	logger := middleware.GetLogger(r.Context(), h.logger)

	if h.archive != nil {
		ids, _ := col.IDs()
		url, err := storage.ArchiveLabel(r.Context(), h.archive, ids, pdf, now)
		if err != nil {
			// The label is still served; the archive copy is best effort.
			logger.Error("failed to archive label", "error", err, "ids", ids)
			telemetry.CaptureError(r.Context(), err, map[string]interface{}{"ids": ids})
		} else {
			w.Header().Set(LabelArchiveHeader, url)
			logger.Debug("label archived", "url", url)
		}
	}

	inline, _ := strconv.ParseBool(r.URL.Query().Get("inline"))
	if err := shipping.WriteLabelPDF(w, pdf, inline, now); err != nil {
		ErrorResponse(w, r, err)
	}
}

// Link handles GET /v1/labels/{ids}/link and returns a download URL.
func (h *LabelHandler) Link(w http.ResponseWriter, r *http.Request) {
	col, format, ok := h.parse(w, r)
	if !ok {
		return
	}

	link, err := h.provider.LabelLink(r.Context(), col, format)
	if err != nil {
		ErrorResponse(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"url": link})
}

func (h *LabelHandler) parse(w http.ResponseWriter, r *http.Request) (*shipping.Collection, shipping.LabelFormat, bool) {
	q := r.URL.Query()
	format, err := shipping.ParseLabelFormat(q.Get("format"), q.Get("positions"))
	if err != nil {
		ErrorResponse(w, r, err)
		return nil, shipping.LabelFormat{}, false
	}

	col, ok := registeredFromPath(w, r, h.apiKey)
	if !ok {
		return nil, shipping.LabelFormat{}, false
	}
	return col, format, true
}

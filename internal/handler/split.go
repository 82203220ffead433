package handler

import (
	"net/http"
	"strings"

	"github.com/dukerupert/parcel/internal/address"
	"github.com/dukerupert/parcel/internal/domain"
	"github.com/dukerupert/parcel/internal/telemetry"
)

// SplitHandler decomposes street lines.
type SplitHandler struct {
	metrics *telemetry.Metrics
}

// NewSplitHandler creates a split handler. metrics may be nil.
func NewSplitHandler(metrics *telemetry.Metrics) *SplitHandler {
	return &SplitHandler{metrics: metrics}
}

type splitResponse struct {
	Country      string `json:"cc"`
	Street       string `json:"street"`
	Number       int    `json:"number,omitempty"`
	NumberSuffix string `json:"number_suffix,omitempty"`
	FullStreet   string `json:"full_street"`
	Outcome      string `json:"outcome"`
}

// ServeHTTP handles GET /v1/split?street=Plein%201940-45%203b&cc=NL.
// cc defaults to NL.
func (h *SplitHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	street := q.Get("street")
	if strings.TrimSpace(street) == "" {
		ErrorResponse(w, r, domain.Invalid("split", "street is required"))
		return
	}
	cc := strings.ToUpper(strings.TrimSpace(q.Get("cc")))
	if cc == "" {
		cc = "NL"
	}

	parts := address.Split(street, cc)
	h.metrics.RecordSplit(cc, parts)

	respondJSON(w, http.StatusOK, splitResponse{
		Country:      cc,
		Street:       parts.Street,
		Number:       parts.Number,
		NumberSuffix: parts.NumberSuffix,
		FullStreet:   parts.FullStreet,
		Outcome:      telemetry.SplitOutcome(cc, parts),
	})
}

package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/dukerupert/parcel/internal/domain"
	"github.com/dukerupert/parcel/internal/telemetry"
)

type contextKey string

// Recovery turns a panic in next into a 500 JSON response.
//
// It mirrors the handler error body without importing handler, which
// imports this package for GetLogger.
func Recovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				GetLogger(r.Context()).Error("panic recovered",
					"panic", rec,
					"request_id", GetRequestID(r.Context()),
				)
				telemetry.CapturePanic(r.Context(), rec)
				respondInternalError(w)
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func respondInternalError(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"error": map[string]string{
			"code":    domain.EINTERNAL,
			"message": domain.ErrorMessage(domain.Internal(nil, "", "")),
		},
	})
}

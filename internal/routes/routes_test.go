package routes_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukerupert/parcel/internal/handler"
	"github.com/dukerupert/parcel/internal/middleware"
	"github.com/dukerupert/parcel/internal/router"
	"github.com/dukerupert/parcel/internal/routes"
	"github.com/dukerupert/parcel/internal/shipping"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(t *testing.T, mock *shipping.MockProvider, ops routes.OpsDeps) *httptest.Server {
	t.Helper()

	r := router.New(middleware.Recovery, middleware.RequestID)
	routes.RegisterOpsRoutes(r, ops)
	routes.RegisterAPIRoutes(r, routes.APIDeps{
		SplitHandler:    handler.NewSplitHandler(nil),
		ShipmentHandler: handler.NewShipmentHandler(mock, "key", nil),
		LabelHandler:    handler.NewLabelHandler(mock, "key", nil, nil),
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestRoutes(t *testing.T) {
	var labelIDs []int
	mock := shipping.NewMockProvider()
	mock.LabelPDFFunc = func(ctx context.Context, col *shipping.Collection, format shipping.LabelFormat) ([]byte, error) {
		labelIDs, _ = col.IDs()
		return []byte("%PDF"), nil
	}

	reg := prometheus.NewRegistry()
	srv := newServer(t, mock, routes.OpsDeps{MetricsHandler: middleware.Handler(reg)})

	tests := []struct {
		method string
		path   string
		status int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		{http.MethodGet, "/metrics", http.StatusOK},
		{http.MethodGet, "/v1/split?street=Koestraat%2055", http.StatusOK},
		{http.MethodGet, "/v1/shipments", http.StatusOK},
		{http.MethodGet, "/v1/shipments/1;2", http.StatusOK},
		{http.MethodDelete, "/v1/shipments/1", http.StatusNoContent},
		{http.MethodPost, "/v1/shipments/1/return-mail", http.StatusAccepted},
		{http.MethodGet, "/v1/labels/4;5?format=A4", http.StatusOK},
		{http.MethodGet, "/v1/labels/4/link", http.StatusNotFound},
		{http.MethodPut, "/v1/shipments/1", http.StatusMethodNotAllowed},
		{http.MethodGet, "/labels/x.pdf", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			req, err := http.NewRequest(tt.method, srv.URL+tt.path, nil)
			require.NoError(t, err)

			resp, err := srv.Client().Do(req)
			require.NoError(t, err)
			resp.Body.Close()

			assert.Equal(t, tt.status, resp.StatusCode)
			if tt.status < 400 {
				assert.NotEmpty(t, resp.Header.Get(middleware.RequestIDHeader))
			}
		})
	}

	assert.Equal(t, []int{4, 5}, labelIDs)
}

func TestRoutes_LocalArchive(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "labels"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "labels", "a.pdf"), []byte("%PDF"), 0644))

	srv := newServer(t, shipping.NewMockProvider(), routes.OpsDeps{ArchiveDir: dir, ArchivePrefix: "/labels"})

	resp, err := srv.Client().Get(srv.URL + "/labels/labels/a.pdf")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

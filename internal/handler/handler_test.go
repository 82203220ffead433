package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/dukerupert/parcel/internal/handler"
	"github.com/dukerupert/parcel/internal/shipping"
	"github.com/dukerupert/parcel/internal/storage"
	"github.com/dukerupert/parcel/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAPIKey = "f8912fb260639db3b1ceaef2730a4b0643ff0c31"

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(rec.Body).Decode(v), rec.Body.String())
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	handler.Health(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestSplitHandler(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics("test", reg)
	h := handler.NewSplitHandler(metrics)

	tests := []struct {
		query   string
		street  string
		number  int
		suffix  string
		outcome string
	}{
		{"street=Plein%201940-45%203b", "Plein 1940-45", 3, "b", telemetry.OutcomeSplit},
		{"street=Kerkstraat%2012%20A&cc=be", "Kerkstraat", 12, "A", telemetry.OutcomeSplit},
		{"street=Postbus&cc=NL", "Postbus", 0, "", telemetry.OutcomeFallback},
		{"street=Hauptstra%C3%9Fe%201&cc=DE", "Hauptstraße 1", 0, "", telemetry.OutcomeBypass},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/split?"+tt.query, nil))
			require.Equal(t, http.StatusOK, rec.Code)

			var body struct {
				Street       string `json:"street"`
				Number       int    `json:"number"`
				NumberSuffix string `json:"number_suffix"`
				Outcome      string `json:"outcome"`
			}
			decode(t, rec, &body)

			assert.Equal(t, tt.street, body.Street)
			assert.Equal(t, tt.number, body.Number)
			assert.Equal(t, tt.suffix, body.NumberSuffix)
			assert.Equal(t, tt.outcome, body.Outcome)
		})
	}

	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.StreetSplits.WithLabelValues("BE", telemetry.OutcomeSplit)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.StreetSplits.WithLabelValues("other", telemetry.OutcomeBypass)))
}

func TestSplitHandler_ArbitraryCountriesShareOneSeries(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := telemetry.NewMetrics("test", reg)
	h := handler.NewSplitHandler(metrics)

	for i := 0; i < 1000; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/split?street=Koestraat%2055&cc=zz"+strconv.Itoa(i), nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	assert.Equal(t, 1, testutil.CollectAndCount(metrics.StreetSplits))
}

func TestSplitHandler_MissingStreet(t *testing.T) {
	rec := httptest.NewRecorder()
	handler.NewSplitHandler(nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/split?street=%20", nil))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "street is required")
}

func TestShipmentHandler_Create(t *testing.T) {
	mock := shipping.NewMockProvider()
	h := handler.NewShipmentHandler(mock, testAPIKey, nil)

	body := `[{"cc":"NL","person":"Piet","full_street":"Koestraat 55","postal_code":"2231JE","city":"Katwijk"}]`
	rec := httptest.NewRecorder()
	h.Create(rec, httptest.NewRequest(http.MethodPost, "/v1/shipments", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Shipments []shipping.Shipment `json:"shipments"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Shipments, 1)
	assert.Equal(t, 1, resp.Shipments[0].ID)
	assert.Equal(t, "Koestraat", resp.Shipments[0].Recipient.Street)
	assert.Equal(t, 55, resp.Shipments[0].Recipient.Number)
	assert.True(t, strings.HasPrefix(resp.Shipments[0].ReferenceID, "random_"))
}

func TestShipmentHandler_CreateRejects(t *testing.T) {
	h := handler.NewShipmentHandler(shipping.NewMockProvider(), testAPIKey, nil)

	tests := []struct {
		name   string
		body   string
		status int
		want   string
	}{
		{"not json", `{"cc":`, http.StatusBadRequest, "JSON array"},
		{"empty", `[]`, http.StatusBadRequest, "no consignments"},
		{"no country", `[{"full_street":"Koestraat 55"}]`, http.StatusBadRequest, "consignments[0]"},
		{"age check abroad", `[{"cc":"BE","person":"Jan","full_street":"Kerkstraat 1","postal_code":"1000","city":"Brussel","age_check":true}]`,
			http.StatusBadRequest, "age check"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Create(rec, httptest.NewRequest(http.MethodPost, "/v1/shipments", strings.NewReader(tt.body)))

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestShipmentHandler_RequiresAPIKey(t *testing.T) {
	h := handler.NewShipmentHandler(shipping.NewMockProvider(), "", nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/shipments/1", nil)
	req.SetPathValue("ids", "1")
	rec := httptest.NewRecorder()
	h.Get(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// the header supplies the key per request
	var seenKey string
	mock := shipping.NewMockProvider()
	mock.RecentFunc = func(ctx context.Context, apiKey string, size int) (*shipping.Collection, error) {
		seenKey = apiKey
		return &shipping.Collection{}, nil
	}
	req = httptest.NewRequest(http.MethodGet, "/v1/shipments", nil)
	req.Header.Set(handler.APIKeyHeader, "other-key")
	rec = httptest.NewRecorder()
	handler.NewShipmentHandler(mock, "", nil).List(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "other-key", seenKey)
}

func TestShipmentHandler_Get(t *testing.T) {
	mock := shipping.NewMockProvider()
	mock.RefreshFunc = func(ctx context.Context, col *shipping.Collection, size int) error {
		for _, cons := range col.Consignments() {
			cons.Barcode = "3SMYPA" + strings.Repeat("0", 5)
			cons.Status = 3
		}
		return nil
	}
	h := handler.NewShipmentHandler(mock, testAPIKey, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/shipments/11;12", nil)
	req.SetPathValue("ids", "11;12")
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Shipments []shipping.Shipment `json:"shipments"`
	}
	decode(t, rec, &resp)
	require.Len(t, resp.Shipments, 2)
	assert.Equal(t, 11, resp.Shipments[0].ID)
	assert.Equal(t, "handed to carrier", resp.Shipments[1].StatusText)
}

func TestShipmentHandler_GetErrors(t *testing.T) {
	mock := shipping.NewMockProvider()
	mock.RefreshFunc = func(ctx context.Context, col *shipping.Collection, size int) error {
		return shipping.ErrShipmentsNotFound
	}
	h := handler.NewShipmentHandler(mock, testAPIKey, nil)

	for ids, status := range map[string]int{"abc": http.StatusBadRequest, "5": http.StatusNotFound} {
		req := httptest.NewRequest(http.MethodGet, "/v1/shipments/"+ids, nil)
		req.SetPathValue("ids", ids)
		rec := httptest.NewRecorder()
		h.Get(rec, req)

		assert.Equal(t, status, rec.Code, ids)
	}
}

func TestShipmentHandler_List(t *testing.T) {
	h := handler.NewShipmentHandler(shipping.NewMockProvider(), testAPIKey, nil)

	rec := httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/v1/shipments?size=0", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/v1/shipments?size=10", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"shipments":[]}`, rec.Body.String())
}

func TestShipmentHandler_Delete(t *testing.T) {
	var deleted []int
	mock := shipping.NewMockProvider()
	mock.DeleteConceptsFunc = func(ctx context.Context, col *shipping.Collection) error {
		deleted, _ = col.IDs()
		return nil
	}
	h := handler.NewShipmentHandler(mock, testAPIKey, nil)

	req := httptest.NewRequest(http.MethodDelete, "/v1/shipments/3,4", nil)
	req.SetPathValue("ids", "3,4")
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, []int{3, 4}, deleted)
}

func TestShipmentHandler_ReturnMail(t *testing.T) {
	var refreshed, sent bool
	mock := shipping.NewMockProvider()
	mock.RefreshFunc = func(ctx context.Context, col *shipping.Collection, size int) error {
		refreshed = true
		return nil
	}
	mock.SendReturnLabelMailsFunc = func(ctx context.Context, col *shipping.Collection) error {
		sent = refreshed
		return nil
	}
	h := handler.NewShipmentHandler(mock, testAPIKey, nil)

	req := httptest.NewRequest(http.MethodPost, "/v1/shipments/9/return-mail", nil)
	req.SetPathValue("ids", "9")
	rec := httptest.NewRecorder()
	h.ReturnMail(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.True(t, sent, "mail is sent after the refresh")

	mock.SendReturnLabelMailsFunc = func(ctx context.Context, col *shipping.Collection) error {
		return shipping.ErrReturnMailRejected
	}
	rec = httptest.NewRecorder()
	h.ReturnMail(rec, req)
	assert.Equal(t, http.StatusBadGateway, rec.Code)
}

func TestLabelHandler_PDF(t *testing.T) {
	pdf := []byte("%PDF-1.4 label")
	var gotFormat shipping.LabelFormat
	mock := shipping.NewMockProvider()
	mock.LabelPDFFunc = func(ctx context.Context, col *shipping.Collection, format shipping.LabelFormat) ([]byte, error) {
		gotFormat = format
		return pdf, nil
	}

	dir := t.TempDir()
	archive, err := storage.NewLocalStorage(dir, "/labels")
	require.NoError(t, err)

	h := handler.NewLabelHandler(mock, testAPIKey, archive, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/labels/1;2?format=A4&positions=2&inline=1", nil)
	req.SetPathValue("ids", "1;2")
	rec := httptest.NewRecorder()
	h.PDF(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, pdf, rec.Body.Bytes())
	assert.Equal(t, "application/pdf", rec.Header().Get("Content-Type"))
	assert.True(t, strings.HasPrefix(rec.Header().Get("Content-Disposition"), "inline; "))
	assert.Equal(t, []int{2, 3, 4}, gotFormat.Positions)

	url := rec.Header().Get(handler.LabelArchiveHeader)
	require.True(t, strings.HasPrefix(url, "/labels/labels/"), url)
	assert.True(t, strings.HasSuffix(url, "/myparcel-label-1-2.pdf"), url)

	key := strings.TrimPrefix(url, "/labels/")
	exists, err := archive.Exists(context.Background(), key)
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestLabelHandler_PDFErrors(t *testing.T) {
	mock := shipping.NewMockProvider()
	h := handler.NewLabelHandler(mock, testAPIKey, nil, nil)

	tests := []struct {
		name   string
		target string
		ids    string
		status int
	}{
		{"bad format", "/v1/labels/1?format=A5", "1", http.StatusBadRequest},
		{"bad position", "/v1/labels/1?format=A4&positions=7", "1", http.StatusBadRequest},
		{"A6 with positions", "/v1/labels/1?format=A6&positions=2", "1", http.StatusBadRequest},
		{"bad ids", "/v1/labels/x", "x", http.StatusBadRequest},
		{"no label", "/v1/labels/1", "1", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.target, nil)
			req.SetPathValue("ids", tt.ids)
			rec := httptest.NewRecorder()
			h.PDF(rec, req)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestLabelHandler_Link(t *testing.T) {
	mock := shipping.NewMockProvider()
	mock.LabelLinkFunc = func(ctx context.Context, col *shipping.Collection, format shipping.LabelFormat) (string, error) {
		if format.String() != "A6" {
			return "", errors.New("unexpected format")
		}
		return "https://api.myparcel.nl/pdfs/label_hash.pdf", nil
	}
	h := handler.NewLabelHandler(mock, testAPIKey, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/labels/5/link", nil)
	req.SetPathValue("ids", "5")
	rec := httptest.NewRecorder()
	h.Link(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"url":"https://api.myparcel.nl/pdfs/label_hash.pdf"}`, rec.Body.String())
}

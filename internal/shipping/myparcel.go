package shipping

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/dukerupert/parcel/internal/address"
	"github.com/dukerupert/parcel/internal/domain"
	"github.com/dukerupert/parcel/internal/telemetry"
)

const (
	// DefaultBaseURL is the MyParcel API endpoint.
	DefaultBaseURL = "https://api.myparcel.nl"

	defaultTimeout       = 30 * time.Second
	defaultRetryInterval = 500 * time.Millisecond
	defaultPlatform      = "Go"

	acceptJSON = "application/json; charset=utf8"
	acceptPDF  = "application/pdf"

	// maxResponseBytes bounds the body read from MyParcel; label PDFs of
	// large A4 batches stay well below it.
	maxResponseBytes = 32 << 20
)

// Config contains configuration for the MyParcel client.
type Config struct {
	BaseURL string // Optional: defaults to DefaultBaseURL

	// Platform and Version form the User-Agent, e.g. MyParcel-shop/1.2.0.
	Platform string
	Version  string

	Timeout       time.Duration // Optional: defaults to 30s
	MaxRetries    int           // Retries of idempotent requests on 429, 5xx and transport errors
	RetryInterval time.Duration // Optional: first retry wait, defaults to 500ms

	HTTPClient *http.Client       // Optional: Timeout is ignored when set
	Logger     *slog.Logger       // Optional: defaults to slog.Default()
	Metrics    *telemetry.Metrics // Optional
	Validator  address.Validator  // Optional: recipients are checked before concepts are created
}

// Client implements Provider against the MyParcel REST API.
type Client struct {
	baseURL       string
	userAgent     string
	http          *http.Client
	maxRetries    int
	retryInterval time.Duration
	logger        *slog.Logger
	metrics       *telemetry.Metrics
	validator     address.Validator
}

var _ Provider = (*Client)(nil)

// NewClient creates a MyParcel client. API keys travel with the consignments,
// so one client serves any number of accounts.
func NewClient(cfg Config) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	retryInterval := cfg.RetryInterval
	if retryInterval <= 0 {
		retryInterval = defaultRetryInterval
	}

	return &Client{
		baseURL:       baseURL,
		userAgent:     UserAgent(cfg.Platform, cfg.Version),
		http:          httpClient,
		maxRetries:    max(cfg.MaxRetries, 0),
		retryInterval: retryInterval,
		logger:        logger.With("component", "myparcel"),
		metrics:       cfg.Metrics,
		validator:     cfg.Validator,
	}
}

// UserAgent builds the User-Agent MyParcel uses to attribute traffic.
func UserAgent(platform, version string) string {
	if platform == "" {
		platform = defaultPlatform
	}
	ua := "MyParcel-" + platform
	if version = strings.TrimPrefix(strings.TrimSpace(version), "v"); version != "" {
		ua += "/" + version
	}
	return ua
}

// BaseURL returns the API endpoint the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateConcepts registers the pending consignments, one request per API key.
func (c *Client) CreateConcepts(ctx context.Context, col *Collection) error {
	if col.Len() == 0 {
		return ErrEmptyCollection
	}

	col.EnsureReferenceIDs()
	pending := col.Pending()
	if len(pending) == 0 {
		return nil
	}

	for _, cons := range pending {
		if err := c.checkConsignment(ctx, cons); err != nil {
			return err
		}
	}

	for _, group := range GroupByAPIKey(pending) {
		logger := c.logger.With("consignments", len(group.Consignments))
		logger.Info("creating concepts")

		body, err := encodeShipments(group.Consignments)
		if err != nil {
			return fmt.Errorf("failed to encode shipments: %w", err)
		}

		resp, err := c.do(ctx, request{
			method:      http.MethodPost,
			path:        "/shipments",
			endpoint:    "shipments.create",
			apiKey:      group.APIKey,
			body:        body,
			contentType: contentTypeShipment,
			accept:      acceptJSON,
		})
		if err != nil {
			logger.Error("failed to create concepts", "error", err)
			return err
		}

		ids, err := decodeIDs(resp)
		if err != nil {
			return err
		}
		if err := assignIDs(group.Consignments, ids); err != nil {
			logger.Error("failed to match concept ids", "error", err)
			return err
		}

		logger.Info("concepts created", "ids", len(ids))
	}

	return nil
}

// checkConsignment applies the consignment rules and the optional recipient
// validator. A normalized recipient replaces the original.
func (c *Client) checkConsignment(ctx context.Context, cons *Consignment) error {
	if err := cons.Validate(); err != nil {
		return err
	}
	if c.validator == nil {
		return nil
	}

	result, err := c.validator.Validate(ctx, cons.Recipient)
	if err != nil {
		return fmt.Errorf("failed to validate recipient: %w", err)
	}
	if !result.IsValid {
		verr := &domain.ValidationError{Op: "shipping.create", Fields: map[string]string{}}
		for _, e := range result.Errors {
			verr.Fields[e.Field] = e.Message
		}
		if len(verr.Fields) == 0 {
			verr.Fields["recipient"] = "is invalid"
		}
		return verr
	}
	if result.NormalizedAddress != nil {
		cons.Recipient = *result.NormalizedAddress
	}
	return nil
}

// assignIDs stores returned ids on the consignments by reference identifier.
// References may repeat, so each id goes to the first match still without one.
func assignIDs(consignments []*Consignment, ids []createdID) error {
	for _, id := range ids {
		var target *Consignment
		for _, cons := range consignments {
			if cons.ReferenceID == id.ReferenceIdentifier && !cons.Registered() {
				target = cons
				break
			}
		}
		if target == nil {
			return ErrUnknownReference(id.ReferenceIdentifier)
		}
		target.APIID = int(id.ID)
		target.Status = 1
	}
	return nil
}

// DeleteConcepts deletes every registered consignment and clears its id.
func (c *Client) DeleteConcepts(ctx context.Context, col *Collection) error {
	for _, cons := range col.Registered() {
		logger := c.logger.With("shipment_id", cons.APIID)

		_, err := c.do(ctx, request{
			method:   http.MethodDelete,
			path:     "/shipments/" + strconv.Itoa(cons.APIID),
			endpoint: "shipments.delete",
			apiKey:   cons.APIKey,
			accept:   acceptJSON,
		})
		if err != nil {
			logger.Error("failed to delete concept", "error", err)
			return err
		}

		logger.Info("concept deleted")
		cons.APIID = 0
		cons.Status = 0
	}
	return nil
}

// Refresh fetches the registered consignments and replaces the collection
// with what MyParcel returns. Returned shipments keep the API key of the
// consignment they match by id or reference.
func (c *Client) Refresh(ctx context.Context, col *Collection, size int) error {
	ids, apiKey := col.IDs()
	if len(ids) == 0 {
		return ErrNoConcepts
	}
	if size <= 0 {
		size = DefaultRefreshSize
	}

	resp, err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/shipments/" + joinIDs(ids) + "?size=" + strconv.Itoa(size),
		endpoint: "shipments.get",
		apiKey:   apiKey,
		accept:   acceptJSON,
		retry:    true,
	})
	if err != nil {
		return err
	}

	shipments, err := decodeShipments(resp)
	if err != nil {
		return err
	}
	if len(shipments) == 0 {
		return ErrShipmentsNotFound
	}

	items := make([]*Consignment, 0, len(shipments))
	for _, s := range shipments {
		key := apiKey
		if owner := col.ByAPIID(int(s.ID)); owner != nil {
			key = owner.APIKey
		} else if refs := col.ByReferenceID(s.ReferenceIdentifier); s.ReferenceIdentifier != "" && len(refs) > 0 {
			key = refs[0].APIKey
		}
		items = append(items, fromAPIShipment(s, key))
	}
	col.Replace(items)

	c.logger.Debug("shipments refreshed", "shipments", len(items))
	return nil
}

// Recent returns the last size shipments created with apiKey.
func (c *Client) Recent(ctx context.Context, apiKey string, size int) (*Collection, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if size <= 0 {
		size = DefaultRefreshSize
	}

	resp, err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/shipments?size=" + strconv.Itoa(size),
		endpoint: "shipments.list",
		apiKey:   apiKey,
		accept:   acceptJSON,
		retry:    true,
	})
	if err != nil {
		return nil, err
	}

	shipments, err := decodeShipments(resp)
	if err != nil {
		return nil, err
	}

	col := &Collection{}
	for _, s := range shipments {
		col.items = append(col.items, fromAPIShipment(s, apiKey))
	}
	return col, nil
}

// LabelLink registers pending consignments, returns an absolute link to
// their labels and refreshes the collection so barcodes are set.
func (c *Client) LabelLink(ctx context.Context, col *Collection, format LabelFormat) (string, error) {
	ids, apiKey, err := c.prepareLabels(ctx, col)
	if err != nil {
		return "", err
	}

	resp, err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/shipment_labels/" + joinIDs(ids) + format.Query(),
		endpoint: "labels.link",
		apiKey:   apiKey,
		accept:   acceptJSON,
		retry:    true,
	})
	if err != nil {
		return "", err
	}

	link, err := decodeLabelLink(resp)
	if err != nil {
		return "", err
	}
	c.metrics.LabelFetched(format.String())

	if err := c.Refresh(ctx, col, DefaultRefreshSize); err != nil {
		return "", err
	}
	return c.baseURL + link, nil
}

// LabelPDF registers pending consignments and returns the label PDF.
func (c *Client) LabelPDF(ctx context.Context, col *Collection, format LabelFormat) ([]byte, error) {
	ids, apiKey, err := c.prepareLabels(ctx, col)
	if err != nil {
		return nil, err
	}

	pdf, err := c.do(ctx, request{
		method:   http.MethodGet,
		path:     "/shipment_labels/" + joinIDs(ids) + format.Query(),
		endpoint: "labels.pdf",
		apiKey:   apiKey,
		accept:   acceptPDF,
		retry:    true,
	})
	if err != nil {
		return nil, err
	}
	if len(pdf) == 0 {
		return nil, ErrEmptyLabel
	}
	c.metrics.LabelFetched(format.String())

	if err := c.Refresh(ctx, col, DefaultRefreshSize); err != nil {
		return nil, err
	}
	return pdf, nil
}

func (c *Client) prepareLabels(ctx context.Context, col *Collection) ([]int, string, error) {
	if len(col.Pending()) > 0 {
		if err := c.CreateConcepts(ctx, col); err != nil {
			return nil, "", err
		}
	}
	ids, apiKey := col.IDs()
	if len(ids) == 0 {
		return nil, "", ErrNoConcepts
	}
	return ids, apiKey, nil
}

// SendReturnLabelMails asks MyParcel to mail a return label for the first
// consignment of the collection, which must be registered.
func (c *Client) SendReturnLabelMails(ctx context.Context, col *Collection) error {
	items := col.Consignments()
	if len(items) == 0 {
		return ErrEmptyCollection
	}
	parent := items[0]
	if !parent.Registered() {
		return ErrNoConcepts
	}

	logger := c.logger.With("parent_id", parent.APIID)

	body, err := encodeReturnShipment(parent)
	if err != nil {
		return fmt.Errorf("failed to encode return shipment: %w", err)
	}

	resp, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/return_shipments",
		endpoint:    "return_shipments.create",
		apiKey:      parent.APIKey,
		body:        body,
		contentType: contentTypeReturnShipment,
		accept:      acceptJSON,
	})
	if err != nil {
		logger.Error("failed to send return label mail", "error", err)
		return err
	}

	ids, err := decodeIDs(resp)
	if err != nil {
		return err
	}
	if len(ids) == 0 || ids[0].ID < 1 {
		logger.Warn("return label mail not confirmed", "body", string(body))
		return ErrReturnMailRejected
	}

	logger.Info("return label mail sent", "return_id", int(ids[0].ID))
	return nil
}

type request struct {
	method      string
	path        string
	endpoint    string // metrics label
	apiKey      string
	body        []byte
	contentType string
	accept      string

	// retry marks idempotent requests. DELETE is always retried.
	retry bool
}

// do sends req and returns the response body of a 2xx answer.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	if req.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	retries := 0
	if req.retry || req.method == http.MethodDelete {
		retries = c.maxRetries
	}

	var body []byte
	operation := func() error {
		b, err := c.attempt(ctx, req)
		if err == nil {
			body = b
			return nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) && !apiErr.Temporary() {
			return backoff.Permanent(err)
		}
		if ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.retryInterval

	notify := func(err error, wait time.Duration) {
		c.logger.Warn("retrying MyParcel request",
			"endpoint", req.endpoint,
			"wait", wait,
			"error", err,
		)
	}

	err := backoff.RetryNotify(operation,
		backoff.WithContext(backoff.WithMaxRetries(policy, uint64(retries)), ctx),
		notify,
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

func (c *Client) attempt(ctx context.Context, req request) ([]byte, error) {
	var reader io.Reader
	if req.body != nil {
		reader = bytes.NewReader(req.body)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "basic "+base64.StdEncoding.EncodeToString([]byte(req.apiKey)))
	httpReq.Header.Set("User-Agent", c.userAgent)
	if req.contentType != "" {
		httpReq.Header.Set("Content-Type", req.contentType)
	}
	if req.accept != "" {
		httpReq.Header.Set("Accept", req.accept)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.metrics.ObserveAPIRequest(req.endpoint, 0, time.Since(start))
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	c.metrics.ObserveAPIRequest(req.endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnreachable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeAPIError(resp.StatusCode, body)
	}
	return body, nil
}

func joinIDs(ids []int) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}
	return strings.Join(parts, ";")
}

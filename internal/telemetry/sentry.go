package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/getsentry/sentry-go"
)

const sentryFlushTimeout = 2 * time.Second

// SentryConfig holds configuration for Sentry error tracking.
// Sentry stays off while DSN is empty.
type SentryConfig struct {
	DSN         string
	Environment string
	Release     string

	// SampleRate is the share of errors captured (0.0 to 1.0). Zero means 1.0.
	SampleRate float64

	Debug bool
}

var sentryEnabled atomic.Bool

// InitSentry initializes the Sentry client.
// The returned cleanup function flushes buffered events and must run on shutdown.
func InitSentry(cfg SentryConfig, logger *slog.Logger) (func(), error) {
	if logger == nil {
		logger = slog.Default()
	}

	if cfg.DSN == "" {
		sentryEnabled.Store(false)
		logger.Debug("Sentry disabled, SENTRY_DSN not configured")
		return func() {}, nil
	}

	sampleRate := cfg.SampleRate
	if sampleRate <= 0 || sampleRate > 1 {
		sampleRate = 1.0
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:         cfg.DSN,
		Environment: cfg.Environment,
		Release:     cfg.Release,
		SampleRate:  sampleRate,
		Debug:       cfg.Debug,
		BeforeSend: func(event *sentry.Event, hint *sentry.EventHint) *sentry.Event {
			// API keys travel in the Authorization header and in our override header.
			if event.Request != nil {
				delete(event.Request.Headers, "Authorization")
				delete(event.Request.Headers, "X-Myparcel-Api-Key")
			}
			return event
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Sentry: %w", err)
	}
	sentryEnabled.Store(true)

	logger.Info("Sentry initialized",
		"environment", cfg.Environment,
		"release", cfg.Release,
		"sample_rate", sampleRate,
	)

	return func() {
		sentry.Flush(sentryFlushTimeout)
	}, nil
}

// SentryEnabled reports whether InitSentry configured a DSN.
func SentryEnabled() bool {
	return sentryEnabled.Load()
}

// SentryMiddleware gives every request its own hub so captured errors carry
// the request. It does not recover panics; middleware.Recovery does.
func SentryMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !SentryEnabled() {
			next.ServeHTTP(w, r)
			return
		}

		hub := sentry.GetHubFromContext(r.Context())
		if hub == nil {
			hub = sentry.CurrentHub().Clone()
		}
		hub.Scope().SetRequest(r)

		ctx := sentry.SetHubOnContext(r.Context(), hub)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// CaptureError reports err using the hub from ctx, falling back to the
// global hub. Safe to call when Sentry is disabled.
func CaptureError(ctx context.Context, err error, extras map[string]interface{}) {
	if !SentryEnabled() || err == nil {
		return
	}

	hub := hubFromContext(ctx)
	hub.WithScope(func(scope *sentry.Scope) {
		for key, value := range extras {
			scope.SetExtra(key, value)
		}
		hub.CaptureException(err)
	})
}

// CapturePanic reports a recovered panic value and flushes, since the
// process may be about to die.
func CapturePanic(ctx context.Context, recovered interface{}) {
	if !SentryEnabled() || recovered == nil {
		return
	}

	hubFromContext(ctx).RecoverWithContext(ctx, recovered)
	sentry.Flush(sentryFlushTimeout)
}

func hubFromContext(ctx context.Context) *sentry.Hub {
	if hub := sentry.GetHubFromContext(ctx); hub != nil {
		return hub
	}
	return sentry.CurrentHub()
}

// HTTPTransport wraps an http.RoundTripper with Sentry spans so MyParcel
// calls show up in traces.
type HTTPTransport struct {
	Transport http.RoundTripper // Optional: defaults to http.DefaultTransport
}

func (t *HTTPTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	transport := t.Transport
	if transport == nil {
		transport = http.DefaultTransport
	}
	if !SentryEnabled() {
		return transport.RoundTrip(req)
	}

	span := sentry.StartSpan(req.Context(), "http.client")
	span.Description = fmt.Sprintf("%s %s", req.Method, req.URL.Host)
	defer span.Finish()

	resp, err := transport.RoundTrip(req)
	if err != nil {
		span.Status = sentry.SpanStatusInternalError
	} else {
		span.SetData("http.status_code", resp.StatusCode)
	}

	return resp, err
}

package visitstore

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"path/filepath"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/internal/domain/visit"
	"github.com/dmehra2102/prod-golang-projects/medflow-notes/pkg/metrics"
)

const maxResponseBytes = 32 << 20

// ErrUnavailable is returned while the circuit breaker rejects calls.
var ErrUnavailable = errors.New("visit store is temporarily unavailable")

var errCallerGone = errors.New("caller context done")

// callerGoneError marks a store call aborted by the caller's own context.
type callerGoneError struct {
	err error
}

func (e *callerGoneError) Error() string { return e.err.Error() }

func (e *callerGoneError) Is(target error) bool { return target == errCallerGone }

func (e *callerGoneError) Unwrap() error { return e.err }

// Error is a non-2xx answer from the store. Message is the backend's own
// error text when it sent one.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	return e.Message
}

// Client talks to the Remote Visit Store over HTTP. It implements
// visit.Store and visit.Pipeline.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[[]byte]
	tracer     trace.Tracer
	metrics    *metrics.Collector
	log        *zap.Logger
}

var (
	_ visit.Store    = (*Client)(nil)
	_ visit.Pipeline = (*Client)(nil)
)

func New(cfg config.StoreConfig, bcfg config.BreakerConfig, m *metrics.Collector, log *zap.Logger) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		userAgent: cfg.UserAgent,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		tracer:  otel.Tracer("github.com/dmehra2102/prod-golang-projects/medflow-notes/pkg/visitstore"),
		metrics: m,
		log:     log,
	}

	if cfg.RequestsPerSecond > 0 {
		burst := cfg.BurstSize
		if burst <= 0 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	if bcfg.Enabled {
		c.breaker = gobreaker.NewCircuitBreaker[[]byte](gobreaker.Settings{
			Name:        "visit-store",
			MaxRequests: bcfg.MaxHalfOpenRequests,
			Interval:    bcfg.Interval,
			Timeout:     bcfg.OpenTimeout,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= bcfg.ConsecutiveFailures
			},
			// A 4xx is the caller's problem, not a sign the store is down.
			IsSuccessful: func(err error) bool {
				if errors.Is(err, errCallerGone) {
					return true
				}
				var se *Error
				if errors.As(err, &se) {
					return se.StatusCode < http.StatusInternalServerError
				}
				return err == nil
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				m.StoreBreakerState.WithLabelValues(name).Set(float64(to))
				log.Warn("visit store breaker state changed",
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		})
	}

	return c
}

type patientsResponse struct {
	Patients []visit.PatientSummary `json:"patients"`
}

type patientResponse struct {
	Patient *visit.PatientSummary `json:"patient"`
}

type visitsResponse struct {
	Visits []visit.RawVisit `json:"visits"`
}

type updateResponse struct {
	Success *bool  `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (c *Client) ListPatients(ctx context.Context) ([]visit.PatientSummary, error) {
	var out patientsResponse
	if err := c.doJSON(ctx, "list_patients", http.MethodGet, "/patients/", nil, &out); err != nil {
		return nil, err
	}
	if out.Patients == nil {
		return []visit.PatientSummary{}, nil
	}
	return out.Patients, nil
}

func (c *Client) GetPatient(ctx context.Context, patientName string) (*visit.PatientSummary, error) {
	var out patientResponse
	if err := c.doJSON(ctx, "get_patient", http.MethodGet, patientPath(patientName), nil, &out); err != nil {
		return nil, err
	}
	if out.Patient == nil {
		return nil, &Error{StatusCode: http.StatusNotFound, Message: "Patient not found"}
	}
	return out.Patient, nil
}

func (c *Client) ListVisits(ctx context.Context, patientName string) ([]visit.RawVisit, error) {
	var out visitsResponse
	if err := c.doJSON(ctx, "list_visits", http.MethodGet, patientPath(patientName)+"visits/", nil, &out); err != nil {
		return nil, err
	}
	if out.Visits == nil {
		return []visit.RawVisit{}, nil
	}
	return out.Visits, nil
}

func (c *Client) UpdateVisit(ctx context.Context, patientName, visitID string, cmd *visit.UpdateVisitCommand) error {
	path := patientPath(patientName) + "visits/" + url.PathEscape(visitID) + "/"
	var out updateResponse
	if err := c.doJSON(ctx, "update_visit", http.MethodPut, path, cmd, &out); err != nil {
		return err
	}
	if out.Success != nil && !*out.Success {
		msg := out.Error
		if msg == "" {
			msg = "visit update was not accepted"
		}
		return &Error{StatusCode: http.StatusOK, Message: msg}
	}
	return nil
}

// Transcribe uploads an audio file as the multipart field "audio". The bytes
// are forwarded untouched.
func (c *Client) Transcribe(ctx context.Context, filename, contentType string, audio io.Reader) (*visit.Transcription, error) {
	if ext := filepath.Ext(filename); ext == "" || ext == "." {
		filename = strings.TrimSuffix(filename, ".") + ".webm"
	}
	if contentType == "" {
		contentType = "audio/" + strings.TrimPrefix(strings.ToLower(filepath.Ext(filename)), ".")
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="audio"; filename=%q`, filepath.Base(filename)))
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, fmt.Errorf("creating multipart part: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return nil, fmt.Errorf("buffering audio: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart body: %w", err)
	}

	var out visit.Transcription
	if err := c.do(ctx, "transcribe", http.MethodPost, "/transcribe/", &buf, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Process(ctx context.Context, req *visit.ProcessRequest) (*visit.ProcessedConsultation, error) {
	var out visit.ProcessedConsultation
	if err := c.doJSON(ctx, "process", http.MethodPost, "/process/", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Health(ctx context.Context) (*visit.HealthStatus, error) {
	var out visit.HealthStatus
	if err := c.doJSON(ctx, "health", http.MethodGet, "/health/", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func patientPath(name string) string {
	return "/patients/" + url.PathEscape(name) + "/"
}

func (c *Client) doJSON(ctx context.Context, op, method, path string, in, out any) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding %s request: %w", op, err)
		}
		body = bytes.NewReader(b)
		contentType = "application/json"
	}
	return c.do(ctx, op, method, path, body, contentType, out)
}

func (c *Client) do(ctx context.Context, op, method, path string, body io.Reader, contentType string, out any) (err error) {
	ctx, span := c.tracer.Start(ctx, "visitstore."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("visitstore.operation", op),
		),
	)
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			c.log.Warn("visit store call failed",
				zap.String("operation", op),
				zap.Duration("duration", time.Since(start)),
				zap.Error(err),
			)
		}
		c.metrics.StoreRequestsTotal.WithLabelValues(op, outcome).Inc()
		c.metrics.StoreRequestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		span.End()
	}()

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("waiting for store rate limiter: %w", err)
		}
	}

	call := func() ([]byte, error) {
		payload, err := c.roundTrip(ctx, method, c.baseURL+path, body, contentType)
		var se *Error
		if err != nil && ctx.Err() != nil && !errors.As(err, &se) {
			// Not the store's fault, so not a breaker failure.
			return nil, &callerGoneError{err: err}
		}
		return payload, err
	}

	var payload []byte
	if c.breaker != nil {
		payload, err = c.breaker.Execute(call)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		var gone *callerGoneError
		if errors.As(err, &gone) {
			err = gone.err
		}
	} else {
		payload, err = call()
	}
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", op, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, endpoint string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{StatusCode: resp.StatusCode, Message: errorMessage(payload, resp.StatusCode)}
	}
	return payload, nil
}

func errorMessage(payload []byte, status int) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(payload, &e); err == nil && strings.TrimSpace(e.Error) != "" {
		return e.Error
	}
	return fmt.Sprintf("HTTP error! status: %d", status)
}

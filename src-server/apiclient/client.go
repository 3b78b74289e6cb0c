// Package apiclient talks to the AttendEx REST API. Every call carries the
// caller's bearer token explicitly; the client holds no session state.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"attendex/src-server/metric"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// UnauthorizedHandler is invoked once per 401 response with the token that was
// rejected, before the error is returned to the caller.
type UnauthorizedHandler func(ctx context.Context, token string)

type Client struct {
	baseURL        *url.URL
	http           *http.Client
	tracer         trace.Tracer
	onUnauthorized UnauthorizedHandler
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithUnauthorizedHandler(fn UnauthorizedHandler) Option {
	return func(c *Client) { c.onUnauthorized = fn }
}

func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("apiclient.New: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("apiclient.New: base url %q must be absolute", baseURL)
	}
	c := &Client{
		baseURL: u,
		http:    &http.Client{},
		tracer:  otel.Tracer("attendex/apiclient"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Request describes one API call.
type Request struct {
	Method string
	Path   string // absolute API path, e.g. /api/v1/events
	Query  url.Values
	Body   any
	Token  string
}

// Do sends req and decodes a JSON response into out (which may be nil).
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	var body io.Reader
	contentType := ""
	if req.Body != nil {
		payload, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("apiclient: can't marshal %s %s body: %w", req.Method, req.Path, err)
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}
	return c.send(ctx, req, body, contentType, out)
}

// Upload sends a multipart form with a single file field.
func (c *Client) Upload(ctx context.Context, req Request, field, filename string, file io.Reader, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("apiclient: can't create form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return fmt.Errorf("apiclient: can't copy upload: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("apiclient: can't close multipart writer: %w", err)
	}
	if req.Method == "" {
		req.Method = http.MethodPost
	}
	return c.send(ctx, req, &buf, mw.FormDataContentType(), out)
}

func (c *Client) send(ctx context.Context, req Request, body io.Reader, contentType string, out any) error {
	resource := metric.ResourceLabel(req.Path)
	ctx, span := c.tracer.Start(ctx, req.Method+" "+resource, trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	target := c.baseURL.JoinPath(req.Path)
	if len(req.Query) > 0 {
		target.RawQuery = req.Query.Encode()
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target.String(), body)
	if err != nil {
		return fmt.Errorf("apiclient: can't build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	if req.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.Token)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		metric.APIRequestDuration.WithLabelValues(req.Method, resource, "error").Observe(time.Since(start).Seconds())
		span.SetStatus(codes.Error, err.Error())
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("apiclient: %s %s: %w", req.Method, req.Path, ctxErr)
		}
		slog.Warn("api unreachable", "method", req.Method, "path", req.Path, "error", err)
		return fmt.Errorf("apiclient: %s %s: %w: %v", req.Method, req.Path, ErrUnreachable, err)
	}
	defer resp.Body.Close()
	metric.APIRequestDuration.WithLabelValues(req.Method, resource, strconv.Itoa(resp.StatusCode)).Observe(time.Since(start).Seconds())
	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("apiclient: can't read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		span.SetStatus(codes.Error, http.StatusText(resp.StatusCode))
		apiErr := decodeError(resp.StatusCode, payload)
		if resp.StatusCode == http.StatusUnauthorized && c.onUnauthorized != nil && req.Token != "" {
			c.onUnauthorized(ctx, req.Token)
		}
		return fmt.Errorf("apiclient: %s %s: %w", req.Method, req.Path, apiErr)
	}

	if out == nil || len(bytes.TrimSpace(payload)) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("apiclient: can't decode %s %s response: %w", req.Method, req.Path, err)
	}
	return nil
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Package api talks to the remote generation and transcription service.
package api

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
	"net/textproto"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/jbonatakis/carfinder/internal/genome"
	"github.com/jbonatakis/carfinder/internal/logging"
)

const (
	feedbackPath   = "/api/feedback"
	statusPath     = "/api/status/"
	transcribePath = "/api/transcribe"

	// TranscribeField is the multipart field carrying the audio clip.
	TranscribeField = "file"

	RequestIDHeader = "X-Request-ID"

	maxResponseBytes = 8 << 20
	maxErrorBody     = 512
)

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	body := strings.TrimSpace(e.Body)
	if body == "" {
		return fmt.Sprintf("%s %s: unexpected status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("%s %s: unexpected status %d: %s", e.Method, e.Path, e.Code, body)
}

// IsNotFound reports whether err is a 404 from the service.
func IsNotFound(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == http.StatusNotFound
}

type Config struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerSecond int
	HTTPClient        *http.Client
	RequestID         func() string
	Logger            *slog.Logger
}

type Client struct {
	base      *url.URL
	http      *http.Client
	limiter   *rate.Limiter
	requestID func() string
	logger    *slog.Logger
}

func New(cfg Config) (*Client, error) {
	raw := strings.TrimSpace(cfg.BaseURL)
	if raw == "" {
		return nil, errors.New("api: base url is required")
	}
	base, err := url.Parse(strings.TrimRight(raw, "/"))
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("api: base url %q must be http or https", raw)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.RequestsPerSecond)
	}

	requestID := cfg.RequestID
	if requestID == nil {
		requestID = func() string { return uuid.NewString() }
	}

	return &Client{
		base:      base,
		http:      httpClient,
		limiter:   limiter,
		requestID: requestID,
		logger:    logging.OrDiscard(cfg.Logger),
	}, nil
}

type feedbackRequest struct {
	Feedback string              `json:"feedback"`
	State    genome.DesignGenome `json:"state"`
}

type feedbackResponse struct {
	TaskID string `json:"task_id"`
}

type transcribeResponse struct {
	Text string `json:"text"`
}

// SubmitFeedback starts a generation round and returns the service task id.
func (c *Client) SubmitFeedback(ctx context.Context, feedback string, state genome.DesignGenome) (string, error) {
	body, err := json.Marshal(feedbackRequest{Feedback: feedback, State: state})
	if err != nil {
		return "", fmt.Errorf("encode feedback: %w", err)
	}
	var out feedbackResponse
	if err := c.do(ctx, http.MethodPost, feedbackPath, "application/json", bytes.NewReader(body), &out); err != nil {
		return "", err
	}
	if strings.TrimSpace(out.TaskID) == "" {
		return "", fmt.Errorf("POST %s: response missing task_id", feedbackPath)
	}
	return out.TaskID, nil
}

// TaskStatus fetches the current status document for taskID.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (genome.Task, error) {
	if strings.TrimSpace(taskID) == "" {
		return genome.Task{}, errors.New("task id required")
	}
	var task genome.Task
	if err := c.do(ctx, http.MethodGet, statusPath+url.PathEscape(taskID), "", nil, &task); err != nil {
		return genome.Task{}, err
	}
	if task.ID == "" {
		task.ID = taskID
	}
	return task, nil
}

// Transcribe uploads one audio clip and returns the recognised text.
func (c *Client) Transcribe(ctx context.Context, filename string, contentType string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", errors.New("transcribe: empty clip")
	}
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, TranscribeField, filename))
	header.Set("Content-Type", contentType)
	part, err := mw.CreatePart(header)
	if err != nil {
		return "", fmt.Errorf("transcribe: create part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return "", fmt.Errorf("transcribe: write part: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("transcribe: close multipart: %w", err)
	}

	var out transcribeResponse
	if err := c.do(ctx, http.MethodPost, transcribePath, mw.FormDataContentType(), &buf, &out); err != nil {
		return "", err
	}
	return strings.TrimSpace(out.Text), nil
}

// ResolveURL turns a service-relative reference such as /api/images/x.png
// into an absolute URL. Absolute references are returned unchanged.
func (c *Client) ResolveURL(ref string) string {
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return c.base.ResolveReference(u).String()
}

func (c *Client) do(ctx context.Context, method string, path string, contentType string, body io.Reader, out any) error {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("%s %s: %w", method, path, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.base.String()+path, body)
	if err != nil {
		return fmt.Errorf("%s %s: build request: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	reqID := c.requestID()
	req.Header.Set(RequestIDHeader, reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.Debug("api request", "method", method, "path", path, "status", resp.StatusCode,
		"request_id", reqID, "elapsed", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(b)}
	}

	dec := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes))
	if err := dec.Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

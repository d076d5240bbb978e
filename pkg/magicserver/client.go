// Package magicserver is the HTTP client for the local face-swap compute
// service. The service runs on a loopback endpoint and owns all pixel
// processing; this client only moves structured requests and results.
//
// Every failure is normalized into a *ServiceError with a short code:
// "network" for transport failures, "invalid-json" for unparsable success
// bodies, "http-<status>" for HTTP failures without a server code, and the
// server's own error code when one is present.
package magicserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is where the bundled compute service listens.
const DefaultBaseURL = "http://127.0.0.1:8023"

// Error codes produced client-side. Server-reported codes pass through as-is.
const (
	CodeNetwork       = "network"
	CodeInvalidJSON   = "invalid-json"
	CodePrepareFailed = "prepare-failed"
)

// ServiceError is the single error shape surfaced by this client.
type ServiceError struct {
	Code string
	err  error
}

func (e *ServiceError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.err)
	}
	return e.Code
}

func (e *ServiceError) Unwrap() error { return e.err }

// ErrorCode extracts the normalized code from an error, or "" for nil.
func ErrorCode(err error) string {
	if err == nil {
		return ""
	}
	if se, ok := err.(*ServiceError); ok {
		return se.Code
	}
	return CodeNetwork
}

// Client talks to the compute service.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a client for the given base URL, defaulting to the
// loopback endpoint the bundled service listens on.
func NewClient(baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}
}

// Region is the wire form of a media-space rectangle with its optional
// face source binding.
type Region struct {
	X            int    `json:"x"`
	Y            int    `json:"y"`
	Width        int    `json:"width"`
	Height       int    `json:"height"`
	FaceSourceID string `json:"faceSourceId,omitempty"`
}

// FaceSource is the wire form of a face pool entry.
type FaceSource struct {
	ID   string `json:"id"`
	Path string `json:"path"`
}

// TaskRequest is the payload for POST /task (still images).
type TaskRequest struct {
	ID          int64        `json:"id"`
	InputImage  string       `json:"inputImage"`
	TargetFace  string       `json:"targetFace,omitempty"`
	Regions     []Region     `json:"regions,omitempty"`
	FaceSources []FaceSource `json:"faceSources,omitempty"`
}

// VideoTaskRequest is the payload for POST /task/video.
type VideoTaskRequest struct {
	ID          int64        `json:"id"`
	InputVideo  string       `json:"inputVideo"`
	TargetFace  string       `json:"targetFace,omitempty"`
	Regions     []Region     `json:"regions,omitempty"`
	FaceSources []FaceSource `json:"faceSources,omitempty"`
	KeyFrameMs  int64        `json:"keyFrameMs,omitempty"`
}

// taskResponse is the common {result, error} body.
type taskResponse struct {
	Result *string `json:"result"`
	Error  *string `json:"error"`
}

// Progress is one snapshot of a polled video job.
type Progress struct {
	Status     string   `json:"status"`
	Progress   float64  `json:"progress"`
	EtaSeconds *float64 `json:"etaSeconds"`
	Stage      string   `json:"stage,omitempty"`
	Error      *string  `json:"error,omitempty"`
	Result     *string  `json:"result,omitempty"`
}

// DetectResponse carries regions in native media pixels plus the frame
// dimensions when the service knows them (always, for video key frames).
type DetectResponse struct {
	Regions     []Region `json:"regions"`
	FrameWidth  int      `json:"frameWidth,omitempty"`
	FrameHeight int      `json:"frameHeight,omitempty"`
	Error       *string  `json:"error,omitempty"`
}

// Status returns the service lifecycle state: idle, launching or running.
func (c *Client) Status(ctx context.Context) (string, error) {
	var out struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/status", nil, &out); err != nil {
		return "", err
	}
	return out.Status, nil
}

// Prepare asks the service to load its models. A false success flag maps
// to the "prepare-failed" code.
func (c *Client) Prepare(ctx context.Context) error {
	var out struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodPost, "/prepare", struct{}{}, &out); err != nil {
		return err
	}
	if !out.Success {
		return &ServiceError{Code: CodePrepareFailed}
	}
	return nil
}

// SubmitImage runs a still-image swap. Images complete within a single
// request/response; there is no polling phase.
func (c *Client) SubmitImage(ctx context.Context, req TaskRequest) (string, error) {
	var out taskResponse
	if err := c.do(ctx, http.MethodPost, "/task", req, &out); err != nil {
		return "", err
	}
	if out.Error != nil {
		return "", &ServiceError{Code: *out.Error}
	}
	if out.Result == nil {
		return "", &ServiceError{Code: CodeInvalidJSON, err: fmt.Errorf("task response missing result")}
	}
	return *out.Result, nil
}

// SubmitVideo starts a video swap. A nil result without an error means the
// job was queued and must be polled for progress; otherwise the returned
// path is the finished output.
func (c *Client) SubmitVideo(ctx context.Context, req VideoTaskRequest) (result string, queued bool, err error) {
	var out taskResponse
	if err := c.do(ctx, http.MethodPost, "/task/video", req, &out); err != nil {
		return "", false, err
	}
	if out.Error != nil {
		return "", false, &ServiceError{Code: *out.Error}
	}
	if out.Result == nil {
		return "", true, nil
	}
	return *out.Result, false, nil
}

// VideoProgress polls a queued video job.
func (c *Client) VideoProgress(ctx context.Context, id int64) (Progress, error) {
	var out Progress
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/task/video/progress/%d", id), nil, &out); err != nil {
		return Progress{}, err
	}
	return out, nil
}

// Cancel asks the service to abort the job. The returned flag reports
// whether the service acknowledged the cancellation; false is "not
// cancelled", not an error.
func (c *Client) Cancel(ctx context.Context, id int64) (bool, error) {
	var out struct {
		Success bool `json:"success"`
	}
	if err := c.do(ctx, http.MethodDelete, fmt.Sprintf("/task/%d", id), nil, &out); err != nil {
		return false, err
	}
	return out.Success, nil
}

// DetectImage asks the service for face rectangles in a still image,
// returned in native media pixels.
func (c *Client) DetectImage(ctx context.Context, path string) (DetectResponse, error) {
	req := struct {
		InputImage string `json:"inputImage"`
	}{InputImage: path}
	return c.detect(ctx, "/detect", req)
}

// DetectVideoFrame asks the service for face rectangles in the video frame
// nearest the given timestamp.
func (c *Client) DetectVideoFrame(ctx context.Context, path string, timestampMs int64) (DetectResponse, error) {
	req := struct {
		InputVideo  string `json:"inputVideo"`
		TimestampMs int64  `json:"timestampMs"`
	}{InputVideo: path, TimestampMs: timestampMs}
	return c.detect(ctx, "/detect/video", req)
}

func (c *Client) detect(ctx context.Context, endpoint string, payload any) (DetectResponse, error) {
	var out DetectResponse
	if err := c.do(ctx, http.MethodPost, endpoint, payload, &out); err != nil {
		return DetectResponse{}, err
	}
	if out.Error != nil {
		return DetectResponse{}, &ServiceError{Code: *out.Error}
	}
	return out, nil
}

// do performs one round trip and applies the error taxonomy. A server
// error code parsed out of a non-2xx body takes precedence over the bare
// "http-<status>" code.
func (c *Client) do(ctx context.Context, method, endpoint string, payload, out any) error {
	var body *bytes.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return &ServiceError{Code: CodeInvalidJSON, err: err}
		}
		body = bytes.NewReader(data)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return &ServiceError{Code: CodeNetwork, err: err}
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Debug("service request failed", "endpoint", endpoint, "error", err)
		return &ServiceError{Code: CodeNetwork, err: err}
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var errBody struct {
			Error *string `json:"error"`
		}
		if err := dec.Decode(&errBody); err == nil && errBody.Error != nil && *errBody.Error != "" {
			return &ServiceError{Code: *errBody.Error}
		}
		return &ServiceError{Code: fmt.Sprintf("http-%d", resp.StatusCode)}
	}

	if err := dec.Decode(out); err != nil {
		return &ServiceError{Code: CodeInvalidJSON, err: err}
	}
	return nil
}

package magicserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(handler http.Handler) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	return NewClient(srv.URL, nil), srv
}

func TestStatus(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/status" || r.Method != http.MethodGet {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"status": "running"})
	}))
	defer srv.Close()

	status, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if status != "running" {
		t.Errorf("status = %q, want running", status)
	}
}

func TestNetworkFailure(t *testing.T) {
	c, srv := newTestClient(http.NotFoundHandler())
	srv.Close() // closed server forces a transport error

	_, err := c.Status(context.Background())
	if ErrorCode(err) != CodeNetwork {
		t.Errorf("code = %q, want %q", ErrorCode(err), CodeNetwork)
	}
}

func TestHTTPFailureWithoutBodyCode(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := c.Status(context.Background())
	if ErrorCode(err) != "http-502" {
		t.Errorf("code = %q, want http-502", ErrorCode(err))
	}
}

func TestHTTPFailureBodyCodeTakesPrecedence(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"error": "no-face-found"})
	}))
	defer srv.Close()

	_, err := c.SubmitImage(context.Background(), TaskRequest{ID: 1, InputImage: "/in.jpg"})
	if ErrorCode(err) != "no-face-found" {
		t.Errorf("code = %q, want no-face-found", ErrorCode(err))
	}
}

func TestInvalidJSONBody(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv.Close()

	_, err := c.Status(context.Background())
	if ErrorCode(err) != CodeInvalidJSON {
		t.Errorf("code = %q, want %q", ErrorCode(err), CodeInvalidJSON)
	}
}

func TestServerErrorFieldPassthrough(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"result": nil, "error": "model-not-loaded"})
	}))
	defer srv.Close()

	_, err := c.SubmitImage(context.Background(), TaskRequest{ID: 1, InputImage: "/in.jpg"})
	if ErrorCode(err) != "model-not-loaded" {
		t.Errorf("code = %q, want model-not-loaded", ErrorCode(err))
	}
}

func TestSubmitImageSuccess(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req TaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req.ID != 7 || req.InputImage != "/in.jpg" || req.TargetFace != "/face.jpg" {
			t.Errorf("unexpected request: %+v", req)
		}
		json.NewEncoder(w).Encode(map[string]string{"result": "/in_output.jpg"})
	}))
	defer srv.Close()

	result, err := c.SubmitImage(context.Background(), TaskRequest{
		ID: 7, InputImage: "/in.jpg", TargetFace: "/face.jpg",
	})
	if err != nil {
		t.Fatalf("SubmitImage: %v", err)
	}
	if result != "/in_output.jpg" {
		t.Errorf("result = %q", result)
	}
}

func TestSubmitVideoQueued(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/task/video" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{"result": nil})
	}))
	defer srv.Close()

	result, queued, err := c.SubmitVideo(context.Background(), VideoTaskRequest{
		ID: 3, InputVideo: "/clip.mp4",
		Regions:     []Region{{X: 1, Y: 2, Width: 30, Height: 40, FaceSourceID: "f1"}},
		FaceSources: []FaceSource{{ID: "f1", Path: "/face.jpg"}},
		KeyFrameMs:  1200,
	})
	if err != nil {
		t.Fatalf("SubmitVideo: %v", err)
	}
	if !queued || result != "" {
		t.Errorf("want queued, got result=%q queued=%v", result, queued)
	}
}

func TestVideoProgress(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/task/video/progress/3" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": "running", "progress": 42.5, "etaSeconds": 12, "stage": "processing-video-frames",
		})
	}))
	defer srv.Close()

	p, err := c.VideoProgress(context.Background(), 3)
	if err != nil {
		t.Fatalf("VideoProgress: %v", err)
	}
	if p.Status != "running" || p.Progress != 42.5 || p.Stage != "processing-video-frames" {
		t.Errorf("unexpected progress: %+v", p)
	}
	if p.EtaSeconds == nil || *p.EtaSeconds != 12 {
		t.Errorf("eta not parsed: %+v", p.EtaSeconds)
	}
}

func TestCancel(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/task/9" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]bool{"success": true})
	}))
	defer srv.Close()

	ok, err := c.Cancel(context.Background(), 9)
	if err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	if !ok {
		t.Error("expected acknowledged cancel")
	}
}

func TestPrepareFailure(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]bool{"success": false})
	}))
	defer srv.Close()

	err := c.Prepare(context.Background())
	if ErrorCode(err) != CodePrepareFailed {
		t.Errorf("code = %q, want %q", ErrorCode(err), CodePrepareFailed)
	}
}

func TestDetectImage(t *testing.T) {
	c, srv := newTestClient(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/detect" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"regions":    []map[string]int{{"x": 10, "y": 20, "width": 64, "height": 64}},
			"frameWidth": 800, "frameHeight": 600,
		})
	}))
	defer srv.Close()

	resp, err := c.DetectImage(context.Background(), "/in.jpg")
	if err != nil {
		t.Fatalf("DetectImage: %v", err)
	}
	if len(resp.Regions) != 1 || resp.Regions[0].Width != 64 {
		t.Errorf("unexpected regions: %+v", resp.Regions)
	}
	if resp.FrameWidth != 800 || resp.FrameHeight != 600 {
		t.Errorf("unexpected frame size: %dx%d", resp.FrameWidth, resp.FrameHeight)
	}
}

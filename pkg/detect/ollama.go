package detect

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/ollama/ollama/api"

	"github.com/mirrorlab/mirrorkit/pkg/media"
	"github.com/mirrorlab/mirrorkit/pkg/types"
)

// FacePrompt instructs the vision model to return face boxes as JSON only.
const FacePrompt = `You are a face locator.

Return JSON only:
{"faces":[{"x":0.0,"y":0.0,"w":0.0,"h":0.0}]}

HARD RULES
- All coordinates are normalized to [0,1] (NOT pixels).
- One entry per clearly visible human face, tightly boxed.
- Return {"faces":[]} when no face is visible.
- JSON only. No markdown, no code fences, no comments, no trailing commas.`

// OllamaDetector finds faces in still images with a local vision model.
// Video key frames need the compute service's decoder, so this backend
// rejects video detection.
type OllamaDetector struct {
	client *api.Client
	model  string
}

// NewOllamaDetector creates a detector against the given Ollama URL.
func NewOllamaDetector(ollamaURL, model string) (*OllamaDetector, error) {
	parsed, err := url.Parse(ollamaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	base := &url.URL{Scheme: parsed.Scheme, Host: parsed.Host}
	return &OllamaDetector{
		client: api.NewClient(base, http.DefaultClient),
		model:  model,
	}, nil
}

func (d *OllamaDetector) DetectImage(ctx context.Context, path string) (Result, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 300*time.Second)
		defer cancel()
	}

	size, err := media.ProbeSize(path)
	if err != nil {
		return Result{}, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Result{}, err
	}

	streamFalse := false
	req := &api.ChatRequest{
		Model: d.model,
		Messages: []api.Message{
			{
				Role:    "user",
				Content: FacePrompt,
				Images:  []api.ImageData{api.ImageData(data)},
			},
		},
		Stream: &streamFalse,
	}

	var responseContent string
	err = d.client.Chat(ctx, req, func(resp api.ChatResponse) error {
		responseContent = resp.Message.Content
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("ollama chat error: %w", err)
	}
	if responseContent == "" {
		return Result{}, fmt.Errorf("empty response from ollama")
	}

	boxes, err := parseFaceBoxes(responseContent)
	if err != nil {
		return Result{}, err
	}
	return Result{Regions: denormalize(boxes, size)}, nil
}

// DetectVideoFrame always fails: decoding a key frame requires the compute
// service.
func (d *OllamaDetector) DetectVideoFrame(ctx context.Context, path string, timestampMs int64) (Result, error) {
	return Result{}, fmt.Errorf("video frame detection is not supported by the ollama backend")
}

type normBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

func parseFaceBoxes(raw string) ([]normBox, error) {
	raw = sanitizeModelJSON(raw)
	if !strings.HasPrefix(strings.TrimSpace(raw), "{") {
		return nil, fmt.Errorf("no JSON found in model response")
	}

	var out struct {
		Faces []normBox `json:"faces"`
	}
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to parse model response: %w", err)
	}
	return out.Faces, nil
}

func denormalize(boxes []normBox, size types.Size) []types.PixelRect {
	out := make([]types.PixelRect, 0, len(boxes))
	for _, b := range boxes {
		r := types.PixelRect{
			X:      int(b.X * float64(size.Width)),
			Y:      int(b.Y * float64(size.Height)),
			Width:  int(b.W * float64(size.Width)),
			Height: int(b.H * float64(size.Height)),
		}
		if r.X < 0 {
			r.X = 0
		}
		if r.Y < 0 {
			r.Y = 0
		}
		if r.X+r.Width > size.Width {
			r.Width = size.Width - r.X
		}
		if r.Y+r.Height > size.Height {
			r.Height = size.Height - r.Y
		}
		if r.Width <= 1 || r.Height <= 1 {
			continue
		}
		out = append(out, r)
	}
	return out
}

// sanitizeModelJSON removes code fences, comments, and trailing commas
// from a vision model response before parsing.
func sanitizeModelJSON(raw string) string {
	raw = strings.TrimSpace(raw)

	if strings.HasPrefix(raw, "```") {
		if i := strings.Index(raw, "\n"); i >= 0 {
			raw = raw[i+1:]
		}
		if j := strings.LastIndex(raw, "```"); j >= 0 {
			raw = raw[:j]
		}
	}
	raw = strings.TrimSpace(raw)
	raw = strings.Trim(raw, "`")

	reBlock := regexp.MustCompile(`(?s)/\*.*?\*/`)
	raw = reBlock.ReplaceAllString(raw, "")
	reLine := regexp.MustCompile(`(?m)^\s*//.*$`)
	raw = reLine.ReplaceAllString(raw, "")
	reInline := regexp.MustCompile(`(?m)//.*$`)
	raw = reInline.ReplaceAllString(raw, "")

	reTrailing := regexp.MustCompile(`,(\s*[}\]])`)
	raw = reTrailing.ReplaceAllString(raw, "$1")

	if start := strings.Index(raw, "{"); start >= 0 {
		if end := strings.LastIndex(raw, "}"); end > start {
			raw = raw[start : end+1]
		}
	}
	return strings.TrimSpace(raw)
}

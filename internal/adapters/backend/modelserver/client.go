// Package modelserver talks to an HTTP inference server that hosts face
// models. One Client serves one model and implements every backend
// capability; configuration decides which ones are registered.
package modelserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"io"
	"maps"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/okian/facegate/internal/domain/backend"
	"github.com/okian/facegate/internal/domain/imaging"
	"github.com/okian/facegate/internal/domain/model"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseSize = 4 << 20
)

// Server endpoints.
const (
	pathDetect   = "/detect"
	pathEmbed    = "/embed"
	pathVerify   = "/verify"
	pathLiveness = "/liveness"
)

// Errors.
var (
	ErrStatus        = errors.New("model server error")
	ErrEmptyResponse = errors.New("empty embedding returned")
	ErrBadResponse   = errors.New("malformed model server response")
	ErrInvalidConfig = errors.New("invalid model server backend")
)

// Client is a model-server backend.
type Client struct {
	name    string
	baseURL string
	model   string
	client  *http.Client
}

var (
	_ backend.Detector           = (*Client)(nil)
	_ backend.Embedder           = (*Client)(nil)
	_ backend.Verifier           = (*Client)(nil)
	_ backend.LivenessClassifier = (*Client)(nil)
)

// New creates a client named name for model on the server at baseURL.
func New(name, baseURL, model string, opts ...Option) (*Client, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: name is empty", ErrInvalidConfig)
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: url %q", ErrInvalidConfig, baseURL)
	}
	c := &Client{
		name:    name,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
		client:  &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Name implements backend.Named.
func (c *Client) Name() string { return c.name }

// Model returns the model requested from the server.
func (c *Client) Model() string { return c.model }

type detectResponse struct {
	Faces []struct {
		BBox     []float64 `json:"bbox"` // [x1, y1, x2, y2]
		DetScore float64   `json:"det_score"`
	} `json:"faces"`
}

// Detect implements backend.Detector.
func (c *Client) Detect(ctx context.Context, frame image.Image) ([]model.Box, error) {
	if frame == nil || frame.Bounds().Empty() {
		return nil, nil
	}
	var resp detectResponse
	if err := c.call(ctx, pathDetect, map[string]image.Image{"file": frame}, &resp); err != nil {
		return nil, err
	}
	origin := frame.Bounds().Min
	boxes := make([]model.Box, 0, len(resp.Faces))
	for _, f := range resp.Faces {
		if len(f.BBox) != 4 {
			return nil, fmt.Errorf("%w: bbox has %d values", ErrBadResponse, len(f.BBox))
		}
		boxes = append(boxes, model.Box{
			X1: origin.X + int(f.BBox[0]),
			Y1: origin.Y + int(f.BBox[1]),
			X2: origin.X + int(f.BBox[2]),
			Y2: origin.Y + int(f.BBox[3]),
		})
	}
	return boxes, nil
}

type embedResponse struct {
	Dim       int       `json:"dim"`
	Embedding []float32 `json:"embedding"`
}

// Embed implements backend.Embedder.
func (c *Client) Embed(ctx context.Context, crop image.Image) ([]float64, error) {
	var resp embedResponse
	if err := c.call(ctx, pathEmbed, map[string]image.Image{"file": crop}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding) == 0 {
		return nil, ErrEmptyResponse
	}
	if resp.Dim != 0 && resp.Dim != len(resp.Embedding) {
		return nil, fmt.Errorf("%w: dim %d but %d values", ErrBadResponse, resp.Dim, len(resp.Embedding))
	}
	out := make([]float64, len(resp.Embedding))
	for i, v := range resp.Embedding {
		out[i] = float64(v)
	}
	return out, nil
}

type verifyResponse struct {
	Verified bool     `json:"verified"`
	Distance *float64 `json:"distance"`
}

// Verify implements backend.Verifier.
func (c *Client) Verify(ctx context.Context, a, b image.Image) (backend.Verification, error) {
	var resp verifyResponse
	if err := c.call(ctx, pathVerify, map[string]image.Image{"a": a, "b": b}, &resp); err != nil {
		return backend.Verification{}, err
	}
	if resp.Distance == nil {
		return backend.Verification{}, fmt.Errorf("%w: missing distance", ErrBadResponse)
	}
	return backend.Verification{Verified: resp.Verified, Distance: *resp.Distance}, nil
}

type livenessResponse struct {
	Score *float64 `json:"score"`
}

// Liveness implements backend.LivenessClassifier.
func (c *Client) Liveness(ctx context.Context, crop image.Image) (float64, error) {
	var resp livenessResponse
	if err := c.call(ctx, pathLiveness, map[string]image.Image{"file": crop}, &resp); err != nil {
		return 0, err
	}
	if resp.Score == nil {
		return 0, fmt.Errorf("%w: missing score", ErrBadResponse)
	}
	return *resp.Score, nil
}

// call posts the images as PNG multipart parts and decodes the JSON reply.
func (c *Client) call(ctx context.Context, endpoint string, images map[string]image.Image, out any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, field := range slices.Sorted(maps.Keys(images)) {
		data, err := imaging.EncodePNG(images[field])
		if err != nil {
			return err
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename="%s.png"`, field, field))
		h.Set("Content-Type", "image/png")
		part, err := writer.CreatePart(h)
		if err != nil {
			return fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := part.Write(data); err != nil {
			return fmt.Errorf("failed to write image data: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	target := c.baseURL + endpoint
	if c.model != "" {
		target += "?model=" + url.QueryEscape(c.model)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w (status %d): %s", ErrStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: %w", ErrBadResponse, err)
	}
	return nil
}

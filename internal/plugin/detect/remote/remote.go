// Package remote calls an external detection endpoint to tag uploaded media.
// The endpoint receives the raw media bytes and a confidence threshold and
// replies with a tag-to-count map of detections at or above that threshold.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/wildtrack/mediatag-service/internal/config"
	"github.com/wildtrack/mediatag-service/internal/model"
	registrydetect "github.com/wildtrack/mediatag-service/internal/registry/detect"
)

func init() {
	registrydetect.Register(registrydetect.Plugin{
		Name:   "remote",
		Loader: load,
	})
}

func load(ctx context.Context) (registrydetect.Detector, error) {
	cfg := config.FromContext(ctx)
	if cfg == nil || cfg.DetectorURL == "" {
		return nil, fmt.Errorf("remote detector: detector URL is required")
	}
	timeout := cfg.DetectorTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Detector{
		url:        cfg.DetectorURL,
		confidence: cfg.DetectorConfidence,
		client:     &http.Client{Timeout: timeout},
	}, nil
}

type Detector struct {
	url        string
	confidence float64
	client     *http.Client
}

func (d *Detector) Name() string { return "remote" }

type detectRequest struct {
	Kind       string  `json:"kind"`
	Confidence float64 `json:"confidence"`
	Data       string  `json:"data"`
}

type detectResponse struct {
	Tags  map[string]int `json:"tags"`
	Error string         `json:"error,omitempty"`
}

func (d *Detector) DetectTags(ctx context.Context, data []byte, kind model.MediaKind) (model.TagCounts, error) {
	reqBody, err := json.Marshal(detectRequest{
		Kind:       string(kind),
		Confidence: d.confidence,
		Data:       base64.StdEncoding.EncodeToString(data),
	})
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.url, bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("remote detector request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("remote detector: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("remote detector: status %d: %s", resp.StatusCode, body)
	}

	var result detectResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("remote detector: parse response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("remote detector error: %s", result.Error)
	}

	tags := model.TagCounts{}
	for name, count := range result.Tags {
		if name == "" || count <= 0 {
			continue
		}
		tags[name] = count
	}
	return tags, nil
}

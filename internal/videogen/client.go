package videogen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/forge-media/forge/internal/plan"
	"github.com/forge-media/forge/pkg/log"
)

// Config holds the configuration for the video-synthesis client
type Config struct {
	APIKey  string
	APIURL  string
	Timeout int
}

// Client calls an LTX-style video synthesis endpoint and streams the
// resulting clip to disk.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 300
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
	}
}

type textToVideoRequest struct {
	Prompt        string `json:"prompt"`
	Model         string `json:"model"`
	Duration      int    `json:"duration"`
	Resolution    string `json:"resolution"`
	FPS           int    `json:"fps"`
	GenerateAudio bool   `json:"generate_audio"`
}

type imageToVideoRequest struct {
	Image      string `json:"image"`
	Prompt     string `json:"prompt"`
	Model      string `json:"model"`
	Duration   int    `json:"duration"`
	Resolution string `json:"resolution"`
	FPS        int    `json:"fps"`
}

// Generate synthesizes one clip for the scene and writes it to outPath.
// A scene with an assigned reference image dispatches the
// image-conditioned call; text-only clips disable provider audio since
// the pipeline muxes the original track later. Not retried here.
func (c *Client) Generate(ctx context.Context, scene plan.SceneDescriptor, sceneIndex int, settings Settings, outPath string) (*Clip, error) {
	duration := EffectiveDuration(scene.Duration, settings)
	if duration != scene.Duration {
		log.Info("Clip %d duration capped from %ds to %ds by provider constraints", sceneIndex, scene.Duration, duration)
	}

	hasImage := scene.ImagePath != ""
	prompt := ComposePrompt(settings, hasImage, scene.Prompt)

	var endpoint string
	var payload any
	if hasImage {
		imageData, err := os.ReadFile(scene.ImagePath)
		if err != nil {
			return nil, &GenerationError{SceneIndex: sceneIndex, Message: "read reference image", Cause: err}
		}
		endpoint = "/image-to-video"
		payload = imageToVideoRequest{
			Image:      base64.StdEncoding.EncodeToString(imageData),
			Prompt:     prompt,
			Model:      settings.Model,
			Duration:   duration,
			Resolution: settings.Resolution,
			FPS:        settings.FPS,
		}
	} else {
		endpoint = "/text-to-video"
		payload = textToVideoRequest{
			Prompt:        prompt,
			Model:         settings.Model,
			Duration:      duration,
			Resolution:    settings.Resolution,
			FPS:           settings.FPS,
			GenerateAudio: false,
		}
	}

	if err := c.dispatch(ctx, endpoint, payload, sceneIndex, outPath); err != nil {
		return nil, err
	}

	return &Clip{
		SceneIndex: sceneIndex,
		Path:       outPath,
		Duration:   duration,
	}, nil
}

func (c *Client) dispatch(ctx context.Context, endpoint string, payload any, sceneIndex int, outPath string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &GenerationError{SceneIndex: sceneIndex, Message: "marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+endpoint, bytes.NewReader(body))
	if err != nil {
		return &GenerationError{SceneIndex: sceneIndex, Message: "build request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &GenerationError{SceneIndex: sceneIndex, Message: "provider call failed", Cause: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &GenerationError{
			SceneIndex: sceneIndex,
			Message:    fmt.Sprintf("provider returned status %d: %s", resp.StatusCode, string(detail)),
		}
	}

	out, err := os.Create(outPath)
	if err != nil {
		return &GenerationError{SceneIndex: sceneIndex, Message: "create clip file", Cause: err}
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		os.Remove(outPath)
		return &GenerationError{SceneIndex: sceneIndex, Message: "stream clip", Cause: err}
	}
	return nil
}

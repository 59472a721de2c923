package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/forge-media/forge/internal/media"
	"github.com/forge-media/forge/pkg/file"
	"github.com/forge-media/forge/pkg/log"
)

const (
	minBitrateKbps = 32
	maxBitrateKbps = 128
)

// Config holds the configuration for the speech-to-text client
type Config struct {
	APIKey         string
	APIURL         string
	Model          string
	Timeout        int
	MaxUploadBytes int64
}

// Client calls a Whisper-style transcription endpoint. Oversized source
// files are compressed to fit the provider's upload ceiling first.
type Client struct {
	cfg        Config
	httpClient *http.Client
	tools      media.Toolchain
}

func NewClient(cfg Config, tools media.Toolchain) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 20 * 1024 * 1024
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.Timeout) * time.Second,
		},
		tools: tools,
	}
}

// Transcribe sends the audio file to the transcription provider and
// returns the transcript. Not retried; a corrupted or oversized file
// will not self-correct on retry.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (*Transcript, error) {
	uploadPath, cleanup, err := c.prepareUpload(ctx, audioPath)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	transcript, err := c.request(ctx, audioPath, uploadPath)
	if err != nil {
		return nil, err
	}
	return transcript, nil
}

// prepareUpload returns the path to send: the original file, or a
// reduced-bitrate mono copy when the original exceeds the upload
// ceiling. If compression fails the original is sent anyway and the
// provider rejects it explicitly rather than audio being truncated here.
func (c *Client) prepareUpload(ctx context.Context, audioPath string) (string, func(), error) {
	noop := func() {}

	info, err := os.Stat(audioPath)
	if err != nil {
		return "", noop, &TranscriptionError{Path: audioPath, Message: "source unreadable", Cause: err}
	}
	if info.Size() <= c.cfg.MaxUploadBytes {
		return audioPath, noop, nil
	}

	log.Info("Audio %s is %d bytes, over the %d byte upload ceiling, compressing",
		audioPath, info.Size(), c.cfg.MaxUploadBytes)

	duration, err := c.tools.Duration(audioPath)
	if err != nil {
		log.Warn("Could not probe %s for compression, sending original: %v", audioPath, err)
		return audioPath, noop, nil
	}

	tmpDir, err := os.MkdirTemp("", "forge-speech-")
	if err != nil {
		log.Warn("Could not create temp dir for compression, sending original: %v", err)
		return audioPath, noop, nil
	}
	cleanup := func() { os.RemoveAll(tmpDir) }

	dst := filepath.Join(tmpDir, file.ReplaceExt(filepath.Base(audioPath), ".m4a"))
	if err := c.tools.CompressAudio(ctx, audioPath, dst, targetBitrateKbps(c.cfg.MaxUploadBytes, duration)); err != nil {
		log.Warn("Compression of %s failed, sending original: %v", audioPath, err)
		cleanup()
		return audioPath, noop, nil
	}

	return dst, cleanup, nil
}

// targetBitrateKbps spreads the byte ceiling over the track duration,
// clamped to a range that keeps speech intelligible.
func targetBitrateKbps(maxBytes int64, durationSeconds float64) int {
	kbps := int(float64(maxBytes*8) / durationSeconds / 1000.0)
	if kbps < minBitrateKbps {
		return minBitrateKbps
	}
	if kbps > maxBitrateKbps {
		return maxBitrateKbps
	}
	return kbps
}

func (c *Client) request(ctx context.Context, sourcePath, uploadPath string) (*Transcript, error) {
	audioData, err := os.ReadFile(uploadPath)
	if err != nil {
		return nil, &TranscriptionError{Path: sourcePath, Message: "read upload", Cause: err}
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filepath.Base(uploadPath))
	if err != nil {
		return nil, &TranscriptionError{Path: sourcePath, Message: "build request", Cause: err}
	}
	if _, err := part.Write(audioData); err != nil {
		return nil, &TranscriptionError{Path: sourcePath, Message: "build request", Cause: err}
	}
	if err := writer.WriteField("model", c.cfg.Model); err != nil {
		return nil, &TranscriptionError{Path: sourcePath, Message: "build request", Cause: err}
	}
	if err := writer.WriteField("response_format", "verbose_json"); err != nil {
		return nil, &TranscriptionError{Path: sourcePath, Message: "build request", Cause: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &TranscriptionError{Path: sourcePath, Message: "build request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+"/audio/transcriptions", &body)
	if err != nil {
		return nil, &TranscriptionError{Path: sourcePath, Message: "build request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TranscriptionError{Path: sourcePath, Message: "provider call failed", Cause: err}
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TranscriptionError{Path: sourcePath, Message: "read response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &TranscriptionError{
			Path:    sourcePath,
			Message: fmt.Sprintf("provider returned status %d: %s", resp.StatusCode, string(responseBody)),
		}
	}

	var parsed struct {
		Text     string `json:"text"`
		Segments []struct {
			Start float64 `json:"start"`
			End   float64 `json:"end"`
			Text  string  `json:"text"`
		} `json:"segments"`
	}
	if err := json.Unmarshal(responseBody, &parsed); err != nil {
		return nil, &TranscriptionError{Path: sourcePath, Message: "unparseable response", Cause: err}
	}
	if parsed.Text == "" {
		return nil, &TranscriptionError{Path: sourcePath, Message: "empty transcript"}
	}

	transcript := &Transcript{Text: parsed.Text}
	for _, seg := range parsed.Segments {
		transcript.Segments = append(transcript.Segments, Segment{
			Start: seg.Start,
			End:   seg.End,
			Text:  seg.Text,
		})
	}
	return transcript, nil
}

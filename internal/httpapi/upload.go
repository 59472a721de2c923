package httpapi

import (
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// saveAudio materializes the narration audio from whichever source the
// form supplies: a direct upload, a URL, or a base64 blob.
func (s *Server) saveAudio(r *http.Request) (string, error) {
	dst := filepath.Join(s.uploadDir(), uuid.NewString()[:8]+"_audio.mp3")
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create upload directory: %w", err)
	}

	if file, _, err := r.FormFile("audio_file"); err == nil {
		defer file.Close()
		if err := writeStream(dst, file); err != nil {
			return "", err
		}
		return dst, nil
	}

	if rawURL := strings.TrimSpace(r.FormValue("audio_url")); rawURL != "" {
		if err := s.fetchAudio(rawURL, dst); err != nil {
			return "", err
		}
		return dst, nil
	}

	if encoded := strings.TrimSpace(r.FormValue("audio_base64")); encoded != "" {
		decoded, err := base64.StdEncoding.DecodeString(encoded)
		if err != nil {
			return "", fmt.Errorf("invalid audio_base64: %w", err)
		}
		if err := os.WriteFile(dst, decoded, 0o644); err != nil {
			return "", fmt.Errorf("write audio: %w", err)
		}
		return dst, nil
	}

	return "", fmt.Errorf("must provide audio_file, audio_url, or audio_base64")
}

func (s *Server) fetchAudio(rawURL, dst string) error {
	client := &http.Client{Timeout: s.fetchTimeout}
	resp, err := client.Get(rawURL)
	if err != nil {
		return fmt.Errorf("fetch audio_url: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("fetch audio_url: unexpected status %d", resp.StatusCode)
	}
	return writeStream(dst, resp.Body)
}

// saveReferenceImages stores any uploaded reference images and returns
// their paths in upload order.
func (s *Server) saveReferenceImages(r *http.Request) ([]string, error) {
	if r.MultipartForm == nil {
		return nil, nil
	}
	headers := r.MultipartForm.File["reference_images"]
	if len(headers) == 0 {
		return nil, nil
	}

	dir := s.uploadDir()
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload directory: %w", err)
	}

	paths := make([]string, 0, len(headers))
	for i, header := range headers {
		src, err := header.Open()
		if err != nil {
			return nil, fmt.Errorf("open reference image %d: %w", i, err)
		}
		ext := filepath.Ext(header.Filename)
		if ext == "" {
			ext = ".png"
		}
		dst := filepath.Join(dir, fmt.Sprintf("%s_ref%d%s", uuid.NewString()[:8], i, ext))
		err = writeStream(dst, src)
		src.Close()
		if err != nil {
			return nil, err
		}
		paths = append(paths, dst)
	}
	return paths, nil
}

func (s *Server) uploadDir() string {
	return filepath.Join(s.workDir, "uploads")
}

func writeStream(dst string, src io.Reader) error {
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, src); err != nil {
		_ = out.Close()
		return fmt.Errorf("write %s: %w", dst, err)
	}
	return out.Close()
}

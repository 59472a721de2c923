package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/forge-media/forge/internal/jobs"
)

// stylePresets maps preset names to the prompt prefix baked into every
// clip. Custom leaves the prefix to style_notes alone.
var stylePresets = map[string]string{
	"Cinematic Stock Footage": "cinematic stock footage, professional quality, smooth camera movements",
	"Nature Documentary":      "nature documentary style, BBC Earth quality, wildlife and landscapes",
	"News/Corporate":          "professional news broadcast style, clean and modern, corporate aesthetic",
	"Artistic/Abstract":       "artistic abstract visuals, creative color grading, experimental cinematography",
	"Vintage/Retro":           "vintage film aesthetic, warm colors, nostalgic mood, film grain",
	"Tech/Futuristic":         "futuristic technology aesthetic, sleek and modern, digital effects",
	"Custom":                  "",
}

// maxUploadBytes caps a generate request body (audio plus reference
// images).
const maxUploadBytes = 200 << 20

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	audioPath, err := s.saveAudio(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	imagePaths, err := s.saveReferenceImages(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	req := jobs.GenerationRequest{
		AudioPath:         audioPath,
		Style:             styleFor(r.FormValue("style")),
		StyleNotes:        r.FormValue("style_notes"),
		PromptOverride:    r.FormValue("prompt_override"),
		Model:             r.FormValue("model"),
		Resolution:        r.FormValue("resolution"),
		ShotDensity:       r.FormValue("shot_density"),
		CameraMotion:      r.FormValue("camera_motion"),
		CustomShotsFormat: r.FormValue("custom_shots_format"),
		ReferenceImages:   imagePaths,
		ImageAssignMode:   r.FormValue("image_assign_mode"),
		Consistency:       50,
	}
	if raw := r.FormValue("custom_shots"); raw != "" {
		req.CustomShots = []byte(raw)
	}
	if raw := r.FormValue("fps"); raw != "" {
		fps, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "fps must be an integer")
			return
		}
		req.FPS = fps
	}
	if raw := r.FormValue("consistency"); raw != "" {
		level, err := strconv.Atoi(raw)
		if err != nil || level < 0 || level > 100 {
			writeError(w, http.StatusBadRequest, "consistency must be an integer between 0 and 100")
			return
		}
		req.Consistency = level
	}

	job := s.queue.Submit(req)
	writeJSON(w, http.StatusAccepted, jobResponse(job))
}

// styleFor resolves a preset name to its prompt prefix; unknown values
// pass through as free-form style text.
func styleFor(style string) string {
	if style == "" {
		return ""
	}
	if preset, ok := stylePresets[style]; ok {
		return preset
	}
	return style
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	list := s.queue.List()
	ret := make([]map[string]any, 0, len(list))
	for _, job := range list {
		ret = append(ret, jobResponse(job))
	}
	writeJSON(w, http.StatusOK, ret)
}

func (s *Server) handleJobByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/api/jobs/")
	id, tail, _ := strings.Cut(rest, "/")
	if id == "" {
		writeError(w, http.StatusBadRequest, "missing job id")
		return
	}

	job, ok := s.queue.Get(id)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found")
		return
	}

	switch tail {
	case "":
		writeJSON(w, http.StatusOK, jobResponse(job))
	case "download":
		s.serveDownload(w, r, job)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (s *Server) serveDownload(w http.ResponseWriter, r *http.Request, job *jobs.GenerationJob) {
	if job.Stage != jobs.StageCompleted {
		writeError(w, http.StatusConflict, "job not ready, stage: "+string(job.Stage))
		return
	}
	if job.ResultPath == "" {
		writeError(w, http.StatusNotFound, "video file not found")
		return
	}
	w.Header().Set("Content-Type", "video/mp4")
	w.Header().Set("Content-Disposition", `attachment; filename="forge_`+job.ID+`.mp4"`)
	http.ServeFile(w, r, job.ResultPath)
}

func (s *Server) handleStyles(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, stylePresets)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "healthy",
		"jobs_in_memory": len(s.queue.List()),
	})
}

// jobResponse is the external status shape; the raw request is kept
// out of it so uploaded file locations never leak.
func jobResponse(job *jobs.GenerationJob) map[string]any {
	ret := map[string]any{
		"job_id":     job.ID,
		"status":     string(job.Stage),
		"progress":   job.Progress,
		"message":    job.Message,
		"created_at": job.CreatedAt,
		"updated_at": job.UpdatedAt,
	}
	if job.Error != "" {
		ret["error"] = job.Error
	}
	if job.Stage == jobs.StageCompleted {
		ret["download_url"] = "/api/jobs/" + job.ID + "/download"
	}
	return ret
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{
		"error": msg,
	})
}

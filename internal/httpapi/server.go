package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/forge-media/forge/internal/jobs"
)

type Server struct {
	queue   *jobs.Queue
	workDir string

	// fetchTimeout bounds audio_url downloads.
	fetchTimeout time.Duration

	mux    *http.ServeMux
	server *http.Server
}

type Option func(*Server)

func WithFetchTimeout(d time.Duration) Option {
	return func(s *Server) {
		s.fetchTimeout = d
	}
}

func NewServer(queue *jobs.Queue, workDir string, opts ...Option) *Server {
	s := &Server{
		queue:        queue,
		workDir:      workDir,
		fetchTimeout: 60 * time.Second,
		mux:          http.NewServeMux(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

func (s *Server) ListenAndServe(addr string) error {
	s.server = &http.Server{
		Addr:              addr,
		Handler:           s.mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s.server.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) routes() {
	s.mux.HandleFunc("/api/generate", s.handleGenerate)
	s.mux.HandleFunc("/api/jobs", s.handleListJobs)
	s.mux.HandleFunc("/api/jobs/stream", s.handleJobStream)
	s.mux.HandleFunc("/api/jobs/", s.handleJobByID)
	s.mux.HandleFunc("/api/styles", s.handleStyles)
	s.mux.HandleFunc("/api/health", s.handleHealth)
}

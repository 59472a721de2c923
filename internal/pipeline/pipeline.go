package pipeline

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/forge-media/forge/internal/jobs"
	"github.com/forge-media/forge/internal/plan"
	"github.com/forge-media/forge/internal/transcribe"
	"github.com/forge-media/forge/internal/videogen"
	"github.com/forge-media/forge/pkg/log"
)

// Stage entry percentages. Clip generation advances linearly from 30
// to 80 as clips finish; assembly holds 85 and the audio merge 95.
const (
	progressProbing      = 0
	progressTranscribing = 10
	progressPlanning     = 20
	progressGenerating   = 30
	progressAssembling   = 85
	progressMerging      = 95
	generatingSpan       = 50
)

type prober interface {
	Duration(path string) (float64, error)
}

type transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (*transcribe.Transcript, error)
}

type scenePlanner interface {
	Plan(ctx context.Context, transcript *transcribe.Transcript, req plan.Request) ([]plan.SceneDescriptor, error)
}

type clipGenerator interface {
	Generate(ctx context.Context, scene plan.SceneDescriptor, sceneIndex int, settings videogen.Settings, outPath string) (*videogen.Clip, error)
}

type assembler interface {
	Concatenate(ctx context.Context, clipPaths []string, out string) error
	MergeAudio(ctx context.Context, videoPath, audioPath, out string) error
}

// Pipeline drives one job through probe, transcription, planning,
// clip generation and assembly. It satisfies jobs.Executor via
// Execute.
type Pipeline struct {
	probe       prober
	transcriber transcriber
	planner     scenePlanner
	generator   clipGenerator
	assembler   assembler

	workDir     string
	clipWorkers int
	defaults    videogen.Settings
	newRand     func() *rand.Rand
}

func New(
	probe prober,
	tr transcriber,
	planner scenePlanner,
	generator clipGenerator,
	assembler assembler,
	workDir string,
	clipWorkers int,
	defaults videogen.Settings,
) *Pipeline {
	if clipWorkers < 1 {
		clipWorkers = 1
	}
	return &Pipeline{
		probe:       probe,
		transcriber: tr,
		planner:     planner,
		generator:   generator,
		assembler:   assembler,
		workDir:     workDir,
		clipWorkers: clipWorkers,
		defaults:    defaults,
		newRand: func() *rand.Rand {
			return rand.New(rand.NewSource(time.Now().UnixNano()))
		},
	}
}

// Execute runs the full pipeline for one job and returns the path of
// the final video. Intermediate files live in a per-job directory that
// is removed whether the job succeeds or fails; the source audio is
// never touched.
func (p *Pipeline) Execute(ctx context.Context, job *jobs.GenerationJob, status jobs.StatusSink) (string, error) {
	req := job.Request

	status.SetStatus(job.ID, jobs.StageProbing, progressProbing, "Analyzing audio")
	duration, err := p.probe.Duration(req.AudioPath)
	if err != nil {
		return "", err
	}
	log.Info("Job %s: audio is %.1fs", job.ID, duration)

	jobDir := filepath.Join(p.workDir, job.ID)
	if err := os.MkdirAll(jobDir, 0o755); err != nil {
		return "", fmt.Errorf("create job directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(jobDir); err != nil {
			log.Warn("Job %s: failed to remove work directory: %v", job.ID, err)
		}
	}()

	scenes, err := p.planScenes(ctx, job, status, duration)
	if err != nil {
		return "", err
	}

	settings := p.settingsFor(req)
	images := videogen.AssignImages(
		videogen.AssignMode(req.ImageAssignMode),
		req.ReferenceImages,
		len(scenes),
		p.newRand(),
	)
	for i := range scenes {
		scenes[i].ImagePath = images[i]
	}

	clipPaths, err := p.generateClips(ctx, job, status, scenes, settings, jobDir)
	if err != nil {
		return "", err
	}

	status.SetStatus(job.ID, jobs.StageAssembling, progressAssembling, "Stitching clips")
	silent := filepath.Join(jobDir, "combined.mp4")
	if err := p.assembler.Concatenate(ctx, clipPaths, silent); err != nil {
		return "", err
	}

	status.SetStatus(job.ID, jobs.StageAssembling, progressMerging, "Merging narration")
	final := filepath.Join(p.workDir, job.ID+"_final.mp4")
	if err := p.assembler.MergeAudio(ctx, silent, req.AudioPath, final); err != nil {
		return "", err
	}
	return final, nil
}

// planScenes produces the scene list, either from the prompt override
// or from transcription plus the scene planner.
func (p *Pipeline) planScenes(ctx context.Context, job *jobs.GenerationJob, status jobs.StatusSink, duration float64) ([]plan.SceneDescriptor, error) {
	req := job.Request

	if strings.TrimSpace(req.PromptOverride) != "" {
		return plan.SingleScene(req.PromptOverride, duration), nil
	}

	status.SetStatus(job.ID, jobs.StageTranscribing, progressTranscribing, "Transcribing narration")
	transcript, err := p.transcriber.Transcribe(ctx, req.AudioPath)
	if err != nil {
		return nil, err
	}

	status.SetStatus(job.ID, jobs.StagePlanning, progressPlanning, "Planning scenes")

	var shots *plan.ShotList
	if len(req.CustomShots) > 0 {
		shots, err = plan.ParseShotList(req.CustomShots, plan.ShotFormat(req.CustomShotsFormat))
		if err != nil {
			return nil, err
		}
	}

	return p.planner.Plan(ctx, transcript, plan.Request{
		Style:         req.Style,
		Density:       plan.Density(req.ShotDensity),
		Consistency:   req.Consistency,
		CameraMotion:  req.CameraMotion,
		TotalDuration: duration,
		Shots:         shots,
	})
}

func (p *Pipeline) generateClips(
	ctx context.Context,
	job *jobs.GenerationJob,
	status jobs.StatusSink,
	scenes []plan.SceneDescriptor,
	settings videogen.Settings,
	jobDir string,
) ([]string, error) {
	total := len(scenes)
	status.SetStatus(job.ID, jobs.StageGeneratingClips, progressGenerating,
		fmt.Sprintf("Generating %d clips", total))

	clipPaths := make([]string, total)
	var done atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.clipWorkers)
	for i, scene := range scenes {
		g.Go(func() error {
			out := filepath.Join(jobDir, fmt.Sprintf("clip_%03d.mp4", i))
			if _, err := p.generator.Generate(gctx, scene, i, settings, out); err != nil {
				return err
			}
			clipPaths[i] = out

			n := done.Add(1)
			progress := progressGenerating + int(float64(n)/float64(total)*generatingSpan)
			status.SetStatus(job.ID, jobs.StageGeneratingClips, progress,
				fmt.Sprintf("Generated clip %d/%d", n, total))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return clipPaths, nil
}

// settingsFor merges the request with server defaults and folds the
// style preset and free-form notes into one prompt prefix.
func (p *Pipeline) settingsFor(req jobs.GenerationRequest) videogen.Settings {
	s := p.defaults
	if req.Model != "" {
		s.Model = req.Model
	}
	if req.Resolution != "" {
		s.Resolution = req.Resolution
	}
	if req.FPS > 0 {
		s.FPS = req.FPS
	}

	notes := strings.TrimSpace(req.Style)
	if extra := strings.TrimSpace(req.StyleNotes); extra != "" {
		if notes != "" {
			notes += ", " + extra
		} else {
			notes = extra
		}
	}
	s.StyleNotes = notes
	s.AnimationDirection = strings.TrimSpace(req.CameraMotion)
	return s
}

package pipeline

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forge-media/forge/internal/jobs"
	"github.com/forge-media/forge/internal/plan"
	"github.com/forge-media/forge/internal/transcribe"
	"github.com/forge-media/forge/internal/videogen"
)

type stubProbe struct {
	duration float64
	err      error
}

func (s stubProbe) Duration(string) (float64, error) {
	return s.duration, s.err
}

type stubTranscriber struct {
	transcript *transcribe.Transcript
	err        error
	called     bool
}

func (s *stubTranscriber) Transcribe(context.Context, string) (*transcribe.Transcript, error) {
	s.called = true
	return s.transcript, s.err
}

type stubPlanner struct {
	scenes []plan.SceneDescriptor
	err    error
	gotReq plan.Request
	called bool
}

func (s *stubPlanner) Plan(_ context.Context, _ *transcribe.Transcript, req plan.Request) ([]plan.SceneDescriptor, error) {
	s.called = true
	s.gotReq = req
	return s.scenes, s.err
}

type generateCall struct {
	sceneIndex int
	scene      plan.SceneDescriptor
	settings   videogen.Settings
	outPath    string
}

type stubGenerator struct {
	mu    sync.Mutex
	calls []generateCall
	// delays lets a test finish clips out of submission order.
	delays map[int]time.Duration
	failAt int
}

func newStubGenerator() *stubGenerator {
	return &stubGenerator{failAt: -1}
}

func (s *stubGenerator) Generate(_ context.Context, scene plan.SceneDescriptor, sceneIndex int, settings videogen.Settings, outPath string) (*videogen.Clip, error) {
	if d, ok := s.delays[sceneIndex]; ok {
		time.Sleep(d)
	}
	s.mu.Lock()
	s.calls = append(s.calls, generateCall{sceneIndex, scene, settings, outPath})
	s.mu.Unlock()
	if sceneIndex == s.failAt {
		return nil, &videogen.GenerationError{SceneIndex: sceneIndex, Message: "provider rejected request"}
	}
	return &videogen.Clip{SceneIndex: sceneIndex, Path: outPath, Duration: scene.Duration}, nil
}

type stubAssembler struct {
	mu          sync.Mutex
	concatIn    []string
	concatOut   string
	mergeVideo  string
	mergeAudio  string
	mergeOut    string
	concatErr   error
	concatCalls int
}

func (s *stubAssembler) Concatenate(_ context.Context, clipPaths []string, out string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.concatCalls++
	s.concatIn = append([]string(nil), clipPaths...)
	s.concatOut = out
	return s.concatErr
}

func (s *stubAssembler) MergeAudio(_ context.Context, videoPath, audioPath, out string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mergeVideo = videoPath
	s.mergeAudio = audioPath
	s.mergeOut = out
	return nil
}

type statusUpdate struct {
	stage    jobs.Stage
	progress int
	message  string
}

type statusRecorder struct {
	mu      sync.Mutex
	updates []statusUpdate
}

func (r *statusRecorder) SetStatus(_ string, stage jobs.Stage, progress int, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.updates = append(r.updates, statusUpdate{stage, progress, message})
}

func (r *statusRecorder) snapshot() []statusUpdate {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]statusUpdate(nil), r.updates...)
}

func threeScenes() []plan.SceneDescriptor {
	return []plan.SceneDescriptor{
		{Prompt: "Harbor at dawn", Duration: 10},
		{Prompt: "Fishing boats leaving", Duration: 8},
		{Prompt: "Gulls over open water", Duration: 12},
	}
}

func newTestPipeline(t *testing.T, gen *stubGenerator, asm *stubAssembler, planner *stubPlanner, tr *stubTranscriber) (*Pipeline, string) {
	t.Helper()
	workDir := t.TempDir()
	p := New(
		stubProbe{duration: 30},
		tr,
		planner,
		gen,
		asm,
		workDir,
		2,
		videogen.Settings{Model: "ltx-2-fast", Resolution: "1920x1080", FPS: 25},
	)
	return p, workDir
}

func TestPipeline_Execute_HappyPath(t *testing.T) {
	gen := newStubGenerator()
	asm := &stubAssembler{}
	planner := &stubPlanner{scenes: threeScenes()}
	tr := &stubTranscriber{transcript: &transcribe.Transcript{Text: "a calm morning at the harbor"}}
	p, workDir := newTestPipeline(t, gen, asm, planner, tr)

	job := &jobs.GenerationJob{
		ID:      "a1b2c3d4",
		Request: jobs.GenerationRequest{AudioPath: "/tmp/voice.mp3", Style: "cinematic"},
	}
	rec := &statusRecorder{}

	final, err := p.Execute(context.Background(), job, rec)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(workDir, "a1b2c3d4_final.mp4"), final)

	jobDir := filepath.Join(workDir, "a1b2c3d4")
	require.Len(t, asm.concatIn, 3)
	assert.Equal(t, filepath.Join(jobDir, "clip_000.mp4"), asm.concatIn[0])
	assert.Equal(t, filepath.Join(jobDir, "clip_001.mp4"), asm.concatIn[1])
	assert.Equal(t, filepath.Join(jobDir, "clip_002.mp4"), asm.concatIn[2])
	assert.Equal(t, filepath.Join(jobDir, "combined.mp4"), asm.concatOut)
	assert.Equal(t, asm.concatOut, asm.mergeVideo)
	assert.Equal(t, "/tmp/voice.mp3", asm.mergeAudio)
	assert.Equal(t, final, asm.mergeOut)
	assert.NoDirExists(t, jobDir)
}

func TestPipeline_Execute_ProgressMapping(t *testing.T) {
	gen := newStubGenerator()
	asm := &stubAssembler{}
	planner := &stubPlanner{scenes: threeScenes()}
	tr := &stubTranscriber{transcript: &transcribe.Transcript{Text: "narration"}}
	// A single clip worker keeps the recorded update order deterministic.
	p := New(stubProbe{duration: 30}, tr, planner, gen, asm, t.TempDir(), 1,
		videogen.Settings{Model: "ltx-2-fast", Resolution: "1920x1080", FPS: 25})

	rec := &statusRecorder{}
	_, err := p.Execute(context.Background(), &jobs.GenerationJob{
		ID:      "a1b2c3d4",
		Request: jobs.GenerationRequest{AudioPath: "/tmp/voice.mp3"},
	}, rec)
	require.NoError(t, err)

	updates := rec.snapshot()
	var progresses []int
	var stages []jobs.Stage
	for _, u := range updates {
		progresses = append(progresses, u.progress)
		stages = append(stages, u.stage)
	}

	assert.Equal(t, jobs.StageProbing, stages[0])
	assert.Equal(t, 0, progresses[0])
	assert.Contains(t, stages, jobs.StageTranscribing)
	assert.Contains(t, stages, jobs.StagePlanning)

	last := updates[len(updates)-1]
	assert.Equal(t, jobs.StageAssembling, last.stage)
	assert.Equal(t, 95, last.progress)
	// The three clip completions land on the 30..80 ramp.
	assert.Contains(t, progresses, 80)

	for i := 1; i < len(progresses); i++ {
		assert.GreaterOrEqual(t, progresses[i], progresses[i-1])
	}
}

func TestPipeline_Execute_OutOfOrderClipsKeepSceneOrder(t *testing.T) {
	gen := newStubGenerator()
	gen.delays = map[int]time.Duration{0: 50 * time.Millisecond, 1: 20 * time.Millisecond}
	asm := &stubAssembler{}
	planner := &stubPlanner{scenes: threeScenes()}
	tr := &stubTranscriber{transcript: &transcribe.Transcript{Text: "narration"}}
	p, workDir := newTestPipeline(t, gen, asm, planner, tr)

	_, err := p.Execute(context.Background(), &jobs.GenerationJob{
		ID:      "a1b2c3d4",
		Request: jobs.GenerationRequest{AudioPath: "/tmp/voice.mp3"},
	}, &statusRecorder{})
	require.NoError(t, err)

	jobDir := filepath.Join(workDir, "a1b2c3d4")
	assert.Equal(t, []string{
		filepath.Join(jobDir, "clip_000.mp4"),
		filepath.Join(jobDir, "clip_001.mp4"),
		filepath.Join(jobDir, "clip_002.mp4"),
	}, asm.concatIn)
}

func TestPipeline_Execute_ClipFailureSkipsAssembly(t *testing.T) {
	gen := newStubGenerator()
	gen.failAt = 1
	asm := &stubAssembler{}
	planner := &stubPlanner{scenes: threeScenes()}
	tr := &stubTranscriber{transcript: &transcribe.Transcript{Text: "narration"}}
	p, workDir := newTestPipeline(t, gen, asm, planner, tr)

	rec := &statusRecorder{}
	_, err := p.Execute(context.Background(), &jobs.GenerationJob{
		ID:      "a1b2c3d4",
		Request: jobs.GenerationRequest{AudioPath: "/tmp/voice.mp3"},
	}, rec)

	var genErr *videogen.GenerationError
	require.ErrorAs(t, err, &genErr)
	assert.Equal(t, 1, genErr.SceneIndex)
	assert.Zero(t, asm.concatCalls)
	for _, u := range rec.snapshot() {
		assert.NotEqual(t, jobs.StageAssembling, u.stage)
	}
	assert.NoDirExists(t, filepath.Join(workDir, "a1b2c3d4"))
}

func TestPipeline_Execute_PromptOverrideSkipsTranscription(t *testing.T) {
	gen := newStubGenerator()
	asm := &stubAssembler{}
	planner := &stubPlanner{}
	tr := &stubTranscriber{}
	p, _ := newTestPipeline(t, gen, asm, planner, tr)

	_, err := p.Execute(context.Background(), &jobs.GenerationJob{
		ID: "a1b2c3d4",
		Request: jobs.GenerationRequest{
			AudioPath:      "/tmp/voice.mp3",
			PromptOverride: "A single continuous drone shot over a glacier",
		},
	}, &statusRecorder{})
	require.NoError(t, err)

	assert.False(t, tr.called)
	assert.False(t, planner.called)
	// 30s of audio becomes scenes straight from the override prompt.
	require.NotEmpty(t, gen.calls)
	assert.Equal(t, "A single continuous drone shot over a glacier", gen.calls[0].scene.Prompt)
}

func TestPipeline_Execute_ProbeFailureStopsEarly(t *testing.T) {
	planner := &stubPlanner{}
	tr := &stubTranscriber{}
	workDir := t.TempDir()
	p := New(stubProbe{err: assert.AnError}, tr, planner, newStubGenerator(), &stubAssembler{},
		workDir, 2, videogen.Settings{})

	_, err := p.Execute(context.Background(), &jobs.GenerationJob{
		ID:      "a1b2c3d4",
		Request: jobs.GenerationRequest{AudioPath: "/tmp/voice.mp3"},
	}, &statusRecorder{})

	require.Error(t, err)
	assert.False(t, tr.called)
}

func TestPipeline_Execute_CustomShotsReachPlanner(t *testing.T) {
	gen := newStubGenerator()
	planner := &stubPlanner{scenes: threeScenes()}
	tr := &stubTranscriber{transcript: &transcribe.Transcript{Text: "narration"}}
	p, _ := newTestPipeline(t, gen, &stubAssembler{}, planner, tr)

	shots := []byte(`{"format":"freeform","shots":[{"description":"Close-up of hands"}]}`)
	_, err := p.Execute(context.Background(), &jobs.GenerationJob{
		ID: "a1b2c3d4",
		Request: jobs.GenerationRequest{
			AudioPath:   "/tmp/voice.mp3",
			CustomShots: shots,
			ShotDensity: "dense",
			Consistency: 80,
		},
	}, &statusRecorder{})
	require.NoError(t, err)

	require.NotNil(t, planner.gotReq.Shots)
	require.Len(t, planner.gotReq.Shots.Shots, 1)
	assert.Equal(t, "Close-up of hands", planner.gotReq.Shots.Shots[0].Description)
	assert.Equal(t, plan.DensityDense, planner.gotReq.Density)
	assert.Equal(t, 80, planner.gotReq.Consistency)
	assert.Equal(t, float64(30), planner.gotReq.TotalDuration)
}

func TestPipeline_Execute_ReferenceImagesCycleOverScenes(t *testing.T) {
	gen := newStubGenerator()
	planner := &stubPlanner{scenes: threeScenes()}
	tr := &stubTranscriber{transcript: &transcribe.Transcript{Text: "narration"}}
	p, _ := newTestPipeline(t, gen, &stubAssembler{}, planner, tr)

	_, err := p.Execute(context.Background(), &jobs.GenerationJob{
		ID: "a1b2c3d4",
		Request: jobs.GenerationRequest{
			AudioPath:       "/tmp/voice.mp3",
			ReferenceImages: []string{"/tmp/a.png", "/tmp/b.png"},
			ImageAssignMode: "cycle",
		},
	}, &statusRecorder{})
	require.NoError(t, err)

	byIndex := make(map[int]string, len(gen.calls))
	for _, call := range gen.calls {
		byIndex[call.sceneIndex] = call.scene.ImagePath
	}
	assert.Equal(t, "/tmp/a.png", byIndex[0])
	assert.Equal(t, "/tmp/b.png", byIndex[1])
	assert.Equal(t, "/tmp/a.png", byIndex[2])
}

func TestPipeline_SettingsFor_MergesDefaultsAndStyle(t *testing.T) {
	p := New(stubProbe{}, &stubTranscriber{}, &stubPlanner{}, newStubGenerator(), &stubAssembler{},
		t.TempDir(), 2, videogen.Settings{Model: "ltx-2-fast", Resolution: "1920x1080", FPS: 25})

	s := p.settingsFor(jobs.GenerationRequest{
		Model:        "ltx-2-pro",
		Style:        "cinematic stock footage",
		StyleNotes:   "warm colors",
		CameraMotion: "slow push-in",
	})
	assert.Equal(t, "ltx-2-pro", s.Model)
	assert.Equal(t, "1920x1080", s.Resolution)
	assert.Equal(t, 25, s.FPS)
	assert.Equal(t, "cinematic stock footage, warm colors", s.StyleNotes)
	assert.Equal(t, "slow push-in", s.AnimationDirection)

	s = p.settingsFor(jobs.GenerationRequest{StyleNotes: "grainy"})
	assert.Equal(t, "ltx-2-fast", s.Model)
	assert.Equal(t, "grainy", s.StyleNotes)
}

func TestPipeline_Execute_NeverDeletesSourceAudio(t *testing.T) {
	gen := newStubGenerator()
	planner := &stubPlanner{scenes: threeScenes()}
	tr := &stubTranscriber{transcript: &transcribe.Transcript{Text: "narration"}}
	p, workDir := newTestPipeline(t, gen, &stubAssembler{}, planner, tr)

	audio := filepath.Join(workDir, "a1b2c3d4_audio.mp3")
	require.NoError(t, os.WriteFile(audio, []byte("mp3"), 0o644))

	_, err := p.Execute(context.Background(), &jobs.GenerationJob{
		ID:      "a1b2c3d4",
		Request: jobs.GenerationRequest{AudioPath: audio},
	}, &statusRecorder{})
	require.NoError(t, err)
	assert.FileExists(t, audio)
}

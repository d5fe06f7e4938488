package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"prompt2video/config"
	"prompt2video/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScript struct {
	n    int
	err  error
	runs int
}

func (s *stubScript) Run(ctx context.Context, prompt string, opts types.Options) ([]types.Scene, error) {
	s.runs++
	if s.err != nil {
		return nil, s.err
	}
	n := s.n
	if n == 0 {
		n = opts.SceneCount
	}
	scenes := make([]types.Scene, n)
	for i := range scenes {
		scenes[i] = types.Scene{
			Index:       i,
			Narration:   fmt.Sprintf("beat %d of %s", i, prompt),
			ImagePrompt: "img",
			DurationSec: 5,
			Effect:      types.EffectKenBurns,
		}
	}
	return scenes, nil
}

type stubImages struct {
	warnings []string
	err      error
	runs     int
}

func (s *stubImages) Run(ctx context.Context, scenes []types.Scene, dir string) ([]string, error) {
	s.runs++
	for i := range scenes {
		scenes[i].ImageFile = filepath.Join(dir, fmt.Sprintf("scene_%03d.jpg", i))
	}
	return s.warnings, s.err
}

type stubVoice struct {
	warnings []string
	err      error
	runs     int
}

func (s *stubVoice) Run(ctx context.Context, scenes []types.Scene, dir string) (string, []string, error) {
	s.runs++
	if s.err != nil {
		return "", s.warnings, s.err
	}
	return filepath.Join(dir, "combined.mp3"), s.warnings, nil
}

type stubVideo struct {
	err  error
	runs int
}

func (s *stubVideo) Run(ctx context.Context, scenes []types.Scene, audioPath, dir string) (string, error) {
	s.runs++
	if s.err != nil {
		return "", s.err
	}
	return filepath.Join(dir, "final.mp4"), nil
}

func testRunner(t *testing.T) (*Runner, *stubScript, *stubImages, *stubVoice, *stubVideo) {
	t.Helper()
	cfg := config.Default()
	cfg.Paths.Output = t.TempDir()
	sc := &stubScript{}
	im := &stubImages{}
	vo := &stubVoice{}
	vi := &stubVideo{}
	return NewWithStages(cfg, sc, im, vo, vi), sc, im, vo, vi
}

func TestRunHappyPath(t *testing.T) {
	r, sc, im, vo, vi := testRunner(t)

	project, err := r.Run(context.Background(), "a story", types.Options{SceneCount: 3})
	require.NoError(t, err)

	assert.Equal(t, types.StateDone, project.State)
	assert.Len(t, project.Scenes, 3)
	assert.NotEmpty(t, project.ID)
	assert.NotEmpty(t, project.VideoFile)
	assert.NotEmpty(t, project.CombinedAudio)
	assert.NotEmpty(t, project.CompletedAt)
	assert.Equal(t, 1, sc.runs)
	assert.Equal(t, 1, im.runs)
	assert.Equal(t, 1, vo.runs)
	assert.Equal(t, 1, vi.runs)
}

func TestRunPersistsProjectAndScript(t *testing.T) {
	r, _, _, _, _ := testRunner(t)

	project, err := r.Run(context.Background(), "a story", types.Options{SceneCount: 2})
	require.NoError(t, err)

	dir := filepath.Join(r.cfg.Paths.Output, project.ID)
	loaded, err := LoadProject(dir)
	require.NoError(t, err)
	assert.Equal(t, project.ID, loaded.ID)
	assert.Equal(t, types.StateDone, loaded.State)
	assert.Len(t, loaded.Scenes, 2)
	assert.Equal(t, project.Scenes[1].Narration, loaded.Scenes[1].Narration)

	_, err = os.Stat(filepath.Join(dir, "script.json"))
	assert.NoError(t, err)
}

func TestRunScriptFailureIsFatal(t *testing.T) {
	r, sc, im, _, _ := testRunner(t)
	sc.err = fmt.Errorf("no scenes today")

	project, err := r.Run(context.Background(), "a story", types.Options{})
	require.Error(t, err)
	assert.Equal(t, types.StateFailed, project.State)
	assert.Contains(t, project.Error, "no scenes today")
	assert.Equal(t, 0, im.runs, "later stages never run after a fatal failure")

	// The failed state is persisted for inspection.
	loaded, err := LoadProject(filepath.Join(r.cfg.Paths.Output, project.ID))
	require.NoError(t, err)
	assert.Equal(t, types.StateFailed, loaded.State)
}

func TestRunVoiceFailureIsFatal(t *testing.T) {
	r, _, _, vo, vi := testRunner(t)
	vo.err = fmt.Errorf("ffmpeg missing")

	project, err := r.Run(context.Background(), "a story", types.Options{})
	require.Error(t, err)
	assert.Equal(t, types.StateFailed, project.State)
	assert.Equal(t, 0, vi.runs)
}

func TestRunCollectsStageWarnings(t *testing.T) {
	r, _, im, vo, _ := testRunner(t)
	im.warnings = []string{"scene 1: placeholder"}
	vo.warnings = []string{"scene 2: silence"}

	project, err := r.Run(context.Background(), "a story", types.Options{})
	require.NoError(t, err)
	assert.Equal(t, types.StateDone, project.State, "partial success still completes")
	assert.Equal(t, []string{"scene 1: placeholder", "scene 2: silence"}, project.Warnings)
}

func TestRunCancelledBeforeStart(t *testing.T) {
	r, sc, _, _, _ := testRunner(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	project, err := r.Run(ctx, "a story", types.Options{})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, types.StateFailed, project.State)
	assert.Equal(t, 0, sc.runs)
}

func TestRunEffectOverride(t *testing.T) {
	r, _, _, _, _ := testRunner(t)

	project, err := r.Run(context.Background(), "a story", types.Options{
		SceneCount: 3,
		Effects:    []string{types.EffectZoomIn, types.EffectPanLeft},
	})
	require.NoError(t, err)
	assert.Equal(t, types.EffectZoomIn, project.Scenes[0].Effect)
	assert.Equal(t, types.EffectPanLeft, project.Scenes[1].Effect)
	assert.Equal(t, types.EffectZoomIn, project.Scenes[2].Effect, "override cycles")
}

func TestRunBuildsStagesFromOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.Output = t.TempDir()

	var got types.Options
	r := &Runner{cfg: cfg}
	r.build = func(opts types.Options) stageSet {
		got = opts
		return stageSet{script: &stubScript{}, images: &stubImages{}, voice: &stubVoice{}, video: &stubVideo{}}
	}

	_, err := r.Run(context.Background(), "a story", types.Options{
		Voice: "en-GB-RyanNeural",
		FPS:   30,
	})
	require.NoError(t, err)

	assert.Equal(t, "en-GB-RyanNeural", got.Voice, "per-run voice reaches the stage builder")
	assert.Equal(t, 30, got.FPS)
	assert.Equal(t, cfg.Video.Width, got.Width, "unset fields fall back to config")
	assert.Equal(t, cfg.Video.Height, got.Height)
	assert.Equal(t, cfg.Video.CrossfadeSec, got.CrossfadeSec)
}

func TestRunDefaultSceneCount(t *testing.T) {
	r, _, _, _, _ := testRunner(t)

	project, err := r.Run(context.Background(), "a story", types.Options{})
	require.NoError(t, err)
	assert.Len(t, project.Scenes, 3)
	assert.Equal(t, types.StyleCinematic, project.Style)
}

func TestResumeSkipsEarlierStages(t *testing.T) {
	r, sc, im, vo, vi := testRunner(t)

	project, err := r.Run(context.Background(), "a story", types.Options{SceneCount: 2})
	require.NoError(t, err)
	dir := filepath.Join(r.cfg.Paths.Output, project.ID)

	resumed, err := r.Resume(context.Background(), dir, types.StateImagesReady)
	require.NoError(t, err)
	assert.Equal(t, types.StateDone, resumed.State)
	assert.Equal(t, 1, sc.runs, "script not re-run")
	assert.Equal(t, 1, im.runs, "images not re-run")
	assert.Equal(t, 2, vo.runs)
	assert.Equal(t, 2, vi.runs)
	assert.Len(t, resumed.Scenes, 2, "scenes reloaded from disk")
}

func TestResumeFromAudioReady(t *testing.T) {
	r, sc, im, vo, vi := testRunner(t)

	project, err := r.Run(context.Background(), "a story", types.Options{SceneCount: 2})
	require.NoError(t, err)
	dir := filepath.Join(r.cfg.Paths.Output, project.ID)

	_, err = r.Resume(context.Background(), dir, types.StateAudioReady)
	require.NoError(t, err)
	assert.Equal(t, 1, sc.runs)
	assert.Equal(t, 1, im.runs)
	assert.Equal(t, 1, vo.runs)
	assert.Equal(t, 2, vi.runs, "only the video stage re-runs")
}

func TestResumeUnknownState(t *testing.T) {
	r, _, _, _, _ := testRunner(t)

	project, err := r.Run(context.Background(), "a story", types.Options{})
	require.NoError(t, err)
	dir := filepath.Join(r.cfg.Paths.Output, project.ID)

	_, err = r.Resume(context.Background(), dir, "halfway")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot resume")
}

func TestResumeMissingProject(t *testing.T) {
	r, _, _, _, _ := testRunner(t)
	_, err := r.Resume(context.Background(), filepath.Join(t.TempDir(), "nope"), types.StateImagesReady)
	assert.Error(t, err)
}

func TestLoadProjectRoundTrip(t *testing.T) {
	dir := t.TempDir()
	p := &types.Project{
		ID:     "abc123",
		Prompt: "round trip",
		State:  types.StateAudioReady,
		Scenes: []types.Scene{{Index: 0, Narration: "beat", DurationSec: 5}},
	}
	saveProject(p, dir)

	loaded, err := LoadProject(dir)
	require.NoError(t, err)
	assert.Equal(t, p.ID, loaded.ID)
	assert.Equal(t, p.State, loaded.State)
	require.Len(t, loaded.Scenes, 1)
	assert.Equal(t, "beat", loaded.Scenes[0].Narration)
}

// Package pipeline sequences the four generation stages (script, images,
// voice, video), persisting the project at every state transition so any
// later stage can be re-run against artifacts already on disk without
// repeating earlier provider calls.
package pipeline

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"prompt2video/config"
	"prompt2video/images"
	"prompt2video/provider"
	"prompt2video/script"
	"prompt2video/types"
	"prompt2video/video"
	"prompt2video/voice"

	"github.com/google/uuid"
)

// Stage interfaces are narrow on purpose: the coordinator only sequences and
// persists, so tests can drive it with stubs.
type ScriptStage interface {
	Run(ctx context.Context, prompt string, opts types.Options) ([]types.Scene, error)
}

type ImageStage interface {
	Run(ctx context.Context, scenes []types.Scene, dir string) ([]string, error)
}

type VoiceStage interface {
	Run(ctx context.Context, scenes []types.Scene, dir string) (string, []string, error)
}

type VideoStage interface {
	Run(ctx context.Context, scenes []types.Scene, audioPath, dir string) (string, error)
}

// stageSet is the per-run set of stage implementations.
type stageSet struct {
	script ScriptStage
	images ImageStage
	voice  VoiceStage
	video  VideoStage
}

// Runner owns one project at a time for the duration of a run.
type Runner struct {
	cfg   *config.Config
	build func(types.Options) stageSet
}

// New wires the real stages from config. Stages are built per run so the
// run's options (voice, geometry, fps, crossfade) take effect without
// mutating shared config.
func New(cfg *config.Config) *Runner {
	return &Runner{
		cfg: cfg,
		build: func(opts types.Options) stageSet {
			return stageSet{
				script: script.New(provider.TextChain(cfg)),
				images: images.New(provider.ImageChain(cfg), cfg.Image.Width, cfg.Image.Height, cfg.Image.Workers),
				voice:  voice.New(provider.SpeechChain(cfg), opts.Voice, cfg.Voice.Workers, cfg.Video.SceneDurationSec),
				video: video.New(video.Params{
					FPS:          opts.FPS,
					Width:        opts.Width,
					Height:       opts.Height,
					CrossfadeSec: opts.CrossfadeSec,
					ZoomMax:      cfg.Video.KenBurnsZoomFactor,
					DefaultDur:   cfg.Video.SceneDurationSec,
					Motion:       provider.MotionChain(cfg),
				}),
			}
		},
	}
}

// NewWithStages wires explicit stage implementations. Used by tests and by
// callers that substitute a stage.
func NewWithStages(cfg *config.Config, sc ScriptStage, im ImageStage, vo VoiceStage, vi VideoStage) *Runner {
	fixed := stageSet{script: sc, images: im, voice: vo, video: vi}
	return &Runner{cfg: cfg, build: func(types.Options) stageSet { return fixed }}
}

// Run executes the full pipeline for one prompt and returns the completed
// project. The project directory and its artifacts survive failures for
// inspection and resuming.
func (r *Runner) Run(ctx context.Context, prompt string, opts types.Options) (*types.Project, error) {
	opts = r.fillOptions(opts)
	st := r.build(opts)

	id := uuid.NewString()[:8]
	dir := filepath.Join(r.cfg.Paths.Output, id)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, types.Fatal("init", err)
	}

	project := &types.Project{
		ID:        id,
		Prompt:    prompt,
		Style:     opts.Style,
		State:     types.StateIdle,
		CreatedAt: types.Timestamp(),
	}
	saveProject(project, dir)

	log.Printf("[pipeline] run %s starting: %q (%d scenes, style %s)", id, prompt, opts.SceneCount, opts.Style)

	if err := r.runFromScript(ctx, st, project, dir, prompt, opts); err != nil {
		return project, r.fail(project, dir, err)
	}

	project.State = types.StateDone
	project.CompletedAt = types.Timestamp()
	saveProject(project, dir)
	log.Printf("[pipeline] run %s done: %s", id, project.VideoFile)
	return project, nil
}

// Resume re-runs the pipeline for an existing project directory starting at
// the given state's stage, reusing every artifact persisted before it.
func (r *Runner) Resume(ctx context.Context, dir, from string) (*types.Project, error) {
	project, err := LoadProject(dir)
	if err != nil {
		return nil, err
	}
	opts := r.fillOptions(types.Options{Style: project.Style, SceneCount: len(project.Scenes)})
	st := r.build(opts)

	log.Printf("[pipeline] resuming %s from %s", project.ID, from)

	switch from {
	case types.StateScriptReady:
		err = r.runFromImages(ctx, st, project, dir)
	case types.StateImagesReady:
		err = r.runFromVoice(ctx, st, project, dir)
	case types.StateAudioReady:
		err = r.runFromVideo(ctx, st, project, dir)
	case types.StateIdle, "":
		err = r.runFromScript(ctx, st, project, dir, project.Prompt, opts)
	default:
		return project, fmt.Errorf("cannot resume from state %q", from)
	}
	if err != nil {
		return project, r.fail(project, dir, err)
	}

	project.State = types.StateDone
	project.CompletedAt = types.Timestamp()
	saveProject(project, dir)
	return project, nil
}

func (r *Runner) runFromScript(ctx context.Context, st stageSet, project *types.Project, dir, prompt string, opts types.Options) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	scenes, err := st.script.Run(ctx, prompt, opts)
	if err != nil {
		return types.Fatal("script", err)
	}
	if len(scenes) == 0 {
		return types.Fatal("script", fmt.Errorf("zero scenes produced"))
	}
	applyEffectOverride(scenes, opts.Effects)

	project.Scenes = scenes
	project.ScriptFile = filepath.Join(dir, "script.json")
	project.State = types.StateScriptReady
	saveProject(project, dir)

	return r.runFromImages(ctx, st, project, dir)
}

func (r *Runner) runFromImages(ctx context.Context, st stageSet, project *types.Project, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	warnings, err := st.images.Run(ctx, project.Scenes, filepath.Join(dir, "images"))
	for _, w := range warnings {
		project.Warn(w)
	}
	if err != nil {
		return types.Fatal("images", err)
	}

	project.State = types.StateImagesReady
	saveProject(project, dir)

	return r.runFromVoice(ctx, st, project, dir)
}

func (r *Runner) runFromVoice(ctx context.Context, st stageSet, project *types.Project, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	combined, warnings, err := st.voice.Run(ctx, project.Scenes, filepath.Join(dir, "audio"))
	for _, w := range warnings {
		project.Warn(w)
	}
	if err != nil {
		return err
	}

	project.CombinedAudio = combined
	project.State = types.StateAudioReady
	saveProject(project, dir)

	return r.runFromVideo(ctx, st, project, dir)
}

func (r *Runner) runFromVideo(ctx context.Context, st stageSet, project *types.Project, dir string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	videoFile, err := st.video.Run(ctx, project.Scenes, project.CombinedAudio, filepath.Join(dir, "video"))
	if err != nil {
		return err
	}

	project.VideoFile = videoFile
	project.State = types.StateVideoReady
	saveProject(project, dir)
	return nil
}

// fail records the terminal failure, keeping prior artifacts on disk.
func (r *Runner) fail(project *types.Project, dir string, err error) error {
	if err == context.Canceled || err == context.DeadlineExceeded {
		log.Printf("[pipeline] run %s canceled", project.ID)
	} else {
		log.Printf("[pipeline] run %s failed: %v", project.ID, err)
	}
	project.State = types.StateFailed
	project.Error = err.Error()
	saveProject(project, dir)
	return err
}

func (r *Runner) fillOptions(opts types.Options) types.Options {
	if opts.SceneCount == 0 {
		opts.SceneCount = 3
	}
	if opts.Style == "" {
		opts.Style = types.StyleCinematic
	}
	if opts.Width == 0 {
		opts.Width = r.cfg.Video.Width
	}
	if opts.Height == 0 {
		opts.Height = r.cfg.Video.Height
	}
	if opts.FPS == 0 {
		opts.FPS = r.cfg.Video.FPS
	}
	if opts.CrossfadeSec == 0 {
		opts.CrossfadeSec = r.cfg.Video.CrossfadeSec
	}
	if opts.Voice == "" {
		opts.Voice = r.cfg.Voice.Voice
	}
	return opts
}

// applyEffectOverride replaces script-chosen effects with a caller-supplied
// sequence, cycling when shorter than the scene list.
func applyEffectOverride(scenes []types.Scene, effects []string) {
	if len(effects) == 0 {
		return
	}
	for i := range scenes {
		e := effects[i%len(effects)]
		if types.ValidEffect(e) {
			scenes[i].Effect = e
		}
	}
}

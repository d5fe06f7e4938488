// Package video assembles the final clip: each scene's image becomes a
// fixed-duration clip, animated by a motion provider when one is configured
// and by a local effect filter otherwise; clips are joined in index order
// (optionally crossfaded), and the combined narration track is muxed in,
// padded or truncated to the video length. All encoding goes through ffmpeg.
package video

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"prompt2video/provider"
	"prompt2video/types"
)

// Params configure the video stage for one run.
type Params struct {
	FPS          int
	Width        int
	Height       int
	CrossfadeSec float64
	ZoomMax      float64
	// DefaultDur is used for scenes without a duration of their own.
	DefaultDur float64
	// Motion, when non-empty, animates stills through an image-to-video
	// provider before falling back to the local effect render.
	Motion *provider.Chain
}

// Stage renders and assembles the final video.
type Stage struct {
	fps          int
	width        int
	height       int
	crossfadeSec float64
	zoomMax      float64
	defaultDur   float64
	motion       *provider.Chain
}

// New creates the video stage.
func New(p Params) *Stage {
	if p.FPS <= 0 {
		p.FPS = 24
	}
	if p.DefaultDur <= 0 {
		p.DefaultDur = types.DefaultSceneDuration
	}
	return &Stage{
		fps:          p.FPS,
		width:        p.Width,
		height:       p.Height,
		crossfadeSec: p.CrossfadeSec,
		zoomMax:      p.ZoomMax,
		defaultDur:   p.DefaultDur,
		motion:       p.Motion,
	}
}

// Run renders every scene clip and produces final.mp4 in dir. audioPath may
// be empty, in which case the video is silent. Scene order and durations are
// taken from the slice as-is.
func (s *Stage) Run(ctx context.Context, scenes []types.Scene, audioPath, dir string) (string, error) {
	if len(scenes) == 0 {
		return "", types.Fatal("video", fmt.Errorf("zero scenes to render"))
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", types.Fatal("video", err)
	}

	clips := make([]string, len(scenes))
	durations := make([]float64, len(scenes))
	for i := range scenes {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		scene := &scenes[i]
		dur := scene.DurationSec
		if dur <= 0 {
			dur = s.defaultDur
		}
		durations[i] = dur

		img := scene.ImageFile
		if img == "" || !fileExists(img) {
			// Last-resort frame so one missing image doesn't sink the encode.
			img = filepath.Join(dir, fmt.Sprintf("blank_%03d.png", scene.Index))
			if err := writeBlackFrame(ctx, img, s.width, s.height); err != nil {
				return "", types.Fatal("video", fmt.Errorf("scene %d blank frame: %w", scene.Index, err))
			}
		}

		clip := filepath.Join(dir, fmt.Sprintf("clip_%03d.mp4", scene.Index))
		if err := s.renderScene(ctx, scene, img, clip, dur, dir); err != nil {
			return "", types.Fatal("video", fmt.Errorf("scene %d render: %w", scene.Index, err))
		}
		clips[i] = clip
	}

	silent := filepath.Join(dir, "video_silent.mp4")
	if s.crossfadeSec > 0 && len(clips) > 1 {
		if err := s.joinCrossfade(ctx, clips, durations, silent); err != nil {
			return "", types.Fatal("video", fmt.Errorf("crossfade join: %w", err))
		}
	} else {
		if err := s.joinConcat(ctx, clips, dir, silent); err != nil {
			return "", types.Fatal("video", fmt.Errorf("concat join: %w", err))
		}
	}

	final := filepath.Join(dir, "final.mp4")
	if audioPath != "" && fileExists(audioPath) {
		total := TotalDuration(durations, s.crossfadeSec)
		if err := s.mux(ctx, silent, audioPath, final, total); err != nil {
			return "", types.Fatal("video", fmt.Errorf("mux audio: %w", err))
		}
	} else {
		if err := os.Rename(silent, final); err != nil {
			return "", types.Fatal("video", err)
		}
	}

	log.Printf("[video] final video ready: %s", final)
	return final, nil
}

// renderScene produces one clip, preferring the motion provider chain and
// degrading to the local effect render when it fails.
func (s *Stage) renderScene(ctx context.Context, scene *types.Scene, img, clip string, dur float64, dir string) error {
	if s.motion != nil && s.motion.Len() > 0 {
		raw := filepath.Join(dir, fmt.Sprintf("motion_%03d.mp4", scene.Index))
		log.Printf("[video] scene %d: requesting motion clip...", scene.Index)
		_, err := s.motion.Generate(ctx, provider.Request{
			Prompt:      scene.ImagePrompt,
			ImageFile:   img,
			Width:       s.width,
			Height:      s.height,
			Seed:        scene.Index*42 + 7,
			DurationSec: dur,
			OutFile:     raw,
		})
		if err == nil {
			if err := s.normalizeClip(ctx, raw, clip, dur); err == nil {
				log.Printf("[video] scene %d: motion clip ready (%.1fs)", scene.Index, dur)
				return nil
			}
			log.Printf("[video] scene %d: could not normalize motion clip — using %s effect", scene.Index, scene.Effect)
		} else {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			log.Printf("[video] scene %d: motion generation failed: %v — using %s effect", scene.Index, err, scene.Effect)
		}
	}

	log.Printf("[video] scene %d: rendering %s clip (%.1fs)...", scene.Index, scene.Effect, dur)
	return s.renderClip(ctx, img, clip, scene.Effect, dur)
}

// renderClip turns one still image into a moving clip of the given duration.
func (s *Stage) renderClip(ctx context.Context, imgPath, outFile, effect string, durationSec float64) error {
	filter := EffectFilter(effect, s.width, s.height, s.fps, durationSec, s.zoomMax)

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-loop", "1",
		"-i", imgPath,
		"-vf", filter,
		"-t", fmt.Sprintf("%.3f", durationSec),
		"-r", fmt.Sprintf("%d", s.fps),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// normalizeClip re-encodes a provider-rendered clip to the output geometry,
// frame rate and exact duration so it concatenates cleanly with local clips.
func (s *Stage) normalizeClip(ctx context.Context, inFile, outFile string, durationSec float64) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", normalizeArgs(inFile, outFile, s.width, s.height, s.fps, durationSec)...)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func normalizeArgs(inFile, outFile string, width, height, fps int, durationSec float64) []string {
	return []string{"-y",
		"-i", inFile,
		"-vf", fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1,fps=%d", width, height, width, height, fps),
		"-t", fmt.Sprintf("%.3f", durationSec),
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	}
}

// joinConcat joins clips with hard cuts via the concat demuxer. All clips
// share codec and geometry, so stream copy is safe.
func (s *Stage) joinConcat(ctx context.Context, clips []string, dir, outFile string) error {
	listFile := filepath.Join(dir, "concat_list.txt")
	var lines []string
	for _, c := range clips {
		lines = append(lines, fmt.Sprintf("file '%s'", filepath.Base(c)))
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c", "copy",
		outFile,
	)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// joinCrossfade joins clips with a fixed-duration fade between each adjacent
// pair, re-encoding through a chained xfade graph.
func (s *Stage) joinCrossfade(ctx context.Context, clips []string, durations []float64, outFile string) error {
	offsets := XfadeOffsets(durations, s.crossfadeSec)

	args := []string{"-y"}
	for _, c := range clips {
		args = append(args, "-i", c)
	}
	args = append(args,
		"-filter_complex", xfadeFilter(len(clips), s.crossfadeSec, offsets),
		"-map", "[vout]",
		"-c:v", "libx264",
		"-preset", "fast",
		"-crf", "23",
		"-pix_fmt", "yuv420p",
		"-an",
		outFile,
	)

	cmd := exec.CommandContext(ctx, "ffmpeg", args...)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

// mux adds the narration track starting at t=0, padded with silence or
// truncated so the audio exactly spans the video duration.
func (s *Stage) mux(ctx context.Context, videoFile, audioFile, outFile string, totalSec float64) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-i", videoFile,
		"-i", audioFile,
		"-c:v", "copy",
		"-c:a", "aac",
		"-b:a", "192k",
		"-af", "apad",
		"-t", fmt.Sprintf("%.3f", totalSec),
		"-movflags", "+faststart",
		outFile,
	)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func writeBlackFrame(ctx context.Context, outFile string, width, height int) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-y",
		"-f", "lavfi",
		"-i", fmt.Sprintf("color=c=black:s=%dx%d:d=1", width, height),
		"-frames:v", "1",
		outFile,
	)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

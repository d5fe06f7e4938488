// Package voice is the voice-over stage: one narration clip per scene via the
// speech provider chain, silence substitution for failed scenes, and a single
// combined track concatenated in index order with hard cuts.
package voice

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"

	"prompt2video/provider"
	"prompt2video/types"
)

// Stage generates per-scene narration audio.
type Stage struct {
	chain      *provider.Chain
	voice      string
	workers    int
	defaultDur float64
}

// New creates the voice stage. workers bounds concurrent synthesis calls;
// values below 1 mean sequential. defaultDur is the silence length for scenes
// without a duration of their own.
func New(chain *provider.Chain, voice string, workers int, defaultDur float64) *Stage {
	if workers < 1 {
		workers = 1
	}
	if defaultDur <= 0 {
		defaultDur = types.DefaultSceneDuration
	}
	return &Stage{chain: chain, voice: voice, workers: workers, defaultDur: defaultDur}
}

// Run synthesizes one clip per scene, substitutes silence of the scene's
// target duration when every provider fails, measures real durations (which
// override the script's requested durations), and concatenates everything
// into a single track. Returns the combined track path and per-scene
// warnings.
func (s *Stage) Run(ctx context.Context, scenes []types.Scene, dir string) (string, []string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", nil, fmt.Errorf("create audio dir: %w", err)
	}

	log.Printf("[voice] synthesizing %d clips (workers: %d)...", len(scenes), s.workers)
	warnings, err := s.synthesizeAll(ctx, scenes, dir)
	if err != nil {
		return "", warnings, err
	}

	// Narration length wins over the script's suggested pacing: the image
	// shown at an index must stay up for as long as its narration plays.
	Retime(scenes)

	combined := filepath.Join(dir, "combined.mp3")
	if err := s.concat(ctx, scenes, dir, combined); err != nil {
		return "", warnings, types.Fatal("voice", fmt.Errorf("concatenate audio: %w", err))
	}

	log.Printf("[voice] combined track ready: %s (total %.1fs)", combined, SumDurations(scenes))
	return combined, warnings, nil
}

// synthesizeAll fills AudioFile and AudioDurationSec for every scene through
// a bounded worker pool. Scene order never depends on completion order: each
// worker writes only to its own scene by index.
func (s *Stage) synthesizeAll(ctx context.Context, scenes []types.Scene, dir string) ([]string, error) {
	jobs := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var warnings []string
	var firstErr error

	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				warn, err := s.synthesizeScene(ctx, &scenes[i], dir)
				mu.Lock()
				if warn != "" {
					warnings = append(warnings, warn)
				}
				if err != nil && firstErr == nil {
					firstErr = err
				}
				mu.Unlock()
			}
		}()
	}

	for i := range scenes {
		if ctx.Err() != nil {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if ctx.Err() != nil {
		return warnings, ctx.Err()
	}
	return warnings, firstErr
}

// synthesizeScene writes one scene's clip, substituting silence when the
// whole chain fails. Only a failure to even write silence is an error.
func (s *Stage) synthesizeScene(ctx context.Context, scene *types.Scene, dir string) (string, error) {
	outFile := filepath.Join(dir, fmt.Sprintf("scene_%03d.mp3", scene.Index))

	ok := false
	if s.chain != nil && s.chain.Len() > 0 {
		_, err := s.chain.Generate(ctx, provider.Request{
			Prompt:  scene.Narration,
			Voice:   s.voice,
			OutFile: outFile,
		})
		if err == nil {
			ok = true
		} else {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.Printf("[voice] scene %d: %v — substituting silence", scene.Index, err)
		}
	}

	warn := ""
	if !ok {
		dur := scene.DurationSec
		if dur <= 0 {
			dur = s.defaultDur
		}
		if err := writeSilence(ctx, outFile, dur); err != nil {
			return "", types.Fatal("voice", fmt.Errorf("scene %d silence: %w", scene.Index, err))
		}
		warn = fmt.Sprintf("scene %d: speech synthesis failed, using %.1fs of silence", scene.Index, dur)
	}

	scene.AudioFile = outFile
	if dur, err := probeDuration(outFile); err == nil && dur > 0 {
		scene.AudioDurationSec = dur
	} else {
		scene.AudioDurationSec = scene.DurationSec
	}
	return warn, nil
}

// Retime overrides each scene's duration with its measured audio duration.
func Retime(scenes []types.Scene) {
	for i := range scenes {
		if scenes[i].AudioDurationSec > 0 {
			scenes[i].DurationSec = scenes[i].AudioDurationSec
		}
	}
}

// SumDurations is the total runtime of the scene sequence in seconds.
func SumDurations(scenes []types.Scene) float64 {
	var total float64
	for _, s := range scenes {
		total += s.DurationSec
	}
	return total
}

// concat joins per-scene clips in index order with hard cuts. Clips can come
// from different encoders (real TTS vs generated silence), so the output is
// re-encoded rather than stream-copied.
func (s *Stage) concat(ctx context.Context, scenes []types.Scene, dir, outFile string) error {
	listFile := filepath.Join(dir, "concat_list.txt")
	var lines []string
	for _, scene := range scenes {
		if scene.AudioFile != "" {
			lines = append(lines, fmt.Sprintf("file '%s'", filepath.Base(scene.AudioFile)))
		}
	}
	if len(lines) == 0 {
		return fmt.Errorf("no audio clips to concatenate")
	}
	if err := os.WriteFile(listFile, []byte(strings.Join(lines, "\n")), 0644); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "ffmpeg", concatArgs(listFile, outFile)...)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func concatArgs(listFile, outFile string) []string {
	return []string{"-y",
		"-f", "concat",
		"-safe", "0",
		"-i", listFile,
		"-c:a", "libmp3lame",
		"-q:a", "2",
		outFile,
	}
}

// writeSilence synthesizes a silent mp3 of the given duration.
func writeSilence(ctx context.Context, outFile string, durationSec float64) error {
	if durationSec <= 0 {
		durationSec = types.DefaultSceneDuration
	}
	cmd := exec.CommandContext(ctx, "ffmpeg", silenceArgs(outFile, durationSec)...)
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func silenceArgs(outFile string, durationSec float64) []string {
	return []string{"-y",
		"-f", "lavfi",
		"-i", "anullsrc=r=44100:cl=mono",
		"-t", fmt.Sprintf("%.3f", durationSec),
		"-c:a", "libmp3lame",
		"-q:a", "9",
		outFile,
	}
}

// probeDuration measures a clip's duration with ffprobe.
func probeDuration(audioFile string) (float64, error) {
	out, err := exec.Command("ffprobe",
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		audioFile,
	).Output()
	if err != nil {
		return 0, err
	}
	var dur float64
	_, err = fmt.Sscanf(strings.TrimSpace(string(out)), "%f", &dur)
	return dur, err
}

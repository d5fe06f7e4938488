package voice

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"prompt2video/provider"
	"prompt2video/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSpeech records the requested voice and writes a tiny clip file.
type fakeSpeech struct {
	mu     sync.Mutex
	voices []string
}

func (f *fakeSpeech) Name() string { return "fake" }

func (f *fakeSpeech) Generate(ctx context.Context, req provider.Request) (*provider.Artifact, error) {
	f.mu.Lock()
	f.voices = append(f.voices, req.Voice)
	f.mu.Unlock()
	if err := os.WriteFile(req.OutFile, []byte("audiodata"), 0644); err != nil {
		return nil, err
	}
	return &provider.Artifact{Path: req.OutFile}, nil
}

func TestSynthesizeAllFillsEveryScene(t *testing.T) {
	dir := t.TempDir()
	fake := &fakeSpeech{}
	stage := New(provider.NewChain("speech", fake), "en-GB-RyanNeural", 3, 6)

	scenes := make([]types.Scene, 4)
	for i := range scenes {
		scenes[i] = types.Scene{Index: i, Narration: fmt.Sprintf("beat %d", i), DurationSec: 5}
	}

	warnings, err := stage.synthesizeAll(context.Background(), scenes, dir)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	for i, s := range scenes {
		assert.Equal(t, filepath.Join(dir, fmt.Sprintf("scene_%03d.mp3", i)), s.AudioFile, "file named by scene index")
		_, err := os.Stat(s.AudioFile)
		assert.NoError(t, err)
		assert.Greater(t, s.AudioDurationSec, 0.0)
	}

	require.Len(t, fake.voices, 4)
	for _, v := range fake.voices {
		assert.Equal(t, "en-GB-RyanNeural", v, "configured voice reaches every synthesis call")
	}
}

func TestNewClampsWorkersAndDuration(t *testing.T) {
	s := New(nil, "", 0, 0)
	assert.Equal(t, 1, s.workers)
	assert.Equal(t, types.DefaultSceneDuration, s.defaultDur)

	s = New(nil, "", 4, 7)
	assert.Equal(t, 4, s.workers)
	assert.Equal(t, 7.0, s.defaultDur)
}

func TestRetimeUsesMeasuredDurations(t *testing.T) {
	scenes := []types.Scene{
		{Index: 0, DurationSec: 5, AudioDurationSec: 7.2},
		{Index: 1, DurationSec: 5, AudioDurationSec: 0},
		{Index: 2, DurationSec: 4, AudioDurationSec: 3.1},
	}
	Retime(scenes)

	assert.Equal(t, 7.2, scenes[0].DurationSec)
	assert.Equal(t, 5.0, scenes[1].DurationSec, "unmeasured scenes keep the script duration")
	assert.Equal(t, 3.1, scenes[2].DurationSec)
}

func TestSumDurations(t *testing.T) {
	scenes := []types.Scene{
		{DurationSec: 5},
		{DurationSec: 3.5},
		{DurationSec: 6},
	}
	assert.InDelta(t, 14.5, SumDurations(scenes), 1e-9)
	assert.Equal(t, 0.0, SumDurations(nil))
}

func TestConcatArgs(t *testing.T) {
	args := concatArgs("list.txt", "out.mp3")
	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "-f concat")
	assert.Contains(t, joined, "-i list.txt")
	assert.Contains(t, joined, "-c:a libmp3lame")
	assert.Equal(t, "out.mp3", args[len(args)-1])
}

func TestSilenceArgs(t *testing.T) {
	args := silenceArgs("out.mp3", 4.5)
	joined := strings.Join(args, " ")
	assert.Contains(t, joined, "anullsrc=r=44100:cl=mono")
	assert.Contains(t, joined, "-t 4.500")
	assert.Equal(t, "out.mp3", args[len(args)-1])
}

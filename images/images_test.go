package images

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"prompt2video/provider"
	"prompt2video/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeImage writes a tiny file for requested scenes and fails for the rest.
type fakeImage struct {
	failIndex map[int]bool
}

func (f *fakeImage) Name() string { return "fake" }

func (f *fakeImage) Generate(ctx context.Context, req provider.Request) (*provider.Artifact, error) {
	idx := (req.Seed - 7) / 42
	if f.failIndex[idx] {
		return nil, types.NewProviderError("fake", types.ErrContent, fmt.Errorf("rejected"))
	}
	if err := os.WriteFile(req.OutFile, []byte("imagedata"), 0644); err != nil {
		return nil, err
	}
	return &provider.Artifact{Path: req.OutFile}, nil
}

func makeScenes(n int) []types.Scene {
	scenes := make([]types.Scene, n)
	for i := range scenes {
		scenes[i] = types.Scene{
			Index:       i,
			Narration:   fmt.Sprintf("beat %d", i),
			ImagePrompt: fmt.Sprintf("image %d", i),
			DurationSec: 5,
		}
	}
	return scenes
}

func TestRunFillsEveryScene(t *testing.T) {
	dir := t.TempDir()
	chain := provider.NewChain("image", &fakeImage{})
	stage := New(chain, 64, 64, 2)

	scenes := makeScenes(4)
	warnings, err := stage.Run(context.Background(), scenes, dir)
	require.NoError(t, err)
	assert.Empty(t, warnings)

	for i, s := range scenes {
		assert.Equal(t, i, s.Index, "order preserved")
		require.NotEmpty(t, s.ImageFile)
		assert.Contains(t, s.ImageFile, fmt.Sprintf("scene_%03d", i), "file named by scene index")
		_, err := os.Stat(s.ImageFile)
		assert.NoError(t, err)
	}
}

func TestRunSubstitutesPlaceholder(t *testing.T) {
	dir := t.TempDir()
	chain := provider.NewChain("image", &fakeImage{failIndex: map[int]bool{1: true}})
	stage := New(chain, 64, 64, 1)

	scenes := makeScenes(3)
	warnings, err := stage.Run(context.Background(), scenes, dir)
	require.NoError(t, err, "one failed scene never aborts the stage")
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "scene 1")

	for _, s := range scenes {
		require.NotEmpty(t, s.ImageFile, "scene %d", s.Index)
	}
	assert.Equal(t, filepath.Join(dir, "scene_001.png"), scenes[1].ImageFile)
}

func TestRunNilChainAllPlaceholders(t *testing.T) {
	dir := t.TempDir()
	stage := New(nil, 64, 64, 2)

	scenes := makeScenes(2)
	warnings, err := stage.Run(context.Background(), scenes, dir)
	require.NoError(t, err)
	assert.Len(t, warnings, 2)
	for _, s := range scenes {
		assert.NotEmpty(t, s.ImageFile)
	}
}

func TestWritePlaceholderProducesDecodablePNG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "p.png")
	require.NoError(t, WritePlaceholder(path, 32, 48, 2))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, 32, img.Bounds().Dx())
	assert.Equal(t, 48, img.Bounds().Dy())
}

func TestWritePlaceholderVariesByIndex(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.png")
	b := filepath.Join(dir, "b.png")
	require.NoError(t, WritePlaceholder(a, 16, 16, 0))
	require.NoError(t, WritePlaceholder(b, 16, 16, 1))

	da, _ := os.ReadFile(a)
	db, _ := os.ReadFile(b)
	assert.NotEqual(t, da, db, "adjacent placeholders use different palettes")
}

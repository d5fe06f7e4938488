package upload

import (
	"strings"
	"testing"

	"prompt2video/types"

	"github.com/stretchr/testify/assert"
)

func TestMetadataFromScenes(t *testing.T) {
	p := &types.Project{
		Prompt: "the history of lighthouses",
		Style:  types.StyleDocumentary,
		Scenes: []types.Scene{
			{Title: "Guardians of the Coast", Narration: "For centuries, lighthouses guided sailors home."},
			{Title: "The Keepers", Narration: "Behind every light was a keeper."},
		},
	}

	title, description, tags := Metadata(p)
	assert.Equal(t, "Guardians of the Coast", title)
	assert.Contains(t, description, "guided sailors home")
	assert.Contains(t, description, "Behind every light")
	assert.Contains(t, tags, "documentary")
	assert.Contains(t, tags, "history")
	assert.Contains(t, tags, "lighthouses")
}

func TestMetadataFallsBackToPrompt(t *testing.T) {
	p := &types.Project{Prompt: "a short film about rain", Style: types.StyleCinematic}

	title, description, _ := Metadata(p)
	assert.Equal(t, "a short film about rain", title)
	assert.Empty(t, description)
}

func TestMetadataTruncatesLongTitle(t *testing.T) {
	p := &types.Project{Prompt: strings.Repeat("very long prompt ", 20)}

	title, _, _ := Metadata(p)
	assert.LessOrEqual(t, len(title), 100)
	assert.True(t, strings.HasSuffix(title, "..."))
}

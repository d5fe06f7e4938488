package types

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStyleDuration(t *testing.T) {
	assert.Equal(t, 5.0, StyleDuration(StyleCinematic))
	assert.Equal(t, 6.0, StyleDuration(StyleDocumentary))
	assert.Equal(t, 6.0, StyleDuration(StyleEducational))
	assert.Equal(t, 4.0, StyleDuration(StyleAnimation))
	assert.Equal(t, DefaultSceneDuration, StyleDuration("noir"))
	assert.Equal(t, DefaultSceneDuration, StyleDuration(""))
}

func TestValidEffect(t *testing.T) {
	for _, e := range []string{EffectKenBurns, EffectZoomIn, EffectZoomOut, EffectPanLeft, EffectPanRight, EffectNone} {
		assert.True(t, ValidEffect(e), e)
	}
	assert.False(t, ValidEffect("wobble"))
	assert.False(t, ValidEffect(""))
}

func TestProjectTotalDuration(t *testing.T) {
	p := &Project{Scenes: []Scene{{DurationSec: 5}, {DurationSec: 3.5}}}
	assert.InDelta(t, 8.5, p.TotalDuration(), 1e-9)
}

func TestProviderErrorUnwrap(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := NewProviderError("openai", ErrRateLimit, cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "openai")

	pe, ok := AsProviderError(err)
	require.True(t, ok)
	assert.Equal(t, ErrRateLimit, pe.Class)
	assert.Equal(t, "openai", pe.Provider)
}

func TestAsProviderErrorThroughWrapping(t *testing.T) {
	inner := NewProviderError("stability", ErrContent, errors.New("nsfw"))
	wrapped := fmt.Errorf("image stage: %w", inner)

	pe, ok := AsProviderError(wrapped)
	require.True(t, ok)
	assert.Equal(t, ErrContent, pe.Class)

	_, ok = AsProviderError(errors.New("plain"))
	assert.False(t, ok)
}

func TestPipelineError(t *testing.T) {
	cause := errors.New("encode failed")
	err := Fatal("video", cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "video")
}

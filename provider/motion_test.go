package provider

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunwayRatio(t *testing.T) {
	assert.Equal(t, "1280:768", runwayRatio(1920, 1080))
	assert.Equal(t, "768:1280", runwayRatio(1080, 1920))
	assert.Equal(t, "1280:768", runwayRatio(768, 768))
}

func TestImageDataURI(t *testing.T) {
	dir := t.TempDir()

	jpg := filepath.Join(dir, "a.jpg")
	require.NoError(t, os.WriteFile(jpg, []byte("jpegdata"), 0644))
	uri, err := imageDataURI(jpg)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/jpeg;base64,"))

	png := filepath.Join(dir, "b.png")
	require.NoError(t, os.WriteFile(png, []byte("pngdata"), 0644))
	uri, err = imageDataURI(png)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))

	_, err = imageDataURI(filepath.Join(dir, "missing.png"))
	assert.Error(t, err)
}

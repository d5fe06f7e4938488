package images

import (
	"image"
	"image/color"
	"image/png"
	"os"
)

// WritePlaceholder draws a dark vertical gradient frame, tinted by scene
// index so neighboring placeholders are distinguishable in the final cut.
func WritePlaceholder(path string, width, height, index int) error {
	if width <= 0 {
		width = 1024
	}
	if height <= 0 {
		height = 1024
	}

	img := image.NewRGBA(image.Rect(0, 0, width, height))

	// Base tones cycle through a few muted palettes.
	palettes := [][2]color.RGBA{
		{{R: 20, G: 24, B: 46, A: 255}, {R: 60, G: 72, B: 118, A: 255}},
		{{R: 40, G: 22, B: 36, A: 255}, {R: 104, G: 58, B: 86, A: 255}},
		{{R: 18, G: 38, B: 34, A: 255}, {R: 52, G: 98, B: 86, A: 255}},
		{{R: 44, G: 36, B: 20, A: 255}, {R: 110, G: 92, B: 54, A: 255}},
	}
	top, bottom := palettes[index%len(palettes)][0], palettes[index%len(palettes)][1]

	for y := 0; y < height; y++ {
		t := float64(y) / float64(height-1)
		c := color.RGBA{
			R: lerp(top.R, bottom.R, t),
			G: lerp(top.G, bottom.G, t),
			B: lerp(top.B, bottom.B, t),
			A: 255,
		}
		for x := 0; x < width; x++ {
			img.SetRGBA(x, y, c)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return png.Encode(f, img)
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t)
}

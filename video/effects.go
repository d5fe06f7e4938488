package video

import (
	"fmt"

	"prompt2video/types"
)

// EffectFilter builds the ffmpeg -vf chain that renders one still image as a
// moving clip. The image is upscaled 2x before zoompan to avoid stepping
// artifacts, and the motion is keyframed linearly across the clip.
func EffectFilter(effect string, width, height, fps int, durationSec, zoomMax float64) string {
	frames := int(durationSec * float64(fps))
	if frames < 1 {
		frames = 1
	}
	if zoomMax <= 1.0 {
		zoomMax = 1.12
	}
	step := (zoomMax - 1.0) / float64(frames)

	pre := fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=increase,crop=%d:%d", width*2, height*2, width*2, height*2)
	post := fmt.Sprintf(":d=%d:fps=%d:s=%dx%d", frames, fps, width, height)

	switch effect {
	case types.EffectZoomIn:
		return fmt.Sprintf("%s,zoompan=z='min(zoom+%.6f,%.3f)':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)'%s",
			pre, step, zoomMax, post)

	case types.EffectZoomOut:
		return fmt.Sprintf("%s,zoompan=z='if(eq(on,1),%.3f,max(zoom-%.6f,1.0))':x='iw/2-(iw/zoom/2)':y='ih/2-(ih/zoom/2)'%s",
			pre, zoomMax, step, post)

	case types.EffectPanLeft:
		return fmt.Sprintf("%s,zoompan=z=%.3f:x='(iw-iw/zoom)*(1-on/%d)':y='ih/2-(ih/zoom/2)'%s",
			pre, zoomMax, frames, post)

	case types.EffectPanRight:
		return fmt.Sprintf("%s,zoompan=z=%.3f:x='(iw-iw/zoom)*(on/%d)':y='ih/2-(ih/zoom/2)'%s",
			pre, zoomMax, frames, post)

	case types.EffectNone:
		return fmt.Sprintf("scale=%d:%d:force_original_aspect_ratio=decrease,pad=%d:%d:(ow-iw)/2:(oh-ih)/2,setsar=1",
			width, height, width, height)

	default: // ken burns: slow zoom with a diagonal drift
		return fmt.Sprintf("%s,zoompan=z='min(zoom+%.6f,%.3f)':x='(iw-iw/zoom)*(on/%d)':y='(ih-ih/zoom)*(on/%d)'%s",
			pre, step, zoomMax, frames, frames, post)
	}
}

// XfadeOffsets computes the xfade start offset for each transition between
// adjacent clips: the cumulative duration so far minus the fade overlap
// already consumed.
func XfadeOffsets(durations []float64, fadeSec float64) []float64 {
	if len(durations) < 2 {
		return nil
	}
	offsets := make([]float64, len(durations)-1)
	var elapsed float64
	for i := 0; i < len(durations)-1; i++ {
		elapsed += durations[i]
		offsets[i] = elapsed - float64(i+1)*fadeSec
	}
	return offsets
}

// TotalDuration is the final video length: the sum of clip durations minus
// the overlap consumed by each crossfade.
func TotalDuration(durations []float64, fadeSec float64) float64 {
	var total float64
	for _, d := range durations {
		total += d
	}
	if fadeSec > 0 && len(durations) > 1 {
		total -= float64(len(durations)-1) * fadeSec
	}
	return total
}

// xfadeFilter builds the filter_complex graph chaining n inputs with fade
// transitions at the given offsets.
func xfadeFilter(n int, fadeSec float64, offsets []float64) string {
	graph := ""
	prev := "[0:v]"
	for i := 1; i < n; i++ {
		out := fmt.Sprintf("[v%d]", i)
		if i == n-1 {
			out = "[vout]"
		}
		graph += fmt.Sprintf("%s[%d:v]xfade=transition=fade:duration=%.3f:offset=%.3f%s", prev, i, fadeSec, offsets[i-1], out)
		if i != n-1 {
			graph += ";"
		}
		prev = out
	}
	return graph
}

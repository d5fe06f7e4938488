package types

import "time"

// Pipeline states. A project moves strictly forward through these; failed is
// terminal and reachable from any stage.
const (
	StateIdle        = "idle"
	StateScriptReady = "script_ready"
	StateImagesReady = "images_ready"
	StateAudioReady  = "audio_ready"
	StateVideoReady  = "video_ready"
	StateDone        = "done"
	StateFailed      = "failed"
)

// Scene styles understood by the script stage. Any other string is passed
// through to the text provider as a free-form style tag.
const (
	StyleCinematic   = "cinematic"
	StyleDocumentary = "documentary"
	StyleEducational = "educational"
	StyleAnimation   = "animation"
)

// Motion effects applied to a scene's still image.
const (
	EffectKenBurns = "ken_burns"
	EffectZoomIn   = "zoom_in"
	EffectZoomOut  = "zoom_out"
	EffectPanLeft  = "pan_left"
	EffectPanRight = "pan_right"
	EffectNone     = "none"
)

// DefaultSceneDuration is used when neither the script nor the style supplies
// a duration.
const DefaultSceneDuration = 5.0

// StyleDuration returns the default per-scene duration for a style.
func StyleDuration(style string) float64 {
	switch style {
	case StyleCinematic:
		return 5.0
	case StyleDocumentary:
		return 6.0
	case StyleEducational:
		return 6.0
	case StyleAnimation:
		return 4.0
	default:
		return DefaultSceneDuration
	}
}

// ValidEffect reports whether e is one of the supported motion effects.
func ValidEffect(e string) bool {
	switch e {
	case EffectKenBurns, EffectZoomIn, EffectZoomOut, EffectPanLeft, EffectPanRight, EffectNone:
		return true
	}
	return false
}

// Scene is one narrated beat of the output video. Indices are contiguous and
// stable from script generation through video assembly; later stages attach
// artifact paths but never reorder.
type Scene struct {
	Index            int     `json:"index"`
	Title            string  `json:"title"`
	Narration        string  `json:"narration"`
	ImagePrompt      string  `json:"image_prompt"`
	DurationSec      float64 `json:"duration_sec"`
	Effect           string  `json:"effect"`
	Transition       string  `json:"transition"`
	ImageFile        string  `json:"image_file,omitempty"`
	AudioFile        string  `json:"audio_file,omitempty"`
	AudioDurationSec float64 `json:"audio_duration_sec,omitempty"`
}

// Project is the persisted, resumable state of one end-to-end generation run.
type Project struct {
	ID            string   `json:"id"`
	Prompt        string   `json:"prompt"`
	Style         string   `json:"style"`
	State         string   `json:"state"`
	Scenes        []Scene  `json:"scenes"`
	ScriptFile    string   `json:"script_file,omitempty"`
	CombinedAudio string   `json:"combined_audio,omitempty"`
	VideoFile     string   `json:"video_file,omitempty"`
	PublishedURL  string   `json:"published_url,omitempty"`
	StorageURL    string   `json:"storage_url,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
	CreatedAt     string   `json:"created_at"`
	CompletedAt   string   `json:"completed_at,omitempty"`
	Error         string   `json:"error,omitempty"`
}

// TotalDuration is the sum of all scene durations in seconds.
func (p *Project) TotalDuration() float64 {
	var total float64
	for _, s := range p.Scenes {
		total += s.DurationSec
	}
	return total
}

// Warn appends a recoverable, non-fatal note to the project.
func (p *Project) Warn(msg string) {
	p.Warnings = append(p.Warnings, msg)
}

// Options control one pipeline run. Zero values fall back to config defaults.
type Options struct {
	SceneCount   int      `json:"scene_count"`
	Style        string   `json:"style"`
	Voice        string   `json:"voice"`
	Width        int      `json:"width"`
	Height       int      `json:"height"`
	FPS          int      `json:"fps"`
	CrossfadeSec float64  `json:"crossfade_sec"`
	Effects      []string `json:"effects,omitempty"`
}

// Timestamp returns the canonical wall-clock string stored on projects.
func Timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

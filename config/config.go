package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Script  ScriptConfig  `yaml:"script"`
	Image   ImageConfig   `yaml:"image"`
	Motion  MotionConfig  `yaml:"motion"`
	Voice   VoiceConfig   `yaml:"voice"`
	Video   VideoConfig   `yaml:"video"`
	Upload  UploadConfig  `yaml:"upload"`
	Storage StorageConfig `yaml:"storage"`
	Paths   PathsConfig   `yaml:"paths"`

	// Keys maps provider name -> API key. Loaded once at startup; environment
	// variables win over file values.
	Keys map[string]string `yaml:"keys"`
}

type ScriptConfig struct {
	// Providers lists text providers in fallback order.
	Providers   []string `yaml:"providers"`
	Model       string   `yaml:"model"`
	GeminiModel string   `yaml:"gemini_model"`
	Temperature float64  `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

type ImageConfig struct {
	Providers []string `yaml:"providers"`
	Width     int      `yaml:"width"`
	Height    int      `yaml:"height"`
	Model     string   `yaml:"model"`
	Workers   int      `yaml:"workers"`
}

// MotionConfig lists image-to-video providers. All of them need keys, so the
// chain stays empty (and scenes animate via local effects) until one is
// configured.
type MotionConfig struct {
	Providers []string `yaml:"providers"`
}

type VoiceConfig struct {
	Providers []string `yaml:"providers"`
	Voice     string   `yaml:"voice"`
	Rate      string   `yaml:"rate"`
	Workers   int      `yaml:"workers"`
}

type VideoConfig struct {
	FPS                int     `yaml:"fps"`
	Width              int     `yaml:"width"`
	Height             int     `yaml:"height"`
	SceneDurationSec   float64 `yaml:"scene_duration_sec"`
	CrossfadeSec       float64 `yaml:"crossfade_sec"`
	KenBurnsZoomFactor float64 `yaml:"ken_burns_zoom_factor"`
}

type UploadConfig struct {
	Enabled           bool   `yaml:"enabled"`
	Visibility        string `yaml:"visibility"`
	CategoryID        string `yaml:"category_id"`
	DefaultLanguage   string `yaml:"default_language"`
	NotifySubscribers bool   `yaml:"notify_subscribers"`
	MadeForKids       bool   `yaml:"made_for_kids"`
}

type StorageConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	Bucket    string `yaml:"bucket"`
	UseSSL    bool   `yaml:"use_ssl"`
}

type PathsConfig struct {
	Output string `yaml:"output"`
}

// envKeys maps environment variables to provider key names. Environment
// values override the config file so secrets can stay out of it.
var envKeys = map[string]string{
	"OPENAI_API_KEY":      "openai",
	"GROQ_API_KEY":        "groq",
	"GEMINI_API_KEY":      "gemini",
	"STABILITY_API_KEY":   "stability",
	"RUNWAYML_API_SECRET": "runway",
	"ELEVENLABS_API_KEY":  "elevenlabs",
}

// Load reads a YAML config file, applies defaults and the environment key
// overlay. A missing file is not an error: the pipeline must work with zero
// configuration (keyless providers plus local fallbacks).
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err == nil {
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		} else if !os.IsNotExist(err) {
			return nil, err
		}
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

// Default returns the built-in configuration used when no file is present.
func Default() *Config {
	return &Config{
		Script: ScriptConfig{
			Providers:   []string{"openai", "gemini"},
			Model:       "gpt-4o-mini",
			GeminiModel: "gemini-1.5-flash",
			Temperature: 0.8,
			MaxTokens:   2000,
		},
		Image: ImageConfig{
			Providers: []string{"pollinations", "openai", "stability"},
			Width:     1024,
			Height:    1024,
			Model:     "dall-e-3",
			Workers:   3,
		},
		Motion: MotionConfig{
			Providers: []string{"stability", "runway"},
		},
		Voice: VoiceConfig{
			Providers: []string{"edge", "openai"},
			Voice:     "en-US-GuyNeural",
			Rate:      "+0%",
			Workers:   3,
		},
		Video: VideoConfig{
			FPS:                24,
			Width:              1920,
			Height:             1080,
			SceneDurationSec:   5.0,
			CrossfadeSec:       0.5,
			KenBurnsZoomFactor: 1.12,
		},
		Upload: UploadConfig{
			Visibility:      "private",
			CategoryID:      "22",
			DefaultLanguage: "en",
		},
		Paths: PathsConfig{Output: "outputs"},
		Keys:  map[string]string{},
	}
}

func (c *Config) applyDefaults() {
	d := Default()
	if len(c.Script.Providers) == 0 {
		c.Script.Providers = d.Script.Providers
	}
	if c.Script.Model == "" {
		c.Script.Model = d.Script.Model
	}
	if c.Script.GeminiModel == "" {
		c.Script.GeminiModel = d.Script.GeminiModel
	}
	if c.Script.MaxTokens == 0 {
		c.Script.MaxTokens = d.Script.MaxTokens
	}
	if len(c.Image.Providers) == 0 {
		c.Image.Providers = d.Image.Providers
	}
	if c.Image.Width == 0 {
		c.Image.Width = d.Image.Width
	}
	if c.Image.Height == 0 {
		c.Image.Height = d.Image.Height
	}
	if c.Image.Workers == 0 {
		c.Image.Workers = d.Image.Workers
	}
	if len(c.Motion.Providers) == 0 {
		c.Motion.Providers = d.Motion.Providers
	}
	if len(c.Voice.Providers) == 0 {
		c.Voice.Providers = d.Voice.Providers
	}
	if c.Voice.Voice == "" {
		c.Voice.Voice = d.Voice.Voice
	}
	if c.Voice.Workers == 0 {
		c.Voice.Workers = d.Voice.Workers
	}
	if c.Video.FPS == 0 {
		c.Video.FPS = d.Video.FPS
	}
	if c.Video.Width == 0 {
		c.Video.Width = d.Video.Width
	}
	if c.Video.Height == 0 {
		c.Video.Height = d.Video.Height
	}
	if c.Video.SceneDurationSec == 0 {
		c.Video.SceneDurationSec = d.Video.SceneDurationSec
	}
	if c.Video.KenBurnsZoomFactor == 0 {
		c.Video.KenBurnsZoomFactor = d.Video.KenBurnsZoomFactor
	}
	if c.Paths.Output == "" {
		c.Paths.Output = d.Paths.Output
	}
	if c.Keys == nil {
		c.Keys = map[string]string{}
	}
}

func (c *Config) applyEnv() {
	for env, name := range envKeys {
		if v := os.Getenv(env); v != "" {
			c.Keys[name] = v
		}
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		c.Storage.AccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		c.Storage.SecretKey = v
	}
}

// Key returns the credential for a provider, or "" when not configured.
func (c *Config) Key(provider string) string {
	return c.Keys[provider]
}

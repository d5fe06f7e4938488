package provider

import (
	"log"

	"prompt2video/config"
)

// TextChain builds the text fallback chain from the configured ordering.
// Providers without a key are skipped up front; an empty chain is valid and
// makes the script stage use its local template.
func TextChain(cfg *config.Config) *Chain {
	var clients []Client
	for _, name := range cfg.Script.Providers {
		switch name {
		case "openai":
			if key := cfg.Key("openai"); key != "" {
				clients = append(clients, NewOpenAIChat(key, cfg.Script.Model, cfg.Script.Temperature, cfg.Script.MaxTokens))
			}
		case "groq":
			if key := cfg.Key("groq"); key != "" {
				clients = append(clients, NewGroqChat(key, cfg.Script.Model, cfg.Script.Temperature, cfg.Script.MaxTokens))
			}
		case "gemini":
			if key := cfg.Key("gemini"); key != "" {
				clients = append(clients, NewGemini(key, cfg.Script.GeminiModel))
			}
		default:
			log.Printf("[config] unknown text provider %q — skipping", name)
		}
	}
	return NewChain("text", clients...)
}

// ImageChain builds the image fallback chain. Pollinations is keyless, so a
// chain is never empty unless it was explicitly configured away.
func ImageChain(cfg *config.Config) *Chain {
	var clients []Client
	for _, name := range cfg.Image.Providers {
		switch name {
		case "pollinations":
			clients = append(clients, NewPollinations())
		case "openai":
			if key := cfg.Key("openai"); key != "" {
				clients = append(clients, NewOpenAIImage(key, cfg.Image.Model))
			}
		case "stability":
			if key := cfg.Key("stability"); key != "" {
				clients = append(clients, NewStability(key))
			}
		default:
			log.Printf("[config] unknown image provider %q — skipping", name)
		}
	}
	return NewChain("image", clients...)
}

// MotionChain builds the image-to-video chain. It is usually empty: without a
// keyed motion provider the video stage animates stills with its own effect
// filters.
func MotionChain(cfg *config.Config) *Chain {
	var clients []Client
	for _, name := range cfg.Motion.Providers {
		switch name {
		case "stability":
			if key := cfg.Key("stability"); key != "" {
				clients = append(clients, NewStabilityMotion(key))
			}
		case "runway":
			if key := cfg.Key("runway"); key != "" {
				clients = append(clients, NewRunway(key))
			}
		default:
			log.Printf("[config] unknown motion provider %q — skipping", name)
		}
	}
	return NewChain("motion", clients...)
}

// SpeechChain builds the speech fallback chain.
func SpeechChain(cfg *config.Config) *Chain {
	var clients []Client
	for _, name := range cfg.Voice.Providers {
		switch name {
		case "edge":
			clients = append(clients, NewEdgeTTS(cfg.Voice.Voice, cfg.Voice.Rate))
		case "openai":
			if key := cfg.Key("openai"); key != "" {
				clients = append(clients, NewOpenAITTS(key, ""))
			}
		default:
			log.Printf("[config] unknown speech provider %q — skipping", name)
		}
	}
	return NewChain("speech", clients...)
}

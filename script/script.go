// Package script turns a free-text prompt into an ordered list of scenes,
// using the text provider chain when one is configured and a deterministic
// local template otherwise. The template path never fails, so the pipeline
// works with zero external dependencies.
package script

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"prompt2video/provider"
	"prompt2video/types"
)

const (
	MinScenes = 1
	MaxScenes = 10
)

const systemPrompt = `You are a professional movie script writer and storyboard artist.
Your task is to create engaging, cinematic scenes that tell a compelling story.
Always respond with ONLY valid JSON — no preamble, no markdown, no explanation.`

// Generator is the script stage.
type Generator struct {
	chain *provider.Chain
}

// New creates a script Generator backed by a text provider chain. A nil or
// empty chain is allowed and routes every request to the local template.
func New(chain *provider.Chain) *Generator {
	return &Generator{chain: chain}
}

// Run produces exactly opts.SceneCount scenes for the prompt. Provider
// failures degrade to the template fallback rather than surfacing an error.
func (g *Generator) Run(ctx context.Context, prompt string, opts types.Options) ([]types.Scene, error) {
	n := clampSceneCount(opts.SceneCount)

	if g.chain == nil || g.chain.Len() == 0 {
		log.Printf("[script] no text providers configured — using template fallback")
		return Fallback(prompt, n, opts.Style), nil
	}

	log.Printf("[script] generating %d scenes via %v...", n, g.chain.Names())
	art, err := g.chain.Generate(ctx, provider.Request{
		System: systemPrompt,
		Prompt: buildUserPrompt(prompt, n, opts.Style),
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		log.Printf("[script] all providers failed: %v — using template fallback", err)
		return Fallback(prompt, n, opts.Style), nil
	}

	scenes, err := parseScenes(art.Text, n, opts.Style)
	if err != nil {
		log.Printf("[script] could not parse provider response: %v — using template fallback", err)
		return Fallback(prompt, n, opts.Style), nil
	}

	log.Printf("[script] script ready: %d scenes", len(scenes))
	return scenes, nil
}

func buildUserPrompt(prompt string, n int, style string) string {
	if style == "" {
		style = types.StyleCinematic
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Create %d short cinematic scenes from this idea: %q.\n\n", n, prompt)
	fmt.Fprintf(&sb, "Style: %s\n\n", style)
	sb.WriteString(`For each scene, provide:
- title: a brief, engaging title for the scene
- narration: the exact words to be spoken (1-3 sentences)
- image_prompt: a detailed prompt for generating a realistic image that captures the scene's mood and key elements
- duration: suggested duration in seconds (2-8)
- effect: one of "ken_burns" | "zoom_in" | "zoom_out" | "pan_left" | "pan_right" | "none"
- transition: transition to the next scene ("fade" or "cut")

Make the scenes flow naturally and tell a cohesive story.
Focus on visual storytelling with strong imagery.

Output JSON format:
{"scenes": [{"title": "...", "narration": "...", "image_prompt": "...", "duration": 4, "effect": "ken_burns", "transition": "fade"}]}`)
	return sb.String()
}

type sceneJSON struct {
	Title       string  `json:"title"`
	Narration   string  `json:"narration"`
	Description string  `json:"description"`
	ImagePrompt string  `json:"image_prompt"`
	Duration    float64 `json:"duration"`
	Effect      string  `json:"effect"`
	Transition  string  `json:"transition"`
}

type scriptJSON struct {
	Scenes []sceneJSON `json:"scenes"`
}

// parseScenes validates the provider's JSON and normalizes it into Scene
// records: missing fields get defaults, the count is clamped to n, indices
// are assigned in order.
func parseScenes(content string, n int, style string) ([]types.Scene, error) {
	var raw scriptJSON
	if err := json.Unmarshal([]byte(content), &raw); err != nil {
		return nil, fmt.Errorf("parse script JSON: %w", err)
	}
	if len(raw.Scenes) == 0 {
		return nil, fmt.Errorf("provider returned zero scenes")
	}

	if len(raw.Scenes) > n {
		raw.Scenes = raw.Scenes[:n]
	}

	defaultDur := types.StyleDuration(style)
	scenes := make([]types.Scene, 0, len(raw.Scenes))
	for i, s := range raw.Scenes {
		narration := strings.TrimSpace(s.Narration)
		if narration == "" {
			// Some models put the spoken text under "description".
			narration = strings.TrimSpace(s.Description)
		}
		if narration == "" {
			return nil, fmt.Errorf("scene %d has no narration", i)
		}

		scene := types.Scene{
			Index:       i,
			Title:       strings.TrimSpace(s.Title),
			Narration:   narration,
			ImagePrompt: strings.TrimSpace(s.ImagePrompt),
			DurationSec: s.Duration,
			Effect:      s.Effect,
			Transition:  s.Transition,
		}
		if scene.Title == "" {
			scene.Title = fmt.Sprintf("Scene %d", i+1)
		}
		if scene.ImagePrompt == "" {
			scene.ImagePrompt = fmt.Sprintf("%s, %s style, professional photography, high quality", narration, style)
		}
		if scene.DurationSec < 2 || scene.DurationSec > 120 {
			scene.DurationSec = defaultDur
		}
		if !types.ValidEffect(scene.Effect) {
			scene.Effect = types.EffectKenBurns
		}
		if scene.Transition != "cut" {
			scene.Transition = "fade"
		}
		scenes = append(scenes, scene)
	}

	// Pad with template beats if the model under-delivered.
	if len(scenes) < n {
		pad := Fallback(scenes[len(scenes)-1].Narration, n-len(scenes), style)
		for _, s := range pad {
			s.Index = len(scenes)
			scenes = append(scenes, s)
		}
	}

	return scenes, nil
}

// Fallback slices the prompt into n roughly equal narrative beats. It is
// deterministic for a given (prompt, n, style) and always returns exactly n
// non-empty scenes.
func Fallback(prompt string, n int, style string) []types.Scene {
	n = clampSceneCount(n)
	if style == "" {
		style = types.StyleCinematic
	}
	dur := types.StyleDuration(style)

	beats := splitBeats(prompt, n)
	scenes := make([]types.Scene, n)
	for i := 0; i < n; i++ {
		beat := beats[i]
		scenes[i] = types.Scene{
			Index:       i,
			Title:       fmt.Sprintf("Scene %d", i+1),
			Narration:   beat,
			ImagePrompt: fmt.Sprintf("Cinematic scene related to %s, %s style, professional photography, high quality", beat, style),
			DurationSec: dur,
			Effect:      types.EffectKenBurns,
			Transition:  "fade",
		}
	}
	return scenes
}

// splitBeats divides the prompt into n pieces, sentence-aware first and
// word-level when there are not enough sentences. A prompt too short to
// split repeats whole.
func splitBeats(prompt string, n int) []string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = "an untitled story"
	}

	sentences := splitSentences(prompt)
	if len(sentences) >= n {
		return groupEven(sentences, n, " ")
	}

	words := strings.Fields(prompt)
	if len(words) >= 2*n {
		return groupEven(words, n, " ")
	}

	// Too short to slice meaningfully: every beat narrates the whole prompt.
	beats := make([]string, n)
	for i := range beats {
		beats[i] = prompt
	}
	return beats
}

func splitSentences(s string) []string {
	var out []string
	var cur strings.Builder
	for _, r := range s {
		cur.WriteRune(r)
		if r == '.' || r == '!' || r == '?' {
			if t := strings.TrimSpace(cur.String()); t != "" {
				out = append(out, t)
			}
			cur.Reset()
		}
	}
	if t := strings.TrimSpace(cur.String()); t != "" {
		out = append(out, t)
	}
	return out
}

// groupEven joins len(parts) items into n groups whose sizes differ by at
// most one, preserving order.
func groupEven(parts []string, n int, sep string) []string {
	out := make([]string, 0, n)
	base := len(parts) / n
	extra := len(parts) % n
	idx := 0
	for i := 0; i < n; i++ {
		size := base
		if i < extra {
			size++
		}
		out = append(out, strings.Join(parts[idx:idx+size], sep))
		idx += size
	}
	return out
}

func clampSceneCount(n int) int {
	if n < MinScenes {
		return 3
	}
	if n > MaxScenes {
		return MaxScenes
	}
	return n
}

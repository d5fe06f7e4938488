// Package images is the image stage: one raster file per scene, named by
// scene index, produced through the image provider chain. A scene whose
// entire chain fails gets a locally drawn placeholder — one bad scene never
// aborts the run.
package images

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"prompt2video/provider"
	"prompt2video/types"
)

// Stage generates the per-scene images.
type Stage struct {
	chain   *provider.Chain
	width   int
	height  int
	workers int
}

// New creates the image stage. workers bounds concurrent provider calls;
// values below 1 mean sequential.
func New(chain *provider.Chain, width, height, workers int) *Stage {
	if workers < 1 {
		workers = 1
	}
	return &Stage{chain: chain, width: width, height: height, workers: workers}
}

// Run fills Scene.ImageFile for every scene, in place. The returned warnings
// record scenes that fell back to a placeholder. Output count always equals
// input count and file names always carry the scene's own index.
func (s *Stage) Run(ctx context.Context, scenes []types.Scene, dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create image dir: %w", err)
	}

	log.Printf("[images] generating %d images (workers: %d)...", len(scenes), s.workers)

	jobs := make(chan int)
	var wg sync.WaitGroup
	var mu sync.Mutex
	var warnings []string

	for w := 0; w < s.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				warn := s.generateScene(ctx, &scenes[i], dir)
				if warn != "" {
					mu.Lock()
					warnings = append(warnings, warn)
					mu.Unlock()
				}
			}
		}()
	}

	for i := range scenes {
		if ctx.Err() != nil {
			break
		}
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	if ctx.Err() != nil {
		return warnings, ctx.Err()
	}

	log.Printf("[images] %d images ready (%d placeholder)", len(scenes), len(warnings))
	return warnings, nil
}

// generateScene writes one scene's image and returns a warning string when
// the placeholder path was taken.
func (s *Stage) generateScene(ctx context.Context, scene *types.Scene, dir string) string {
	outFile := filepath.Join(dir, fmt.Sprintf("scene_%03d.jpg", scene.Index))

	if s.chain != nil && s.chain.Len() > 0 {
		art, err := s.chain.Generate(ctx, provider.Request{
			Prompt:  scene.ImagePrompt,
			Width:   s.width,
			Height:  s.height,
			Seed:    scene.Index*42 + 7, // deterministic seed per scene
			OutFile: outFile,
		})
		if err == nil {
			scene.ImageFile = art.Path
			log.Printf("[images] scene %d image saved: %s", scene.Index, art.Path)
			return ""
		}
		if ctx.Err() != nil {
			return ""
		}
		log.Printf("[images] scene %d: %v — writing placeholder", scene.Index, err)
	}

	placeholder := filepath.Join(dir, fmt.Sprintf("scene_%03d.png", scene.Index))
	if err := WritePlaceholder(placeholder, s.width, s.height, scene.Index); err != nil {
		// Even the placeholder failing is not fatal for the stage; the video
		// stage renders a black frame for scenes without an image.
		return fmt.Sprintf("scene %d: image generation and placeholder both failed: %v", scene.Index, err)
	}
	scene.ImageFile = placeholder
	return fmt.Sprintf("scene %d: all image providers failed, using placeholder", scene.Index)
}

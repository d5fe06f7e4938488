package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"prompt2video/config"
	"prompt2video/pipeline"
	"prompt2video/storage"
	"prompt2video/types"
	"prompt2video/upload"

	"github.com/joho/godotenv"
)

func main() {
	// Load .env (local dev only — CI uses real env vars)
	_ = godotenv.Load()

	var (
		prompt     = flag.String("prompt", "", "topic to turn into a narrated video")
		scenes     = flag.Int("scenes", 0, "number of scenes (1-10, default 3)")
		style      = flag.String("style", "", "visual style: cinematic, documentary, educational, animation")
		voiceName  = flag.String("voice", "", "TTS voice override")
		effects    = flag.String("effects", "", "comma-separated effect override, cycled across scenes")
		textProv   = flag.String("text-providers", "", "comma-separated text provider order override")
		imageProv  = flag.String("image-providers", "", "comma-separated image provider order override")
		voiceProv  = flag.String("voice-providers", "", "comma-separated speech provider order override")
		configPath = flag.String("config", "config.yaml", "path to config file")
		resumeDir  = flag.String("resume", "", "existing project directory to resume")
		fromState  = flag.String("from", "", "state to resume from (script_ready, images_ready, audio_ready)")
		doUpload   = flag.Bool("upload", false, "publish the finished video to YouTube")
		doStore    = flag.Bool("store", false, "archive the finished video to object storage")
	)
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *textProv != "" {
		cfg.Script.Providers = strings.Split(*textProv, ",")
	}
	if *imageProv != "" {
		cfg.Image.Providers = strings.Split(*imageProv, ",")
	}
	if *voiceProv != "" {
		cfg.Voice.Providers = strings.Split(*voiceProv, ",")
	}
	if err := os.MkdirAll(cfg.Paths.Output, 0755); err != nil {
		log.Fatalf("Failed to create output dir: %v", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	runner := pipeline.New(cfg)

	var project *types.Project
	switch {
	case *resumeDir != "":
		project, err = runner.Resume(ctx, *resumeDir, *fromState)
	case *prompt != "":
		opts := types.Options{
			SceneCount: *scenes,
			Style:      *style,
			Voice:      *voiceName,
		}
		if *effects != "" {
			opts.Effects = strings.Split(*effects, ",")
		}
		project, err = runner.Run(ctx, *prompt, opts)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("❌ Pipeline failed: %v", err)
	}

	for _, w := range project.Warnings {
		log.Printf("⚠️  %s", w)
	}
	log.Printf("✅ Video ready: %s", project.VideoFile)

	if *doStore || cfg.Storage.Enabled {
		store, err := storage.New(cfg)
		if err != nil {
			log.Printf("⚠️  Storage unavailable: %v", err)
		} else if url, err := store.UploadVideo(ctx, project.ID, project.VideoFile); err != nil {
			log.Printf("⚠️  Storage upload failed: %v", err)
		} else {
			project.StorageURL = url
			log.Printf("📦 Archived: %s", url)
		}
	}

	if *doUpload || cfg.Upload.Enabled {
		uploader := upload.New(cfg)
		url, err := uploader.Run(ctx, project)
		if err != nil {
			log.Printf("⚠️  Upload failed: %v", err)
		} else {
			project.PublishedURL = url
			log.Printf("🎬 Published: %s", url)
		}
	}
}

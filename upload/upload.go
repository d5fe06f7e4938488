// Package upload publishes a finished video to YouTube via the Data API v3.
// Credentials come from the environment (OAuth client plus refresh token);
// upload is optional and the pipeline completes without it.
package upload

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"prompt2video/config"
	"prompt2video/types"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"
)

// Uploader publishes videos through the YouTube Data API.
type Uploader struct {
	cfg *config.Config
}

// New creates an Uploader.
func New(cfg *config.Config) *Uploader {
	return &Uploader{cfg: cfg}
}

// Run uploads the project's final video and returns the watch URL.
func (u *Uploader) Run(ctx context.Context, project *types.Project) (string, error) {
	log.Println("[upload] authenticating with YouTube API...")

	client, err := u.oauthClient(ctx)
	if err != nil {
		return "", fmt.Errorf("youtube auth: %w", err)
	}

	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return "", fmt.Errorf("youtube service: %w", err)
	}

	title, description, tags := Metadata(project)
	log.Printf("[upload] uploading: %q", title)

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                title,
			Description:          description,
			Tags:                 tags,
			CategoryId:           u.cfg.Upload.CategoryID,
			DefaultLanguage:      u.cfg.Upload.DefaultLanguage,
			DefaultAudioLanguage: u.cfg.Upload.DefaultLanguage,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus:           u.cfg.Upload.Visibility,
			SelfDeclaredMadeForKids: u.cfg.Upload.MadeForKids,
		},
	}

	f, err := os.Open(project.VideoFile)
	if err != nil {
		return "", fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	if fi, err := f.Stat(); err == nil {
		log.Printf("[upload] file size: %.1f MB", float64(fi.Size())/1024/1024)
	}

	call := svc.Videos.Insert([]string{"snippet", "status"}, video)
	call.NotifySubscribers(u.cfg.Upload.NotifySubscribers)
	call.Media(f)

	uploaded, err := call.Do()
	if err != nil {
		return "", fmt.Errorf("youtube upload: %w", err)
	}

	url := fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id)
	log.Printf("[upload] uploaded: %s", url)

	if err := logUpload(project, uploaded.Id, url); err != nil {
		log.Printf("[upload] warning: could not write upload log: %v", err)
	}
	return url, nil
}

// Metadata derives the YouTube title, description, and tags from the project.
// The first scene title becomes the video title; the description is the full
// narration, scene by scene.
func Metadata(project *types.Project) (string, string, []string) {
	title := project.Prompt
	if len(project.Scenes) > 0 && project.Scenes[0].Title != "" {
		title = project.Scenes[0].Title
	}
	if len(title) > 100 {
		title = title[:97] + "..."
	}

	var b strings.Builder
	for _, scene := range project.Scenes {
		b.WriteString(scene.Narration)
		b.WriteString("\n\n")
	}

	tags := []string{project.Style, "ai generated", "slideshow"}
	for _, w := range strings.Fields(project.Prompt) {
		w = strings.ToLower(strings.Trim(w, ".,!?"))
		if len(w) > 3 && len(tags) < 12 {
			tags = append(tags, w)
		}
	}
	return title, strings.TrimSpace(b.String()), tags
}

// oauthClient builds an HTTP client from env OAuth credentials, forcing an
// immediate token refresh from the stored refresh token.
func (u *Uploader) oauthClient(ctx context.Context) (*http.Client, error) {
	clientID := os.Getenv("YOUTUBE_CLIENT_ID")
	clientSecret := os.Getenv("YOUTUBE_CLIENT_SECRET")
	refreshToken := os.Getenv("YOUTUBE_REFRESH_TOKEN")

	if clientID == "" || clientSecret == "" || refreshToken == "" {
		return nil, fmt.Errorf("YOUTUBE_CLIENT_ID, YOUTUBE_CLIENT_SECRET, or YOUTUBE_REFRESH_TOKEN not set")
	}

	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope},
	}
	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}
	return oauth2.NewClient(ctx, conf.TokenSource(ctx, token)), nil
}

func logUpload(project *types.Project, videoID, url string) error {
	entry := map[string]interface{}{
		"project_id":  project.ID,
		"video_id":    videoID,
		"video_url":   url,
		"video_file":  project.VideoFile,
		"uploaded_at": types.Timestamp(),
	}
	data, _ := json.MarshalIndent(entry, "", "  ")
	logFile := filepath.Join(filepath.Dir(project.VideoFile), "upload.json")
	return os.WriteFile(logFile, data, 0644)
}

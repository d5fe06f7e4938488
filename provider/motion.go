package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"prompt2video/types"
)

// Motion providers animate a still image into a short video clip. Both APIs
// are asynchronous: submit the image, then poll until the clip is rendered.

const (
	motionPollInterval = 5 * time.Second
	motionPollTimeout  = 4 * time.Minute
)

// StabilityMotionClient animates an image via the Stability image-to-video
// endpoint (Stable Video Diffusion).
type StabilityMotionClient struct {
	apiKey     string
	httpClient *http.Client
}

func NewStabilityMotion(apiKey string) *StabilityMotionClient {
	return &StabilityMotionClient{apiKey: apiKey, httpClient: &http.Client{Timeout: 120 * time.Second}}
}

func (s *StabilityMotionClient) Name() string { return "stability" }

func (s *StabilityMotionClient) Generate(ctx context.Context, req Request) (*Artifact, error) {
	if s.apiKey == "" {
		return nil, types.NewProviderError("stability", types.ErrAuth, fmt.Errorf("no API key configured"))
	}

	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)
	part, err := form.CreateFormFile("image", filepath.Base(req.ImageFile))
	if err != nil {
		return nil, types.NewProviderError("stability", types.ErrContent, err)
	}
	img, err := os.Open(req.ImageFile)
	if err != nil {
		return nil, types.NewProviderError("stability", types.ErrContent, err)
	}
	_, err = io.Copy(part, img)
	img.Close()
	if err != nil {
		return nil, types.NewProviderError("stability", types.ErrContent, err)
	}
	form.WriteField("seed", fmt.Sprintf("%d", req.Seed))
	form.WriteField("cfg_scale", "1.8")
	form.WriteField("motion_bucket_id", "127")
	form.Close()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.stability.ai/v2beta/image-to-video", &buf)
	if err != nil {
		return nil, types.NewProviderError("stability", types.ErrNetwork, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return nil, types.NewProviderError("stability", types.ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewProviderError("stability", types.ErrNetwork, err)
	}
	if err := classifyStatus("stability", resp.StatusCode, respBytes); err != nil {
		return nil, err
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBytes, &parsed); err != nil || parsed.ID == "" {
		return nil, types.NewProviderError("stability", types.ErrContent, fmt.Errorf("no render id returned"))
	}
	return s.poll(ctx, parsed.ID, req.OutFile)
}

func (s *StabilityMotionClient) poll(ctx context.Context, id, outFile string) (*Artifact, error) {
	deadline := time.Now().Add(motionPollTimeout)
	for {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.stability.ai/v2beta/image-to-video/result/"+id, nil)
		if err != nil {
			return nil, types.NewProviderError("stability", types.ErrNetwork, err)
		}
		httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
		httpReq.Header.Set("Accept", "video/*")

		resp, err := s.httpClient.Do(httpReq)
		if err != nil {
			return nil, types.NewProviderError("stability", types.ErrNetwork, err)
		}
		data, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, types.NewProviderError("stability", types.ErrNetwork, err)
		}

		switch resp.StatusCode {
		case http.StatusOK:
			if err := os.WriteFile(outFile, data, 0644); err != nil {
				return nil, types.NewProviderError("stability", types.ErrNetwork, err)
			}
			return &Artifact{Path: outFile}, nil
		case http.StatusAccepted:
			// still rendering
		default:
			return nil, classifyStatus("stability", resp.StatusCode, data)
		}

		if time.Now().After(deadline) {
			return nil, types.NewProviderError("stability", types.ErrNetwork, fmt.Errorf("render timed out after %s", motionPollTimeout))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(motionPollInterval):
		}
	}
}

// RunwayClient animates an image via the Runway gen3a_turbo image-to-video
// API.
type RunwayClient struct {
	apiKey     string
	httpClient *http.Client
}

func NewRunway(apiKey string) *RunwayClient {
	return &RunwayClient{apiKey: apiKey, httpClient: &http.Client{Timeout: 120 * time.Second}}
}

func (r *RunwayClient) Name() string { return "runway" }

func (r *RunwayClient) Generate(ctx context.Context, req Request) (*Artifact, error) {
	if r.apiKey == "" {
		return nil, types.NewProviderError("runway", types.ErrAuth, fmt.Errorf("no API key configured"))
	}

	uri, err := imageDataURI(req.ImageFile)
	if err != nil {
		return nil, types.NewProviderError("runway", types.ErrContent, err)
	}

	body, _ := json.Marshal(map[string]interface{}{
		"model":       "gen3a_turbo",
		"promptImage": uri,
		"promptText":  req.Prompt,
		"ratio":       runwayRatio(req.Width, req.Height),
		"duration":    5,
		"seed":        req.Seed,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.dev.runwayml.com/v1/image_to_video", bytes.NewReader(body))
	if err != nil {
		return nil, types.NewProviderError("runway", types.ErrNetwork, err)
	}
	r.setHeaders(httpReq)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, types.NewProviderError("runway", types.ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewProviderError("runway", types.ErrNetwork, err)
	}
	if err := classifyStatus("runway", resp.StatusCode, respBytes); err != nil {
		return nil, err
	}

	var parsed struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(respBytes, &parsed); err != nil || parsed.ID == "" {
		return nil, types.NewProviderError("runway", types.ErrContent, fmt.Errorf("no task id returned"))
	}
	return r.poll(ctx, parsed.ID, req.OutFile)
}

func (r *RunwayClient) poll(ctx context.Context, id, outFile string) (*Artifact, error) {
	deadline := time.Now().Add(motionPollTimeout)
	for {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://api.dev.runwayml.com/v1/tasks/"+id, nil)
		if err != nil {
			return nil, types.NewProviderError("runway", types.ErrNetwork, err)
		}
		r.setHeaders(httpReq)

		resp, err := r.httpClient.Do(httpReq)
		if err != nil {
			return nil, types.NewProviderError("runway", types.ErrNetwork, err)
		}
		respBytes, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return nil, types.NewProviderError("runway", types.ErrNetwork, err)
		}
		if err := classifyStatus("runway", resp.StatusCode, respBytes); err != nil {
			return nil, err
		}

		var task struct {
			Status  string   `json:"status"`
			Output  []string `json:"output"`
			Failure string   `json:"failure"`
		}
		if err := json.Unmarshal(respBytes, &task); err != nil {
			return nil, types.NewProviderError("runway", types.ErrContent, err)
		}

		switch task.Status {
		case "SUCCEEDED":
			if len(task.Output) == 0 {
				return nil, types.NewProviderError("runway", types.ErrContent, fmt.Errorf("task succeeded with no output"))
			}
			if err := downloadFile(ctx, r.httpClient, "runway", task.Output[0], nil, outFile); err != nil {
				return nil, err
			}
			return &Artifact{Path: outFile}, nil
		case "FAILED":
			return nil, types.NewProviderError("runway", types.ErrContent, fmt.Errorf("task failed: %s", task.Failure))
		}

		if time.Now().After(deadline) {
			return nil, types.NewProviderError("runway", types.ErrNetwork, fmt.Errorf("render timed out after %s", motionPollTimeout))
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(motionPollInterval):
		}
	}
}

func (r *RunwayClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("X-Runway-Version", "2024-11-06")
	req.Header.Set("Content-Type", "application/json")
}

// runwayRatio picks the closest supported frame ratio for the target
// geometry.
func runwayRatio(width, height int) string {
	if height > width {
		return "768:1280"
	}
	return "1280:768"
}

// imageDataURI inlines a local image as a base64 data URI.
func imageDataURI(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	mime := "image/jpeg"
	if filepath.Ext(path) == ".png" {
		mime = "image/png"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

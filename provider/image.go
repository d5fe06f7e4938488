package provider

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"prompt2video/types"
)

// PollinationsClient generates images via Pollinations.ai. Keyless, which
// makes it the default tail of every image chain.
type PollinationsClient struct {
	httpClient *http.Client
}

func NewPollinations() *PollinationsClient {
	return &PollinationsClient{httpClient: &http.Client{Timeout: 60 * time.Second}}
}

func (p *PollinationsClient) Name() string { return "pollinations" }

func (p *PollinationsClient) Generate(ctx context.Context, req Request) (*Artifact, error) {
	if req.Prompt == "" {
		return nil, types.NewProviderError("pollinations", types.ErrContent, fmt.Errorf("empty image prompt"))
	}

	imageURL := fmt.Sprintf(
		"https://image.pollinations.ai/prompt/%s?width=%d&height=%d&nologo=true&model=flux&seed=%d",
		url.PathEscape(req.Prompt), req.Width, req.Height, req.Seed,
	)

	if err := downloadFile(ctx, p.httpClient, "pollinations", imageURL, nil, req.OutFile); err != nil {
		return nil, err
	}
	return &Artifact{Path: req.OutFile}, nil
}

// OpenAIImageClient generates images via the OpenAI images endpoint.
type OpenAIImageClient struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewOpenAIImage(apiKey, model string) *OpenAIImageClient {
	if model == "" {
		model = "dall-e-3"
	}
	return &OpenAIImageClient{
		apiKey:     apiKey,
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (o *OpenAIImageClient) Name() string { return "openai" }

func (o *OpenAIImageClient) Generate(ctx context.Context, req Request) (*Artifact, error) {
	if o.apiKey == "" {
		return nil, types.NewProviderError("openai", types.ErrAuth, fmt.Errorf("no API key configured"))
	}

	body, _ := json.Marshal(map[string]interface{}{
		"model":  o.model,
		"prompt": req.Prompt,
		"n":      1,
		"size":   fmt.Sprintf("%dx%d", req.Width, req.Height),
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/images/generations", bytes.NewReader(body))
	if err != nil {
		return nil, types.NewProviderError("openai", types.ErrNetwork, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+o.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, types.NewProviderError("openai", types.ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewProviderError("openai", types.ErrNetwork, err)
	}
	if err := classifyStatus("openai", resp.StatusCode, respBytes); err != nil {
		return nil, err
	}

	var parsed struct {
		Data []struct {
			URL string `json:"url"`
		} `json:"data"`
	}
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return nil, types.NewProviderError("openai", types.ErrContent, err)
	}
	if len(parsed.Data) == 0 || parsed.Data[0].URL == "" {
		return nil, types.NewProviderError("openai", types.ErrContent, fmt.Errorf("no image returned"))
	}

	if err := downloadFile(ctx, o.httpClient, "openai", parsed.Data[0].URL, nil, req.OutFile); err != nil {
		return nil, err
	}
	return &Artifact{Path: req.OutFile}, nil
}

// StabilityClient generates images via the Stability AI SDXL endpoint.
type StabilityClient struct {
	apiKey     string
	httpClient *http.Client
}

func NewStability(apiKey string) *StabilityClient {
	return &StabilityClient{apiKey: apiKey, httpClient: &http.Client{Timeout: 120 * time.Second}}
}

func (s *StabilityClient) Name() string { return "stability" }

func (s *StabilityClient) Generate(ctx context.Context, req Request) (*Artifact, error) {
	if s.apiKey == "" {
		return nil, types.NewProviderError("stability", types.ErrAuth, fmt.Errorf("no API key configured"))
	}

	body, _ := json.Marshal(map[string]interface{}{
		"text_prompts": []map[string]interface{}{{"text": req.Prompt, "weight": 1}},
		"cfg_scale":    7,
		"width":        req.Width,
		"height":       req.Height,
		"steps":        30,
		"samples":      1,
	})

	endpoint := "https://api.stability.ai/v1/generation/stable-diffusion-xl-1024-v1-0/text-to-image"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewProviderError("stability", types.ErrNetwork, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

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
		Artifacts []struct {
			Base64 string `json:"base64"`
		} `json:"artifacts"`
	}
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return nil, types.NewProviderError("stability", types.ErrContent, err)
	}
	if len(parsed.Artifacts) == 0 {
		return nil, types.NewProviderError("stability", types.ErrContent, fmt.Errorf("no artifacts returned"))
	}

	data, err := base64.StdEncoding.DecodeString(parsed.Artifacts[0].Base64)
	if err != nil {
		return nil, types.NewProviderError("stability", types.ErrContent, err)
	}
	if err := os.WriteFile(req.OutFile, data, 0644); err != nil {
		return nil, types.NewProviderError("stability", types.ErrNetwork, err)
	}
	return &Artifact{Path: req.OutFile}, nil
}

// downloadFile fetches url to outFile, classifying transport and status
// failures for the fallback policy.
func downloadFile(ctx context.Context, client *http.Client, provider, fileURL string, headers map[string]string, outFile string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return types.NewProviderError(provider, types.ErrNetwork, err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return types.NewProviderError(provider, types.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return classifyStatus(provider, resp.StatusCode, nil)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.NewProviderError(provider, types.ErrNetwork, err)
	}
	// An error page instead of image bytes shows up as a tiny body.
	if len(data) < 100 {
		return types.NewProviderError(provider, types.ErrContent, fmt.Errorf("response too small (%d bytes)", len(data)))
	}
	if err := os.WriteFile(outFile, data, 0644); err != nil {
		return types.NewProviderError(provider, types.ErrNetwork, err)
	}
	return nil
}

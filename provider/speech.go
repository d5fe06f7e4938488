package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"time"

	"prompt2video/types"
)

// EdgeTTSClient synthesizes speech with the edge-tts CLI (free Microsoft
// voices). Keyless; requires the binary on PATH.
type EdgeTTSClient struct {
	voice string
	rate  string
}

func NewEdgeTTS(voice, rate string) *EdgeTTSClient {
	if voice == "" {
		voice = "en-US-GuyNeural"
	}
	if rate == "" {
		rate = "+0%"
	}
	return &EdgeTTSClient{voice: voice, rate: rate}
}

func (e *EdgeTTSClient) Name() string { return "edge" }

func (e *EdgeTTSClient) Generate(ctx context.Context, req Request) (*Artifact, error) {
	if _, err := exec.LookPath("edge-tts"); err != nil {
		return nil, types.NewProviderError("edge", types.ErrAuth, fmt.Errorf("edge-tts not installed: %w", err))
	}

	voice := req.Voice
	if voice == "" {
		voice = e.voice
	}

	cmd := exec.CommandContext(ctx, "edge-tts",
		"--voice", voice,
		"--rate", e.rate,
		"--text", req.Prompt,
		"--write-media", req.OutFile,
	)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return nil, types.NewProviderError("edge", types.ErrNetwork, fmt.Errorf("edge-tts: %w", err))
	}
	return &Artifact{Path: req.OutFile}, nil
}

// OpenAITTSClient synthesizes speech via the OpenAI audio endpoint.
type OpenAITTSClient struct {
	apiKey     string
	voice      string
	httpClient *http.Client
}

func NewOpenAITTS(apiKey, voice string) *OpenAITTSClient {
	if voice == "" {
		voice = "alloy"
	}
	return &OpenAITTSClient{
		apiKey:     apiKey,
		voice:      voice,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

func (o *OpenAITTSClient) Name() string { return "openai" }

func (o *OpenAITTSClient) Generate(ctx context.Context, req Request) (*Artifact, error) {
	if o.apiKey == "" {
		return nil, types.NewProviderError("openai", types.ErrAuth, fmt.Errorf("no API key configured"))
	}

	voice := req.Voice
	if voice == "" {
		voice = o.voice
	}

	body, _ := json.Marshal(map[string]interface{}{
		"model":           "tts-1",
		"input":           req.Prompt,
		"voice":           voice,
		"response_format": "mp3",
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.openai.com/v1/audio/speech", bytes.NewReader(body))
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

	if resp.StatusCode != http.StatusOK {
		respBytes, _ := io.ReadAll(resp.Body)
		return nil, classifyStatus("openai", resp.StatusCode, respBytes)
	}

	out, err := os.Create(req.OutFile)
	if err != nil {
		return nil, types.NewProviderError("openai", types.ErrNetwork, err)
	}
	defer out.Close()
	if _, err := io.Copy(out, resp.Body); err != nil {
		return nil, types.NewProviderError("openai", types.ErrNetwork, err)
	}
	return &Artifact{Path: req.OutFile}, nil
}

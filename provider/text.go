package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"prompt2video/types"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ChatClient talks to any OpenAI-compatible chat completion endpoint
// (OpenAI, Groq). The endpoint shape is identical; only base URL, key and
// model differ.
type ChatClient struct {
	name        string
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	httpClient  *http.Client
}

// NewOpenAIChat builds a chat client against api.openai.com.
func NewOpenAIChat(apiKey, model string, temperature float64, maxTokens int) *ChatClient {
	return newChat("openai", "https://api.openai.com/v1/chat/completions", apiKey, model, temperature, maxTokens)
}

// NewGroqChat builds a chat client against the Groq OpenAI-compatible API.
func NewGroqChat(apiKey, model string, temperature float64, maxTokens int) *ChatClient {
	return newChat("groq", "https://api.groq.com/openai/v1/chat/completions", apiKey, model, temperature, maxTokens)
}

func newChat(name, baseURL, apiKey, model string, temperature float64, maxTokens int) *ChatClient {
	return &ChatClient{
		name:        name,
		baseURL:     baseURL,
		apiKey:      apiKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *ChatClient) Name() string { return c.name }

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (c *ChatClient) Generate(ctx context.Context, req Request) (*Artifact, error) {
	if c.apiKey == "" {
		return nil, types.NewProviderError(c.name, types.ErrAuth, fmt.Errorf("no API key configured"))
	}

	messages := []chatMessage{}
	if req.System != "" {
		messages = append(messages, chatMessage{Role: "system", Content: req.System})
	}
	messages = append(messages, chatMessage{Role: "user", Content: req.Prompt})

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: c.temperature,
		MaxTokens:   c.maxTokens,
	})
	if err != nil {
		return nil, types.NewProviderError(c.name, types.ErrContent, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewProviderError(c.name, types.ErrNetwork, err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, types.NewProviderError(c.name, types.ErrNetwork, err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, types.NewProviderError(c.name, types.ErrNetwork, err)
	}
	if err := classifyStatus(c.name, resp.StatusCode, respBytes); err != nil {
		return nil, err
	}

	var parsed chatResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return nil, types.NewProviderError(c.name, types.ErrContent, fmt.Errorf("parse response: %w", err))
	}
	if parsed.Error != nil {
		return nil, types.NewProviderError(c.name, types.ErrContent, fmt.Errorf("%s", parsed.Error.Message))
	}
	if len(parsed.Choices) == 0 {
		return nil, types.NewProviderError(c.name, types.ErrContent, fmt.Errorf("no choices returned"))
	}

	return &Artifact{Text: CleanJSON(parsed.Choices[0].Message.Content)}, nil
}

// GeminiClient generates text via the Google generative AI SDK.
type GeminiClient struct {
	apiKey string
	model  string
}

// NewGemini builds a Gemini text client.
func NewGemini(apiKey, model string) *GeminiClient {
	if model == "" {
		model = "gemini-1.5-flash"
	}
	return &GeminiClient{apiKey: apiKey, model: model}
}

func (g *GeminiClient) Name() string { return "gemini" }

func (g *GeminiClient) Generate(ctx context.Context, req Request) (*Artifact, error) {
	if g.apiKey == "" {
		return nil, types.NewProviderError("gemini", types.ErrAuth, fmt.Errorf("no API key configured"))
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, types.NewProviderError("gemini", types.ErrAuth, err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.model)
	if req.System != "" {
		model.SystemInstruction = genai.NewUserContent(genai.Text(req.System))
	}

	resp, err := model.GenerateContent(ctx, genai.Text(req.Prompt))
	if err != nil {
		return nil, types.NewProviderError("gemini", types.ErrNetwork, err)
	}
	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return nil, types.NewProviderError("gemini", types.ErrContent, fmt.Errorf("no response candidates"))
	}

	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if txt, ok := part.(genai.Text); ok {
			sb.WriteString(string(txt))
		}
	}
	return &Artifact{Text: CleanJSON(sb.String())}, nil
}

// CleanJSON strips markdown code fences that chat models like to wrap JSON in.
func CleanJSON(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

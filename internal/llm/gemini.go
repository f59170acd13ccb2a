package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"remote-diagnosis-server/internal/config"
	"remote-diagnosis-server/internal/logger"
)

const (
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
	defaultGeminiModel   = "gemini-2.0-flash"
)

// GeminiClient talks to the Gemini generateContent REST API. It is the
// default provider and handles multimodal requests by inlining image bytes
// as base64 parts.
type GeminiClient struct {
	baseURL         string
	apiKey          string
	model           string
	maxOutputTokens int
	httpClient      *http.Client
	log             *logger.Logger
}

var _ Client = (*GeminiClient)(nil)

// NewGeminiClient builds a Gemini-backed generation client from config.
func NewGeminiClient(cfg config.GenerationConfig, log *logger.Logger) *GeminiClient {
	baseURL := strings.TrimRight(cfg.GeminiBaseURL, "/")
	if baseURL == "" {
		baseURL = defaultGeminiBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = defaultGeminiModel
	}
	return &GeminiClient{
		baseURL:         baseURL,
		apiKey:          cfg.GeminiAPIKey,
		model:           model,
		maxOutputTokens: cfg.MaxOutputTokens,
		// No client-level timeout; the per-attempt deadline comes in on the
		// request context.
		httpClient: &http.Client{},
		log:        log,
	}
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiGenerationConfig struct {
	MaxOutputTokens int `json:"maxOutputTokens,omitempty"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent          `json:"system_instruction,omitempty"`
	Contents          []geminiContent         `json:"contents"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Generate sends a single-turn generateContent call and returns the
// concatenated text of the first candidate.
func (c *GeminiClient) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	parts := []geminiPart{{Text: req.User}}
	for _, att := range req.Attachments {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: att.MediaType,
			Data:     base64.StdEncoding.EncodeToString(att.Data),
		}})
	}

	body := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
	}
	if req.System != "" {
		body.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: req.System}}}
	}
	if c.maxOutputTokens > 0 {
		body.GenerationConfig = &geminiGenerationConfig{MaxOutputTokens: c.maxOutputTokens}
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.baseURL, c.model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", err
	}
	raw, readErr := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if readErr != nil {
		return "", readErr
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", &HTTPError{
			StatusCode: resp.StatusCode,
			Body:       string(raw),
			RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}

	var decoded geminiResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("gemini decode error: %w; raw=%s", err, string(raw))
	}

	if decoded.PromptFeedback != nil && decoded.PromptFeedback.BlockReason != "" {
		return "", &RefusalError{Reason: "prompt blocked: " + decoded.PromptFeedback.BlockReason}
	}
	if len(decoded.Candidates) == 0 {
		return "", fmt.Errorf("gemini returned no candidates")
	}

	candidate := decoded.Candidates[0]
	switch candidate.FinishReason {
	case "SAFETY", "PROHIBITED_CONTENT", "BLOCKLIST":
		return "", &RefusalError{Reason: "candidate blocked: " + candidate.FinishReason}
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// parseRetryAfter reads a Retry-After header given in seconds.
func parseRetryAfter(value string) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	secs, err := strconv.Atoi(value)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs) * time.Second
}

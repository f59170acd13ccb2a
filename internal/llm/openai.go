package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"remote-diagnosis-server/internal/config"
	"remote-diagnosis-server/internal/logger"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient is the alternative provider, backed by the OpenAI chat
// completion API. Images ride along as data-URL parts of the user message.
type OpenAIClient struct {
	client          *openai.Client
	model           string
	maxOutputTokens int
	log             *logger.Logger
}

var _ Client = (*OpenAIClient)(nil)

// NewOpenAIClient builds an OpenAI-backed generation client from config.
func NewOpenAIClient(cfg config.GenerationConfig, log *logger.Logger) *OpenAIClient {
	clientConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		clientConfig.BaseURL = strings.TrimRight(cfg.OpenAIBaseURL, "/")
	}
	model := cfg.Model
	if model == "" {
		model = defaultOpenAIModel
	}
	return &OpenAIClient{
		client:          openai.NewClientWithConfig(clientConfig),
		model:           model,
		maxOutputTokens: cfg.MaxOutputTokens,
		log:             log,
	}
}

// Generate sends the request as a system + user chat completion and returns
// the assistant's response text.
func (c *OpenAIClient) Generate(ctx context.Context, req GenerationRequest) (string, error) {
	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.System != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.System,
		})
	}

	userMsg := openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser}
	if len(req.Attachments) == 0 {
		userMsg.Content = req.User
	} else {
		parts := []openai.ChatMessagePart{{
			Type: openai.ChatMessagePartTypeText,
			Text: req.User,
		}}
		for _, att := range req.Attachments {
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL: fmt.Sprintf("data:%s;base64,%s", att.MediaType,
						base64.StdEncoding.EncodeToString(att.Data)),
				},
			})
		}
		userMsg.MultiContent = parts
	}
	messages = append(messages, userMsg)

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    messages,
		MaxTokens:   c.maxOutputTokens,
		Temperature: 0.2,
	})
	if err != nil {
		return "", translateOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai returned no choices")
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", &RefusalError{Reason: "response stopped by content filter"}
	}
	return choice.Message.Content, nil
}

// translateOpenAIError maps library errors onto the provider-neutral error
// types the retry policy understands.
func translateOpenAIError(err error) error {
	var apiErr *openai.APIError
	if !errors.As(err, &apiErr) {
		return err
	}
	if code, ok := apiErr.Code.(string); ok && strings.Contains(code, "content_policy") {
		return &RefusalError{Reason: apiErr.Message}
	}
	return &HTTPError{
		StatusCode: apiErr.HTTPStatusCode,
		Body:       apiErr.Message,
	}
}

package ai

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/ulya2402/Wisedebot/internal/config"
	"github.com/ulya2402/Wisedebot/internal/models"
)

// Provider failures are reported in-band on MainResponse with these
// prefixes so callers can map them to localized messages without
// special-casing error types.
const (
	ErrPrefixAPI        = "GROQ_API_ERROR:"
	ErrPrefixUnexpected = "UNEXPECTED_GROQ_ERROR:"
)

var thinkBlockRe = regexp.MustCompile(`(?s)<think>(.*?)</think>`)

// CompletionResult carries the visible answer and any reasoning the model
// emitted inside <think> blocks, already separated.
type CompletionResult struct {
	MainResponse string
	Thoughts     string
}

// IsProviderError reports whether the result carries a tagged failure
// instead of an answer.
func (r CompletionResult) IsProviderError() (tag string, detail string, ok bool) {
	for _, prefix := range []string{ErrPrefixAPI, ErrPrefixUnexpected} {
		if strings.HasPrefix(r.MainResponse, prefix) {
			return prefix, strings.TrimSpace(strings.TrimPrefix(r.MainResponse, prefix)), true
		}
	}
	return "", "", false
}

// Client talks to Groq's OpenAI-compatible chat completion API. Each group
// brings its own API key, so the underlying client is built per call.
type Client struct {
	baseURL   string
	maxTokens int
	logger    *logrus.Logger
}

func NewClient(cfg *config.GroqConfig, logger *logrus.Logger) *Client {
	return &Client{
		baseURL:   cfg.BaseURL,
		maxTokens: cfg.MaxTokens,
		logger:    logger,
	}
}

func (c *Client) apiClient(apiKey string) *openai.Client {
	clientCfg := openai.DefaultConfig(apiKey)
	clientCfg.BaseURL = c.baseURL
	return openai.NewClientWithConfig(clientCfg)
}

// Complete runs one chat completion. Never returns an error: provider and
// transport failures come back tagged on MainResponse.
func (c *Client) Complete(ctx context.Context, apiKey, model string, messages []models.Message) CompletionResult {
	reqMessages := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		reqMessages = append(reqMessages, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.apiClient(apiKey).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     model,
		Messages:  reqMessages,
		MaxTokens: c.maxTokens,
	})
	if err != nil {
		return c.tagError(model, err)
	}
	if len(resp.Choices) == 0 {
		c.logger.WithField("model", model).Warn("Completion returned no choices")
		return CompletionResult{MainResponse: fmt.Sprintf("%s empty completion", ErrPrefixAPI)}
	}

	main, thoughts := ExtractThoughts(resp.Choices[0].Message.Content)
	return CompletionResult{MainResponse: main, Thoughts: thoughts}
}

func (c *Client) tagError(model string, err error) CompletionResult {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		c.logger.WithError(err).WithField("model", model).Error("Groq API error")
		return CompletionResult{MainResponse: fmt.Sprintf("%s %s", ErrPrefixAPI, apiErr.Message)}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		c.logger.WithError(err).WithField("model", model).Error("Groq request error")
		return CompletionResult{MainResponse: fmt.Sprintf("%s HTTP %d", ErrPrefixAPI, reqErr.HTTPStatusCode)}
	}
	c.logger.WithError(err).WithField("model", model).Error("Unexpected completion failure")
	return CompletionResult{MainResponse: fmt.Sprintf("%s %v", ErrPrefixUnexpected, err)}
}

// ValidateAPIKey checks a candidate key by listing the account's models.
// The reason is only meaningful when ok is false.
func (c *Client) ValidateAPIKey(ctx context.Context, apiKey string) (ok bool, reason string) {
	if _, err := c.apiClient(apiKey).ListModels(ctx); err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			if apiErr.HTTPStatusCode == 401 {
				return false, "invalid or revoked key"
			}
			return false, apiErr.Message
		}
		return false, err.Error()
	}
	return true, ""
}

// ExtractThoughts strips every <think> block from raw. The visible text
// keeps its surrounding whitespace trimmed; multiple blocks are joined
// with a separator line.
func ExtractThoughts(raw string) (main, thoughts string) {
	matches := thinkBlockRe.FindAllStringSubmatch(raw, -1)
	if len(matches) == 0 {
		return strings.TrimSpace(raw), ""
	}

	blocks := make([]string, 0, len(matches))
	for _, m := range matches {
		if block := strings.TrimSpace(m[1]); block != "" {
			blocks = append(blocks, block)
		}
	}

	main = strings.TrimSpace(thinkBlockRe.ReplaceAllString(raw, ""))
	return main, strings.Join(blocks, "\n---\n")
}

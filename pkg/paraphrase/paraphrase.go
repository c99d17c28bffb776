// Package paraphrase rewrites repost captions in the source account's
// voice using a chat-completion language model. Every failure path
// degrades to the original caption so reposting never blocks on the model.
package paraphrase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"igreposter/pkg/apierr"
	"igreposter/pkg/logger"
	"igreposter/pkg/models"
)

const (
	styleSystemPromptFmt = "You are a social media caption writer. Rewrite the given caption " +
		"in the voice, tone and hashtag style of @%s, learned from their sample captions. " +
		"Keep roughly the same length. Return only the rewritten caption, nothing else."

	analyzeSystemPrompt = "You analyze social media writing style. Given sample captions, " +
		"respond with a JSON object with keys: tone (string), commonWords (array of strings), " +
		"avgLength (number of characters), emojiUsage (string), hashtagStyle (string)."
)

// Options configures the rewriter.
type Options struct {
	APIKey              string
	BaseURL             string
	Model               string
	MaxCompletionTokens int
	SampleCaptionLimit  int
	Timeout             time.Duration
}

// Rewriter talks to an OpenAI-compatible chat completions endpoint.
type Rewriter struct {
	httpClient  *http.Client
	apiKey      string
	baseURL     string
	model       string
	maxTokens   int
	sampleLimit int
	logger      logger.Logger
}

// New creates a caption rewriter.
func New(opts Options, log logger.Logger) *Rewriter {
	if log == nil {
		log = logger.GetLogger()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = "https://api.openai.com/v1"
	}
	if opts.Model == "" {
		opts.Model = "gpt-5"
	}
	if opts.MaxCompletionTokens <= 0 {
		opts.MaxCompletionTokens = 500
	}
	if opts.SampleCaptionLimit <= 0 {
		opts.SampleCaptionLimit = 10
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	return &Rewriter{
		httpClient:  &http.Client{Timeout: opts.Timeout},
		apiKey:      opts.APIKey,
		baseURL:     strings.TrimRight(opts.BaseURL, "/"),
		model:       opts.Model,
		maxTokens:   opts.MaxCompletionTokens,
		sampleLimit: opts.SampleCaptionLimit,
		logger:      log,
	}
}

// Configured reports whether an API key is present.
func (r *Rewriter) Configured() bool {
	return r.apiKey != ""
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model               string         `json:"model"`
	Messages            []chatMessage  `json:"messages"`
	MaxCompletionTokens int            `json:"max_completion_tokens,omitempty"`
	ResponseFormat      map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ParaphraseCaption rewrites caption in the style of username's sample
// captions. Any failure, including a missing key, returns the original
// caption.
func (r *Rewriter) ParaphraseCaption(ctx context.Context, caption, username string, samples []string) string {
	if caption == "" {
		return caption
	}
	if !r.Configured() {
		r.logger.Debug("language model key not configured, keeping original caption")
		return caption
	}

	if len(samples) > r.sampleLimit {
		samples = samples[:r.sampleLimit]
	}

	userPrompt := fmt.Sprintf("Sample captions from @%s:\n%s\n\nRewrite this caption in @%s's style:\n%s",
		username, strings.Join(samples, "\n---\n"), username, caption)

	req := chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(styleSystemPromptFmt, username)},
			{Role: "user", Content: userPrompt},
		},
		MaxCompletionTokens: r.maxTokens,
	}

	content, err := r.complete(ctx, req)
	if err != nil {
		r.logger.WarnWithFields("caption paraphrase failed, keeping original", map[string]interface{}{
			"error": err.Error(),
		})
		return caption
	}

	rewritten := strings.TrimSpace(content)
	if rewritten == "" {
		return caption
	}
	return rewritten
}

// defaultStyle is reported when analysis fails for any reason.
func defaultStyle() *models.StyleProfile {
	return &models.StyleProfile{
		Tone:         "casual",
		CommonWords:  []string{},
		AvgLength:    100,
		EmojiUsage:   "moderate",
		HashtagStyle: "moderate",
	}
}

// AnalyzeStyle asks the model to summarize the writing style of up to 20
// sample captions. Failure yields a fixed default profile, never an error.
func (r *Rewriter) AnalyzeStyle(ctx context.Context, samples []string) *models.StyleProfile {
	if !r.Configured() || len(samples) == 0 {
		return defaultStyle()
	}

	if len(samples) > 20 {
		samples = samples[:20]
	}

	req := chatRequest{
		Model: r.model,
		Messages: []chatMessage{
			{Role: "system", Content: analyzeSystemPrompt},
			{Role: "user", Content: strings.Join(samples, "\n---\n")},
		},
		MaxCompletionTokens: r.maxTokens,
		ResponseFormat:      map[string]any{"type": "json_object"},
	}

	content, err := r.complete(ctx, req)
	if err != nil {
		r.logger.WarnWithFields("style analysis failed, using defaults", map[string]interface{}{
			"error": err.Error(),
		})
		return defaultStyle()
	}

	var style models.StyleProfile
	if err := json.Unmarshal([]byte(content), &style); err != nil {
		r.logger.WarnWithFields("style analysis returned malformed JSON", map[string]interface{}{
			"error": err.Error(),
		})
		return defaultStyle()
	}
	if style.Tone == "" {
		style.Tone = "casual"
	}
	if style.CommonWords == nil {
		style.CommonWords = []string{}
	}
	return &style
}

func (r *Rewriter) complete(ctx context.Context, payload chatRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		r.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+r.apiKey)

	start := time.Now()
	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", &apierr.Error{
			Type:    apierr.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
		}
	}
	defer resp.Body.Close()

	r.logger.DebugWithFields("chat completion finished", map[string]interface{}{
		"model":    payload.Model,
		"status":   resp.StatusCode,
		"duration": time.Since(start),
	})

	if resp.StatusCode != http.StatusOK {
		return "", &apierr.Error{
			Type:    apierr.ErrorTypeServerError,
			Message: "chat completion request failed",
			Code:    resp.StatusCode,
		}
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", &apierr.Error{
			Type:    apierr.ErrorTypeParsing,
			Message: fmt.Sprintf("failed to parse completion: %v", err),
		}
	}
	if len(parsed.Choices) == 0 {
		return "", &apierr.Error{
			Type:    apierr.ErrorTypeParsing,
			Message: "completion contained no choices",
		}
	}

	return parsed.Choices[0].Message.Content, nil
}

// Package translate provides LLM-backed chat translation using the OpenAI API.
package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strings"

	"github.com/castellan-bot/castellan/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// DefaultModel is the chat model used for translations.
const DefaultModel = openai.ChatModelGPT4oMini

// completionService defines the minimal interface for chat completions.
type completionService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Translation is a parsed model reply.
type Translation struct {
	Language string `json:"language"`
	Text     string `json:"text"`
}

// Translator wraps the OpenAI chat completion service for translating chat
// messages between community languages.
type Translator struct {
	chat  completionService
	model openai.ChatModel
}

// Opts holds configuration for translator construction.
type Opts struct {
	APIKey string
	Model  openai.ChatModel
}

// Option configures translator construction.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key, overriding OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the chat model.
func WithModel(model openai.ChatModel) Option {
	return func(o *Opts) { o.Model = model }
}

// NewTranslator initializes a translator from options, falling back to the
// OPENAI_API_KEY environment variable.
func NewTranslator(opts ...Option) (*Translator, error) {
	cfg := Opts{Model: DefaultModel}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &Translator{chat: &client.Chat.Completions, model: cfg.Model}, nil
}

// ToEnglish translates text to English and reports the detected source
// language.
func (t *Translator) ToEnglish(ctx context.Context, text string) (*Translation, error) {
	cleaned := cleanText(text)
	if strings.TrimSpace(cleaned) == "" {
		return nil, models.ErrEmptyMessage
	}

	prompt := fmt.Sprintf(`Analyze the following text. Identify its source language and translate it into English.
If the original text is already in English, identify the language as "English".

Input: %q

Respond ONLY with a JSON object in this exact format:
{"language": "detected language name", "text": "English translation"}`, cleaned)

	return t.complete(ctx, prompt)
}

// ToLanguage translates text into the named target language.
func (t *Translator) ToLanguage(ctx context.Context, text, targetLanguage string) (*Translation, error) {
	cleaned := cleanText(text)
	if strings.TrimSpace(cleaned) == "" {
		return nil, models.ErrEmptyMessage
	}

	prompt := fmt.Sprintf(`Translate the following text into %s.

Input: %q

Respond ONLY with a JSON object in this exact format:
{"text": "translated text"}`, targetLanguage, cleaned)

	tr, err := t.complete(ctx, prompt)
	if err != nil {
		return nil, err
	}
	tr.Language = targetLanguage
	return tr, nil
}

func (t *Translator) complete(ctx context.Context, prompt string) (*Translation, error) {
	resp, err := t.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: t.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You are a translation assistant for a game community chat."),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		slog.Error("Translator.complete: completion request failed", "error", err)
		return nil, fmt.Errorf("translation request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, models.ErrNoCompletion
	}

	tr, err := parseReply(resp.Choices[0].Message.Content)
	if err != nil {
		slog.Warn("Translator.complete: unparsable model reply", "error", err)
		return nil, err
	}
	return tr, nil
}

var (
	// nonTextual strips emojis and decoration the model tends to choke on.
	nonTextual = regexp.MustCompile(`[^\p{L}\p{N}\s.,!?'-]`)
	// jsonObject extracts the first JSON object from a model reply.
	jsonObject = regexp.MustCompile(`(?s)\{.*\}`)
)

// cleanText removes emojis and special characters from text.
func cleanText(text string) string {
	return nonTextual.ReplaceAllString(text, "")
}

// parseReply extracts and decodes the JSON object embedded in a model reply.
func parseReply(reply string) (*Translation, error) {
	match := jsonObject.FindString(reply)
	if match == "" {
		return nil, models.ErrUnparsableReply
	}
	var tr Translation
	if err := json.Unmarshal([]byte(match), &tr); err != nil {
		return nil, fmt.Errorf("failed to decode translation reply: %w", err)
	}
	return &tr, nil
}

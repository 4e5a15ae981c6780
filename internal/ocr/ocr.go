// Package ocr extracts structured data from game screenshots using the
// OpenAI vision API, guided by named extraction schemas.
package ocr

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

// DefaultModel is the vision-capable chat model used for extraction.
const DefaultModel = openai.ChatModelGPT4oMini

// completionService defines the minimal interface for chat completions.
type completionService interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// Extractor runs schema-guided extraction over screenshot URLs.
type Extractor struct {
	chat     completionService
	model    openai.ChatModel
	registry *Registry
}

// Opts holds configuration for extractor construction.
type Opts struct {
	APIKey     string
	Model      openai.ChatModel
	SchemaFile string
}

// Option configures extractor construction.
type Option func(*Opts)

// WithAPIKey sets the OpenAI API key, overriding OPENAI_API_KEY.
func WithAPIKey(key string) Option {
	return func(o *Opts) { o.APIKey = key }
}

// WithModel overrides the vision model.
func WithModel(model openai.ChatModel) Option {
	return func(o *Opts) { o.Model = model }
}

// WithSchemaFile loads extraction schemas from a YAML file instead of the
// embedded defaults.
func WithSchemaFile(path string) Option {
	return func(o *Opts) { o.SchemaFile = path }
}

// NewExtractor initializes an extractor from options, falling back to the
// OPENAI_API_KEY environment variable and the embedded schema registry.
func NewExtractor(opts ...Option) (*Extractor, error) {
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

	var registry *Registry
	var err error
	if cfg.SchemaFile != "" {
		registry, err = LoadRegistry(cfg.SchemaFile)
	} else {
		registry, err = NewDefaultRegistry()
	}
	if err != nil {
		return nil, err
	}

	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	slog.Debug("ocr.NewExtractor: extractor initialized", "schemas", registry.Names())
	return &Extractor{chat: &client.Chat.Completions, model: cfg.Model, registry: registry}, nil
}

// Schemas returns the available extraction schema names.
func (e *Extractor) Schemas() []string {
	return e.registry.Names()
}

// Extract runs one screenshot through the named schema and returns the raw
// JSON object the model produced.
func (e *Extractor) Extract(ctx context.Context, schemaName, imageURL string) (json.RawMessage, error) {
	schema, ok := e.registry.Get(schemaName)
	if !ok {
		return nil, fmt.Errorf("%w: %s", models.ErrUnknownSchema, schemaName)
	}

	resp, err := e.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: e.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You extract structured data from mobile game screenshots."),
			openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
				openai.TextContentPart(buildPrompt(schemaName, schema)),
				openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: imageURL}),
			}),
		},
	})
	if err != nil {
		slog.Error("Extractor.Extract: completion request failed", "error", err, "schema", schemaName)
		return nil, fmt.Errorf("extraction request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, models.ErrNoCompletion
	}

	raw := jsonObject.FindString(resp.Choices[0].Message.Content)
	if raw == "" {
		return nil, models.ErrUnparsableReply
	}
	if !json.Valid([]byte(raw)) {
		return nil, fmt.Errorf("model produced invalid JSON for schema %s", schemaName)
	}
	slog.Debug("Extractor.Extract: extraction complete", "schema", schemaName, "bytes", len(raw))
	return json.RawMessage(raw), nil
}

var jsonObject = regexp.MustCompile(`(?s)\{.*\}`)

// buildPrompt renders a schema as extraction instructions.
func buildPrompt(name string, schema Schema) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Extract data from this screenshot: %s.\n", schema.Description)
	b.WriteString("Respond ONLY with a JSON object containing these properties:\n")
	for _, f := range schema.Fields {
		fmt.Fprintf(&b, "- %q (%s): %s\n", f.Name, f.Type, f.Description)
	}
	b.WriteString("Use null for values that cannot be read from the image.")
	return b.String()
}

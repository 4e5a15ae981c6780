package ocr

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/castellan-bot/castellan/internal/models"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type fakeCompletions struct {
	reply      string
	err        error
	noChoices  bool
	lastParams openai.ChatCompletionNewParams
}

func (f *fakeCompletions) New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	if f.noChoices {
		return &openai.ChatCompletion{}, nil
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.reply}},
		},
	}, nil
}

func newTestExtractor(t *testing.T, fake *fakeCompletions) *Extractor {
	t.Helper()
	registry, err := NewDefaultRegistry()
	if err != nil {
		t.Fatalf("failed to load default registry: %v", err)
	}
	return &Extractor{chat: fake, model: DefaultModel, registry: registry}
}

func TestExtract(t *testing.T) {
	fake := &fakeCompletions{reply: "```json\n{\"entries\": [{\"rank\": 1, \"alliance\": \"WOLF\"}]}\n```"}
	e := newTestExtractor(t, fake)

	raw, err := e.Extract(context.Background(), "alliance_ranking", "https://cdn.example.com/shot.png")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := `{"entries": [{"rank": 1, "alliance": "WOLF"}]}`
	if string(raw) != want {
		t.Errorf("unexpected extraction: %s", raw)
	}
}

func TestExtractUnknownSchema(t *testing.T) {
	e := newTestExtractor(t, &fakeCompletions{})
	if _, err := e.Extract(context.Background(), "no_such_schema", "https://x/y.png"); !errors.Is(err, models.ErrUnknownSchema) {
		t.Errorf("expected ErrUnknownSchema, got %v", err)
	}
}

func TestExtractNoJSONInReply(t *testing.T) {
	e := newTestExtractor(t, &fakeCompletions{reply: "I cannot read this image."})
	if _, err := e.Extract(context.Background(), "alliance_ranking", "https://x/y.png"); !errors.Is(err, models.ErrUnparsableReply) {
		t.Errorf("expected ErrUnparsableReply, got %v", err)
	}
}

func TestExtractInvalidJSON(t *testing.T) {
	e := newTestExtractor(t, &fakeCompletions{reply: `{"entries": [broken}`})
	if _, err := e.Extract(context.Background(), "alliance_ranking", "https://x/y.png"); err == nil {
		t.Error("expected error for invalid JSON")
	}
}

func TestExtractNoChoices(t *testing.T) {
	e := newTestExtractor(t, &fakeCompletions{noChoices: true})
	if _, err := e.Extract(context.Background(), "alliance_ranking", "https://x/y.png"); !errors.Is(err, models.ErrNoCompletion) {
		t.Errorf("expected ErrNoCompletion, got %v", err)
	}
}

func TestDefaultRegistry(t *testing.T) {
	registry, err := NewDefaultRegistry()
	if err != nil {
		t.Fatalf("failed to load default registry: %v", err)
	}

	names := registry.Names()
	if len(names) == 0 {
		t.Fatal("expected embedded schemas")
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("names not sorted: %v", names)
		}
	}

	schema, ok := registry.Get("alliance_ranking")
	if !ok {
		t.Fatal("expected alliance_ranking schema")
	}
	if schema.Description == "" || len(schema.Fields) == 0 {
		t.Errorf("incomplete schema: %+v", schema)
	}
	if _, ok := registry.Get("missing"); ok {
		t.Error("unexpected schema hit for unknown name")
	}
}

func TestLoadRegistryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schemas.yaml")
	content := `schemas:
  event_scores:
    description: event score table
    fields:
      - name: player
        type: string
        description: player name
      - name: score
        type: number
        description: event score
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write schema file: %v", err)
	}

	registry, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("failed to load registry: %v", err)
	}
	schema, ok := registry.Get("event_scores")
	if !ok {
		t.Fatal("expected event_scores schema")
	}
	if len(schema.Fields) != 2 {
		t.Errorf("expected 2 fields, got %d", len(schema.Fields))
	}
}

func TestLoadRegistryErrors(t *testing.T) {
	if _, err := LoadRegistry(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := parseRegistry([]byte("schemas: {}")); err == nil {
		t.Error("expected error for empty registry")
	}
	if _, err := parseRegistry([]byte(":::")); err == nil {
		t.Error("expected error for malformed YAML")
	}
}

func TestBuildPrompt(t *testing.T) {
	schema := Schema{
		Description: "alliance ranking screen",
		Fields: []Field{
			{Name: "rank", Type: "number", Description: "position in the list"},
			{Name: "alliance", Type: "string", Description: "alliance tag"},
		},
	}

	prompt := buildPrompt("alliance_ranking", schema)
	for _, want := range []string{"alliance ranking screen", `"rank"`, `"alliance"`, "position in the list", "null"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

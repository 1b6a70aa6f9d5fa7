package anyllm

import (
	"slices"
	"testing"

	anyllmlib "github.com/mozilla-ai/any-llm-go"

	"github.com/MrWong99/lingvox/pkg/provider/llm"
)

func TestBuildParams(t *testing.T) {
	p := &Provider{model: "llama-3.3-70b-versatile"}
	params := p.buildParams(llm.CompletionRequest{
		SystemPrompt: "You are a professional translator.",
		Messages:     []llm.Message{{Role: llm.RoleUser, Content: "Hallo"}},
		Temperature:  0.3,
		MaxTokens:    256,
	})

	if params.Model != "llama-3.3-70b-versatile" {
		t.Errorf("model = %q", params.Model)
	}
	if len(params.Messages) != 2 {
		t.Fatalf("messages = %d, want 2", len(params.Messages))
	}
	if params.Messages[0].Role != anyllmlib.RoleSystem || params.Messages[0].ContentString() != "You are a professional translator." {
		t.Errorf("system message = %+v", params.Messages[0])
	}
	if params.Messages[1].Role != llm.RoleUser || params.Messages[1].ContentString() != "Hallo" {
		t.Errorf("user message = %+v", params.Messages[1])
	}
	if params.Temperature == nil || *params.Temperature != 0.3 {
		t.Errorf("temperature = %v, want 0.3", params.Temperature)
	}
	if params.MaxTokens == nil || *params.MaxTokens != 256 {
		t.Errorf("max tokens = %v, want 256", params.MaxTokens)
	}
}

func TestBuildParams_Defaults(t *testing.T) {
	p := &Provider{model: "gpt-4o-mini"}
	params := p.buildParams(llm.CompletionRequest{
		Messages: []llm.Message{{Role: llm.RoleUser, Content: "hi"}},
	})
	if len(params.Messages) != 1 {
		t.Errorf("messages = %d, want 1 without a system prompt", len(params.Messages))
	}
	if params.Temperature != nil || params.MaxTokens != nil {
		t.Error("zero temperature and max tokens should be left unset")
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "model"); err == nil {
		t.Error("expected error for empty backend")
	}
	if _, err := New("groq", ""); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := New("fakecloud", "some-model", anyllmlib.WithAPIKey("dummy")); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestNew_Backends(t *testing.T) {
	tests := []struct {
		name  string
		model string
		opts  []anyllmlib.Option
	}{
		{"groq", "llama-3.3-70b-versatile", []anyllmlib.Option{anyllmlib.WithAPIKey("gsk-test")}},
		{"OpenAI", "gpt-4o-mini", []anyllmlib.Option{anyllmlib.WithAPIKey("sk-test")}},
		{"anthropic", "claude-3-5-haiku-latest", []anyllmlib.Option{anyllmlib.WithAPIKey("sk-ant-test")}},
		{"ollama", "llama3", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(tt.name, tt.model, tt.opts...)
			if err != nil {
				t.Fatalf("New(%q): %v", tt.name, err)
			}
			if p.Model() != tt.model {
				t.Errorf("Model() = %q, want %q", p.Model(), tt.model)
			}
		})
	}
}

func TestBackends(t *testing.T) {
	got := Backends()
	if !slices.IsSorted(got) {
		t.Errorf("Backends() = %v, want sorted", got)
	}
	for _, want := range []string{"groq", "openai", "ollama"} {
		if !slices.Contains(got, want) {
			t.Errorf("Backends() is missing %q", want)
		}
	}
}

func TestNew_OpenAI_MissingAPIKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := New("openai", "gpt-4o"); err == nil {
		t.Fatal("expected error for missing API key")
	}
}

package structurer

import (
	"context"
	"errors"
	"strings"
	"testing"

	"articlerag/pkg/models"
)

type stubGenerator struct {
	output    string
	err       error
	gotModel  string
	gotSystem string
	gotUser   string
}

func (g *stubGenerator) Complete(ctx context.Context, model, system, user string) (string, error) {
	g.gotModel = model
	g.gotSystem = system
	g.gotUser = user
	return g.output, g.err
}

func TestStructure_ParsesSectionedOutput(t *testing.T) {
	gen := &stubGenerator{
		output: `{"title":"T","author":"A","sections":{"intro":{"heading":"Intro","text":"hello"}}}`,
	}
	s := New(gen, "structuring-model")

	data := s.Structure(context.Background(), "https://example.com/a", "raw", "T").OrFallback("raw")

	if !data.IsSectioned() {
		t.Fatal("expected sectioned data")
	}
	if data.Sections["intro"].Text != "hello" {
		t.Errorf("intro text = %q", data.Sections["intro"].Text)
	}
	if gen.gotModel != "structuring-model" {
		t.Errorf("model = %q", gen.gotModel)
	}
}

func TestStructure_StripsCodeFence(t *testing.T) {
	gen := &stubGenerator{
		output: "```json\n{\"sections\":{\"body\":{\"text\":\"content\"}}}\n```",
	}
	s := New(gen, "m")

	data := s.Structure(context.Background(), "u", "raw", "").OrFallback("raw")
	if !data.IsSectioned() {
		t.Fatalf("fenced JSON should parse, got fallback: %+v", data)
	}
}

// Fallback law: unparseable model output for text T yields exactly {text: T}.
func TestStructure_FallbackOnUnparseableOutput(t *testing.T) {
	gen := &stubGenerator{output: "Sorry, I cannot structure this article."}
	s := New(gen, "m")

	data := s.Structure(context.Background(), "u", "Hello world.", "").OrFallback("Hello world.")

	want := models.Flat("Hello world.")
	if data.IsSectioned() || data.Text != want.Text || data.Title != "" {
		t.Errorf("fallback = %+v, want %+v", data, want)
	}
}

func TestStructure_FallbackOnCallFailure(t *testing.T) {
	gen := &stubGenerator{err: errors.New("provider down")}
	s := New(gen, "m")

	data := s.Structure(context.Background(), "u", "the text", "").OrFallback("the text")
	if data.Text != "the text" || data.IsSectioned() {
		t.Errorf("fallback = %+v", data)
	}
}

func TestStructure_FallbackOnEmptyObject(t *testing.T) {
	gen := &stubGenerator{output: `{}`}
	s := New(gen, "m")

	data := s.Structure(context.Background(), "u", "the text", "").OrFallback("the text")
	if data.Text != "the text" {
		t.Errorf("empty object must degrade to fallback, got %+v", data)
	}
}

func TestStructure_PromptCarriesURLAndContent(t *testing.T) {
	gen := &stubGenerator{output: `{"text":"x"}`}
	s := New(gen, "m")

	s.Structure(context.Background(), "https://example.com/article", "the article body", "The Title")

	for _, want := range []string{"https://example.com/article", "the article body", "The Title", "Output only the JSON."} {
		if !strings.Contains(gen.gotUser, want) {
			t.Errorf("prompt missing %q:\n%s", want, gen.gotUser)
		}
	}
}

package structurer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"articlerag/pkg/models"
)

const systemPrompt = "Structure the article into JSON."

// Generator is the generative model surface the structurer needs.
type Generator interface {
	Complete(ctx context.Context, model, system, user string) (string, error)
}

// Structurer turns extracted article text into structured data via a
// generative model call with deterministic sampling.
type Structurer struct {
	generator Generator
	model     string
}

// New creates a new Structurer using the given model identifier.
func New(generator Generator, model string) *Structurer {
	return &Structurer{generator: generator, model: model}
}

// Result is the outcome of a structuring attempt. Callers collapse it with
// OrFallback: structuring never fails ingestion, it degrades.
type Result struct {
	data models.StructuredData
	err  error
}

// OrFallback returns the structured data, or the flat fallback shape
// wrapping rawText when structuring failed or produced unusable output.
func (r Result) OrFallback(rawText string) models.StructuredData {
	if r.err != nil {
		slog.Warn("structuring degraded to flat text", "error", r.err)
		return models.Flat(rawText)
	}
	return r.data
}

// Structure asks the model to emit the article as a JSON object with title,
// author, date, and sections keys. The title hint comes from the page's
// <title> tag and may be empty.
func (s *Structurer) Structure(ctx context.Context, url, text, title string) Result {
	prompt := buildPrompt(url, text, title)

	raw, err := s.generator.Complete(ctx, s.model, systemPrompt, prompt)
	if err != nil {
		return Result{err: fmt.Errorf("structuring call failed: %w", err)}
	}

	var data models.StructuredData
	if err := json.Unmarshal([]byte(stripCodeFence(raw)), &data); err != nil {
		return Result{err: fmt.Errorf("unparseable structuring output: %w", err)}
	}

	// A parse that yields neither sections nor text is as useless as no
	// parse at all; the flat fallback keeps the document usable.
	if !data.IsSectioned() && data.Text == "" {
		return Result{err: fmt.Errorf("structuring output has no sections and no text")}
	}

	return Result{data: data}
}

func buildPrompt(url, text, title string) string {
	var b strings.Builder
	b.WriteString("You are to analyze the following article and output a JSON object with keys like title, author, date, and sections.\n")
	b.WriteString("The sections key should be an object where each section has a heading and text.\n\n")
	fmt.Fprintf(&b, "Article URL: %s\n", url)
	if title != "" {
		fmt.Fprintf(&b, "Page title: %s\n", title)
	}
	fmt.Fprintf(&b, "Article content:\n\"\"\"%s\"\"\"\n\n", text)
	b.WriteString("Output only the JSON.")
	return b.String()
}

// stripCodeFence removes a surrounding markdown code fence, which chat
// models add even when told to output only JSON.
func stripCodeFence(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// Package insights turns weakness reports into short notes for parents
// using an LLM. The notes are decoration: without a provider, or when the
// provider fails, callers get no notes and carry on.
package insights

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"text/template"
	"time"

	"github.com/abhisek/skilltrace/internal/diagnosis"
	"github.com/abhisek/skilltrace/internal/llm"
)

// MaxInsights bounds the number of notes returned.
const MaxInsights = 3

// Config tunes generation.
type Config struct {
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// DefaultConfig returns the default generation settings.
func DefaultConfig() Config {
	return Config{MaxTokens: 400, Temperature: 0.4, Timeout: 20 * time.Second}
}

// Generator writes parent-facing notes.
type Generator struct {
	provider llm.Provider
	cfg      Config
	logger   *slog.Logger
}

// NewGenerator creates a generator. provider may be nil.
func NewGenerator(provider llm.Provider, cfg Config, logger *slog.Logger) *Generator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{provider: provider, cfg: cfg, logger: logger}
}

// Enabled reports whether a provider is configured.
func (g *Generator) Enabled() bool {
	return g != nil && g.provider != nil
}

type output struct {
	Insights []string `json:"insights"`
}

// Insights returns up to MaxInsights notes about the report. It returns nil
// when disabled, when there is nothing to say, or on any provider error.
func (g *Generator) Insights(ctx context.Context, learnerName string, rep *diagnosis.Report) []string {
	if !g.Enabled() || rep == nil || rep.Empty() {
		return nil
	}
	if g.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, g.cfg.Timeout)
		defer cancel()
	}
	ctx = llm.WithPurpose(ctx, llm.PurposeInsights)

	prompt, err := buildPrompt(learnerName, rep)
	if err != nil {
		g.logger.Warn("build insights prompt", "error", err)
		return nil
	}
	resp, err := g.provider.Generate(ctx, llm.Request{
		System:      systemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: prompt}},
		Schema:      Schema,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
	})
	if err != nil {
		g.logger.Warn("insights generation failed", "provider", g.provider.Name(), "error", err)
		return nil
	}

	var out output
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		g.logger.Warn("parse insights response", "error", err)
		return nil
	}
	notes := make([]string, 0, len(out.Insights))
	for _, s := range out.Insights {
		if s = strings.TrimSpace(s); s != "" {
			notes = append(notes, s)
		}
	}
	if len(notes) > MaxInsights {
		notes = notes[:MaxInsights]
	}
	return notes
}

// Schema is the structured output requested from the provider.
var Schema = &llm.Schema{
	Name:        "parent-insights",
	Description: "Short encouraging notes for a parent about a child's practice",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"insights": map[string]any{
				"type":        "array",
				"description": "One to three notes, each a single plain sentence",
				"items":       map[string]any{"type": "string"},
			},
		},
		"required":             []any{"insights"},
		"additionalProperties": false,
	},
}

const systemPrompt = `You help parents understand their child's maths practice. You are given the concepts the child finds hard and the wrong-answer patterns seen in their answers.

Instructions:
- Write at most three notes, each one plain sentence a parent can act on.
- Mention concepts by name, never by id.
- Be warm and specific. Do not invent facts that are not in the data.
- Frame low scores as starting points, not failures.`

var promptTemplate = template.Must(template.New("insights").Parse(`Child: {{.Name}}

Concepts to focus on:
{{range .Weak}}- {{.Name}}: mastery {{.MasteryScore}}%{{if not .Confident}} (few attempts so far){{end}}
{{else}}- none
{{end}}
Recurring wrong-answer patterns:
{{range .Patterns}}- {{.Description}} (seen {{.Occurrences}} times)
{{else}}- none
{{end}}`))

func buildPrompt(name string, rep *diagnosis.Report) (string, error) {
	if name == "" {
		name = "the child"
	}
	var buf bytes.Buffer
	err := promptTemplate.Execute(&buf, map[string]any{
		"Name":     name,
		"Weak":     rep.WeakConcepts,
		"Patterns": rep.ErrorPatterns,
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

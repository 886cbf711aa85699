package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/abhisek/skilltrace/internal/store"
)

// Auditor records provider calls. store.EventRepo satisfies it.
type Auditor interface {
	AppendLLMRequest(ctx context.Context, data store.LLMRequestEventData) error
}

type auditProvider struct {
	inner  Provider
	audit  Auditor
	logger *slog.Logger
}

// WithAudit records every request made through p. Prompts and responses are
// not stored since they contain learner data. A failing auditor is logged
// and never fails the request.
func WithAudit(p Provider, audit Auditor, logger *slog.Logger) Provider {
	if audit == nil {
		return p
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &auditProvider{inner: p, audit: audit, logger: logger}
}

func (a *auditProvider) Generate(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := a.inner.Generate(ctx, req)

	data := store.LLMRequestEventData{
		Provider:  a.inner.Name(),
		Model:     a.inner.ModelID(),
		Purpose:   PurposeFrom(ctx),
		LatencyMs: time.Since(start).Milliseconds(),
		Success:   err == nil,
	}
	if resp != nil {
		data.InputTokens = resp.Usage.InputTokens
		data.OutputTokens = resp.Usage.OutputTokens
		if resp.Model != "" {
			data.Model = resp.Model
		}
	}
	if err != nil {
		data.ErrorMessage = err.Error()
	}

	if auditErr := a.audit.AppendLLMRequest(context.WithoutCancel(ctx), data); auditErr != nil {
		a.logger.Warn("failed to audit LLM request", "provider", data.Provider, "error", auditErr)
	}
	return resp, err
}

func (a *auditProvider) Name() string    { return a.inner.Name() }
func (a *auditProvider) ModelID() string { return a.inner.ModelID() }

package llm

import (
	"context"
	"fmt"
	"log/slog"
)

// New builds the configured provider wrapped as caller → retry → audit →
// SDK. It returns ErrNotConfigured when no provider is selected.
func New(ctx context.Context, cfg Config, audit Auditor, logger *slog.Logger) (Provider, error) {
	if !cfg.Enabled() {
		return nil, ErrNotConfigured
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var (
		base Provider
		err  error
	)
	switch cfg.Provider {
	case ProviderAnthropic:
		base, err = NewAnthropicProvider(cfg)
	case ProviderOpenAI, ProviderOpenRouter:
		base, err = NewOpenAIProvider(cfg)
	case ProviderGemini:
		base, err = NewGeminiProvider(ctx, cfg)
	case ProviderMock:
		return NewMockProvider(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("initializing %s provider: %w", cfg.Provider, err)
	}

	p := WithAudit(base, audit, logger)
	return WithRetry(p, cfg.Retry, logger), nil
}

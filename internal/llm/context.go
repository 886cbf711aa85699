package llm

import "context"

type purposeKey struct{}

// Purposes recorded in the request audit.
const (
	PurposeInsights = "parent-insights"
	PurposeUnknown  = "unknown"
)

// WithPurpose labels requests made with ctx in the audit log.
func WithPurpose(ctx context.Context, purpose string) context.Context {
	return context.WithValue(ctx, purposeKey{}, purpose)
}

// PurposeFrom returns the purpose label of ctx.
func PurposeFrom(ctx context.Context) string {
	if v, ok := ctx.Value(purposeKey{}).(string); ok && v != "" {
		return v
	}
	return PurposeUnknown
}

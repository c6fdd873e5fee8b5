package commons

import "context"

type contextKey string

const apiKeyContextKey contextKey = "apiKey"

const APIKeyHeader = "X-Api-Key"

// WithAPIKey stores the caller's API key so outbound calls can forward it.
func WithAPIKey(ctx context.Context, apiKey string) context.Context {
	return context.WithValue(ctx, apiKeyContextKey, apiKey)
}

func APIKeyFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	value, _ := ctx.Value(apiKeyContextKey).(string)
	return value
}

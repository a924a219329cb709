package ingest

import "context"

// Source labels used for metrics and spans.
const (
	SourceHTTP  = "http"
	SourceKafka = "kafka"
	SourceMQTT  = "mqtt"
	SourceSeed  = "seed"
)

type sourceKey struct{}

// WithSource tags ctx with the transport an event arrived on.
func WithSource(ctx context.Context, source string) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFrom returns the tagged source, defaulting to SourceHTTP.
func SourceFrom(ctx context.Context) string {
	if s, ok := ctx.Value(sourceKey{}).(string); ok && s != "" {
		return s
	}
	return SourceHTTP
}

package observability

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

// allowedPrefixes are the span attribute namespaces heropicks emits.
var allowedPrefixes = []string{
	"condense.",
	"checkpoint.",
	"export.",
	"http.",
	"error.",
	"exception.",
}

// blockedKeys are stripped even if a prefix would allow them.
var blockedKeys = map[string]bool{
	"http.request.header.authorization": true,
	"http.request.header.cookie":        true,
}

// attributeFilter is a SpanProcessor that drops span attributes outside the
// allow-list before the delegate sees the span.
type attributeFilter struct {
	delegate sdktrace.SpanProcessor
	logger   *slog.Logger
	// dropped holds keys already reported, so each is logged once per process.
	dropped mapset.Set[string]
}

// NewAttributeFilter returns a SpanProcessor that filters span attributes.
// When logger is non-nil, the first drop of each key is logged at warn level.
func NewAttributeFilter(delegate sdktrace.SpanProcessor, logger *slog.Logger) sdktrace.SpanProcessor {
	return &attributeFilter{delegate: delegate, logger: logger, dropped: mapset.NewSet[string]()}
}

// OnStart delegates to the wrapped processor.
func (f *attributeFilter) OnStart(parent context.Context, s sdktrace.ReadWriteSpan) {
	f.delegate.OnStart(parent, s)
}

// OnEnd hands the delegate a filtered read-only view of the span.
func (f *attributeFilter) OnEnd(s sdktrace.ReadOnlySpan) {
	f.delegate.OnEnd(&filteredSpan{ReadOnlySpan: s, filter: f})
}

// Shutdown delegates to the wrapped processor.
func (f *attributeFilter) Shutdown(ctx context.Context) error {
	err := f.delegate.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter shutdown: %w", err)
	}

	return nil
}

// ForceFlush delegates to the wrapped processor.
func (f *attributeFilter) ForceFlush(ctx context.Context) error {
	err := f.delegate.ForceFlush(ctx)
	if err != nil {
		return fmt.Errorf("attribute filter flush: %w", err)
	}

	return nil
}

func allowed(key string) bool {
	if blockedKeys[key] {
		return false
	}

	return key == "error" || slices.ContainsFunc(allowedPrefixes, func(prefix string) bool {
		return strings.HasPrefix(key, prefix)
	})
}

func (f *attributeFilter) keep(key string) bool {
	if allowed(key) {
		return true
	}

	// Add reports whether the key was new.
	if f.dropped.Add(key) && f.logger != nil {
		f.logger.Warn("attribute blocked by filter", "key", key)
	}

	return false
}

// filteredSpan wraps a ReadOnlySpan and returns only allowed attributes.
type filteredSpan struct {
	sdktrace.ReadOnlySpan

	filter *attributeFilter
}

// Attributes returns only the allowed attributes.
func (s *filteredSpan) Attributes() []attribute.KeyValue {
	orig := s.ReadOnlySpan.Attributes()
	filtered := make([]attribute.KeyValue, 0, len(orig))

	for _, kv := range orig {
		if s.filter.keep(string(kv.Key)) {
			filtered = append(filtered, kv)
		}
	}

	return filtered
}

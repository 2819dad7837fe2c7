// Package logger provides structured logging for the voice core with
// automatic API-key redaction.
//
// It wraps Go's standard log/slog with convenience functions for provider API
// call logging and level-based verbosity control. All exported functions use
// the package-level DefaultLogger, which is safe for concurrent use.
package logger

import (
	"context"
	"log/slog"
	"os"
	"regexp"
	"strings"
)

// DefaultLogger is the global structured logger instance.
// It is initialized from the LOG_LEVEL environment variable (info by default).
var DefaultLogger *slog.Logger

func init() {
	level := slog.LevelInfo
	if envLevel := os.Getenv("LOG_LEVEL"); envLevel != "" {
		switch strings.ToLower(envLevel) {
		case "debug":
			level = slog.LevelDebug
		case "info":
			level = slog.LevelInfo
		case "warn", "warning":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	DefaultLogger = slog.New(handler)
}

// SetLevel changes the logging level for all subsequent log operations.
func SetLevel(level slog.Level) {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	DefaultLogger = slog.New(handler)
}

// Info logs an informational message with structured key-value attributes.
func Info(msg string, args ...any) {
	DefaultLogger.Info(msg, args...)
}

// InfoContext logs an informational message with context and structured attributes.
func InfoContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.InfoContext(ctx, msg, args...)
}

// Debug logs a debug-level message with structured attributes.
func Debug(msg string, args ...any) {
	DefaultLogger.Debug(msg, args...)
}

// DebugContext logs a debug message with context and structured attributes.
func DebugContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.DebugContext(ctx, msg, args...)
}

// Warn logs a warning message with structured attributes.
func Warn(msg string, args ...any) {
	DefaultLogger.Warn(msg, args...)
}

// Error logs an error message with structured attributes.
func Error(msg string, args ...any) {
	DefaultLogger.Error(msg, args...)
}

// ErrorContext logs an error message with context and structured attributes.
func ErrorContext(ctx context.Context, msg string, args ...any) {
	DefaultLogger.ErrorContext(ctx, msg, args...)
}

// ProviderCall logs an outbound provider API call.
func ProviderCall(provider, operation string, attrs ...any) {
	allAttrs := make([]any, 0, 4+len(attrs))
	allAttrs = append(allAttrs,
		"provider", provider,
		"operation", operation,
	)
	allAttrs = append(allAttrs, attrs...)
	Debug("provider call", allAttrs...)
}

// ProviderResponse logs a completed provider API call with its latency.
func ProviderResponse(provider, operation string, latencyMs int64, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"provider", provider,
		"operation", operation,
		"latency_ms", latencyMs,
	)
	allAttrs = append(allAttrs, attrs...)
	Info("provider response", allAttrs...)
}

// ProviderError logs a failed provider API call.
func ProviderError(provider, operation string, err error, attrs ...any) {
	allAttrs := make([]any, 0, 6+len(attrs))
	allAttrs = append(allAttrs,
		"provider", provider,
		"operation", operation,
		"error", err,
	)
	allAttrs = append(allAttrs, attrs...)
	Error("provider call failed", allAttrs...)
}

// Fallback logs a primary-to-fallback switch for a capability.
func Fallback(capability, primary, fallback string, cause error) {
	Warn("falling back to secondary provider",
		"capability", capability,
		"primary", primary,
		"fallback", fallback,
		"cause", cause,
	)
}

// apiKeyPatterns matches common API key formats from the configured providers.
var apiKeyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`sk-[a-zA-Z0-9_-]{20,}`),      // OpenAI / Anthropic keys
	regexp.MustCompile(`sk_[a-zA-Z0-9]{20,}`),        // ElevenLabs keys
	regexp.MustCompile(`Bearer\s+[a-zA-Z0-9._~+/-]+`), // Bearer tokens
}

// RedactSensitiveData removes API keys from strings before they are logged.
// Matched keys keep their first four characters for debugging context.
func RedactSensitiveData(input string) string {
	result := input
	for _, pattern := range apiKeyPatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			if strings.HasPrefix(match, "Bearer ") {
				return "Bearer [REDACTED]"
			}
			if len(match) > 8 {
				return match[:4] + "...[REDACTED]"
			}
			return "[REDACTED]"
		})
	}
	return result
}

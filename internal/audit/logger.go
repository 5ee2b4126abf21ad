// Package audit provides structured audit logging for menu mutations.
package audit

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

var (
	bearerTokenPattern = regexp.MustCompile(`(?i)\bBearer\s+[A-Za-z0-9\-._~+/]+=*`)
	keyValuePattern    = regexp.MustCompile(`(?i)\b(token|secret|password|authorization|key|application-id)\s*[:=]\s*([^\s,;]+)`)
)

// MutationCompletion captures one finalized mutation outcome.
type MutationCompletion struct {
	RequestID   string
	Operation   string
	Mode        string
	RecordIDs   []string
	Locations   int
	Result      string
	ErrorDetail string
	Duration    time.Duration
	Status      int
}

// Logger emits structured audit entries.
type Logger struct {
	logger  zerolog.Logger
	secrets []string
}

// NewLogger creates an audit logger. Any secrets given are masked verbatim
// in error details in addition to the pattern-based redaction.
func NewLogger(logger zerolog.Logger, secrets ...string) *Logger {
	kept := make([]string, 0, len(secrets))
	for _, s := range secrets {
		if strings.TrimSpace(s) != "" {
			kept = append(kept, s)
		}
	}
	return &Logger{
		logger:  logger.With().Str("component", "audit").Logger(),
		secrets: kept,
	}
}

// Complete writes a single completion log entry for one mutation.
func (l *Logger) Complete(event MutationCompletion) {
	if l == nil {
		return
	}

	result := strings.TrimSpace(event.Result)
	if result == "" {
		result = "error"
	}

	op := strings.TrimSpace(event.Operation)
	if op == "" {
		op = "unknown"
	}
	mode := strings.TrimSpace(event.Mode)
	if mode == "" {
		mode = "read-write"
	}

	duration := event.Duration
	if duration < 0 {
		duration = 0
	}

	entry := l.logger.Info().
		Str("event", "menu.mutation.completed").
		Str("request_id", strings.TrimSpace(event.RequestID)).
		Str("operation", op).
		Str("mode", mode).
		Strs("record_ids", uniqueStrings(event.RecordIDs)).
		Str("result", result).
		Int64("duration_ms", duration.Milliseconds())

	if event.Locations > 0 {
		entry = entry.Int("location_count", event.Locations)
	}
	if event.Status > 0 {
		entry = entry.Int("response_code", event.Status)
	}
	if redactedError := l.Redact(event.ErrorDetail); redactedError != "" {
		entry = entry.Str("error_detail", redactedError)
	}

	entry.Msg("menu mutation completed")
}

// Redact applies RedactSensitiveText and masks the logger's known secrets.
func (l *Logger) Redact(raw string) string {
	redacted := RedactSensitiveText(raw)
	if l == nil {
		return redacted
	}
	for _, secret := range l.secrets {
		redacted = strings.ReplaceAll(redacted, secret, "[REDACTED]")
	}
	return redacted
}

// RedactSensitiveText removes obvious secrets from free-text error details.
func RedactSensitiveText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	redacted := bearerTokenPattern.ReplaceAllString(trimmed, "Bearer [REDACTED]")
	redacted = keyValuePattern.ReplaceAllStringFunc(redacted, func(match string) string {
		parts := strings.SplitN(match, ":", 2)
		if len(parts) == 2 {
			return fmt.Sprintf("%s: [REDACTED]", strings.TrimSpace(parts[0]))
		}
		parts = strings.SplitN(match, "=", 2)
		if len(parts) == 2 {
			return fmt.Sprintf("%s=[REDACTED]", strings.TrimSpace(parts[0]))
		}
		return "[REDACTED]"
	})
	return redacted
}

func uniqueStrings(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	unique := make([]string, 0, len(values))
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		if _, ok := seen[trimmed]; ok {
			continue
		}
		seen[trimmed] = struct{}{}
		unique = append(unique, trimmed)
	}
	slices.Sort(unique)
	return unique
}

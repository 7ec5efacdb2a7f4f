package log

import (
	"context"
	"io"
	"log/slog"
	"net/url"
	"regexp"
	"strings"
)

// MaskValue is the string used to replace sensitive values.
const MaskValue = "***REDACTED***"

// sensitiveKeys are attribute keys whose values are always masked.
var sensitiveKeys = map[string]bool{
	"authorization":       true,
	"proxy-authorization": true,
	"cookie":              true,
	"set-cookie":          true,
	"x-api-key":           true,
	"api_key":             true,
	"apikey":              true,
	"api-key":             true,
	"openai_api_key":      true,
	"password":            true,
	"passwd":              true,
	"secret":              true,
	"token":               true,
	"access_token":        true,
	"credential":          true,
	"credentials":         true,
	"auth":                true,
}

// sensitiveKeywords mask any key containing them. The bare word "key" is
// left out: "key" alone would hide fields such as "primary_key".
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "token", "auth", "credential", "apikey", "api_key",
}

// sensitivePatterns are value shapes masked regardless of key.
var sensitivePatterns = []*regexp.Regexp{
	// OpenAI keys, including project and service-account keys.
	regexp.MustCompile(`^sk-[A-Za-z0-9_-]{16,}$`),

	// JWT tokens
	regexp.MustCompile(`^eyJ[A-Za-z0-9_-]*\.eyJ[A-Za-z0-9_-]*\.[A-Za-z0-9_-]*$`),

	// Bearer and basic credentials
	regexp.MustCompile(`(?i)^bearer\s+.+`),
	regexp.MustCompile(`(?i)^basic\s+[A-Za-z0-9+/=]+$`),

	// Long opaque alphanumeric strings
	regexp.MustCompile(`^[a-zA-Z0-9]{32,}$`),

	// Private key material
	regexp.MustCompile(`(?i)-----BEGIN.*(PRIVATE|SECRET).*KEY-----`),
}

// SecureHandler wraps an slog.Handler and masks sensitive attribute values
// before passing records on.
type SecureHandler struct {
	handler slog.Handler
}

// NewSecureHandler creates a SecureHandler wrapping handler. A nil handler
// wraps slog.Default().Handler().
func NewSecureHandler(handler slog.Handler) *SecureHandler {
	if handler == nil {
		handler = slog.Default().Handler()
	}
	return &SecureHandler{handler: handler}
}

// Enabled delegates to the wrapped handler.
func (h *SecureHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

// Handle masks the record's attributes and passes it on.
func (h *SecureHandler) Handle(ctx context.Context, r slog.Record) error {
	sanitized := slog.NewRecord(r.Time, r.Level, r.Message, r.PC)
	r.Attrs(func(a slog.Attr) bool {
		sanitized.AddAttrs(sanitizeAttr(a))
		return true
	})
	return h.handler.Handle(ctx, sanitized)
}

// WithAttrs returns a handler with the masked attributes added.
func (h *SecureHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	sanitized := make([]slog.Attr, len(attrs))
	for i, a := range attrs {
		sanitized[i] = sanitizeAttr(a)
	}
	return &SecureHandler{handler: h.handler.WithAttrs(sanitized)}
}

// WithGroup returns a handler that nests attributes under name.
func (h *SecureHandler) WithGroup(name string) slog.Handler {
	return &SecureHandler{handler: h.handler.WithGroup(name)}
}

func sanitizeAttr(a slog.Attr) slog.Attr {
	a.Value = a.Value.Resolve()

	if a.Value.Kind() == slog.KindGroup {
		attrs := a.Value.Group()
		sanitized := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			sanitized[i] = sanitizeAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(sanitized...)}
	}

	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, MaskValue)
	}

	switch a.Value.Kind() {
	case slog.KindString:
		return slog.String(a.Key, sanitizeString(a.Value.String()))
	case slog.KindAny:
		if err, ok := a.Value.Any().(error); ok {
			return slog.String(a.Key, sanitizeString(err.Error()))
		}
	}
	return a
}

func isSensitiveKey(key string) bool {
	key = strings.ToLower(key)
	if sensitiveKeys[key] {
		return true
	}
	for _, keyword := range sensitiveKeywords {
		if strings.Contains(key, keyword) {
			return true
		}
	}
	return false
}

// sanitizeString masks s when it looks like a secret, and strips passwords
// from URLs.
func sanitizeString(s string) string {
	if isSensitiveValue(s) {
		return MaskValue
	}
	if strings.Contains(s, "://") && strings.Contains(s, "@") {
		if u, err := url.Parse(s); err == nil && u.User != nil {
			if _, ok := u.User.Password(); ok {
				return u.Redacted()
			}
		}
	}
	return s
}

func isSensitiveValue(value string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(value) {
			return true
		}
	}
	return false
}

// MaskAPIKey shortens a key for display: the first 15 characters followed
// by "...". An empty key is shown as "None".
func MaskAPIKey(key string) string {
	if key == "" {
		return "None"
	}
	runes := []rune(key)
	if len(runes) > 15 {
		runes = runes[:15]
	}
	return string(runes) + "..."
}

// NewSecureLogger creates a text logger that masks sensitive values.
// verbose selects Debug level; otherwise only warnings and errors are written.
func NewSecureLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewTextHandler(w, handlerOptions(verbose))))
}

// NewSecureJSONLogger is NewSecureLogger with JSON output.
func NewSecureJSONLogger(w io.Writer, verbose bool) *slog.Logger {
	return slog.New(NewSecureHandler(slog.NewJSONHandler(w, handlerOptions(verbose))))
}

func handlerOptions(verbose bool) *slog.HandlerOptions {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return &slog.HandlerOptions{Level: level}
}

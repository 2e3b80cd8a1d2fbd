package logging

import (
	"log/slog"
	"regexp"
	"strings"
)

// Redactor masks secret-looking values in log attributes. Two layers: keys
// that name credentials get their value replaced wholesale, and string
// values anywhere get pattern-level masking for things that look like API
// keys, bearer tokens or email addresses.
type Redactor struct {
	patterns []redactPattern
}

type redactPattern struct {
	regex       *regexp.Regexp
	replacement string
}

// sensitiveKeys are attribute-key fragments that mark a value as a secret.
var sensitiveKeys = []string{
	"password", "passwd",
	"secret", "token",
	"api_key", "apikey",
	"authorization",
	"private_key",
	"credential",
}

// NewRedactor builds a redactor with the built-in pattern set.
func NewRedactor() *Redactor {
	return &Redactor{
		patterns: []redactPattern{
			{regexp.MustCompile(`sk-[a-zA-Z0-9]+`), "sk-***"},
			{regexp.MustCompile(`Bearer\s+[a-zA-Z0-9\-._~+/]+=*`), "Bearer ***"},
			{regexp.MustCompile(`(password|passwd|pwd)[:=]\s*\S+`), "$1=***"},
			{regexp.MustCompile(`[a-zA-Z0-9._%+-]+@([a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`), "***@$1"},
		},
	}
}

// RedactAttr returns the attribute with secret content masked. Non-string
// values under non-sensitive keys pass through untouched.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	if isSensitiveKey(a.Key) {
		return slog.String(a.Key, "***")
	}
	if a.Value.Kind() == slog.KindString {
		return slog.String(a.Key, r.RedactString(a.Value.String()))
	}
	return a
}

// RedactString masks every built-in pattern occurrence in the string.
func (r *Redactor) RedactString(s string) string {
	if s == "" {
		return s
	}
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, fragment := range sensitiveKeys {
		if strings.Contains(lower, fragment) {
			return true
		}
	}
	return false
}

package logging

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"mercator-hq/covenant/pkg/config"
)

// Built-in redaction pattern names.
const (
	PatternAPIKey      = "api_key"
	PatternBearerToken = "bearer_token"
	PatternEmail       = "email"
	PatternPassword    = "password"
	PatternIPv4        = "ipv4"
)

// Redactor removes PII and credentials from log attribute values.
// Patterns are applied in a fixed order so output is stable.
type Redactor struct {
	patterns []redactPattern
}

type redactPattern struct {
	name    string
	regex   *regexp.Regexp
	replace func(string) string
}

// sensitiveKeys are attribute keys whose values are masked regardless of content.
var sensitiveKeys = []string{
	"password", "passwd", "secret", "token",
	"api_key", "apikey", "authorization", "private_key",
}

// NewRedactor creates a Redactor with the built-in patterns followed by
// custom ones. An invalid custom pattern is an error.
func NewRedactor(custom []config.RedactPattern) (*Redactor, error) {
	r := &Redactor{}

	// Bearer must run before api_key so the token body is consumed whole.
	r.add(PatternBearerToken, `Bearer\s+[a-zA-Z0-9\-._~+/]+=*`, literal("Bearer ***"))
	r.add(PatternAPIKey, `(sk-[a-zA-Z0-9]+|api[-_]?key[-_:=]\s*[a-zA-Z0-9]+)`, literal("sk-***"))
	r.add(PatternPassword, `(?i)(password|passwd|pwd)[:=]\s*\S+`, func(m string) string {
		if i := strings.IndexAny(m, ":="); i >= 0 {
			return m[:i] + ": ***"
		}
		return "***"
	})
	r.add(PatternEmail, `[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`, RedactEmail)
	r.add(PatternIPv4, `\b(?:\d{1,3}\.){3}\d{1,3}\b`, RedactIPv4)

	for _, p := range custom {
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("redact pattern %q: %w", p.Name, err)
		}
		replacement := p.Replacement
		r.patterns = append(r.patterns, redactPattern{
			name:  p.Name,
			regex: re,
			replace: func(m string) string {
				return re.ReplaceAllString(m, replacement)
			},
		})
	}

	return r, nil
}

func (r *Redactor) add(name, expr string, replace func(string) string) {
	r.patterns = append(r.patterns, redactPattern{
		name:    name,
		regex:   regexp.MustCompile(expr),
		replace: replace,
	})
}

func literal(s string) func(string) string {
	return func(string) string { return s }
}

// RedactString applies every pattern to value.
func (r *Redactor) RedactString(value string) string {
	if value == "" {
		return value
	}
	for _, p := range r.patterns {
		value = p.regex.ReplaceAllStringFunc(value, p.replace)
	}
	return value
}

// RedactAttr redacts a single attribute, descending into groups.
func (r *Redactor) RedactAttr(a slog.Attr) slog.Attr {
	v := a.Value.Resolve()

	switch v.Kind() {
	case slog.KindGroup:
		group := v.Group()
		out := make([]slog.Attr, len(group))
		for i, g := range group {
			out[i] = r.RedactAttr(g)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindString:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, maskValue(v.String()))
		}
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindAny:
		if isSensitiveKey(a.Key) {
			return slog.String(a.Key, "***")
		}
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
		return slog.Attr{Key: a.Key, Value: v}
	default:
		return slog.Attr{Key: a.Key, Value: v}
	}
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(lower, s) {
			return true
		}
	}
	return false
}

// maskValue keeps a four character prefix of long values.
func maskValue(v string) string {
	switch {
	case v == "":
		return ""
	case len(v) <= 4:
		return "***"
	default:
		return v[:4] + "***"
	}
}

// RedactEmail redacts an email address partially (shows first char and domain).
func RedactEmail(email string) string {
	user, domain, ok := strings.Cut(email, "@")
	if !ok || strings.Contains(domain, "@") {
		return email
	}
	if user == "" {
		return "***@" + domain
	}
	return user[:1] + "***@" + domain
}

// RedactIPv4 redacts an IPv4 address, keeping only the first octet.
func RedactIPv4(ip string) string {
	parts := strings.Split(ip, ".")
	if len(parts) != 4 {
		return ip
	}
	return parts[0] + ".*.*.*"
}

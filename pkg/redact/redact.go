package redact

import (
	"regexp"
	"strings"
)

const placeholder = "<redacted>"

var (
	// Matches "Bearer <token>" (JWTs and opaque tokens).
	bearerTokenRe = regexp.MustCompile(`(?i)\bBearer\s+[^\s"']+`)

	// Common key=value formats that sometimes leak in provider and relay errors.
	secretKVRe = regexp.MustCompile(`(?i)\b(api[_-]?key|password|passwd|secret|token)\b\s*[:=]\s*[^\s"',]+`)

	// OpenAI ("sk-..."), Groq ("gsk_...") and Google ("AIza...") key shapes.
	providerKeyRe = regexp.MustCompile(`\b(sk-[A-Za-z0-9_-]{8,}|gsk_[A-Za-z0-9]{8,}|AIza[0-9A-Za-z_-]{20,})`)
)

// Secrets removes secret-bearing substrings from error and log strings. Every
// non-empty literal is replaced wherever it appears.
func Secrets(s string, literals ...string) string {
	if s == "" {
		return ""
	}
	out := s
	for _, literal := range literals {
		if strings.TrimSpace(literal) == "" {
			continue
		}
		out = strings.ReplaceAll(out, literal, placeholder)
	}
	out = bearerTokenRe.ReplaceAllString(out, "Bearer "+placeholder)
	out = secretKVRe.ReplaceAllString(out, "${1}="+placeholder)
	out = providerKeyRe.ReplaceAllString(out, placeholder)
	return strings.TrimSpace(out)
}

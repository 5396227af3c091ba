package logger

import (
	"regexp"
	"strings"
)

const redacted = "[REDACTED]"

// sensitiveValuePatterns match secrets embedded in free-form values such as URLs
var sensitiveValuePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)([A-Za-z0-9-._~+/]+=*)`),
	regexp.MustCompile(`(?i)((api|access|auth|token|secret|key|passw(or)?d)[0-9a-z\-_\.]*[\s:=]+)([^;,&\s]{5,})`),
	regexp.MustCompile(`(?i)(://[^:/@\s]+:)([^@\s]+)(@)`),
}

// sensitiveKeywords mark field keys whose string values are never logged
var sensitiveKeywords = []string{
	"password", "passwd", "secret", "credential", "token", "authorization", "api_key", "apikey",
}

func isSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, kw := range sensitiveKeywords {
		if strings.Contains(keyLower, kw) {
			return true
		}
	}
	return false
}

// RedactSensitiveData masks credentials embedded in input
func RedactSensitiveData(input string) string {
	if input == "" {
		return input
	}
	for i, pattern := range sensitiveValuePatterns {
		if i == len(sensitiveValuePatterns)-1 {
			input = pattern.ReplaceAllString(input, "${1}"+redacted+"${3}")
			continue
		}
		input = pattern.ReplaceAllString(input, "${1}"+redacted)
	}
	return input
}

package auth

import (
	"net/url"
	"strings"
)

var allowedNext = []string{"/", "/skin/", "/nail/", "/chat/", "/routine/", "/profile", "/profile/"}

// SafeNext normalizes a post-login redirect target and returns it when it
// names a known page, or "/" otherwise. Absolute URLs are reduced to their path.
func SafeNext(raw string) string {
	target := normalizeNext(raw)
	trimmed := strings.TrimRight(target, "/")
	for _, allowed := range allowedNext {
		if trimmed == strings.TrimRight(allowed, "/") {
			return target
		}
	}
	return "/"
}

func normalizeNext(raw string) string {
	target := strings.TrimSpace(raw)
	if target == "" {
		return "/"
	}
	if strings.Contains(target, "://") {
		parsed, err := url.Parse(target)
		if err != nil {
			return "/"
		}
		target = parsed.Path
		if target == "" {
			target = "/"
		}
	}
	if unescaped, err := url.PathUnescape(target); err == nil {
		target = unescaped
	}
	if !strings.HasPrefix(target, "/") {
		target = "/" + target
	}
	switch target {
	case "/skin", "/nail", "/chat", "/routine":
		target += "/"
	}
	return target
}

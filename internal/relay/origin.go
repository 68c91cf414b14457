// Package relay normalizes and validates HTTP origins for WebSocket
// handshakes to enforce the configured allow-list.
package relay

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// originChecker decides whether a handshake's Origin header is acceptable.
// Origins are compared as lowercase scheme://host; a configured "*" allows
// everything.
type originChecker struct {
	log      *slog.Logger
	allowed  map[string]struct{}
	allowAll bool
}

func newOriginChecker(log *slog.Logger, origins []string) *originChecker {
	oc := &originChecker{
		log:     log,
		allowed: make(map[string]struct{}, len(origins)),
	}

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed == "" {
			continue
		}
		if trimmed == "*" {
			oc.allowAll = true
			continue
		}

		normalized, ok := normalizeOrigin(trimmed)
		if !ok {
			log.Warn("ignoring invalid origin in configuration", "origin", origin)
			continue
		}
		oc.allowed[normalized] = struct{}{}
	}

	return oc
}

func normalizeOrigin(origin string) (string, bool) {
	parsed, err := url.Parse(origin)
	if err != nil {
		return "", false
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return "", false
	}
	return strings.ToLower(parsed.Scheme) + "://" + strings.ToLower(parsed.Host), true
}

func (oc *originChecker) allow(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}

	normalized, ok := normalizeOrigin(origin)
	if !ok {
		return false
	}

	if oc.allowAll {
		return true
	}
	if _, exists := oc.allowed[normalized]; exists {
		return true
	}

	oc.log.Warn("blocked handshake from disallowed origin", "origin", origin)
	return false
}

package websocket

import (
	"log/slog"
	"net/http"
	"net/url"
	"strings"
)

// originPolicy decides which browser pages may open a live tally connection:
// pages served from the app's own origin, plus local dev servers.
type originPolicy struct {
	appOrigin      string
	allowLocalhost bool
}

func (p originPolicy) allows(origin string) bool {
	if origin == "" {
		// Not a browser; nothing to protect against.
		return true
	}
	if p.appOrigin != "" && strings.EqualFold(origin, p.appOrigin) {
		return true
	}
	return p.allowLocalhost && isLocalhostOrigin(origin)
}

// NewCheckOrigin returns the CheckOrigin of the /connection/websocket
// handler, derived from the public app URL.
func NewCheckOrigin(appURL string, isDevelopment bool) func(r *http.Request) bool {
	policy := originPolicy{appOrigin: extractOrigin(appURL), allowLocalhost: isDevelopment}

	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if policy.allows(origin) {
			return true
		}
		slog.Warn("Live tally connection rejected", "origin", origin, "remote_addr", r.RemoteAddr)
		return false
	}
}

func extractOrigin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}

func isLocalhostOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	default:
		return false
	}
}

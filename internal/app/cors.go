package app

import (
	"net/url"
	"strings"
)

// originAllowed matches a browser Origin header against the configured
// pattern list. Patterns name a host, optionally with a port, and support
// a leading "*." to admit any subdomain and a trailing ":*" to admit any
// port on an exact host.
func originAllowed(patterns []string, origin string) bool {
	host := originHost(origin)
	if host == "" {
		return false
	}
	for _, p := range patterns {
		if matchHostPattern(p, host) {
			return true
		}
	}
	return false
}

func originHost(origin string) string {
	u, err := url.Parse(origin)
	if err == nil && u.Host != "" {
		return u.Host
	}
	// Some clients send a bare host as the origin.
	return strings.TrimSpace(origin)
}

func matchHostPattern(pattern, host string) bool {
	switch {
	case pattern == host:
		return true
	case strings.HasPrefix(pattern, "*."):
		// "*.example.com" admits sub.example.com but not example.com itself.
		return strings.HasSuffix(host, pattern[1:])
	case strings.HasSuffix(pattern, ":*"):
		base := strings.TrimSuffix(pattern, ":*")
		bare, _, found := strings.Cut(host, ":")
		return found && bare == base
	default:
		return false
	}
}

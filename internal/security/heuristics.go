package security

import (
	"net"
	"net/http"
	"regexp"
	"strings"
)

// botPattern matches the user-agent signatures of common bots, crawlers
// and scripting tools.
var botPattern = regexp.MustCompile(`(?i)bot|crawler|spider|scraper|curl|wget|python|java|php|perl`)

// IsBotRequest reports whether the user agent looks like an automated
// client rather than a browser.
func IsBotRequest(userAgent string) bool {
	return botPattern.MatchString(userAgent)
}

// IsPrivateIP reports whether ip is in a private, loopback or link-local
// range.
func IsPrivateIP(ip string) bool {
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	return parsed.IsPrivate() || parsed.IsLoopback() || parsed.IsLinkLocalUnicast()
}

// ClientIP extracts the client address: X-Forwarded-For first (trusted
// reverse proxy), then X-Real-IP, then the socket peer.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.Index(xff, ","); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

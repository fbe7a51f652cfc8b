// Package device turns User-Agent strings into display names for session
// rows, so users can recognize their own logins.
package device

import (
	"strings"

	"github.com/mssola/useragent"
)

// ParseUserAgent builds a short "Browser on Platform" label from a raw
// User-Agent header. Unknown or empty agents fall back to a fixed label.
func ParseUserAgent(raw string) string {
	if strings.TrimSpace(raw) == "" {
		return "Unknown Device"
	}

	ua := useragent.New(raw)
	browser, _ := ua.Browser()
	platform := ua.OS()
	if platform == "" {
		platform = ua.Platform()
	}

	switch {
	case browser == "" && platform == "":
		return strings.TrimSpace(raw) + " on unknown platform"
	case browser == "":
		return "Unknown browser on " + platform
	case platform == "":
		return browser + " on unknown platform"
	default:
		return browser + " on " + platform
	}
}

// Package detection classifies inbound page requests: automated traffic and
// the browser extension presence channels.
package detection

import (
	"net/http"
	"regexp"
)

// DefaultBotPattern matches common crawlers, link unfurlers and headless browsers.
const DefaultBotPattern = `(?i)(bot|crawler|spider|crawling|slurp|facebookexternalhit|embedly|quora link preview|outbrain|pinterest|vkshare|w3c_validator|headlesschrome|phantomjs|lighthouse|python-requests|curl/|wget/)`

// AutomatedHeader lets synthetic monitors self-identify.
const AutomatedHeader = "X-Automated-Traffic"

// BotDetector attributes requests to automated traffic
type BotDetector struct {
	pattern *regexp.Regexp
}

// NewBotDetector compiles pattern, falling back to DefaultBotPattern when empty
func NewBotDetector(pattern string) (*BotDetector, error) {
	if pattern == "" {
		pattern = DefaultBotPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, err
	}
	return &BotDetector{pattern: re}, nil
}

// IsAutomated reports whether a request comes from automated traffic
func (d *BotDetector) IsAutomated(r *http.Request) bool {
	if r == nil {
		return false
	}
	if v := r.Header.Get(AutomatedHeader); v == "1" || v == "true" {
		return true
	}
	return d.IsAutomatedUserAgent(r.UserAgent())
}

// IsAutomatedUserAgent classifies a bare user agent. Empty agents count as automated.
func (d *BotDetector) IsAutomatedUserAgent(userAgent string) bool {
	if userAgent == "" {
		return true
	}
	return d.pattern.MatchString(userAgent)
}

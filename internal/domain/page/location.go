// Package page models the browser location a page runtime observes.
package page

import (
	"net/url"
	"sync"
)

// Location holds the current page URL and document referrer. Replace rewrites
// the URL in place, the way history.replaceState does, without a navigation.
type Location struct {
	mu       sync.RWMutex
	href     string
	referrer string
	replaced bool
}

// NewLocation creates a location for a loaded page
func NewLocation(href, referrer string) *Location {
	return &Location{href: href, referrer: referrer}
}

// Href returns the current URL
func (l *Location) Href() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.href
}

// Referrer returns the document referrer
func (l *Location) Referrer() string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.referrer
}

// Replace swaps the URL. Replacing with the same value is a no-op.
func (l *Location) Replace(href string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if href == l.href {
		return
	}
	l.href = href
	l.replaced = true
}

// Replaced reports whether the URL was ever rewritten
func (l *Location) Replaced() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.replaced
}

// Query parses the current URL's query string. Unparseable URLs yield an empty set.
func (l *Location) Query() url.Values {
	u, err := url.Parse(l.Href())
	if err != nil {
		return url.Values{}
	}
	return u.Query()
}

// StripParameters removes keys from a URL's query string. Everything else,
// including the fragment, is preserved. Unparseable input is returned unchanged.
func StripParameters(href string, keys ...string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	q := u.Query()
	changed := false
	for _, k := range keys {
		if _, ok := q[k]; ok {
			q.Del(k)
			changed = true
		}
	}
	if !changed {
		return href
	}
	u.RawQuery = q.Encode()
	return u.String()
}

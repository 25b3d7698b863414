// Package cookies provides the record stores identity state is persisted in:
// an HTTP cookie jar bound to one request/response pair, and an in-memory
// store with the same expiry semantics.
package cookies

import (
	"net/http"
	"sync"
	"time"
)

// Attributes are the scope and security settings applied to every record
type Attributes struct {
	Domain   string // cross-subdomain scope, e.g. ".example.com"
	Secure   bool
	SameSite http.SameSite
}

// DefaultAttributes returns HTTPS-only, lax cross-site attributes for domain
func DefaultAttributes(domain string) Attributes {
	return Attributes{Domain: domain, Secure: true, SameSite: http.SameSiteLaxMode}
}

type overlayEntry struct {
	value   string
	removed bool
}

// Jar reads records from an inbound request's cookies and queues writes as
// Set-Cookie directives. Writes are mirrored in an overlay so later reads in
// the same page observe them. Queued directives reach the response when
// Flush runs; writes after that only update the overlay. Safe for
// concurrent use.
type Jar struct {
	req   *http.Request
	attrs Attributes
	now   func() time.Time

	mu      sync.Mutex
	overlay map[string]overlayEntry
	pending map[string]*http.Cookie
	order   []string
	flushed bool
}

// NewJar binds a jar to an inbound request
func NewJar(req *http.Request, attrs Attributes, now func() time.Time) *Jar {
	if now == nil {
		now = time.Now
	}
	return &Jar{
		req:     req,
		attrs:   attrs,
		now:     now,
		overlay: make(map[string]overlayEntry),
		pending: make(map[string]*http.Cookie),
	}
}

// Get returns the overlay value if this page wrote one, else the request cookie
func (j *Jar) Get(key string) (string, bool) {
	j.mu.Lock()
	entry, ok := j.overlay[key]
	j.mu.Unlock()
	if ok {
		if entry.removed {
			return "", false
		}
		return entry.value, true
	}

	if j.req == nil {
		return "", false
	}
	c, err := j.req.Cookie(key)
	if err != nil {
		return "", false
	}
	return c.Value, true
}

// Set writes key with an expiry of now+ttl
func (j *Jar) Set(key, value string, ttl time.Duration) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.overlay[key] = overlayEntry{value: value}
	j.queue(&http.Cookie{
		Name:     key,
		Value:    value,
		Path:     "/",
		Domain:   j.attrs.Domain,
		Expires:  j.now().Add(ttl).UTC(),
		MaxAge:   int(ttl / time.Second),
		Secure:   j.attrs.Secure,
		SameSite: j.attrs.SameSite,
	})
}

// Remove expires key immediately
func (j *Jar) Remove(key string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.overlay[key] = overlayEntry{removed: true}
	j.queue(&http.Cookie{
		Name:     key,
		Path:     "/",
		Domain:   j.attrs.Domain,
		Expires:  time.Unix(0, 0).UTC(),
		MaxAge:   -1,
		Secure:   j.attrs.Secure,
		SameSite: j.attrs.SameSite,
	})
}

// Flush adds one Set-Cookie directive per written record to h, the latest
// write winning. Only the first call has any effect; later writes are lost
// to the response, which is acceptable for fail-open storage.
func (j *Jar) Flush(h http.Header) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.flushed {
		return
	}
	j.flushed = true
	for _, name := range j.order {
		if v := j.pending[name].String(); v != "" {
			h.Add("Set-Cookie", v)
		}
	}
	j.pending = nil
	j.order = nil
}

func (j *Jar) queue(c *http.Cookie) {
	if j.flushed {
		return
	}
	if _, seen := j.pending[c.Name]; !seen {
		j.order = append(j.order, c.Name)
	}
	j.pending[c.Name] = c
}

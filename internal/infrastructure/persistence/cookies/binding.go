package cookies

import (
	"sync"
	"time"
)

// Binding is a record store that follows a page across requests. Reads and
// writes go to the jar of the request most recently bound, so a page runtime
// that outlives one request keeps persisting into the next response.
type Binding struct {
	mu  sync.RWMutex
	jar *Jar
}

// NewBinding binds to jar
func NewBinding(jar *Jar) *Binding {
	return &Binding{jar: jar}
}

// Bind switches the binding to jar
func (b *Binding) Bind(jar *Jar) {
	b.mu.Lock()
	b.jar = jar
	b.mu.Unlock()
}

func (b *Binding) current() *Jar {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.jar
}

func (b *Binding) Get(key string) (string, bool) {
	return b.current().Get(key)
}

func (b *Binding) Set(key, value string, ttl time.Duration) {
	b.current().Set(key, value, ttl)
}

func (b *Binding) Remove(key string) {
	b.current().Remove(key)
}

package exportarchive

import (
	"context"
	"sort"
	"sync"

	"github.com/yanqian/weather-export/internal/domain/export"
)

// Object is an archived payload.
type Object struct {
	Body        []byte
	ContentType string
}

// MemoryArchive keeps archived exports in memory. Useful for tests and local dev.
type MemoryArchive struct {
	mu      sync.RWMutex
	objects map[string]Object
}

// NewMemoryArchive constructs an empty archive.
func NewMemoryArchive() *MemoryArchive {
	return &MemoryArchive{objects: make(map[string]Object)}
}

// Put implements export.Archive.
func (a *MemoryArchive) Put(ctx context.Context, key string, body []byte, contentType string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.objects[key] = Object{Body: append([]byte(nil), body...), ContentType: contentType}
	return nil
}

// Keys lists archived keys in lexical order.
func (a *MemoryArchive) Keys() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, 0, len(a.objects))
	for key := range a.objects {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Object returns an archived payload.
func (a *MemoryArchive) Object(key string) (Object, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	obj, ok := a.objects[key]
	return obj, ok
}

var _ export.Archive = (*MemoryArchive)(nil)

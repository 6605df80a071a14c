package router

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrNoReverseMatch is returned when a route name is unknown or the arguments
// do not fit its pattern.
var ErrNoReverseMatch = errors.New("no reverse match")

// URLs maps route names to path patterns so handlers and templates can build
// links without hard-coding paths. Patterns use gin's ":param" segments.
type URLs struct {
	mu       sync.RWMutex
	patterns map[string]string
}

// NewURLs creates an empty registry.
func NewURLs() *URLs {
	return &URLs{patterns: make(map[string]string)}
}

// Add names pattern. A later Add with the same name replaces the earlier one.
func (u *URLs) Add(name, pattern string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.patterns[name] = pattern
}

// Names returns the registered route names in sorted order.
func (u *URLs) Names() []string {
	u.mu.RLock()
	defer u.mu.RUnlock()
	names := make([]string, 0, len(u.patterns))
	for name := range u.patterns {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reverse fills the parameters of the named pattern with args, in order.
func (u *URLs) Reverse(name string, args ...any) (string, error) {
	u.mu.RLock()
	pattern, ok := u.patterns[name]
	u.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q is not a registered route name", ErrNoReverseMatch, name)
	}

	segments := strings.Split(pattern, "/")
	next := 0
	for i, seg := range segments {
		if !strings.HasPrefix(seg, ":") && !strings.HasPrefix(seg, "*") {
			continue
		}
		if next >= len(args) {
			return "", fmt.Errorf("%w: %q needs more than %d arguments", ErrNoReverseMatch, name, len(args))
		}
		value := fmt.Sprint(args[next])
		if value == "" || strings.Contains(value, "/") {
			return "", fmt.Errorf("%w: %q cannot fill %s with %q", ErrNoReverseMatch, name, seg, value)
		}
		segments[i] = value
		next++
	}
	if next != len(args) {
		return "", fmt.Errorf("%w: %q takes %d arguments, got %d", ErrNoReverseMatch, name, next, len(args))
	}
	return strings.Join(segments, "/"), nil
}

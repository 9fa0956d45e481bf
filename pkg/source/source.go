package source

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Source produces raw text for the residual labels of a query name.
// Labels are given most specific first, as they appear in the name.
type Source interface {
	Fetch(ctx context.Context, labels []string) (string, error)
}

// SourceFunc adapts a plain function to Source
type SourceFunc func(ctx context.Context, labels []string) (string, error)

// Fetch calls f
func (f SourceFunc) Fetch(ctx context.Context, labels []string) (string, error) {
	return f(ctx, labels)
}

var (
	// ErrMissingLabels is returned when the name lacks labels a source needs
	ErrMissingLabels = errors.New("not enough labels for source")

	// ErrArticleNotFound is returned when a remote source has no such article
	ErrArticleNotFound = errors.New("article not found")

	// ErrRegistrySealed is returned by Register after Seal
	ErrRegistrySealed = errors.New("source registry is sealed")
)

// FetchError wraps every failure a source reports
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch from %s failed: %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// StatusError reports a non-2xx HTTP response from a remote source
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.Code)
}

// Registry maps source keys to sources. It is filled at startup, sealed,
// and then only read.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Source
	sealed  bool
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		sources: make(map[string]Source),
	}
}

// Register adds a source under key
func (r *Registry) Register(key string, src Source) error {
	if key == "" {
		return fmt.Errorf("source key must not be empty")
	}
	if src == nil {
		return fmt.Errorf("source %s is nil", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return ErrRegistrySealed
	}
	if _, exists := r.sources[key]; exists {
		return fmt.Errorf("source already registered: %s", key)
	}
	r.sources[key] = src
	return nil
}

// Seal makes the registry read-only
func (r *Registry) Seal() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sealed = true
}

// Lookup returns the source registered under key
func (r *Registry) Lookup(key string) (Source, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	src, ok := r.sources[key]
	return src, ok
}

// Keys returns the registered keys in sorted order
func (r *Registry) Keys() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]string, 0, len(r.sources))
	for k := range r.sources {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Fetch looks up key and fetches from it, wrapping any failure in a
// FetchError. The bool is false when no source is registered for key.
func (r *Registry) Fetch(ctx context.Context, key string, labels []string) (string, bool, error) {
	src, ok := r.Lookup(key)
	if !ok {
		return "", false, nil
	}

	text, err := src.Fetch(ctx, labels)
	if err != nil {
		var fe *FetchError
		if !errors.As(err, &fe) {
			err = &FetchError{Source: key, Err: err}
		}
		return "", true, err
	}
	return text, true, nil
}

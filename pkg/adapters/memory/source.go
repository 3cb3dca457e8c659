package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/sieve/pkg/ports"
)

// Source implements ports.WritableSource and ports.Watchable in memory.
// Safe for concurrent use.
type Source struct {
	mu   sync.RWMutex
	docs map[string][]byte

	watchMu  sync.Mutex
	watchers []*watcher
}

type watcher struct {
	ctx context.Context
	ch  chan string
}

// NewSource creates a new Source with the provided raw documents.
func NewSource(docs map[string]string) *Source {
	s := &Source{docs: make(map[string][]byte, len(docs))}
	for name, doc := range docs {
		s.docs[name] = []byte(doc)
	}
	return s
}

// Get retrieves the raw document of a schema.
func (s *Source) Get(ctx context.Context, name string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	doc, ok := s.docs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrSchemaNotFound, name)
	}
	// Copy on read so callers can't mutate the stored document.
	return append([]byte(nil), doc...), nil
}

// List returns all schema names.
func (s *Source) List(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.docs))
	for name := range s.docs {
		names = append(names, name)
	}
	sort.Strings(names) // Deterministic order
	return names, nil
}

// Put stores a document and notifies watchers.
func (s *Source) Put(ctx context.Context, name string, doc []byte) error {
	if name == "" {
		return fmt.Errorf("schema name cannot be empty")
	}
	s.mu.Lock()
	s.docs[name] = append([]byte(nil), doc...)
	s.mu.Unlock()

	s.notify(name)
	return nil
}

// Delete removes a document and notifies watchers.
func (s *Source) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	_, existed := s.docs[name]
	delete(s.docs, name)
	s.mu.Unlock()

	if existed {
		s.notify(name)
	}
	return nil
}

// Watch returns a channel receiving the names of changed schemas until ctx
// is done.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	w := &watcher{ctx: ctx, ch: make(chan string, 16)}

	s.watchMu.Lock()
	s.watchers = append(s.watchers, w)
	s.watchMu.Unlock()

	go func() {
		<-ctx.Done()
		s.watchMu.Lock()
		defer s.watchMu.Unlock()
		for i, candidate := range s.watchers {
			if candidate == w {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		close(w.ch)
	}()

	return w.ch, nil
}

func (s *Source) notify(name string) {
	s.watchMu.Lock()
	defer s.watchMu.Unlock()
	for _, w := range s.watchers {
		select {
		case w.ch <- name:
		case <-w.ctx.Done():
		}
	}
}

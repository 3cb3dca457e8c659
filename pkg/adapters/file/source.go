package file

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/aretw0/sieve/pkg/ports"
)

// Extensions lists the document extensions a Source reads, in lookup order.
var Extensions = []string{".yaml", ".yml", ".json"}

// DefaultDebounce is how long Watch waits for a burst of file events to
// settle before reporting the schemas involved.
const DefaultDebounce = 100 * time.Millisecond

// Source implements ports.WritableSource and ports.Watchable over a
// directory of YAML/JSON documents. The schema name is the file name without
// its extension.
type Source struct {
	BasePath string
	logger   *slog.Logger
	debounce time.Duration
}

// Option configures a Source.
type Option func(*Source)

// WithLogger sets the logger used to report watch errors.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Source) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithDebounce sets the quiet period Watch waits for before reporting
// changes. Zero or less reports every event as it arrives.
func WithDebounce(d time.Duration) Option {
	return func(s *Source) {
		s.debounce = d
	}
}

// New creates a new Source with the given base path.
// If basePath is empty, it defaults to "schemas".
func New(basePath string, opts ...Option) *Source {
	if basePath == "" {
		basePath = "schemas"
	}
	s := &Source{
		BasePath: basePath,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		debounce: DefaultDebounce,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func checkName(name string) error {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return fmt.Errorf("invalid schema name %q", name)
	}
	return nil
}

// path returns the existing document path of a schema.
func (s *Source) path(name string) (string, bool) {
	for _, ext := range Extensions {
		p := filepath.Join(s.BasePath, name+ext)
		if info, err := os.Stat(p); err == nil && !info.IsDir() {
			return p, true
		}
	}
	return "", false
}

// Get reads the document of a schema.
func (s *Source) Get(ctx context.Context, name string) ([]byte, error) {
	if err := checkName(name); err != nil {
		return nil, fmt.Errorf("%w: %v", ports.ErrSchemaNotFound, err)
	}
	p, ok := s.path(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ports.ErrSchemaNotFound, name)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ports.ErrSchemaNotFound, name)
		}
		return nil, fmt.Errorf("failed to read schema file: %w", err)
	}
	return data, nil
}

// List returns the names of all documents in the directory.
func (s *Source) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.BasePath)
	if err != nil {
		if os.IsNotExist(err) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}

	seen := make(map[string]bool)
	names := []string{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name, ok := schemaName(entry.Name())
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// schemaName strips a known extension from a file name.
func schemaName(file string) (string, bool) {
	if strings.HasPrefix(file, ".") {
		return "", false
	}
	ext := filepath.Ext(file)
	for _, known := range Extensions {
		if ext == known {
			return strings.TrimSuffix(file, ext), true
		}
	}
	return "", false
}

// Put writes a document atomically. An existing file keeps its extension;
// new documents are written as .json when they look like JSON, .yaml
// otherwise.
func (s *Source) Put(ctx context.Context, name string, doc []byte) error {
	if err := checkName(name); err != nil {
		return err
	}
	if err := os.MkdirAll(s.BasePath, 0755); err != nil {
		return fmt.Errorf("failed to ensure schema directory: %w", err)
	}

	destPath, ok := s.path(name)
	if !ok {
		ext := ".yaml"
		if bytes.HasPrefix(bytes.TrimSpace(doc), []byte("{")) {
			ext = ".json"
		}
		destPath = filepath.Join(s.BasePath, name+ext)
	}

	// Write to a temp file in the same directory so the rename is atomic.
	tmpFile, err := os.CreateTemp(s.BasePath, ".tmp-"+name+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(doc); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// On Windows, os.Rename fails if dest exists.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing schema file for overwrite: %w", err)
		}
	}
	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file to schema: %w", err)
	}
	return nil
}

// Delete removes every document of a schema.
func (s *Source) Delete(ctx context.Context, name string) error {
	if err := checkName(name); err != nil {
		return err
	}
	for _, ext := range Extensions {
		err := os.Remove(filepath.Join(s.BasePath, name+ext))
		if err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to delete schema file: %w", err)
		}
	}
	return nil
}

// Watch reports the names of schemas whose files are created, written,
// removed or renamed. Events for a schema arriving within the debounce period
// of each other are reported once. The channel is closed when ctx is done.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(s.BasePath); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", s.BasePath, err)
	}

	changes := make(chan string)
	go func() {
		defer close(changes)
		defer watcher.Close()

		pending := make(map[string]struct{})
		timer := time.NewTimer(time.Hour)
		timer.Stop()
		defer timer.Stop()

		flush := func() bool {
			names := make([]string, 0, len(pending))
			for name := range pending {
				names = append(names, name)
			}
			sort.Strings(names)
			clear(pending)
			for _, name := range names {
				select {
				case changes <- name:
				case <-ctx.Done():
					return false
				}
			}
			return true
		}

		for {
			select {
			case <-ctx.Done():
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) &&
					!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
					continue
				}
				name, ok := schemaName(filepath.Base(event.Name))
				if !ok {
					continue
				}
				s.logger.Debug("schema file changed", "schema", name, "op", event.Op.String())
				pending[name] = struct{}{}
				if s.debounce <= 0 {
					if !flush() {
						return
					}
					continue
				}
				timer.Reset(s.debounce)

			case <-timer.C:
				if !flush() {
					return
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				s.logger.Error("schema watcher error", "error", err)
			}
		}
	}()
	return changes, nil
}

package redis

import (
	"context"
	"errors"
	"fmt"

	backend "github.com/redis/go-redis/v9"

	"github.com/aretw0/sieve/pkg/ports"
)

// DefaultPrefix is the key prefix used when none is configured.
const DefaultPrefix = "sieve:schema:"

// Source implements ports.WritableSource and ports.Watchable using Redis.
// Documents are stored as plain keys, names are indexed in a sorted set and
// changes are announced on a pub/sub channel.
type Source struct {
	client *backend.Client
	prefix string
}

// Option configures a Source.
type Option func(*Source)

// WithPrefix sets the key prefix for schemas.
func WithPrefix(prefix string) Option {
	return func(s *Source) {
		s.prefix = prefix
	}
}

// New creates a new Redis source with options.
func New(address, password string, db int, opts ...Option) *Source {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis source from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Source {
	s := &Source{
		client: client,
		prefix: DefaultPrefix,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Source) key(name string) string {
	return s.prefix + name
}

func (s *Source) indexKey() string {
	return s.prefix + "index"
}

func (s *Source) channel() string {
	return s.prefix + "changes"
}

// Get retrieves a document from Redis.
func (s *Source) Get(ctx context.Context, name string) ([]byte, error) {
	val, err := s.client.Get(ctx, s.key(name)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, fmt.Errorf("%w: %s", ports.ErrSchemaNotFound, name)
		}
		return nil, fmt.Errorf("failed to get from redis: %w", err)
	}
	return val, nil
}

// List returns the indexed schema names. Members share a score, so the
// sorted set orders them lexicographically.
func (s *Source) List(ctx context.Context) ([]string, error) {
	names, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list schemas: %w", err)
	}
	return names, nil
}

// Put stores a document, indexes its name and announces the change.
func (s *Source) Put(ctx context.Context, name string, doc []byte) error {
	if name == "" {
		return fmt.Errorf("schema name cannot be empty")
	}
	pipe := s.client.TxPipeline()
	pipe.Set(ctx, s.key(name), doc, 0)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{Score: 0, Member: name})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save to redis: %w", err)
	}
	return s.publish(ctx, name)
}

// Delete removes a document and announces the change.
func (s *Source) Delete(ctx context.Context, name string) error {
	pipe := s.client.TxPipeline()
	del := pipe.Del(ctx, s.key(name))
	pipe.ZRem(ctx, s.indexKey(), name)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to delete from redis: %w", err)
	}
	if del.Val() > 0 {
		return s.publish(ctx, name)
	}
	return nil
}

func (s *Source) publish(ctx context.Context, name string) error {
	if err := s.client.Publish(ctx, s.channel(), name).Err(); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

// Watch subscribes to change announcements from every process sharing the
// prefix. The channel is closed when ctx is done.
func (s *Source) Watch(ctx context.Context) (<-chan string, error) {
	sub := s.client.Subscribe(ctx, s.channel())
	// Wait for the subscription to be confirmed so no change is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("failed to subscribe to schema changes: %w", err)
	}

	changes := make(chan string)
	go func() {
		defer close(changes)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case changes <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return changes, nil
}

// Close closes the redis client.
func (s *Source) Close() error {
	return s.client.Close()
}

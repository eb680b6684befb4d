package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"kinobot/internal/logger"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrUnknownBackend = errors.New("unknown storage backend")
)

// errUnchanged lets an Update callback finish without rewriting the store.
var errUnchanged = errors.New("unchanged")

// Backend persists whole named snapshots. Load of an absent store returns "{}".
type Backend interface {
	Load(ctx context.Context, name string) ([]byte, error)
	Save(ctx context.Context, name string, data []byte) error
	Close() error
}

// Store is a JSON object snapshot of T keyed by string. Every read-modify-write runs under
// one mutex so concurrent updates of the same store never lose each other's writes.
type Store[T any] struct {
	name    string
	backend Backend
	log     *zap.SugaredLogger
	mu      sync.Mutex
}

func NewStore[T any](name string, b Backend, log *zap.SugaredLogger) *Store[T] {
	return &Store[T]{name: name, backend: b, log: logger.OrNop(log)}
}

func (s *Store[T]) Name() string { return s.name }

// Read loads the current mapping.
func (s *Store[T]) Read(ctx context.Context) (map[string]T, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load(ctx)
}

// Snapshot is Read that falls back to an empty mapping when the backend fails.
func (s *Store[T]) Snapshot(ctx context.Context) map[string]T {
	m, err := s.Read(ctx)
	if err != nil {
		s.log.Errorw("store read failed, using empty snapshot", "store", s.name, "err", err)
		return map[string]T{}
	}
	return m
}

// Update loads the mapping, applies fn and saves the result. A failed load aborts before fn
// runs so that an unreadable store is never overwritten with an empty one.
func (s *Store[T]) Update(ctx context.Context, fn func(m map[string]T) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m, err := s.load(ctx)
	if err != nil {
		s.log.Errorw("store load failed", "store", s.name, "err", err)
		return err
	}
	if err := fn(m); err != nil {
		if errors.Is(err, errUnchanged) {
			return nil
		}
		return err
	}
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return errors.Wrapf(err, "encode %s", s.name)
	}
	if err := s.backend.Save(ctx, s.name, data); err != nil {
		s.log.Errorw("store save failed", "store", s.name, "err", err)
		return err
	}
	return nil
}

func (s *Store[T]) load(ctx context.Context) (map[string]T, error) {
	raw, err := s.backend.Load(ctx, s.name)
	if err != nil {
		return nil, err
	}
	m := map[string]T{}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return m, nil
	}
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrapf(err, "decode %s", s.name)
	}
	return m, nil
}

type Options struct {
	Kind          string
	Dir           string
	MongoURI      string
	MongoDatabase string
	RedisAddr     string
	RedisPrefix   string
}

// Open builds the backend selected by opts.Kind.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Kind {
	case "", "file":
		return NewFileBackend(opts.Dir), nil
	case "mongo":
		return NewMongo(ctx, opts.MongoURI, opts.MongoDatabase)
	case "redis":
		return NewRedis(ctx, opts.RedisAddr, opts.RedisPrefix)
	default:
		return nil, errors.Wrap(ErrUnknownBackend, opts.Kind)
	}
}

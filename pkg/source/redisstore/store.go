// Package redisstore serves a document graph from Redis.
//
// The store reads a precomputed layout (see [Keys]) written by [Store.Load]
// from an in-memory graph: every adjacency view of every document is a Redis
// list, so traversals page through lists instead of walking the graph.
// Sequences fetch one page per round trip as the consumer pulls, so stopping
// early saves the remaining round trips.
//
// Connection failures and other I/O errors are reported as
// UNAVAILABLE_SOURCE, as are queries about documents that are not stored or
// are stored as closed.
package redisstore

import (
	"context"
	"errors"
	"iter"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/docwalk/pkg/doc"
	errs "github.com/matzehuels/docwalk/pkg/errors"
)

const defaultPageSize = 256

var (
	_ doc.Source  = (*Store)(nil)
	_ doc.Catalog = (*Store)(nil)
)

// Store is a Redis-backed [doc.Source] and [doc.Catalog].
type Store struct {
	rdb      redis.UniversalClient
	keys     Keys
	pageSize int64
	logger   *log.Logger
}

// New wraps an existing client. An empty prefix means [DefaultPrefix].
func New(rdb redis.UniversalClient, prefix string) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{rdb: rdb, keys: Keys{Prefix: prefix}, pageSize: defaultPageSize}
}

// Dial connects to the Redis server named by a redis:// or rediss:// URL and
// checks the connection.
func Dial(ctx context.Context, url, prefix string) (*Store, error) {
	if err := errs.ValidateURL(url, "redis", "rediss"); err != nil {
		return nil, err
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, errs.Wrap(errs.ErrCodeInvalidInput, err, "parse redis url")
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, errs.Unavailable(err, "connect to redis at %s", opts.Addr)
	}
	return New(rdb, prefix), nil
}

// SetLogger sets the logger that reports read failures the store cannot
// return as errors. A nil logger discards them.
func (s *Store) SetLogger(l *log.Logger) { s.logger = l }

// Keys returns the key layout of the store.
func (s *Store) Keys() Keys { return s.keys }

// Close closes the underlying client.
func (s *Store) Close() error { return s.rdb.Close() }

// document reads the document hash. found is false when nothing is stored.
func (s *Store) document(ctx context.Context, id doc.ID) (ref doc.Ref, flags doc.Flags, closed, found bool, err error) {
	h, err := s.rdb.HGetAll(ctx, s.keys.Doc(id)).Result()
	if err != nil {
		return doc.Ref{}, doc.Flags{}, false, false, errs.Unavailable(err, "read document %q", id)
	}
	if len(h) == 0 {
		return doc.Ref{}, doc.Flags{}, false, false, nil
	}
	ref, flags, closed, err = decodeDocHash(id, h)
	return ref, flags, closed, true, err
}

// open checks that id is stored and not closed.
func (s *Store) open(ctx context.Context, id doc.ID) (doc.Flags, error) {
	_, flags, closed, found, err := s.document(ctx, id)
	switch {
	case err != nil:
		return doc.Flags{}, err
	case !found:
		return doc.Flags{}, errs.Unavailable(nil, "document %q is not in the session", id)
	case closed:
		return doc.Flags{}, errs.Unavailable(nil, "document %q is closed", id)
	}
	return flags, nil
}

// pages yields the entries of a list, fetching pageSize entries per round trip.
func (s *Store) pages(ctx context.Context, key string) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		for start := int64(0); ; start += s.pageSize {
			vals, err := s.rdb.LRange(ctx, key, start, start+s.pageSize-1).Result()
			if err != nil {
				yield("", errs.Unavailable(err, "read %s", key))
				return
			}
			for _, v := range vals {
				if !yield(v, nil) {
					return
				}
			}
			if int64(len(vals)) < s.pageSize {
				return
			}
		}
	}
}

// Adjacent implements [doc.Source].
func (s *Store) Adjacent(ctx context.Context, id doc.ID, rel doc.Relation) iter.Seq2[doc.Ref, error] {
	return func(yield func(doc.Ref, error) bool) {
		if _, err := s.open(ctx, id); err != nil {
			yield(doc.Ref{}, err)
			return
		}
		for entry, err := range s.pages(ctx, s.keys.Adjacent(id, rel)) {
			if err != nil {
				yield(doc.Ref{}, err)
				return
			}
			ref, err := DecodeRef(entry)
			if err != nil {
				yield(doc.Ref{}, errs.Unavailable(err, "adjacency of %q", id))
				return
			}
			if !yield(ref, nil) {
				return
			}
		}
	}
}

// Descriptors implements [doc.Source].
func (s *Store) Descriptors(ctx context.Context, id doc.ID) iter.Seq2[doc.DescriptorRecord, error] {
	return func(yield func(doc.DescriptorRecord, error) bool) {
		if _, err := s.open(ctx, id); err != nil {
			yield(doc.DescriptorRecord{}, err)
			return
		}
		for entry, err := range s.pages(ctx, s.keys.Descriptors(id)) {
			if err != nil {
				yield(doc.DescriptorRecord{}, err)
				return
			}
			rec, err := DecodeDescriptor(entry)
			if err != nil {
				yield(doc.DescriptorRecord{}, errs.Unavailable(err, "descriptors of %q", id))
				return
			}
			if !yield(rec, nil) {
				return
			}
		}
	}
}

// Flags implements [doc.Source].
func (s *Store) Flags(ctx context.Context, id doc.ID) (doc.Flags, error) {
	return s.open(ctx, id)
}

// Property implements [doc.Source].
func (s *Store) Property(ctx context.Context, id doc.ID, name string) (any, bool, error) {
	return s.readValue(ctx, id, s.keys.Props(id), name)
}

// SetProperty implements [doc.Source].
func (s *Store) SetProperty(ctx context.Context, id doc.ID, name string, value any) error {
	return s.writeValue(ctx, id, s.keys.Props(id), name, value)
}

// Attribute implements [doc.Source].
func (s *Store) Attribute(ctx context.Context, id doc.ID, set, name string) (any, bool, error) {
	return s.readValue(ctx, id, s.keys.Attrs(id, set), name)
}

// SetAttribute implements [doc.Source].
func (s *Store) SetAttribute(ctx context.Context, id doc.ID, set, name string, value any) error {
	return s.writeValue(ctx, id, s.keys.Attrs(id, set), name, value)
}

func (s *Store) readValue(ctx context.Context, id doc.ID, key, field string) (any, bool, error) {
	if _, err := s.open(ctx, id); err != nil {
		return nil, false, err
	}
	raw, err := s.rdb.HGet(ctx, key, field).Result()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errs.Unavailable(err, "read %s", key)
	}
	v, err := DecodeValue(raw)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (s *Store) writeValue(ctx context.Context, id doc.ID, key, field string, value any) error {
	if _, err := s.open(ctx, id); err != nil {
		return err
	}
	raw, err := EncodeValue(value)
	if err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, key, field, raw).Err(); err != nil {
		return errs.Unavailable(err, "write %s", key)
	}
	return nil
}

// Lookup implements [doc.Catalog].
func (s *Store) Lookup(ctx context.Context, id doc.ID) (doc.Ref, error) {
	ref, _, _, found, err := s.document(ctx, id)
	if err != nil {
		return doc.Ref{}, err
	}
	if !found {
		return doc.Ref{}, errs.New(errs.ErrCodeNotFound, "document %q not found", id)
	}
	return ref, nil
}

// Documents implements [doc.Catalog], yielding documents in ID order.
func (s *Store) Documents(ctx context.Context) iter.Seq2[doc.Ref, error] {
	return func(yield func(doc.Ref, error) bool) {
		for start := int64(0); ; start += s.pageSize {
			ids, err := s.rdb.ZRange(ctx, s.keys.Docs(), start, start+s.pageSize-1).Result()
			if err != nil {
				yield(doc.Ref{}, errs.Unavailable(err, "list documents"))
				return
			}
			for _, id := range ids {
				ref, err := s.Lookup(ctx, doc.ID(id))
				if err != nil {
					yield(doc.Ref{}, err)
					return
				}
				if !yield(ref, nil) {
					return
				}
			}
			if int64(len(ids)) < s.pageSize {
				return
			}
		}
	}
}

// Resolve maps a selection entry to its document, matching occurrence names
// first and document IDs second. Read failures are logged and the entry is
// reported as unmapped.
func (s *Store) Resolve(ctx context.Context, entry string) (doc.Ref, bool) {
	id := doc.ID(entry)
	owner, err := s.rdb.HGet(ctx, s.keys.Occurrences(), entry).Result()
	switch {
	case err == nil:
		id = doc.ID(owner)
	case !errors.Is(err, redis.Nil):
		s.warnResolve(entry, errs.Unavailable(err, "read %s", s.keys.Occurrences()))
	}
	ref, err := s.Lookup(ctx, id)
	if err != nil {
		if !errs.Is(err, errs.ErrCodeNotFound) {
			s.warnResolve(entry, err)
		}
		return doc.Ref{}, false
	}
	return ref, true
}

func (s *Store) warnResolve(entry string, err error) {
	if s.logger != nil {
		s.logger.Warn("could not resolve selection entry", "entry", entry, "err", err)
	}
}

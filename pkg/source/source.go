// Package source opens document graph backends and instruments them.
//
// A backend is any [doc.Source] that can also list documents, resolve
// selection entries and release its connection. Three are built in:
//
//   - a manifest file (TOML, JSON or YAML) loaded into a [memory.Graph]
//   - a Redis server (redis:// or rediss://), see [redisstore]
//   - a MongoDB server (mongodb:// or mongodb+srv://), see [mongostore]
//
// [Open] picks the backend from the shape of the location string, and
// [Instrument] wraps any backend so every query reports to the
// observability hooks.
package source

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/docwalk/pkg/doc"
	errs "github.com/matzehuels/docwalk/pkg/errors"
	"github.com/matzehuels/docwalk/pkg/graph"
	"github.com/matzehuels/docwalk/pkg/source/memory"
	"github.com/matzehuels/docwalk/pkg/source/mongostore"
	"github.com/matzehuels/docwalk/pkg/source/redisstore"
)

// Backend is a document graph the traversal core and its hosts can query.
type Backend interface {
	doc.Source
	doc.Catalog

	// Resolve maps a selection entry (occurrence name or document ID) to
	// its document. It has the shape of a [doc.Resolver].
	Resolve(ctx context.Context, entry string) (doc.Ref, bool)

	// Close releases the backend's connection, if it holds one.
	Close() error
}

var (
	_ Backend = (*memory.Graph)(nil)
	_ Backend = (*redisstore.Store)(nil)
	_ Backend = (*mongostore.Store)(nil)
)

// Backend kinds reported by [Kind].
const (
	KindManifest = "manifest"
	KindRedis    = "redis"
	KindMongo    = "mongo"
)

// Options tune the networked backends. Zero values select each store's defaults.
type Options struct {
	RedisPrefix     string
	MongoDatabase   string
	MongoCollection string

	// DialAttempts and DialDelay control how often an unreachable server
	// is retried, and the first wait between tries.
	DialAttempts int
	DialDelay    time.Duration

	// Logger receives read failures a store cannot return as errors.
	Logger *log.Logger
}

// Kind reports which backend [Open] would use for location.
func Kind(location string) string {
	switch {
	case strings.HasPrefix(location, "redis://"), strings.HasPrefix(location, "rediss://"):
		return KindRedis
	case strings.HasPrefix(location, "mongodb://"), strings.HasPrefix(location, "mongodb+srv://"):
		return KindMongo
	default:
		return KindManifest
	}
}

// Open connects to the backend at location: a Redis or MongoDB URL, or
// the path of a manifest file.
func Open(ctx context.Context, location string, opts Options) (Backend, error) {
	if strings.TrimSpace(location) == "" {
		return nil, errs.New(errs.ErrCodeInvalidInput, "no document source configured")
	}
	if Kind(location) == KindManifest {
		g, err := graph.ReadFile(location)
		if err != nil {
			return nil, err
		}
		return g, nil
	}
	return OpenLoader(ctx, location, opts)
}

// Loader is a backend that can be filled from an in-memory graph.
type Loader interface {
	Backend
	Load(ctx context.Context, g *memory.Graph) (int, error)
}

var (
	_ Loader = (*redisstore.Store)(nil)
	_ Loader = (*mongostore.Store)(nil)
)

// OpenLoader opens a networked backend for writing. Manifest paths are
// rejected: a manifest is a load source, not a target.
func OpenLoader(ctx context.Context, location string, opts Options) (Loader, error) {
	switch Kind(location) {
	case KindRedis:
		s, err := dial(ctx, opts, func() (*redisstore.Store, error) {
			return redisstore.Dial(ctx, location, opts.RedisPrefix)
		})
		if err != nil {
			return nil, err
		}
		s.SetLogger(opts.Logger)
		return s, nil
	case KindMongo:
		s, err := dial(ctx, opts, func() (*mongostore.Store, error) {
			return mongostore.Connect(ctx, location, opts.MongoDatabase, opts.MongoCollection)
		})
		if err != nil {
			return nil, err
		}
		s.SetLogger(opts.Logger)
		return s, nil
	default:
		return nil, errs.New(errs.ErrCodeUnsupported, "cannot load into %q: want a redis:// or mongodb:// URL", location)
	}
}

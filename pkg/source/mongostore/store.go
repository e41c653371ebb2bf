// Package mongostore serves a document graph from a MongoDB collection.
//
// Each document is stored as one [Record] holding its adjacency views as
// arrays. Traversals page through an array with a $slice projection, one
// round trip per page, as the consumer pulls.
package mongostore

import (
	"context"
	"errors"
	"iter"

	"github.com/charmbracelet/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/matzehuels/docwalk/pkg/doc"
	errs "github.com/matzehuels/docwalk/pkg/errors"
)

// Defaults used by [Connect].
const (
	DefaultDatabase   = "docwalk"
	DefaultCollection = "documents"

	defaultPageSize = 256
)

var (
	_ doc.Source  = (*Store)(nil)
	_ doc.Catalog = (*Store)(nil)
)

// Store is a MongoDB-backed [doc.Source] and [doc.Catalog].
type Store struct {
	client   *mongo.Client
	coll     *mongo.Collection
	pageSize int
	logger   *log.Logger
}

// New wraps an existing collection. Close does not disconnect its client.
func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll, pageSize: defaultPageSize}
}

// Connect dials the server named by a mongodb:// or mongodb+srv:// URI and
// opens the given collection. Empty names select the defaults.
func Connect(ctx context.Context, uri, database, collection string) (*Store, error) {
	if err := errs.ValidateURL(uri, "mongodb", "mongodb+srv"); err != nil {
		return nil, err
	}
	if database == "" {
		database = DefaultDatabase
	}
	if collection == "" {
		collection = DefaultCollection
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errs.Unavailable(err, "connect to mongodb")
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, errs.Unavailable(err, "ping mongodb")
	}
	s := New(client.Database(database).Collection(collection))
	s.client = client
	return s, nil
}

// SetLogger sets the logger that reports read failures the store cannot
// return as errors. A nil logger discards them.
func (s *Store) SetLogger(l *log.Logger) { s.logger = l }

// Close disconnects the client opened by [Connect].
func (s *Store) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Disconnect(context.Background())
}

// find reads one record with the given projection. found is false when no
// record has the ID.
func (s *Store) find(ctx context.Context, id doc.ID, projection bson.M) (rec Record, found bool, err error) {
	opts := options.FindOne().SetProjection(projection)
	err = s.coll.FindOne(ctx, bson.M{"_id": string(id)}, opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, errs.Unavailable(err, "read document %q", id)
	}
	return rec, true, nil
}

// open reads a record and checks that it is present and not closed.
func (s *Store) open(ctx context.Context, id doc.ID, projection bson.M) (Record, error) {
	projection["closed"] = 1
	rec, found, err := s.find(ctx, id, projection)
	switch {
	case err != nil:
		return Record{}, err
	case !found:
		return Record{}, errs.Unavailable(nil, "document %q is not in the session", id)
	case rec.Closed:
		return Record{}, errs.Unavailable(nil, "document %q is closed", id)
	}
	return rec, nil
}

func slice(field string, skip, limit int) bson.M {
	return bson.M{field: bson.M{"$slice": bson.A{skip, limit}}}
}

// Adjacent implements [doc.Source].
func (s *Store) Adjacent(ctx context.Context, id doc.ID, rel doc.Relation) iter.Seq2[doc.Ref, error] {
	return func(yield func(doc.Ref, error) bool) {
		field, ok := relationFields[rel]
		if !ok {
			yield(doc.Ref{}, errs.New(errs.ErrCodeUnsupported, "unsupported relation %v", rel))
			return
		}
		for skip := 0; ; skip += s.pageSize {
			rec, err := s.open(ctx, id, slice(field, skip, s.pageSize))
			if err != nil {
				yield(doc.Ref{}, err)
				return
			}
			var page []RefRecord
			switch rel {
			case doc.RelReferenced:
				page = rec.Referenced
			case doc.RelReferencing:
				page = rec.Referencing
			default:
				page = rec.Closure
			}
			for _, r := range page {
				ref, err := r.Ref()
				if err != nil {
					yield(doc.Ref{}, errs.Unavailable(err, "adjacency of %q", id))
					return
				}
				if !yield(ref, nil) {
					return
				}
			}
			if len(page) < s.pageSize {
				return
			}
		}
	}
}

// Descriptors implements [doc.Source].
func (s *Store) Descriptors(ctx context.Context, id doc.ID) iter.Seq2[doc.DescriptorRecord, error] {
	return func(yield func(doc.DescriptorRecord, error) bool) {
		for skip := 0; ; skip += s.pageSize {
			rec, err := s.open(ctx, id, slice("descriptors", skip, s.pageSize))
			if err != nil {
				yield(doc.DescriptorRecord{}, err)
				return
			}
			for _, d := range rec.Descriptors {
				out, err := d.Descriptor()
				if err != nil {
					yield(doc.DescriptorRecord{}, errs.Unavailable(err, "descriptors of %q", id))
					return
				}
				if !yield(out, nil) {
					return
				}
			}
			if len(rec.Descriptors) < s.pageSize {
				return
			}
		}
	}
}

// Flags implements [doc.Source].
func (s *Store) Flags(ctx context.Context, id doc.ID) (doc.Flags, error) {
	rec, err := s.open(ctx, id, bson.M{"modifiable": 1, "reserved": 1})
	if err != nil {
		return doc.Flags{}, err
	}
	return rec.Flags(), nil
}

// Property implements [doc.Source].
func (s *Store) Property(ctx context.Context, id doc.ID, name string) (any, bool, error) {
	if err := validateField(name); err != nil {
		return nil, false, err
	}
	rec, err := s.open(ctx, id, bson.M{"properties." + name: 1})
	if err != nil {
		return nil, false, err
	}
	v, ok := rec.Properties[name]
	return v, ok, nil
}

// SetProperty implements [doc.Source].
func (s *Store) SetProperty(ctx context.Context, id doc.ID, name string, value any) error {
	if err := validateField(name); err != nil {
		return err
	}
	return s.set(ctx, id, "properties."+name, value)
}

// Attribute implements [doc.Source].
func (s *Store) Attribute(ctx context.Context, id doc.ID, set, name string) (any, bool, error) {
	if err := validateField(set); err != nil {
		return nil, false, err
	}
	if err := validateField(name); err != nil {
		return nil, false, err
	}
	rec, err := s.open(ctx, id, bson.M{"attributes." + set + "." + name: 1})
	if err != nil {
		return nil, false, err
	}
	v, ok := rec.Attributes[set][name]
	return v, ok, nil
}

// SetAttribute implements [doc.Source].
func (s *Store) SetAttribute(ctx context.Context, id doc.ID, set, name string, value any) error {
	if err := validateField(set); err != nil {
		return err
	}
	if err := validateField(name); err != nil {
		return err
	}
	return s.set(ctx, id, "attributes."+set+"."+name, value)
}

func (s *Store) set(ctx context.Context, id doc.ID, path string, value any) error {
	if _, err := s.open(ctx, id, bson.M{}); err != nil {
		return err
	}
	res, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": string(id), "closed": false},
		bson.M{"$set": bson.M{path: value}})
	if err != nil {
		return errs.Unavailable(err, "write %s of %q", path, id)
	}
	if res.MatchedCount == 0 {
		return errs.Unavailable(nil, "document %q closed during write", id)
	}
	return nil
}

// Lookup implements [doc.Catalog].
func (s *Store) Lookup(ctx context.Context, id doc.ID) (doc.Ref, error) {
	rec, found, err := s.find(ctx, id, bson.M{"kind": 1})
	if err != nil {
		return doc.Ref{}, err
	}
	if !found {
		return doc.Ref{}, errs.New(errs.ErrCodeNotFound, "document %q not found", id)
	}
	return rec.Ref()
}

// Documents implements [doc.Catalog], yielding documents in ID order.
func (s *Store) Documents(ctx context.Context) iter.Seq2[doc.Ref, error] {
	return func(yield func(doc.Ref, error) bool) {
		opts := options.Find().
			SetSort(bson.D{{Key: "_id", Value: 1}}).
			SetProjection(bson.M{"kind": 1}).
			SetBatchSize(int32(s.pageSize))
		cur, err := s.coll.Find(ctx, bson.M{}, opts)
		if err != nil {
			yield(doc.Ref{}, errs.Unavailable(err, "list documents"))
			return
		}
		defer cur.Close(ctx)

		for cur.Next(ctx) {
			var rec Record
			if err := cur.Decode(&rec); err != nil {
				yield(doc.Ref{}, errs.Unavailable(err, "decode document"))
				return
			}
			ref, err := rec.Ref()
			if err != nil {
				yield(doc.Ref{}, err)
				return
			}
			if !yield(ref, nil) {
				return
			}
		}
		if err := cur.Err(); err != nil {
			yield(doc.Ref{}, errs.Unavailable(err, "list documents"))
		}
	}
}

// Resolve maps a selection entry to its document, matching occurrence names
// first and document IDs second. Read failures are logged and the entry is
// reported as unmapped.
func (s *Store) Resolve(ctx context.Context, entry string) (doc.Ref, bool) {
	var rec Record
	opts := options.FindOne().SetProjection(bson.M{"kind": 1})
	err := s.coll.FindOne(ctx, bson.M{"occurrences": entry}, opts).Decode(&rec)
	switch {
	case err == nil:
		ref, err := rec.Ref()
		if err != nil {
			s.warnResolve(entry, err)
			return doc.Ref{}, false
		}
		return ref, true
	case !errors.Is(err, mongo.ErrNoDocuments):
		s.warnResolve(entry, errs.Unavailable(err, "find occurrence %q", entry))
	}
	ref, err := s.Lookup(ctx, doc.ID(entry))
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

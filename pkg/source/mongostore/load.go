package mongostore

import (
	"context"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	errs "github.com/matzehuels/docwalk/pkg/errors"
	"github.com/matzehuels/docwalk/pkg/source/memory"
)

// Load replaces the collection contents with g and returns the number of
// documents written.
func (s *Store) Load(ctx context.Context, g *memory.Graph) (int, error) {
	entries := g.Entries()
	models := make([]mongo.WriteModel, 0, len(entries))
	ids := make(bson.A, 0, len(entries))
	for _, e := range entries {
		rec, err := NewRecord(e)
		if err != nil {
			return 0, err
		}
		ids = append(ids, rec.ID)
		models = append(models, mongo.NewReplaceOneModel().
			SetFilter(bson.M{"_id": rec.ID}).
			SetReplacement(rec).
			SetUpsert(true))
	}

	if _, err := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$nin": ids}}); err != nil {
		return 0, errs.Unavailable(err, "clear stale documents")
	}
	if len(models) == 0 {
		return 0, nil
	}
	if _, err := s.coll.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false)); err != nil {
		return 0, errs.Unavailable(err, "write documents")
	}
	return len(models), nil
}

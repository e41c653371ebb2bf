package redisstore

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/matzehuels/docwalk/pkg/doc"
	errs "github.com/matzehuels/docwalk/pkg/errors"
	"github.com/matzehuels/docwalk/pkg/source/memory"
)

// Load replaces everything under the store prefix with the contents of g.
// It returns the number of documents written.
func (s *Store) Load(ctx context.Context, g *memory.Graph) (int, error) {
	if err := s.Clear(ctx); err != nil {
		return 0, err
	}
	entries := g.Entries()
	for _, e := range entries {
		_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			return s.writeEntry(ctx, pipe, e)
		})
		if err != nil {
			return 0, errs.Unavailable(err, "load document %q", e.Document.ID)
		}
	}
	return len(entries), nil
}

// Clear deletes every key under the store prefix.
func (s *Store) Clear(ctx context.Context) error {
	it := s.rdb.Scan(ctx, 0, s.keys.Pattern(), 500).Iterator()
	var batch []string
	for it.Next(ctx) {
		batch = append(batch, it.Val())
		if len(batch) == 500 {
			if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
				return errs.Unavailable(err, "clear %s", s.keys.Pattern())
			}
			batch = batch[:0]
		}
	}
	if err := it.Err(); err != nil {
		return errs.Unavailable(err, "scan %s", s.keys.Pattern())
	}
	if len(batch) > 0 {
		if err := s.rdb.Del(ctx, batch...).Err(); err != nil {
			return errs.Unavailable(err, "clear %s", s.keys.Pattern())
		}
	}
	return nil
}

// EntryCommands lists the writes that store one entry, as key and values.
// It exists so the layout can be checked without a server.
type EntryCommands struct {
	Hashes map[string]map[string]string
	Lists  map[string][]string
}

// Commands computes the writes for one entry.
func (k Keys) Commands(e memory.Entry) (EntryCommands, error) {
	d := e.Document
	out := EntryCommands{
		Hashes: map[string]map[string]string{
			k.Doc(d.ID): {
				fieldKind:       d.Kind.String(),
				fieldPath:       d.Path,
				fieldModifiable: formatBool(d.Flags.Modifiable),
				fieldReserved:   formatBool(d.Flags.ReservedForWrite),
				fieldClosed:     formatBool(e.Closed),
			},
		},
		Lists: map[string][]string{},
	}

	props := make(map[string]string, len(d.Properties))
	for name, v := range d.Properties {
		raw, err := EncodeValue(v)
		if err != nil {
			return EntryCommands{}, err
		}
		props[name] = raw
	}
	if len(props) > 0 {
		out.Hashes[k.Props(d.ID)] = props
	}
	for set, attrs := range d.Attributes {
		h := make(map[string]string, len(attrs))
		for name, v := range attrs {
			raw, err := EncodeValue(v)
			if err != nil {
				return EntryCommands{}, err
			}
			h[name] = raw
		}
		if len(h) > 0 {
			out.Hashes[k.Attrs(d.ID, set)] = h
		}
	}

	views := map[doc.Relation][]doc.Ref{
		doc.RelReferenced:    e.Referenced,
		doc.RelReferencing:   e.Referencing,
		doc.RelAllReferenced: e.Closure,
	}
	for rel, refs := range views {
		if len(refs) == 0 {
			continue
		}
		list := make([]string, len(refs))
		for i, r := range refs {
			list[i] = EncodeRef(r)
		}
		out.Lists[k.Adjacent(d.ID, rel)] = list
	}

	if len(e.Descriptors) > 0 {
		list := make([]string, len(e.Descriptors))
		for i, rec := range e.Descriptors {
			raw, err := EncodeDescriptor(rec)
			if err != nil {
				return EntryCommands{}, err
			}
			list[i] = raw
		}
		out.Lists[k.Descriptors(d.ID)] = list
	}
	return out, nil
}

func (s *Store) writeEntry(ctx context.Context, pipe redis.Pipeliner, e memory.Entry) error {
	cmds, err := s.keys.Commands(e)
	if err != nil {
		return err
	}
	for key, h := range cmds.Hashes {
		pipe.HSet(ctx, key, h)
	}
	for key, list := range cmds.Lists {
		values := make([]any, len(list))
		for i, v := range list {
			values[i] = v
		}
		pipe.RPush(ctx, key, values...)
	}
	pipe.ZAdd(ctx, s.keys.Docs(), redis.Z{Score: 0, Member: string(e.Document.ID)})
	for _, name := range e.Occurrences {
		pipe.HSet(ctx, s.keys.Occurrences(), name, string(e.Document.ID))
	}
	return nil
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

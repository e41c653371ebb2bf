package server

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/docwalk/pkg/doc"
	errs "github.com/matzehuels/docwalk/pkg/errors"
	"github.com/matzehuels/docwalk/pkg/query"
	"github.com/matzehuels/docwalk/pkg/render"
	"github.com/matzehuels/docwalk/pkg/render/nodelink"
	"github.com/matzehuels/docwalk/pkg/seq"
)

const maxBodyBytes = 1 << 20

type documentResponse struct {
	ID               doc.ID `json:"id"`
	Kind             string `json:"kind"`
	Available        bool   `json:"available"`
	Modifiable       bool   `json:"modifiable"`
	ReservedForWrite bool   `json:"reserved_for_write"`
}

type listResponse struct {
	Documents []query.Item `json:"documents"`
	Count     int          `json:"count"`
}

type queryResponse struct {
	Start      string       `json:"start"`
	Relation   string       `json:"relation"`
	Items      []query.Item `json:"items"`
	Count      int          `json:"count"`
	DurationMS float64      `json:"duration_ms"`
}

type selectionRequest struct {
	Entries []string `json:"entries"`
	query.Options
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	p := newParams(r)
	kinds, err := doc.ParseKindSet(p.list("kind"))
	if err != nil {
		p.fail(err)
	}
	limit := p.int("limit")
	if limit < 0 {
		p.fail(errs.New(errs.ErrCodeInvalidInput, "limit must not be negative"))
	}
	if p.err != nil {
		s.writeError(w, r, p.err)
		return
	}

	refs := s.backend.Documents(r.Context())
	if kinds != 0 {
		refs = seq.Filter(refs, func(ref doc.Ref) bool { return kinds.Has(ref.Kind) })
	}
	if limit > 0 {
		refs = seq.Take(refs, limit)
	}
	docs := []query.Item{}
	for ref, err := range refs {
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		docs = append(docs, query.Item{ID: ref.ID, Kind: ref.Kind.String()})
	}
	writeJSON(w, http.StatusOK, listResponse{Documents: docs, Count: len(docs)})
}

func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	id, err := documentID(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	ref, err := s.backend.Lookup(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	resp := documentResponse{ID: ref.ID, Kind: ref.Kind.String()}
	flags, err := s.backend.Flags(r.Context(), id)
	switch {
	case errs.IsUnavailable(err):
	case err != nil:
		s.writeError(w, r, err)
		return
	default:
		resp.Available = true
		resp.Modifiable = flags.Modifiable
		resp.ReservedForWrite = flags.ReservedForWrite
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleRelation answers a query rooted at the document in the path.
func (s *Server) handleRelation(relation string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := documentID(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		p := newParams(r)
		opts := query.Options{
			Root:           string(id),
			Relation:       relation,
			Transitive:     p.bool("transitive"),
			Only:           p.string("only"),
			Exclude:        p.list("exclude"),
			NativeOnly:     p.bool("native"),
			Modifiable:     p.bool("modifiable"),
			Reserved:       p.bool("reserved"),
			SkipMissing:    p.bool("skip_missing"),
			SkipSuppressed: p.bool("skip_suppressed"),
			MissingOnly:    p.bool("missing_only"),
			Distinct:       p.bool("distinct"),
			Limit:          p.int("limit"),
			Preset:         p.string("preset"),
		}
		if p.err != nil {
			s.writeError(w, r, p.err)
			return
		}
		if err := s.prepare(&opts); err != nil {
			s.writeError(w, r, err)
			return
		}
		s.runQuery(w, r, opts)
	}
}

func (s *Server) handleSelection(w http.ResponseWriter, r *http.Request) {
	var req selectionRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		s.writeError(w, r, errs.Wrap(errs.ErrCodeInvalidInput, err, "invalid selection request"))
		return
	}
	if req.Root != "" {
		s.writeError(w, r, errs.New(errs.ErrCodeInvalidInput, "root is not allowed in a selection request"))
		return
	}

	opts := req.Options
	opts.Selection = req.Entries
	if opts.Selection == nil {
		opts.Selection = []string{}
	}
	if err := s.prepare(&opts); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.runQuery(w, r, opts)
}

// prepare applies the server defaults and validates opts.
func (s *Server) prepare(opts *query.Options) error {
	opts.Logger = s.logger
	if len(opts.NonNative) == 0 {
		opts.NonNative = s.nonNative
	}
	return opts.ValidateAndSetDefaults()
}

func (s *Server) runQuery(w http.ResponseWriter, r *http.Request, opts query.Options) {
	res, err := s.runner.Run(r.Context(), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	items := res.Items
	if items == nil {
		items = []query.Item{}
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Start:      opts.Start(),
		Relation:   opts.Relation,
		Items:      items,
		Count:      res.Stats.Count,
		DurationMS: float64(res.Stats.Duration.Microseconds()) / 1000,
	})
}

const (
	formatDOT = "dot"
	formatSVG = "svg"
)

func (s *Server) handleGraph(format string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := documentID(r)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		p := newParams(r)
		exclude, err := doc.ParseKindSet(p.list("exclude"))
		if err != nil {
			p.fail(err)
		}
		opts := render.Options{
			MaxDepth:       p.int("depth"),
			Exclude:        exclude,
			ShowMissing:    p.bool("missing"),
			ShowSuppressed: p.bool("suppressed"),
		}
		detailed := p.bool("detailed")
		if p.err != nil {
			s.writeError(w, r, p.err)
			return
		}

		ref, err := s.backend.Lookup(r.Context(), id)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		g, err := render.Build(r.Context(), doc.NewDocument(s.backend, ref), opts)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		dot := nodelink.ToDOT(g, nodelink.Options{Detailed: detailed})

		if format == formatDOT {
			w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
			_, _ = w.Write([]byte(dot))
			return
		}
		svg, err := nodelink.RenderSVGCached(r.Context(), s.svgCache, dot)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		w.Header().Set("Content-Type", "image/svg+xml")
		_, _ = w.Write(svg)
	}
}

func documentID(r *http.Request) (doc.ID, error) {
	raw := chi.URLParam(r, "id")
	id, err := url.PathUnescape(raw)
	if err != nil {
		return "", errs.Wrap(errs.ErrCodeInvalidID, err, "invalid document id %q", raw)
	}
	if err := errs.ValidateDocumentID(id); err != nil {
		return "", err
	}
	return doc.ID(id), nil
}

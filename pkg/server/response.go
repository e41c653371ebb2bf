package server

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	errs "github.com/matzehuels/docwalk/pkg/errors"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// StatusFor maps an error to the HTTP status the API answers with.
func StatusFor(err error) int {
	switch errs.GetCode(err) {
	case errs.ErrCodeInvalidInput, errs.ErrCodeInvalidKind, errs.ErrCodeInvalidID,
		errs.ErrCodeInvalidPath, errs.ErrCodeInvalidManifest, errs.ErrCodeEmptyInput:
		return http.StatusBadRequest
	case errs.ErrCodeNotFound, errs.ErrCodeFileNotFound:
		return http.StatusNotFound
	case errs.ErrCodeUnavailableSource:
		return http.StatusServiceUnavailable
	case errs.ErrCodeUnsupported:
		return http.StatusNotImplemented
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	code := string(errs.GetCode(err))
	msg := errs.UserMessage(err)
	if code == "" {
		code = string(errs.ErrCodeInternal)
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "err", err)
		msg = "internal server error"
	}
	writeJSON(w, status, errorResponse{Error: msg, Code: code})
}

// params reads query parameters, keeping the first parse error.
type params struct {
	q   url.Values
	err error
}

func newParams(r *http.Request) *params {
	return &params{q: r.URL.Query()}
}

func (p *params) string(name string) string {
	return strings.TrimSpace(p.q.Get(name))
}

func (p *params) bool(name string) bool {
	v := p.string(name)
	if v == "" {
		return false
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		p.fail(errs.New(errs.ErrCodeInvalidInput, "%s: want a boolean, got %q", name, v))
	}
	return b
}

func (p *params) int(name string) int {
	v := p.string(name)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		p.fail(errs.New(errs.ErrCodeInvalidInput, "%s: want an integer, got %q", name, v))
	}
	return n
}

// list accepts repeated parameters and comma-separated values.
func (p *params) list(name string) []string {
	var out []string
	for _, v := range p.q[name] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func (p *params) fail(err error) {
	if p.err == nil {
		p.err = err
	}
}

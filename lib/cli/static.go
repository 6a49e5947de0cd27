package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/pthm/hxpage"
	"github.com/pthm/hxpage/lib/artifact"
	"github.com/pthm/hxpage/lib/encoding"
)

// staticSite serves the artifacts listed by a prerender index.
type staticSite struct {
	store  artifact.Store
	idx    *encoding.Index
	logger *slog.Logger
}

func loadStaticSite(ctx context.Context, store artifact.Store, enc *encoding.Encoder, logger *slog.Logger) (*staticSite, error) {
	rc, err := store.Get(ctx, hxpage.PrerenderIndexFile)
	if err != nil {
		return nil, fmt.Errorf("read prerender index: %w", err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read prerender index: %w", err)
	}
	idx, err := enc.DecodeIndex(data)
	if err != nil {
		return nil, fmt.Errorf("decode prerender index: %w", err)
	}
	logger.Info("serving prerendered pages", "pages", len(idx.Pages), "generated_at", idx.GeneratedAt)
	return &staticSite{store: store, idx: idx, logger: logger}, nil
}

func (s *staticSite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	pathname, ok := s.stripBase(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	if trimmed, found := strings.CutSuffix(pathname, hxpage.PageContextRequestSuffix); found {
		if trimmed == "" {
			trimmed = "/"
		}
		entry, ok := s.idx.Lookup(trimmed)
		if !ok || entry.PageContextPath == "" {
			w.Header().Set("Content-Type", hxpage.ContentTypeJSON)
			_, _ = w.Write([]byte(encoding.NotFoundEnvelope))
			return
		}
		s.serve(w, r, entry.PageContextPath, hxpage.ContentTypeJSON, http.StatusOK)
		return
	}

	if entry, ok := s.idx.Lookup(pathname); ok {
		s.serve(w, r, entry.HTMLPath, hxpage.ContentTypeHTML, http.StatusOK)
		return
	}
	if s.idx.NotFoundPath != "" {
		s.serve(w, r, s.idx.NotFoundPath, hxpage.ContentTypeHTML, http.StatusNotFound)
		return
	}
	http.NotFound(w, r)
}

// stripBase removes the base URL the pages were prerendered for.
func (s *staticSite) stripBase(pathname string) (string, bool) {
	base := strings.TrimSuffix(s.idx.BaseURL, "/")
	if base == "" {
		return pathname, true
	}
	if pathname == base {
		return "/", true
	}
	rest, ok := strings.CutPrefix(pathname, base+"/")
	if !ok {
		return "", false
	}
	return "/" + rest, true
}

func (s *staticSite) serve(w http.ResponseWriter, r *http.Request, name, contentType string, status int) {
	rc, err := s.store.Get(r.Context(), name)
	if errors.Is(err, artifact.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		s.logger.ErrorContext(r.Context(), "read artifact failed", "artifact", name, "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	defer rc.Close()
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(status)
	if r.Method == http.MethodHead {
		return
	}
	if _, err := io.Copy(w, rc); err != nil {
		s.logger.DebugContext(r.Context(), "write artifact failed", "artifact", name, "error", err)
	}
}

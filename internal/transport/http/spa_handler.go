package http

import (
	"errors"
	"io/fs"
	"net/http"
	"strings"
)

// SPAHandler serves the built front end from a static filesystem. Existing
// files are served as they are. Any other path is a client-side route and
// gets index.html, passed through Protect when set.
type SPAHandler struct {
	StaticFS fs.FS
	Protect  func(http.Handler) http.Handler
}

func (h SPAHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/")
	if path == "" {
		h.index().ServeHTTP(w, r)
		return
	}

	f, err := h.StaticFS.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrInvalid) {
			h.index().ServeHTTP(w, r)
			return
		}
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	// Directories are routes too.
	stat, err := f.Stat()
	if err == nil && stat.IsDir() {
		h.index().ServeHTTP(w, r)
		return
	}

	http.FileServer(http.FS(h.StaticFS)).ServeHTTP(w, r)
}

func (h SPAHandler) index() http.Handler {
	serve := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		content, err := fs.ReadFile(h.StaticFS, "index.html")
		if err != nil {
			http.Error(w, "index.html not found", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		_, _ = w.Write(content)
	})
	if h.Protect == nil {
		return serve
	}
	return h.Protect(serve)
}

package api

import (
	"errors"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// spaHandler serves the built client from dir and falls back to index.html
// for any path that is not a file, so client-side routes load the app.
type spaHandler struct {
	dir   string
	index string
}

func newSPAHandler(dir string) spaHandler {
	return spaHandler{dir: dir, index: "index.html"}
}

func (h spaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p := filepath.Join(h.dir, filepath.FromSlash(filepathClean(r.URL.Path)))

	fi, err := os.Stat(p)
	if err == nil && !fi.IsDir() {
		http.ServeFile(w, r, p)
		return
	}
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	index := filepath.Join(h.dir, h.index)
	if _, err := os.Stat(index); err != nil {
		http.NotFound(w, r)
		return
	}
	http.ServeFile(w, r, index)
}

// filepathClean resolves the URL path against root so it cannot climb out of the served directory.
func filepathClean(p string) string {
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return filepath.ToSlash(filepath.Clean(p))
}

// noListing serves files from dir but answers 404 for directories.
func noListing(dir string) http.Handler {
	fsrv := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "" || strings.HasSuffix(r.URL.Path, "/") {
			http.NotFound(w, r)
			return
		}
		fsrv.ServeHTTP(w, r)
	})
}

package web

import (
	"net/http"
	"path"
	"strings"
)

// fileHandler serves regular files under root with http.ServeContent and
// hands everything else (directories, missing paths) to http.FileServer.
// http.FileServer alone would redirect /index.html to ./ instead of
// serving it.
type fileHandler struct {
	root http.FileSystem
	dirs http.Handler
}

func newFileHandler(root string) http.Handler {
	fs := http.Dir(root)
	return &fileHandler{root: fs, dirs: http.FileServer(fs)}
}

func (h *fileHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	upath := r.URL.Path
	if !strings.HasPrefix(upath, "/") {
		upath = "/" + upath
	}
	if strings.HasSuffix(upath, "/") {
		h.dirs.ServeHTTP(w, r)
		return
	}

	f, err := h.root.Open(path.Clean(upath))
	if err != nil {
		h.dirs.ServeHTTP(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		h.dirs.ServeHTTP(w, r)
		return
	}

	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

package server

import (
	_ "embed"
	"net/http"
)

//go:embed static/index.html
var indexPage []byte

// IndexHandler serves the landing page the callback redirects to.
type IndexHandler struct{}

// Routes matches "/" exactly; other unknown paths fall through to the mux's 404.
func (IndexHandler) Routes() []string {
	return []string{"/{$}"}
}

func (IndexHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexPage)
}

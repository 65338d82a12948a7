package http

import (
	"fmt"
	"net/http"
)

// NotFoundHandler is the router's catch-all. It answers in the same JSON
// envelope as every other error and names the unmatched route.
func NotFoundHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, codeNotFound, fmt.Sprintf("no route for %s %s", r.Method, r.URL.Path))
	})
}

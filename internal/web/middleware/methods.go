package middleware

import (
	"net/http"
	"strings"
)

// AllowMethods rejects requests whose method is not listed with
// 501 Not Implemented.
func AllowMethods(methods ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		allowed[m] = struct{}{}
	}
	allow := strings.Join(methods, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := allowed[r.Method]; !ok {
				w.Header().Set("Allow", allow)
				http.Error(w, "Unsupported method ("+r.Method+")", http.StatusNotImplemented)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

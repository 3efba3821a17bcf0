package middleware

import (
	"net/http"
	"strings"
)

// Preflight answers every OPTIONS request with 204 and permissive CORS
// headers. Real preflights are handled earlier by cors.Handler; this covers
// bare OPTIONS probes that would otherwise reach the router and get a 405.
func Preflight(methods, headers []string) func(http.Handler) http.Handler {
	allowMethods := strings.Join(methods, ", ")
	allowHeaders := strings.Join(headers, ", ")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", "*")
			h.Set("Access-Control-Allow-Methods", allowMethods)
			h.Set("Access-Control-Allow-Headers", allowHeaders)
			w.WriteHeader(http.StatusNoContent)
		})
	}
}

package middleware

import (
	"net/http"
	"strings"
)

// Normalize standardizes request fields coming through proxies.
// Whitespace and a trailing slash are trimmed from the path, and scheme and
// host are restored from forwarding headers.
func Normalize() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := strings.TrimSpace(r.URL.Path)
			if len(p) > 1 {
				p = strings.TrimRight(p, "/")
				if p == "" {
					p = "/"
				}
			}
			r.URL.Path = p

			if xfproto := r.Header.Get("X-Forwarded-Proto"); xfproto != "" {
				r.URL.Scheme = xfproto
			}
			if xfhost := r.Header.Get("X-Forwarded-Host"); xfhost != "" {
				r.Host = xfhost
			}
			next.ServeHTTP(w, r)
		})
	}
}

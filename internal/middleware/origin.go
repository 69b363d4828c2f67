package middleware

import (
	"net/http"
	"net/url"
)

// safeMethod reports whether a method only reads.
func safeMethod(m string) bool {
	return m == http.MethodGet || m == http.MethodHead || m == http.MethodOptions
}

// SameOriginMiddleware rejects state-changing requests a browser sent from
// another site. The Origin header is checked, or the Referer when Origin is
// absent. Requests carrying neither come from non-browser clients and pass.
func SameOriginMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if safeMethod(r.Method) || sameOrigin(r) {
				next.ServeHTTP(w, r)
				return
			}
			http.Error(w, "Cross-origin request rejected", http.StatusForbidden)
		})
	}
}

func sameOrigin(r *http.Request) bool {
	source := r.Header.Get("Origin")
	if source == "" {
		source = r.Header.Get("Referer")
		if source == "" {
			return true
		}
	}
	// Opaque origins such as "null" never match.
	u, err := url.Parse(source)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Host == r.Host
}

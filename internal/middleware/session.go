package middleware

import (
	"net/http"
	"strings"

	"camdash/internal/session"
)

// needsSession reports whether the path is served from a dashboard session.
// Assets, images, the progress socket and the JSON endpoints are shared.
func needsSession(path string) bool {
	return path == "/" ||
		strings.HasPrefix(path, "/actions/") ||
		strings.HasPrefix(path, "/export/")
}

// createsSession reports whether the request may start a new session. Only
// loading the page does.
func createsSession(r *http.Request) bool {
	return r.URL.Path == "/" && (r.Method == http.MethodGet || r.Method == http.MethodHead)
}

// SessionMiddleware attaches the browser's dashboard state to the request.
// A session is created on the first page load; actions and exports without
// one are sent to the page.
func SessionMiddleware(store *session.Store) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !needsSession(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			if createsSession(r) {
				st := store.Get(w, r)
				next.ServeHTTP(w, r.WithContext(session.WithState(r.Context(), st)))
				return
			}

			st, ok := store.Current(r)
			if !ok {
				if r.Method == http.MethodPost || strings.HasPrefix(r.URL.Path, "/export/") {
					http.Redirect(w, r, "/", http.StatusSeeOther)
					return
				}
				// Let the mux answer methods it does not route.
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(session.WithState(r.Context(), st)))
		})
	}
}

// Package handler holds the HTTP handlers of the dashboard. Page actions are
// plain form posts answered with a redirect back to the page.
package handler

import (
	"net/http"

	"camdash/internal/dashboard"
	"camdash/internal/session"
)

// stateFrom returns the session state attached by the session middleware.
func stateFrom(w http.ResponseWriter, r *http.Request) (*dashboard.State, bool) {
	st, ok := session.FromContext(r.Context())
	if !ok {
		http.Error(w, "Session not available", http.StatusInternalServerError)
	}
	return st, ok
}

// redirectHome sends the browser back to the dashboard, keeping the active
// filters in the query string.
func redirectHome(w http.ResponseWriter, r *http.Request, st *dashboard.State) {
	target := "/"
	if q := st.Selection().Values().Encode(); q != "" {
		target += "?" + q
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// action loads the session, applies fn and redirects.
func action(fn func(r *http.Request, st *dashboard.State)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok := stateFrom(w, r)
		if !ok {
			return
		}
		st.EnsureLoaded(r.Context())
		fn(r, st)
		redirectHome(w, r, st)
	}
}

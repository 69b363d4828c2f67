package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"time"
)

// ExportHandler serves the CSV of marked cameras as a download. On failure
// the browser goes back to the dashboard, where the error is shown.
func ExportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, ok := stateFrom(w, r)
		if !ok {
			return
		}
		data, name, err := st.Export(r.Context(), time.Now())
		if err != nil {
			redirectHome(w, r, st)
			return
		}

		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		w.Header().Set("Cache-Control", "no-store")
		w.Write(data)
	}
}

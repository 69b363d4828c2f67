package handler

import (
	"net/http"
	"strings"

	"camdash/internal/dashboard"
	"camdash/internal/modal"
	"camdash/internal/model"
	"camdash/internal/service/vision"
)

func confirmed(r *http.Request) bool {
	return r.FormValue("confirmed") == "yes"
}

// RefreshHandler reloads cameras and stats.
func RefreshHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.Refresh(r.Context())
	})
}

// ClearFiltersHandler resets the filter bar.
func ClearFiltersHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.ClearFilters()
	})
}

// MarkHandler opens the note dialog for the camera in the path.
func MarkHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.BeginMark(r.PathValue("id"))
	})
}

// SaveNoteHandler marks the camera of the open note dialog.
func SaveNoteHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.SaveNote(r.Context(), r.FormValue("note"))
	})
}

// UnmarkHandler removes the mark of the camera in the path.
func UnmarkHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.Unmark(r.Context(), r.PathValue("id"))
	})
}

// PreviewHandler opens the preview of the camera in the path.
func PreviewHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.Preview(r.PathValue("id"))
	})
}

// ZoomHandler opens the full-size image viewer.
func ZoomHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.Zoom(r.FormValue("url"))
	})
}

// CloseModalHandler closes the modal named in the form.
func CloseModalHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		kind, ok := modal.Parse(r.FormValue("modal"))
		if !ok {
			st.CloseAll()
			return
		}
		st.CloseModal(kind)
	})
}

// CloseAllModalsHandler closes every open modal.
func CloseAllModalsHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.CloseAll()
	})
}

// StartDownloadHandler starts a snapshot download and opens its progress.
func StartDownloadHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.StartDownload(r.Context())
	})
}

// AutoLearnHandler uses the latest image of every camera as its reference.
func AutoLearnHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.AutoLearn(r.Context(), confirmed(r))
	})
}

// AnalyzeHandler runs the batch analysis in the requested mode.
func AnalyzeHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.Analyze(r.Context(), model.ParseAnalysisMode(r.FormValue("mode")))
	})
}

// CompareHandler compares the camera in the path with its reference.
func CompareHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.Compare(r.Context(), r.PathValue("id"))
	})
}

// PromoteHandler saves the compared image as the new reference.
func PromoteHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.PromoteComparison(r.Context())
	})
}

// CloseReportHandler dismisses the analysis report.
func CloseReportHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.CloseReport()
	})
}

// ReportProblemsHandler filters the grid down to problem cameras.
func ReportProblemsHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.ReportProblems()
	})
}

// OpenCurationHandler opens the manual reference picker.
func OpenCurationHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.OpenCuration()
	})
}

// ToggleCurationHandler flips the selection of one picker image.
func ToggleCurationHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.ToggleCuration(r.PathValue("baseID"))
	})
}

// CurationGroupHandler selects or clears every image of a store.
func CurationGroupHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.CurationGroup(r.FormValue("store"), r.FormValue("select") == "all")
	})
}

// FilterCurationHandler narrows the picker by store and position.
func FilterCurationHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.FilterCuration(r.FormValue("store"), r.FormValue("position"))
	})
}

// CurationModeHandler switches the picker between grid and by-store layouts.
func CurationModeHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.SetCurationMode(vision.ParseViewMode(r.FormValue("mode")))
	})
}

// SaveCurationHandler saves every selected image as a reference.
func SaveCurationHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.SaveCuration(r.Context())
	})
}

// OpenViewerHandler lists the saved references.
func OpenViewerHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.OpenViewer(r.Context())
	})
}

// FilterViewerHandler narrows the reference list.
func FilterViewerHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.FilterViewer(r.FormValue("store"), r.FormValue("position"))
	})
}

// DeleteReferenceHandler removes one saved reference.
func DeleteReferenceHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		store := strings.TrimSpace(r.FormValue("store"))
		position, err := model.ParsePosition(r.FormValue("position"))
		if store == "" || err != nil {
			st.Notify(dashboard.LevelError, "Invalid reference")
			return
		}
		st.DeleteReference(r.Context(), store, position)
	})
}

// ClearReferencesHandler removes every saved reference.
func ClearReferencesHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		st.ClearReferences(r.Context(), confirmed(r))
	})
}

// OpenReviewHandler opens the review queue, from the toolbar or the report.
func OpenReviewHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		if r.FormValue("from") == "report" {
			st.OpenReviewFromReport(r.Context())
			return
		}
		st.OpenReview(r.Context())
	})
}

// ResolveReviewHandler applies the decision taken on one queued camera.
func ResolveReviewHandler() http.HandlerFunc {
	return action(func(r *http.Request, st *dashboard.State) {
		resolution, ok := vision.ParseResolution(r.FormValue("resolution"))
		if !ok {
			st.Notify(dashboard.LevelError, "Unknown review decision")
			return
		}
		st.Resolve(r.Context(), r.FormValue("base_id"), resolution)
	})
}

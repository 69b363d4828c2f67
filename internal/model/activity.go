package model

import "time"

// ActivityKind classifies entries of the activity journal.
type ActivityKind string

const (
	ActivityMark            ActivityKind = "mark"
	ActivityUnmark          ActivityKind = "unmark"
	ActivityDownload        ActivityKind = "download"
	ActivityAutoLearn       ActivityKind = "auto_learn"
	ActivityAnalyze         ActivityKind = "analyze"
	ActivityReferenceSet    ActivityKind = "reference_set"
	ActivityReferenceDelete ActivityKind = "reference_delete"
	ActivityReferenceClear  ActivityKind = "reference_clear"
	ActivityReviewKeep      ActivityKind = "review_keep"
	ActivityExport          ActivityKind = "export"
)

// Activity is a journal entry for a user action that reached the backend.
type Activity struct {
	ID        int64        `json:"id"`
	Kind      ActivityKind `json:"kind"`
	Subject   string       `json:"subject"`
	Detail    string       `json:"detail"`
	CreatedAt time.Time    `json:"created_at"`
}

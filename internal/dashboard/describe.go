package dashboard

import (
	"errors"

	"camdash/internal/apiclient"
	"camdash/internal/export"
	"camdash/internal/service/progress"
	"camdash/internal/service/vision"
)

// Level of a notification.
type Level string

const (
	LevelSuccess Level = "success"
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Notification is a transient message shown on the next render.
type Notification struct {
	Level Level
	Text  string
}

const connectivityText = "Could not reach the camera server. Check the connection and try again."

var sentinels = []struct {
	err  error
	note Notification
}{
	{vision.ErrNotConfirmed, Notification{LevelWarning, "Action cancelled: confirmation is required"}},
	{vision.ErrVisionUnavailable, Notification{LevelError, "Image comparison is not available on the server"}},
	{vision.ErrNoReferences, Notification{LevelWarning, "No references saved yet. Learn or pick references first"}},
	{vision.ErrNoReference, Notification{LevelWarning, "This camera has no reference image yet"}},
	{vision.ErrNothingSelected, Notification{LevelWarning, "Select at least one image"}},
	{vision.ErrUnknownCamera, Notification{LevelError, "Camera not found"}},
	{export.ErrNothingMarked, Notification{LevelWarning, "No marked cameras to export"}},
	{progress.ErrAlreadyRunning, Notification{LevelInfo, "A download is already in progress"}},
}

// Describe maps an error to the notification the user sees. Transport
// failures get a generic connectivity text; backend rejections show the
// backend's message when it sent one, otherwise fallback.
func Describe(err error, fallback string) Notification {
	if err == nil {
		return Notification{}
	}
	for _, s := range sentinels {
		if errors.Is(err, s.err) {
			return s.note
		}
	}
	if errors.Is(err, apiclient.ErrUnavailable) {
		return Notification{LevelError, connectivityText}
	}
	if msg := apiclient.Message(err); msg != "" {
		return Notification{LevelError, msg}
	}
	return Notification{LevelError, fallback}
}

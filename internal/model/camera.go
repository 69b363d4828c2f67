package model

import (
	"fmt"
	"time"
)

// Position identifies one of the three camera slots of a store.
type Position string

const (
	P1 Position = "P1"
	P2 Position = "P2"
	P3 Position = "P3"
)

// Positions lists the slots in display order.
var Positions = []Position{P1, P2, P3}

// ParsePosition validates a position string.
func ParsePosition(s string) (Position, error) {
	for _, p := range Positions {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid position %q", s)
}

// MarkInfo holds the manual "bad image" flag details.
type MarkInfo struct {
	MarkedAt string `json:"marked_at"`
	Note     string `json:"note"`
}

// Metadata is optional device information reported for a camera.
type Metadata struct {
	Lugar          string `json:"lugar,omitempty"`
	Area           string `json:"area,omitempty"`
	IPLocal        string `json:"ip_local,omitempty"`
	IPInternet     string `json:"ip_internet,omitempty"`
	VersaoSistema  string `json:"versao_sistema,omitempty"`
	TemperaturaCPU string `json:"temperatura_cpu,omitempty"`
	UUID           string `json:"uuid,omitempty"`
	LastSeen       string `json:"last_seen,omitempty"`
}

// Camera is one snapshot version of a physical camera slot.
type Camera struct {
	ID               string    `json:"id"`
	BaseID           string    `json:"base_id"`
	Loja             string    `json:"loja"`
	Position         Position  `json:"position"`
	Filename         string    `json:"filename"`
	Path             string    `json:"path"`
	Size             int64     `json:"size"`
	Modified         string    `json:"modified"`
	ModifiedReadable string    `json:"modified_readable"`
	Timestamp        float64   `json:"timestamp"`
	IsLatest         bool      `json:"is_latest"`
	Marked           bool      `json:"marked"`
	MarkInfo         *MarkInfo `json:"mark_info,omitempty"`
	Online           *bool     `json:"online"`
	Metadata         *Metadata `json:"metadata"`
}

// Note returns the mark note, or an empty string when the camera is not marked.
func (c Camera) Note() string {
	if !c.Marked || c.MarkInfo == nil {
		return ""
	}
	return c.MarkInfo.Note
}

// Label is the "store - position" caption used across the dashboard.
func (c Camera) Label() string {
	return c.Loja + " - " + string(c.Position)
}

// SizeKB returns the image size in kilobytes.
func (c Camera) SizeKB() float64 {
	return float64(c.Size) / 1024
}

// FindByBaseID returns the first camera with the given base id.
func FindByBaseID(cameras []Camera, baseID string) (Camera, bool) {
	for _, c := range cameras {
		if c.BaseID == baseID {
			return c, true
		}
	}
	return Camera{}, false
}

// FindLatestByBaseID prefers the latest version of a base id and falls back to any version.
func FindLatestByBaseID(cameras []Camera, baseID string) (Camera, bool) {
	var found Camera
	ok := false
	for _, c := range cameras {
		if c.BaseID != baseID {
			continue
		}
		if c.IsLatest {
			return c, true
		}
		if !ok {
			found, ok = c, true
		}
	}
	return found, ok
}

// FindByID returns the camera version with the given id.
func FindByID(cameras []Camera, id string) (Camera, bool) {
	for _, c := range cameras {
		if c.ID == id {
			return c, true
		}
	}
	return Camera{}, false
}

// Stats are the aggregate counters shown in the dashboard header.
type Stats struct {
	TotalCameras int     `json:"total_cameras"`
	TotalStores  int     `json:"total_stores"`
	MarkedBad    int     `json:"marked_bad"`
	MarkedOK     int     `json:"marked_ok"`
	LastUpdate   string  `json:"last_update"`
	TotalSizeMB  float64 `json:"total_size_mb"`
}

// LastUpdateTime parses LastUpdate; ok is false when the backend never ingested a snapshot.
func (s Stats) LastUpdateTime() (time.Time, bool) {
	return ParseTimestamp(s.LastUpdate)
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp accepts RFC 3339 as well as the naive ISO timestamps the backend emits.
// Naive timestamps are interpreted in local time.
func ParseTimestamp(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

package models

import (
	"fmt"
	"time"
)

// Track represents a single playable audio track resolved by the audio node.
// Tracks are immutable once placed in a queue.
type Track struct {
	// Encoded is the node's opaque encoded form, required to start playback
	Encoded    string
	URI        string
	Title      string
	Author     string
	Duration   time.Duration
	ArtworkURI string
}

// Label returns the human-readable "Title by Author" form used in responses
func (t Track) Label() string {
	if t.Author == "" {
		return t.Title
	}
	return fmt.Sprintf("%s by %s", t.Title, t.Author)
}

// FormatDuration formats a track duration as mm:ss or h:mm:ss
func FormatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	m := (d % time.Hour) / time.Minute
	s := (d % time.Minute) / time.Second
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}

package player

import "dusko/models"

// Queue is an ordered, insertion-order-significant track queue. It is not
// safe for concurrent use; the owning Session serializes access.
type Queue struct {
	tracks []models.Track
}

// Len returns the number of queued tracks
func (q *Queue) Len() int {
	return len(q.tracks)
}

// IsEmpty reports whether the queue holds no tracks
func (q *Queue) IsEmpty() bool {
	return len(q.tracks) == 0
}

// Append adds a track to the end of the queue
func (q *Queue) Append(track models.Track) {
	q.tracks = append(q.tracks, track)
}

// Prepend adds a track to the front of the queue
func (q *Queue) Prepend(track models.Track) {
	q.tracks = append([]models.Track{track}, q.tracks...)
}

// GetAt returns the track at the given position
func (q *Queue) GetAt(i int) (models.Track, bool) {
	if i < 0 || i >= len(q.tracks) {
		return models.Track{}, false
	}
	return q.tracks[i], true
}

// RemoveAt removes and returns the track at the given position
func (q *Queue) RemoveAt(i int) (models.Track, bool) {
	if i < 0 || i >= len(q.tracks) {
		return models.Track{}, false
	}
	track := q.tracks[i]
	q.tracks = append(q.tracks[:i], q.tracks[i+1:]...)
	return track, true
}

// Next removes and returns the track at the front of the queue. Returns false
// on an empty queue; this is never an error condition.
func (q *Queue) Next() (models.Track, bool) {
	return q.RemoveAt(0)
}

// Clear removes all tracks
func (q *Queue) Clear() {
	q.tracks = nil
}

// Tracks returns a copy of the queued tracks in order
func (q *Queue) Tracks() []models.Track {
	out := make([]models.Track, len(q.tracks))
	copy(out, q.tracks)
	return out
}

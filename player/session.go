package player

import (
	"context"
	"fmt"
	"sync"

	"dusko/models"

	log "github.com/sirupsen/logrus"
)

// State is a playback session's lifecycle state
type State int

const (
	// StateConnecting is held while the initial voice join is in flight.
	// Only one join attempt may be in flight per guild.
	StateConnecting State = iota
	// StateConnectedEmpty is a live session with no current track
	StateConnectedEmpty
	// StateConnectedPlaying is a live session actively sounding a track
	StateConnectedPlaying
	// StateConnectedPaused is a playing session with playback suspended
	StateConnectedPaused
	// StateDisconnected is terminal; the registry removes the entry
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnectedEmpty:
		return "connected"
	case StateConnectedPlaying:
		return "playing"
	case StateConnectedPaused:
		return "paused"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Connected reports whether the state is any of the live connected states
func (s State) Connected() bool {
	return s == StateConnectedEmpty || s == StateConnectedPlaying || s == StateConnectedPaused
}

// NodePlayer is the per-guild slice of the audio node a session drives
type NodePlayer interface {
	Play(ctx context.Context, guildID int64, track models.Track) error
	Pause(ctx context.Context, guildID int64, paused bool) error
	Stop(ctx context.Context, guildID int64) error
	Destroy(ctx context.Context, guildID int64) error
}

// VoiceConnector joins and leaves voice channels on the chat platform
type VoiceConnector interface {
	JoinVoice(guildID, channelID int64) error
	LeaveVoice(guildID int64) error
}

// Snapshot is an immutable copy of a session's state, taken under the session
// lock and safe to render from without further synchronization
type Snapshot struct {
	GuildID        int64
	VoiceChannelID int64
	State          State
	Current        *models.Track
	Queue          []models.Track
}

// Playing reports whether a track is actively sounding (paused counts)
func (s Snapshot) Playing() bool {
	return s.State == StateConnectedPlaying || s.State == StateConnectedPaused
}

// Paused reports whether playback is suspended
func (s Snapshot) Paused() bool {
	return s.State == StateConnectedPaused
}

// Session is a per-guild playback state machine wrapping one connection to
// the external audio node. All transitions are serialized by the session
// mutex; no two interleave.
type Session struct {
	guildID int64
	node    NodePlayer
	voice   VoiceConnector

	mu             sync.Mutex
	voiceChannelID int64
	state          State
	current        *models.Track
	queue          Queue
}

// GuildID returns the owning guild
func (s *Session) GuildID() int64 {
	return s.guildID
}

// VoiceChannelID returns the channel the session is connected to (or joining)
func (s *Session) VoiceChannelID() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.voiceChannelID
}

// State returns the current lifecycle state
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot copies the session state for rendering
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		GuildID:        s.guildID,
		VoiceChannelID: s.voiceChannelID,
		State:          s.state,
		Queue:          s.queue.Tracks(),
	}
	if s.current != nil {
		current := *s.current
		snap.Current = &current
	}
	return snap
}

// Enqueue adds a track to the queue. Valid in any connected state; it never
// changes play state. Callers start an empty session with Play.
func (s *Session) Enqueue(track models.Track, prepend bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Connected() {
		return fmt.Errorf("session for guild %d is %s: %w", s.guildID, s.state, models.ErrConnectionFailure)
	}

	if prepend {
		s.queue.Prepend(track)
	} else {
		s.queue.Append(track)
	}
	return nil
}

// QueueTracks returns a copy of the queued tracks
func (s *Session) QueueTracks() []models.Track {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.Tracks()
}

// RemoveAt removes the queued track at the given position
func (s *Session) RemoveAt(i int) (models.Track, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.RemoveAt(i)
}

// ClearQueue drops all queued tracks, leaving the current track untouched
func (s *Session) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queue.Clear()
}

// Play starts playback of the given track, or the next queued track when nil.
// With no track given and an empty queue the session stays connected with
// nothing sounding; that is not an error.
func (s *Session) Play(ctx context.Context, track *models.Track) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Connected() {
		return fmt.Errorf("session for guild %d is %s: %w", s.guildID, s.state, models.ErrConnectionFailure)
	}

	next := track
	if next == nil {
		queued, ok := s.queue.Next()
		if !ok {
			s.current = nil
			s.state = StateConnectedEmpty
			return nil
		}
		next = &queued
	}

	if err := s.node.Play(ctx, s.guildID, *next); err != nil {
		return fmt.Errorf("failed to start playback for guild %d: %w", s.guildID, err)
	}

	s.current = next
	s.state = StateConnectedPlaying
	return nil
}

// Pause suspends or resumes playback. Requesting the state the session is
// already in reports models.ErrAlreadyInState and changes nothing.
func (s *Session) Pause(ctx context.Context, pause bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateConnectedPlaying:
		if !pause {
			return models.ErrAlreadyInState
		}
	case StateConnectedPaused:
		if pause {
			return models.ErrAlreadyInState
		}
	default:
		// Nothing is sounding, so there is nothing to pause or resume
		return models.ErrAlreadyInState
	}

	if err := s.node.Pause(ctx, s.guildID, pause); err != nil {
		return fmt.Errorf("failed to set pause=%t for guild %d: %w", pause, s.guildID, err)
	}

	if pause {
		s.state = StateConnectedPaused
	} else {
		s.state = StateConnectedPlaying
	}
	return nil
}

// Toggle flips between playing and paused
func (s *Session) Toggle(ctx context.Context) error {
	s.mu.Lock()
	paused := s.state == StateConnectedPaused
	playing := s.state == StateConnectedPlaying
	s.mu.Unlock()

	if !paused && !playing {
		return models.ErrAlreadyInState
	}
	return s.Pause(ctx, playing)
}

// Skip stops the current track and immediately starts the next queued one.
// With an empty queue the session lands in the connected-empty state.
func (s *Session) Skip(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateConnectedPlaying && s.state != StateConnectedPaused {
		return models.ErrAlreadyInState
	}

	next, ok := s.queue.Next()
	if !ok {
		if err := s.node.Stop(ctx, s.guildID); err != nil {
			return fmt.Errorf("failed to stop playback for guild %d: %w", s.guildID, err)
		}
		s.current = nil
		s.state = StateConnectedEmpty
		return nil
	}

	// Starting the next track replaces the current one on the node
	if err := s.node.Play(ctx, s.guildID, next); err != nil {
		return fmt.Errorf("failed to start next track for guild %d: %w", s.guildID, err)
	}
	s.current = &next
	s.state = StateConnectedPlaying
	return nil
}

// AdvanceQueue reacts to the node finishing a track: dequeue and play the
// next one, or fall back to connected-empty. Safe on duplicate or stale
// track-end events because it only looks at current state.
func (s *Session) AdvanceQueue(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.state.Connected() {
		return nil
	}

	next, ok := s.queue.Next()
	if !ok {
		s.current = nil
		s.state = StateConnectedEmpty
		return nil
	}

	if err := s.node.Play(ctx, s.guildID, next); err != nil {
		return fmt.Errorf("failed to advance queue for guild %d: %w", s.guildID, err)
	}
	s.current = &next
	s.state = StateConnectedPlaying
	return nil
}

// disconnect tears the session down: node player destroyed, voice left,
// state terminal. Idempotent.
func (s *Session) disconnect(ctx context.Context) {
	s.mu.Lock()
	if s.state == StateDisconnected {
		s.mu.Unlock()
		return
	}
	s.state = StateDisconnected
	s.current = nil
	s.queue.Clear()
	s.mu.Unlock()

	if err := s.node.Destroy(ctx, s.guildID); err != nil {
		log.WithFields(log.Fields{"guildID": s.guildID}).Warnf("Failed to destroy node player: %v", err)
	}
	if err := s.voice.LeaveVoice(s.guildID); err != nil {
		log.WithFields(log.Fields{"guildID": s.guildID}).Warnf("Failed to leave voice channel: %v", err)
	}
}

package player

import (
	"context"
	"fmt"
	"sync"

	"dusko/models"

	log "github.com/sirupsen/logrus"
)

// Registry owns every live playback session, at most one per guild. It is
// injected into every component that needs session lookup; there is no
// ambient global. Absence of a session is signaled with nil, not an error.
type Registry struct {
	node  NodePlayer
	voice VoiceConnector

	mu       sync.Mutex
	sessions map[int64]*Session
}

// NewRegistry creates an empty session registry
func NewRegistry(node NodePlayer, voice VoiceConnector) *Registry {
	return &Registry{
		node:     node,
		voice:    voice,
		sessions: make(map[int64]*Session),
	}
}

// Get returns the guild's session, or nil when none exists
func (r *Registry) Get(guildID int64) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sessions[guildID]
}

// SnapshotFor returns the guild session's current state, or nil when no
// session exists
func (r *Registry) SnapshotFor(guildID int64) *Snapshot {
	session := r.Get(guildID)
	if session == nil {
		return nil
	}
	snap := session.Snapshot()
	return &snap
}

// Create joins the given voice channel and registers a session for the guild.
// Calling Create for a guild whose live session already sits in the target
// channel returns that session unchanged; targeting a different channel
// disconnects the old session first. A second Create while a join is in
// flight is rejected with models.ErrAlreadyConnecting rather than racing two
// connections.
func (r *Registry) Create(ctx context.Context, guildID, voiceChannelID int64) (*Session, error) {
	r.mu.Lock()
	if existing := r.sessions[guildID]; existing != nil {
		state := existing.State()
		if state == StateConnecting {
			r.mu.Unlock()
			return nil, models.ErrAlreadyConnecting
		}
		if state.Connected() && existing.VoiceChannelID() == voiceChannelID {
			r.mu.Unlock()
			return existing, nil
		}
		// Different target channel: tear the old session down first
		delete(r.sessions, guildID)
		r.mu.Unlock()
		existing.disconnect(ctx)
		r.mu.Lock()
		if r.sessions[guildID] != nil {
			// Another Create slipped in while we were disconnecting
			r.mu.Unlock()
			return nil, models.ErrAlreadyConnecting
		}
	}

	session := &Session{
		guildID:        guildID,
		node:           r.node,
		voice:          r.voice,
		voiceChannelID: voiceChannelID,
		state:          StateConnecting,
	}
	r.sessions[guildID] = session
	r.mu.Unlock()

	// The voice join is a blocking external call; it must not hold the
	// registry lock. Concurrent Create calls see the connecting session.
	if err := r.voice.JoinVoice(guildID, voiceChannelID); err != nil {
		r.mu.Lock()
		delete(r.sessions, guildID)
		r.mu.Unlock()

		session.mu.Lock()
		session.state = StateDisconnected
		session.mu.Unlock()

		return nil, fmt.Errorf("voice join for guild %d: %v: %w", guildID, err, models.ErrConnectionFailure)
	}

	session.mu.Lock()
	session.state = StateConnectedEmpty
	session.mu.Unlock()

	log.WithFields(log.Fields{
		"guildID":   guildID,
		"channelID": voiceChannelID,
	}).Info("Playback session created")

	return session, nil
}

// Destroy disconnects and removes the guild's session. Destroying an absent
// session is a no-op.
func (r *Registry) Destroy(ctx context.Context, guildID int64) {
	r.mu.Lock()
	session := r.sessions[guildID]
	delete(r.sessions, guildID)
	r.mu.Unlock()

	if session == nil {
		return
	}
	session.disconnect(ctx)

	log.WithFields(log.Fields{"guildID": guildID}).Info("Playback session destroyed")
}

// All returns every live session, for shutdown and startup sweeps
func (r *Registry) All() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sessions := make([]*Session, 0, len(r.sessions))
	for _, s := range r.sessions {
		sessions = append(sessions, s)
	}
	return sessions
}

// Shutdown tears down every live session
func (r *Registry) Shutdown(ctx context.Context) {
	for _, s := range r.All() {
		r.Destroy(ctx, s.GuildID())
	}
}

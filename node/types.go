package node

import (
	"encoding/json"
	"time"

	"dusko/models"
)

// Wire types for the audio node's v4 protocol. Only the fields this client
// consumes are declared.

type wsMessage struct {
	Op        string          `json:"op"`
	SessionID string          `json:"sessionId,omitempty"`
	GuildID   string          `json:"guildId,omitempty"`
	Type      string          `json:"type,omitempty"`
	State     *playerState    `json:"state,omitempty"`
	Track     *restTrack      `json:"track,omitempty"`
	Reason    string          `json:"reason,omitempty"`
	Raw       json.RawMessage `json:"-"`
}

type playerState struct {
	Time      int64 `json:"time"`
	Position  int64 `json:"position"`
	Connected bool  `json:"connected"`
	Ping      int   `json:"ping"`
}

type restTrack struct {
	Encoded string    `json:"encoded"`
	Info    trackInfo `json:"info"`
}

type trackInfo struct {
	Identifier string `json:"identifier"`
	Author     string `json:"author"`
	Length     int64  `json:"length"` // milliseconds
	IsStream   bool   `json:"isStream"`
	Title      string `json:"title"`
	URI        string `json:"uri"`
	ArtworkURL string `json:"artworkUrl"`
	SourceName string `json:"sourceName"`
}

type loadResult struct {
	LoadType string          `json:"loadType"`
	Data     json.RawMessage `json:"data"`
}

type loadException struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
	Cause    string `json:"cause"`
}

// playerUpdateRequest is the PATCH body for mutating a guild's node player.
// Pointer fields are omitted when unset so updates stay partial.
type playerUpdateRequest struct {
	Track  *trackUpdate `json:"track,omitempty"`
	Paused *bool        `json:"paused,omitempty"`
	Voice  *VoiceUpdate `json:"voice,omitempty"`
}

type trackUpdate struct {
	// Encoded is a double pointer on the wire: an explicit JSON null stops
	// the current track
	Encoded *string `json:"encoded"`
}

// VoiceUpdate carries the chat platform's voice-server handoff to the node
type VoiceUpdate struct {
	Token     string `json:"token"`
	Endpoint  string `json:"endpoint"`
	SessionID string `json:"sessionId"`
}

func (t restTrack) toModel() models.Track {
	return models.Track{
		Encoded:    t.Encoded,
		URI:        t.Info.URI,
		Title:      t.Info.Title,
		Author:     t.Info.Author,
		Duration:   time.Duration(t.Info.Length) * time.Millisecond,
		ArtworkURI: t.Info.ArtworkURL,
	}
}

// mayStartNext reports whether a track-end reason permits the session to
// start the next queued track
func mayStartNext(reason string) bool {
	return reason == "finished" || reason == "loadFailed"
}

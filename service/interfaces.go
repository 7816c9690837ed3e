package service

import (
	"context"

	"dusko/models"
	"dusko/player"

	"github.com/bwmarrin/discordgo"
)

// PanelContent is a fully rendered control panel: the queue and now-playing
// embeds plus the action controls gated by session state. It is derived, never
// persisted, and regenerated from current state on every reconciliation pass.
type PanelContent struct {
	Embeds     []*discordgo.MessageEmbed
	Components []discordgo.MessageComponent
}

// PanelRepository defines the interface for panel binding data access
type PanelRepository interface {
	// GetBinding retrieves the guild's binding; nil means no panel exists
	GetBinding(ctx context.Context, guildID int64) (*models.PanelBinding, error)

	// CreateBinding inserts a binding, failing with models.ErrAlreadyBound
	// if the guild already has one
	CreateBinding(ctx context.Context, guildID, channelID, messageID int64) (*models.PanelBinding, error)

	// ReplaceBinding atomically swaps the binding for a new channel/message
	ReplaceBinding(ctx context.Context, guildID, channelID, messageID int64) (*models.PanelBinding, error)

	// DeleteBinding removes the guild's binding
	DeleteBinding(ctx context.Context, guildID int64) error

	// ListBindings returns every binding, for the startup sweep
	ListBindings(ctx context.Context) ([]*models.PanelBinding, error)
}

// Messenger is the chat-platform boundary the reconciler drives. Vanished
// channels and messages are reported as models.ErrNotFound.
type Messenger interface {
	// GuildKnown reports whether the guild still resolves on the platform
	GuildKnown(guildID int64) bool

	// ResolveTextChannel verifies the channel exists and can hold the panel
	// message; models.ErrNotFound covers both a missing channel and a
	// channel that is not text-capable
	ResolveTextChannel(ctx context.Context, channelID int64) error

	// ResolveMessage verifies the message still exists
	ResolveMessage(ctx context.Context, channelID, messageID int64) error

	// SendPanel posts a fresh panel message and returns its ID
	SendPanel(ctx context.Context, channelID int64, content PanelContent) (int64, error)

	// EditPanel applies a rendering to the bound message as a single update
	EditPanel(ctx context.Context, channelID, messageID int64, content PanelContent) error

	// DeleteMessage removes a message, e.g. an old panel after a move
	DeleteMessage(ctx context.Context, channelID, messageID int64) error
}

// PanelRenderer turns a session snapshot into panel content. Rendering is a
// pure function of the snapshot; a nil snapshot produces the no-session
// placeholder. Action wiring lives in a fixed dispatch table elsewhere.
type PanelRenderer interface {
	Render(snapshot *player.Snapshot) PanelContent
}

// SessionDirectory exposes read access to live playback sessions
type SessionDirectory interface {
	// SnapshotFor returns the guild session's current state, or nil when no
	// session exists. Absence is valid and renders the placeholder.
	SnapshotFor(guildID int64) *player.Snapshot
}

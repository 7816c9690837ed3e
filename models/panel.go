package models

import "time"

// PanelBinding is the durable record identifying which message is a guild's
// music control panel. At most one binding exists per guild, enforced by the
// primary key on guild_id. A binding is assumed renderable until a fetch of
// its channel or message proves otherwise.
type PanelBinding struct {
	GuildID   int64     `db:"guild_id"`
	ChannelID int64     `db:"channel_id"`
	MessageID int64     `db:"message_id"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

package bot

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"

	"dusko/bot/common"
	"dusko/models"
	"dusko/service"
)

// Messenger adapts a discordgo session to the panel service's messaging
// boundary. Discord 404s are mapped to models.ErrNotFound so the service can
// tell a vanished channel or message apart from a transport failure.
type Messenger struct {
	session *discordgo.Session
}

// NewMessenger creates a Messenger over an open discordgo session
func NewMessenger(session *discordgo.Session) *Messenger {
	return &Messenger{session: session}
}

// GuildKnown reports whether the bot can currently see the guild
func (m *Messenger) GuildKnown(guildID int64) bool {
	_, err := m.session.State.Guild(common.FormatSnowflake(guildID))
	return err == nil
}

// ResolveTextChannel verifies the channel exists and can hold messages
func (m *Messenger) ResolveTextChannel(ctx context.Context, channelID int64) error {
	ch, err := m.session.Channel(common.FormatSnowflake(channelID), discordgo.WithContext(ctx))
	if err != nil {
		return mapNotFound(err, "failed to fetch channel")
	}

	switch ch.Type {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews,
		discordgo.ChannelTypeGuildPublicThread, discordgo.ChannelTypeGuildPrivateThread,
		discordgo.ChannelTypeGuildNewsThread:
		return nil
	default:
		// A binding pointing at a non-text channel is stale data
		return fmt.Errorf("channel %d is not a text channel: %w", channelID, models.ErrNotFound)
	}
}

// ResolveMessage verifies the message still exists in the channel
func (m *Messenger) ResolveMessage(ctx context.Context, channelID, messageID int64) error {
	_, err := m.session.ChannelMessage(common.FormatSnowflake(channelID), common.FormatSnowflake(messageID), discordgo.WithContext(ctx))
	if err != nil {
		return mapNotFound(err, "failed to fetch message")
	}
	return nil
}

// SendPanel posts a new panel message and returns its ID
func (m *Messenger) SendPanel(ctx context.Context, channelID int64, content service.PanelContent) (int64, error) {
	msg, err := m.session.ChannelMessageSendComplex(common.FormatSnowflake(channelID), &discordgo.MessageSend{
		Embeds:     content.Embeds,
		Components: content.Components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return 0, mapNotFound(err, "failed to send panel message")
	}
	return common.ParseSnowflake(msg.ID), nil
}

// EditPanel replaces the embeds and components of an existing panel message
func (m *Messenger) EditPanel(ctx context.Context, channelID, messageID int64, content service.PanelContent) error {
	_, err := m.session.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    common.FormatSnowflake(channelID),
		ID:         common.FormatSnowflake(messageID),
		Embeds:     &content.Embeds,
		Components: &content.Components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return mapNotFound(err, "failed to edit panel message")
	}
	return nil
}

// DeleteMessage removes a message. Deleting an already-gone message reports
// models.ErrNotFound like everything else here.
func (m *Messenger) DeleteMessage(ctx context.Context, channelID, messageID int64) error {
	err := m.session.ChannelMessageDelete(common.FormatSnowflake(channelID), common.FormatSnowflake(messageID), discordgo.WithContext(ctx))
	if err != nil {
		return mapNotFound(err, "failed to delete message")
	}
	return nil
}

// mapNotFound converts Discord REST 404s into the sentinel the service layer
// repairs on, and wraps everything else
func mapNotFound(err error, msg string) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", msg, models.ErrNotFound)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

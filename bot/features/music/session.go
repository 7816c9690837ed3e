package music

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"dusko/bot/common"
	"dusko/models"
	"dusko/player"
)

// ensureSession finds or creates a session for the interacting member. The
// member's own voice channel wins when the bot is idle or sitting alone;
// a session busy with listeners elsewhere is kept where it is. The second
// return is a user-facing failure message when no session can be had.
func (f *Feature) ensureSession(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate) (*player.Session, string) {
	guildID := common.ParseSnowflake(i.GuildID)
	existing := f.registry.Get(guildID)

	channelID, inVoice := common.MemberVoiceChannel(s, i.GuildID, i.Member.User.ID)
	if !inVoice {
		if existing != nil && existing.State().Connected() {
			return existing, ""
		}
		return nil, "Neither the bot nor you are in a voice channel. Please join a voice channel or run the join command first."
	}

	if existing != nil && existing.State().Connected() && existing.VoiceChannelID() != channelID {
		occupants := common.VoiceChannelOccupants(s, i.GuildID, common.FormatSnowflake(existing.VoiceChannelID()), s.State.User.ID)
		if occupants > 0 {
			// The bot has listeners elsewhere; queue onto the existing session
			return existing, ""
		}
	}

	session, err := f.registry.Create(ctx, guildID, channelID)
	if err != nil {
		if errors.Is(err, models.ErrAlreadyConnecting) {
			return nil, "Already connecting to a voice channel. Try again in a moment."
		}
		log.WithError(err).WithField("guildID", guildID).Error("Voice join failed")
		return nil, "Could not connect to the voice channel."
	}
	return session, ""
}

// QuickAdd runs the full quick-play flow for a member: ensure a session,
// search the query, queue the first result and start playback when nothing
// is sounding. Returns the queued track, or a user-facing message on
// failure. Used by /music play and the panel's add-song modal.
func (f *Feature) QuickAdd(ctx context.Context, s *discordgo.Session, i *discordgo.InteractionCreate, query string) (*models.Track, string) {
	session, userMsg := f.ensureSession(ctx, s, i)
	if session == nil {
		return nil, userMsg
	}

	tracks, err := f.node.Search(ctx, query)
	if err != nil {
		if errors.Is(err, models.ErrUnsupported) {
			return nil, "Playlists are not yet supported."
		}
		log.WithError(err).WithField("query", query).Error("Track search failed")
		return nil, "Could not search for the audio. Please try again."
	}
	if len(tracks) == 0 {
		return nil, "No tracks found."
	}

	track := tracks[0]
	if err := session.Enqueue(track, false); err != nil {
		return nil, "The player is disconnected. Join a voice channel first."
	}

	if !session.Snapshot().Playing() {
		if err := session.Play(ctx, nil); err != nil {
			log.WithError(err).WithField("guildID", session.GuildID()).Error("Failed to start playback")
		}
	}

	f.reconcile(ctx, session.GuildID())
	return &track, ""
}

func (f *Feature) reconcile(ctx context.Context, guildID int64) {
	if err := f.panels.Reconcile(ctx, guildID); err != nil {
		log.WithError(err).WithField("guildID", guildID).Error("Failed to reconcile player panel")
	}
}

func channelMention(channelID int64) string {
	return fmt.Sprintf("<#%s>", common.FormatSnowflake(channelID))
}

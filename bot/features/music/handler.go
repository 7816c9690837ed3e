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

// handlePlay handles /music play: join the member's channel if needed, queue
// the query's first hit and start playback when idle
func (f *Feature) handlePlay(s *discordgo.Session, i *discordgo.InteractionCreate, opt *discordgo.ApplicationCommandInteractionDataOption) {
	var query string
	for _, sub := range opt.Options {
		if sub.Name == "query" {
			query = sub.StringValue()
		}
	}
	if query == "" {
		common.RespondWithError(s, i, "Nothing to search for.")
		return
	}

	if err := common.DeferResponse(s, i, true); err != nil {
		log.Errorf("Error deferring play response: %v", err)
		return
	}

	ctx := context.Background()
	track, userMsg := f.QuickAdd(ctx, s, i, query)
	if track == nil {
		common.FollowUpWithError(s, i, userMsg)
		return
	}

	common.FollowUpWithSuccess(s, i, fmt.Sprintf("Added **%s** to the queue!", track.Label()), true)
}

func (f *Feature) handlePause(s *discordgo.Session, i *discordgo.InteractionCreate) {
	f.transition(s, i, "Paused the audio!", "The audio is already paused.", func(ctx context.Context, session *player.Session) error {
		return session.Pause(ctx, true)
	})
}

func (f *Feature) handleResume(s *discordgo.Session, i *discordgo.InteractionCreate) {
	f.transition(s, i, "Resumed the audio!", "The audio is not paused.", func(ctx context.Context, session *player.Session) error {
		return session.Pause(ctx, false)
	})
}

// handleToggle flips between paused and playing and reports the state it
// landed in
func (f *Feature) handleToggle(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID := common.ParseSnowflake(i.GuildID)
	session := f.registry.Get(guildID)
	if session == nil {
		common.RespondWithError(s, i, "There is no audio playing.")
		return
	}

	ctx := context.Background()
	if err := session.Toggle(ctx); err != nil {
		if errors.Is(err, models.ErrAlreadyInState) {
			common.RespondWithError(s, i, "There is no audio playing.")
			return
		}
		common.HandleError(s, i, common.NewSystemError(err, "toggle failed"), false)
		return
	}

	f.reconcile(ctx, guildID)
	message := "Resumed the audio!"
	if session.Snapshot().Paused() {
		message = "Paused the audio!"
	}
	if err := common.RespondWithSuccess(s, i, message, true); err != nil {
		log.Errorf("Error responding to toggle: %v", err)
	}
}

func (f *Feature) handleSkip(s *discordgo.Session, i *discordgo.InteractionCreate) {
	f.transition(s, i, "Skipped the audio!", "There is no audio playing.", func(ctx context.Context, session *player.Session) error {
		return session.Skip(ctx)
	})
}

// handleJoin handles /music join: connect to the named voice channel,
// leaving the current one if connected elsewhere
func (f *Feature) handleJoin(s *discordgo.Session, i *discordgo.InteractionCreate, opt *discordgo.ApplicationCommandInteractionDataOption) {
	var channelID int64
	for _, sub := range opt.Options {
		if sub.Name == "channel" {
			channelID = common.ParseSnowflake(sub.ChannelValue(nil).ID)
		}
	}
	if channelID == 0 {
		common.RespondWithError(s, i, "Please specify a voice channel.")
		return
	}

	if err := common.DeferResponse(s, i, true); err != nil {
		log.Errorf("Error deferring join response: %v", err)
		return
	}

	ctx := context.Background()
	guildID := common.ParseSnowflake(i.GuildID)
	if _, err := f.registry.Create(ctx, guildID, channelID); err != nil {
		if errors.Is(err, models.ErrAlreadyConnecting) {
			common.FollowUpWithError(s, i, "Already connecting to a voice channel. Try again in a moment.")
			return
		}
		userErr := common.NewUserError(fmt.Sprintf("Could not join %s.", channelMention(channelID)), "voice join failed")
		userErr.Err = err
		common.HandleError(s, i, userErr, true)
		return
	}

	f.reconcile(ctx, guildID)
	common.FollowUpWithSuccess(s, i, fmt.Sprintf("Successfully joined %s!", channelMention(channelID)), true)
}

func (f *Feature) handleLeave(s *discordgo.Session, i *discordgo.InteractionCreate) {
	ctx := context.Background()
	guildID := common.ParseSnowflake(i.GuildID)

	f.registry.Destroy(ctx, guildID)
	f.reconcile(ctx, guildID)

	if err := common.RespondWithSuccess(s, i, "Left the voice channel!", true); err != nil {
		log.Errorf("Error responding to leave: %v", err)
	}
}

// transition runs a playback transition that needs a sounding track, then
// reconciles and reports the outcome
func (f *Feature) transition(s *discordgo.Session, i *discordgo.InteractionCreate, success, alreadyMsg string, fn func(ctx context.Context, session *player.Session) error) {
	guildID := common.ParseSnowflake(i.GuildID)
	session := f.registry.Get(guildID)
	if session == nil {
		common.RespondWithError(s, i, "There is no audio playing.")
		return
	}

	ctx := context.Background()
	if err := fn(ctx, session); err != nil {
		if errors.Is(err, models.ErrAlreadyInState) {
			common.RespondWithError(s, i, alreadyMsg)
			return
		}
		common.HandleError(s, i, common.NewSystemError(err, "playback transition failed"), false)
		return
	}

	f.reconcile(ctx, guildID)
	if err := common.RespondWithSuccess(s, i, success, true); err != nil {
		log.Errorf("Error responding to music command: %v", err)
	}
}

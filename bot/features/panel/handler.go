package panel

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"dusko/bot/common"
	"dusko/models"
	"dusko/player"
	"dusko/service"
)

// handleCreatePanel handles /create-player. Requires Manage Server; targets
// the named channel or, absent one, the channel the command ran in.
func (f *Feature) handleCreatePanel(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Member == nil || i.Member.Permissions&discordgo.PermissionManageServer == 0 {
		common.RespondWithError(s, i, "You need the Manage Server permission to create a player panel.")
		return
	}

	guildID := common.ParseSnowflake(i.GuildID)
	channelID := common.ParseSnowflake(i.ChannelID)
	for _, opt := range i.ApplicationCommandData().Options {
		if opt.Name == "channel" {
			channelID = common.ParseSnowflake(opt.ChannelValue(nil).ID)
		}
	}

	if err := common.DeferResponse(s, i, true); err != nil {
		log.Errorf("Error deferring create-player response: %v", err)
		return
	}

	ctx := context.Background()
	outcome, err := f.panels.PrepareCreate(ctx, guildID, channelID)
	if err != nil {
		common.HandleError(s, i, common.NewSystemError(err, "failed to create player panel"), true)
		return
	}

	response := buildCreateResponse(outcome, channelID)
	if response.prompt != nil {
		if _, err := common.FollowUpWithEmbed(s, i, response.prompt, response.components, true); err != nil {
			log.Errorf("Error sending move confirmation: %v", err)
		}
		return
	}

	f.reconcile(ctx, guildID)
	common.FollowUpWithSuccess(s, i, response.success, true)
}

// createResponse is the follow-up a create-panel request resolves to: either
// the Keep/Move prompt or the created confirmation, never both
type createResponse struct {
	prompt     *discordgo.MessageEmbed
	components []discordgo.MessageComponent
	success    string
}

// buildCreateResponse maps a PrepareCreate outcome onto its follow-up. When
// a resolvable panel already exists only Existing is set on the outcome, so
// the prompt must read the existing binding, not Binding.
func buildCreateResponse(outcome *service.CreateOutcome, targetChannelID int64) createResponse {
	if outcome.Existing != nil {
		return createResponse{
			prompt: &discordgo.MessageEmbed{
				Title: "Player panel already exists",
				Description: fmt.Sprintf("There is already a player panel in <#%s>. Keep it, or move it to <#%s>?",
					common.FormatSnowflake(outcome.Existing.ChannelID), common.FormatSnowflake(targetChannelID)),
				Color: colorQueue,
			},
			components: moveConfirmationComponents(targetChannelID),
		}
	}

	return createResponse{
		success: fmt.Sprintf("Player created in <#%s>!", common.FormatSnowflake(outcome.Binding.ChannelID)),
	}
}

// handleKeep resolves the Keep/Move prompt in favor of the existing panel
func (f *Feature) handleKeep(s *discordgo.Session, i *discordgo.InteractionCreate) {
	updatePrompt(s, i, "Keeping the current player panel.")
}

// handleMove resolves the Keep/Move prompt by moving the panel to the
// channel encoded in the button
func (f *Feature) handleMove(s *discordgo.Session, i *discordgo.InteractionCreate, newChannelID int64) {
	guildID := common.ParseSnowflake(i.GuildID)
	ctx := context.Background()

	if _, err := f.panels.ConfirmMove(ctx, guildID, newChannelID); err != nil {
		if errors.Is(err, models.ErrNotFound) {
			updatePrompt(s, i, "The existing panel is gone. Run /create-player again.")
			return
		}
		log.WithError(err).WithField("guildID", guildID).Error("Failed to move player panel")
		updatePrompt(s, i, "Could not move the player panel. Please try again.")
		return
	}

	f.reconcile(ctx, guildID)
	updatePrompt(s, i, fmt.Sprintf("Moved the player panel to <#%s>!", common.FormatSnowflake(newChannelID)))
}

// handleOpenAddSong opens the add-song modal for the Play and Add song
// buttons
func (f *Feature) handleOpenAddSong(s *discordgo.Session, i *discordgo.InteractionCreate) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseModal,
		Data: addSongModal(),
	})
	if err != nil {
		log.Errorf("Error opening add-song modal: %v", err)
	}
}

// handleAddSongSubmit runs the quick-play flow for the submitted query
func (f *Feature) handleAddSongSubmit(s *discordgo.Session, i *discordgo.InteractionCreate) {
	query := modalInputValue(i.ModalSubmitData(), addSongInputID)
	if query == "" {
		common.RespondWithError(s, i, "Nothing to search for.")
		return
	}

	if err := common.DeferResponse(s, i, true); err != nil {
		log.Errorf("Error deferring add-song response: %v", err)
		return
	}

	ctx := context.Background()
	track, userMsg := f.music.QuickAdd(ctx, s, i, query)
	if track == nil {
		common.FollowUpWithError(s, i, userMsg)
		return
	}

	common.FollowUpWithSuccess(s, i, fmt.Sprintf("Added **%s** to the queue!", track.Label()), true)
}

func (f *Feature) handlePauseButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	f.withPlayingSession(s, i, "Paused the audio!", func(ctx context.Context, session *player.Session) error {
		return session.Pause(ctx, true)
	})
}

func (f *Feature) handleResumeButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	f.withPlayingSession(s, i, "Resumed the audio!", func(ctx context.Context, session *player.Session) error {
		return session.Pause(ctx, false)
	})
}

func (f *Feature) handleSkipButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	f.withPlayingSession(s, i, "Skipped the song!", func(ctx context.Context, session *player.Session) error {
		return session.Skip(ctx)
	})
}

func (f *Feature) handleStopButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID := common.ParseSnowflake(i.GuildID)
	ctx := context.Background()

	f.registry.Destroy(ctx, guildID)
	f.reconcile(ctx, guildID)

	if err := common.RespondWithSuccess(s, i, "Stopped the audio!", true); err != nil {
		log.Errorf("Error responding to stop button: %v", err)
	}
}

func (f *Feature) handleClearQueueButton(s *discordgo.Session, i *discordgo.InteractionCreate) {
	guildID := common.ParseSnowflake(i.GuildID)
	session := f.registry.Get(guildID)
	if session == nil {
		common.RespondWithError(s, i, "There is no player in this server.")
		return
	}

	ctx := context.Background()
	session.ClearQueue()
	f.reconcile(ctx, guildID)

	if err := common.RespondWithSuccess(s, i, "Cleared the queue!", true); err != nil {
		log.Errorf("Error responding to clear-queue button: %v", err)
	}
}

// withPlayingSession runs a transition that only makes sense while a track
// is sounding, then reconciles and reports the outcome
func (f *Feature) withPlayingSession(s *discordgo.Session, i *discordgo.InteractionCreate, success string, fn func(ctx context.Context, session *player.Session) error) {
	guildID := common.ParseSnowflake(i.GuildID)
	session := f.registry.Get(guildID)
	if session == nil {
		common.RespondWithError(s, i, "There is no audio playing.")
		return
	}

	ctx := context.Background()
	if err := fn(ctx, session); err != nil {
		if errors.Is(err, models.ErrAlreadyInState) {
			common.RespondWithError(s, i, "The player is already in that state.")
			return
		}
		common.HandleError(s, i, common.NewSystemError(err, "panel action failed"), false)
		return
	}

	f.reconcile(ctx, guildID)
	if err := common.RespondWithSuccess(s, i, success, true); err != nil {
		log.Errorf("Error responding to panel action: %v", err)
	}
}

func (f *Feature) reconcile(ctx context.Context, guildID int64) {
	if err := f.panels.Reconcile(ctx, guildID); err != nil {
		log.WithError(err).WithField("guildID", guildID).Error("Failed to reconcile player panel")
	}
}

// updatePrompt replaces the Keep/Move prompt with a terminal line and drops
// its buttons
func updatePrompt(s *discordgo.Session, i *discordgo.InteractionCreate, content string) {
	err := s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Embeds:     []*discordgo.MessageEmbed{},
			Components: []discordgo.MessageComponent{},
		},
	})
	if err != nil {
		log.Errorf("Error updating move prompt: %v", err)
	}
}

// modalInputValue digs a text input's value out of modal submit data
func modalInputValue(data discordgo.ModalSubmitInteractionData, inputID string) string {
	for _, row := range data.Components {
		actionsRow, ok := row.(*discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionsRow.Components {
			if input, ok := comp.(*discordgo.TextInput); ok && input.CustomID == inputID {
				return input.Value
			}
		}
	}
	return ""
}

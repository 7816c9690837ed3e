package panel

import (
	"strings"

	"github.com/bwmarrin/discordgo"

	"dusko/bot/common"
	"dusko/player"
)

// Fixed action identifiers for panel components. Rendering emits these and
// the dispatch table in handler.go consumes them; nothing is wired inline.
const (
	actionPlay       = "panel_play"
	actionPause      = "panel_pause"
	actionResume     = "panel_resume"
	actionStop       = "panel_stop"
	actionAddSong    = "panel_add_song"
	actionSkip       = "panel_skip"
	actionRemove     = "panel_remove"
	actionSwap       = "panel_swap"
	actionClearQueue = "panel_clear_queue"

	actionKeepPanel  = "panel_keep"
	actionMovePrefix = "panel_move:"

	addSongModalID = "panel_add_song_modal"
	addSongInputID = "panel_add_song_query"
)

// moveActionID encodes the target channel into the Move button's custom ID
func moveActionID(channelID int64) string {
	return actionMovePrefix + common.FormatSnowflake(channelID)
}

// parseMoveActionID extracts the target channel from a Move custom ID.
// Returns 0 when the ID is not a move action.
func parseMoveActionID(customID string) int64 {
	raw, ok := strings.CutPrefix(customID, actionMovePrefix)
	if !ok {
		return 0
	}
	return common.ParseSnowflake(raw)
}

// buildComponents renders the panel's action rows gated by session state.
// The first row carries the transport control that makes sense right now,
// the second row the queue controls.
func buildComponents(snapshot *player.Snapshot) []discordgo.MessageComponent {
	connected := snapshot != nil
	playing := connected && snapshot.Playing()
	paused := connected && snapshot.Paused()
	queueEmpty := !connected || len(snapshot.Queue) == 0

	var transport []discordgo.MessageComponent
	switch {
	case !playing:
		transport = append(transport, discordgo.Button{
			Label: "Play", Style: discordgo.SuccessButton, CustomID: actionPlay,
		})
	case paused:
		transport = append(transport, discordgo.Button{
			Label: "Resume", Style: discordgo.SecondaryButton, CustomID: actionResume,
		})
	default:
		transport = append(transport, discordgo.Button{
			Label: "Pause", Style: discordgo.SecondaryButton, CustomID: actionPause,
		})
	}
	transport = append(transport, discordgo.Button{
		Label: "Stop", Style: discordgo.DangerButton, CustomID: actionStop, Disabled: !connected,
	})

	queueRow := []discordgo.MessageComponent{
		discordgo.Button{Label: "Add song", Style: discordgo.SecondaryButton, CustomID: actionAddSong, Disabled: !connected},
		discordgo.Button{Label: "Skip", Style: discordgo.SecondaryButton, CustomID: actionSkip, Disabled: !playing},
		discordgo.Button{Label: "Remove", Style: discordgo.SecondaryButton, CustomID: actionRemove, Disabled: true},
		discordgo.Button{Label: "Swap", Style: discordgo.SecondaryButton, CustomID: actionSwap, Disabled: true},
		discordgo.Button{Label: "Clear queue", Style: discordgo.DangerButton, CustomID: actionClearQueue, Disabled: queueEmpty},
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: transport},
		discordgo.ActionsRow{Components: queueRow},
	}
}

// moveConfirmationComponents builds the Keep/Move prompt shown when a panel
// already exists elsewhere
func moveConfirmationComponents(newChannelID int64) []discordgo.MessageComponent {
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.Button{Label: "Keep", Style: discordgo.SecondaryButton, CustomID: actionKeepPanel},
			discordgo.Button{Label: "Move", Style: discordgo.DangerButton, CustomID: moveActionID(newChannelID)},
		}},
	}
}

// addSongModal is the text-input modal opened by the Play and Add song
// buttons
func addSongModal() *discordgo.InteractionResponseData {
	return &discordgo.InteractionResponseData{
		CustomID: addSongModalID,
		Title:    "Add song to queue",
		Components: []discordgo.MessageComponent{
			discordgo.ActionsRow{Components: []discordgo.MessageComponent{
				discordgo.TextInput{
					CustomID:    addSongInputID,
					Label:       "Enter the url or search query for the audio",
					Style:       discordgo.TextInputShort,
					Placeholder: "URL or search query",
					Required:    true,
				},
			}},
		},
	}
}

package music

import (
	"github.com/bwmarrin/discordgo"

	"dusko/bot/common"
	"dusko/node"
	"dusko/player"
	"dusko/service"
)

// Feature implements the /music command surface over the session registry
// and the audio node
type Feature struct {
	registry *player.Registry
	node     *node.Client
	panels   *service.PanelService
}

// New creates the music feature
func New(registry *player.Registry, nodeClient *node.Client, panels *service.PanelService) *Feature {
	return &Feature{
		registry: registry,
		node:     nodeClient,
		panels:   panels,
	}
}

// HandleCommand handles the /music command and its subcommands
func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	options := i.ApplicationCommandData().Options
	if len(options) == 0 {
		common.RespondWithError(s, i, "Please specify a subcommand.")
		return
	}

	switch options[0].Name {
	case "play":
		f.handlePlay(s, i, options[0])
	case "pause":
		f.handlePause(s, i)
	case "resume":
		f.handleResume(s, i)
	case "toggle":
		f.handleToggle(s, i)
	case "skip":
		f.handleSkip(s, i)
	case "join":
		f.handleJoin(s, i, options[0])
	case "leave":
		f.handleLeave(s, i)
	default:
		common.RespondWithError(s, i, "Unknown subcommand.")
	}
}

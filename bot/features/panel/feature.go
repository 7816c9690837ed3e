package panel

import (
	"github.com/bwmarrin/discordgo"

	"dusko/bot/features/music"
	"dusko/player"
	"dusko/service"
)

// Feature wires the panel's components to the command surface. Rendering
// lives in Renderer; this side only dispatches fixed action IDs.
type Feature struct {
	panels   *service.PanelService
	registry *player.Registry
	music    *music.Feature

	dispatch map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate)
}

// New creates the panel feature. The add-song modal funnels into the music
// feature's quick-play flow.
func New(panels *service.PanelService, registry *player.Registry, musicFeature *music.Feature) *Feature {
	f := &Feature{
		panels:   panels,
		registry: registry,
		music:    musicFeature,
	}

	f.dispatch = map[string]func(s *discordgo.Session, i *discordgo.InteractionCreate){
		actionPlay:       f.handleOpenAddSong,
		actionAddSong:    f.handleOpenAddSong,
		actionPause:      f.handlePauseButton,
		actionResume:     f.handleResumeButton,
		actionStop:       f.handleStopButton,
		actionSkip:       f.handleSkipButton,
		actionClearQueue: f.handleClearQueueButton,
		actionKeepPanel:  f.handleKeep,
	}

	return f
}

// HandleCommand handles the /create-player command
func (f *Feature) HandleCommand(s *discordgo.Session, i *discordgo.InteractionCreate) {
	f.handleCreatePanel(s, i)
}

// HandleInteraction handles panel component clicks and the add-song modal
func (f *Feature) HandleInteraction(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionMessageComponent:
		f.handleComponent(s, i)
	case discordgo.InteractionModalSubmit:
		if i.ModalSubmitData().CustomID == addSongModalID {
			f.handleAddSongSubmit(s, i)
		}
	}
}

func (f *Feature) handleComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID

	if channelID := parseMoveActionID(customID); channelID != 0 {
		f.handleMove(s, i, channelID)
		return
	}

	if handler, ok := f.dispatch[customID]; ok {
		handler(s, i)
	}
}

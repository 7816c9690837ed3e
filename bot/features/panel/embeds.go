package panel

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"dusko/models"
	"dusko/player"
)

const (
	colorQueue      = 0x9B59B6 // purple
	colorNowPlaying = 0xED4245 // brand red
	colorIdle       = 0xE74C3C // red

	noAudioPlaying = "No audio playing. Add some to the queue!"
	emptyQueue     = "No audio in the queue."
)

// buildEmbeds renders the queue view and the now-playing view from a session
// snapshot. A nil snapshot renders the placeholder panel.
func buildEmbeds(snapshot *player.Snapshot) []*discordgo.MessageEmbed {
	if snapshot == nil {
		return []*discordgo.MessageEmbed{
			{Title: "Queue", Color: colorQueue},
			{Title: "Currently playing", Color: colorIdle, Description: noAudioPlaying},
		}
	}

	return []*discordgo.MessageEmbed{
		queueEmbed(snapshot.Queue),
		nowPlayingEmbed(snapshot.Current),
	}
}

func queueEmbed(queue []models.Track) *discordgo.MessageEmbed {
	content := emptyQueue
	if len(queue) > 0 {
		var b strings.Builder
		for i, track := range queue {
			fmt.Fprintf(&b, "%d. [%s](%s)\n", i+1, track.Title, track.URI)
		}
		content = b.String()
	}

	return &discordgo.MessageEmbed{
		Title:       "Queue",
		Description: content,
		Color:       colorQueue,
	}
}

func nowPlayingEmbed(current *models.Track) *discordgo.MessageEmbed {
	if current == nil {
		return &discordgo.MessageEmbed{
			Title:       "Currently playing",
			Color:       colorIdle,
			Description: noAudioPlaying,
		}
	}

	embed := &discordgo.MessageEmbed{
		Title:  current.Title,
		URL:    current.URI,
		Color:  colorNowPlaying,
		Author: &discordgo.MessageEmbedAuthor{Name: current.Author},
		Footer: &discordgo.MessageEmbedFooter{Text: models.FormatDuration(current.Duration)},
	}
	if current.ArtworkURI != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: current.ArtworkURI}
	}
	return embed
}

package panel

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dusko/models"
	"dusko/player"
)

func testTrack(title string) models.Track {
	return models.Track{
		Encoded:    "enc-" + title,
		URI:        "https://example.com/" + title,
		Title:      title,
		Author:     "Test Artist",
		Duration:   3*time.Minute + 25*time.Second,
		ArtworkURI: "https://example.com/" + title + ".jpg",
	}
}

// findButton digs a button out of the rendered action rows by custom ID
func findButton(t *testing.T, components []discordgo.MessageComponent, customID string) discordgo.Button {
	t.Helper()
	for _, row := range components {
		actionsRow, ok := row.(discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionsRow.Components {
			if button, ok := comp.(discordgo.Button); ok && button.CustomID == customID {
				return button
			}
		}
	}
	t.Fatalf("button %s not rendered", customID)
	return discordgo.Button{}
}

func hasButton(components []discordgo.MessageComponent, customID string) bool {
	for _, row := range components {
		actionsRow, ok := row.(discordgo.ActionsRow)
		if !ok {
			continue
		}
		for _, comp := range actionsRow.Components {
			if button, ok := comp.(discordgo.Button); ok && button.CustomID == customID {
				return true
			}
		}
	}
	return false
}

func TestRender_NoSession(t *testing.T) {
	content := NewRenderer().Render(nil)

	require.Len(t, content.Embeds, 2)
	assert.Equal(t, "Queue", content.Embeds[0].Title)
	assert.Equal(t, colorQueue, content.Embeds[0].Color)
	assert.Equal(t, "Currently playing", content.Embeds[1].Title)
	assert.Equal(t, noAudioPlaying, content.Embeds[1].Description)

	// Only Play is live without a session
	play := findButton(t, content.Components, actionPlay)
	assert.False(t, play.Disabled)
	assert.Equal(t, discordgo.SuccessButton, play.Style)

	assert.True(t, findButton(t, content.Components, actionStop).Disabled)
	assert.True(t, findButton(t, content.Components, actionAddSong).Disabled)
	assert.True(t, findButton(t, content.Components, actionSkip).Disabled)
	assert.True(t, findButton(t, content.Components, actionClearQueue).Disabled)
}

func TestRender_PlayingWithQueue(t *testing.T) {
	snapshot := &player.Snapshot{
		GuildID:        1,
		VoiceChannelID: 2,
		State:          player.StateConnectedPlaying,
		Current:        &models.Track{Title: "Current Song", URI: "https://example.com/current", Author: "Someone", Duration: time.Minute},
		Queue:          []models.Track{testTrack("first"), testTrack("second")},
	}

	content := NewRenderer().Render(snapshot)

	require.Len(t, content.Embeds, 2)
	queue := content.Embeds[0]
	assert.Contains(t, queue.Description, "1. [first](https://example.com/first)")
	assert.Contains(t, queue.Description, "2. [second](https://example.com/second)")

	nowPlaying := content.Embeds[1]
	assert.Equal(t, "Current Song", nowPlaying.Title)
	assert.Equal(t, "https://example.com/current", nowPlaying.URL)
	require.NotNil(t, nowPlaying.Author)
	assert.Equal(t, "Someone", nowPlaying.Author.Name)
	require.NotNil(t, nowPlaying.Footer)
	assert.Equal(t, "1:00", nowPlaying.Footer.Text)

	// Playing and unpaused offers Pause, not Play or Resume
	assert.True(t, hasButton(content.Components, actionPause))
	assert.False(t, hasButton(content.Components, actionPlay))
	assert.False(t, hasButton(content.Components, actionResume))

	assert.False(t, findButton(t, content.Components, actionSkip).Disabled)
	assert.False(t, findButton(t, content.Components, actionStop).Disabled)
	assert.False(t, findButton(t, content.Components, actionClearQueue).Disabled)
}

func TestRender_Paused(t *testing.T) {
	snapshot := &player.Snapshot{
		GuildID: 1,
		State:   player.StateConnectedPaused,
		Current: &models.Track{Title: "Current Song", URI: "https://example.com/current"},
	}

	content := NewRenderer().Render(snapshot)

	assert.True(t, hasButton(content.Components, actionResume))
	assert.False(t, hasButton(content.Components, actionPause))
	assert.False(t, hasButton(content.Components, actionPlay))

	// Skip still works while paused, a track is current
	assert.False(t, findButton(t, content.Components, actionSkip).Disabled)
}

func TestRender_ConnectedEmpty(t *testing.T) {
	snapshot := &player.Snapshot{
		GuildID: 1,
		State:   player.StateConnectedEmpty,
	}

	content := NewRenderer().Render(snapshot)

	assert.Equal(t, emptyQueue, content.Embeds[0].Description)
	assert.Equal(t, noAudioPlaying, content.Embeds[1].Description)

	assert.False(t, findButton(t, content.Components, actionPlay).Disabled)
	assert.False(t, findButton(t, content.Components, actionStop).Disabled)
	assert.False(t, findButton(t, content.Components, actionAddSong).Disabled)
	assert.True(t, findButton(t, content.Components, actionSkip).Disabled)
	assert.True(t, findButton(t, content.Components, actionClearQueue).Disabled)
}

func TestRender_RemoveAndSwapAlwaysDisabled(t *testing.T) {
	snapshot := &player.Snapshot{
		GuildID: 1,
		State:   player.StateConnectedPlaying,
		Current: &models.Track{Title: "x"},
		Queue:   []models.Track{testTrack("a")},
	}

	content := NewRenderer().Render(snapshot)

	assert.True(t, findButton(t, content.Components, actionRemove).Disabled)
	assert.True(t, findButton(t, content.Components, actionSwap).Disabled)
}

func TestMoveActionID_Roundtrip(t *testing.T) {
	assert.Equal(t, int64(123456789), parseMoveActionID(moveActionID(123456789)))
	assert.Equal(t, int64(0), parseMoveActionID(actionKeepPanel))
	assert.Equal(t, int64(0), parseMoveActionID("panel_move:not-a-snowflake"))
}

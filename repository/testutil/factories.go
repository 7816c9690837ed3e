package testutil

import (
	"time"

	"dusko/models"
)

// CreateTestTrack creates a test track with default values
func CreateTestTrack(title string) models.Track {
	return models.Track{
		Encoded:    "QAAAjQIAJ" + title,
		URI:        "https://tracks.example/" + title,
		Title:      title,
		Author:     "Test Author",
		Duration:   3*time.Minute + 14*time.Second,
		ArtworkURI: "https://artwork.example/" + title + ".jpg",
	}
}

// CreateTestBinding creates a test panel binding with default values
func CreateTestBinding(guildID int64) *models.PanelBinding {
	return &models.PanelBinding{
		GuildID:   guildID,
		ChannelID: guildID*10 + 1,
		MessageID: guildID*10 + 2,
	}
}

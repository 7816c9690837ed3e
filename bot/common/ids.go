package common

import (
	"strconv"

	"github.com/bwmarrin/discordgo"
)

// ParseSnowflake converts a Discord snowflake string to an int64.
// Returns 0 for anything that is not a valid snowflake.
func ParseSnowflake(id string) int64 {
	n, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// FormatSnowflake converts an int64 ID back to Discord's string form
func FormatSnowflake(id int64) string {
	return strconv.FormatInt(id, 10)
}

// MemberVoiceChannel looks up the voice channel a guild member is currently
// in, via the session state cache. Returns 0, false when the member is not in
// a voice channel.
func MemberVoiceChannel(s *discordgo.Session, guildID, userID string) (int64, bool) {
	vs, err := s.State.VoiceState(guildID, userID)
	if err != nil || vs == nil || vs.ChannelID == "" {
		return 0, false
	}
	return ParseSnowflake(vs.ChannelID), true
}

// VoiceChannelOccupants counts guild members in a voice channel, excluding
// the given user ID (usually the bot itself)
func VoiceChannelOccupants(s *discordgo.Session, guildID, channelID, excludeUserID string) int {
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return 0
	}

	count := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID == channelID && vs.UserID != excludeUserID {
			count++
		}
	}
	return count
}

package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"dusko/bot/common"
	"dusko/node"
)

// How long a voice join may wait for Discord to hand over credentials before
// the join is reported as failed
const voiceJoinTimeout = 10 * time.Second

// voiceCredentials are the three pieces the audio node needs before it can
// open its own voice connection. sessionID arrives on the bot's voice state
// update, token and endpoint on the voice server update; either can come
// first.
type voiceCredentials struct {
	sessionID string
	token     string
	endpoint  string
}

func (c *voiceCredentials) complete() bool {
	return c.sessionID != "" && c.token != "" && c.endpoint != ""
}

// voiceManager drives voice channel membership through the Discord gateway
// and forwards the resulting credentials to the audio node. It implements
// player.VoiceConnector.
type voiceManager struct {
	session *discordgo.Session
	node    *node.Client

	stayWhenAlone  bool
	onEmptyChannel func(guildID int64)

	mu      sync.Mutex
	creds   map[int64]*voiceCredentials
	pending map[int64]chan struct{}
}

func newVoiceManager(session *discordgo.Session, nodeClient *node.Client, stayWhenAlone bool) *voiceManager {
	return &voiceManager{
		session:       session,
		node:          nodeClient,
		stayWhenAlone: stayWhenAlone,
		creds:         make(map[int64]*voiceCredentials),
		pending:       make(map[int64]chan struct{}),
	}
}

// JoinVoice asks the gateway to move the bot into a voice channel and blocks
// until the audio node has received credentials for the guild
func (m *voiceManager) JoinVoice(guildID, channelID int64) error {
	ready := m.armJoin(guildID)
	defer m.disarmJoin(guildID)

	err := m.session.ChannelVoiceJoinManual(common.FormatSnowflake(guildID), common.FormatSnowflake(channelID), false, true)
	if err != nil {
		return fmt.Errorf("failed to request voice join: %w", err)
	}

	select {
	case <-ready:
		return nil
	case <-time.After(voiceJoinTimeout):
		return fmt.Errorf("timed out waiting for voice credentials for guild %d", guildID)
	}
}

// LeaveVoice disconnects the bot from voice in the guild
func (m *voiceManager) LeaveVoice(guildID int64) error {
	err := m.session.ChannelVoiceJoinManual(common.FormatSnowflake(guildID), "", false, true)
	if err != nil {
		return fmt.Errorf("failed to request voice leave: %w", err)
	}
	return nil
}

// handleVoiceStateUpdate tracks the bot's own voice session and watches for
// the bot being left alone in a channel
func (m *voiceManager) handleVoiceStateUpdate(s *discordgo.Session, e *discordgo.VoiceStateUpdate) {
	guildID := common.ParseSnowflake(e.GuildID)
	if guildID == 0 {
		return
	}

	if e.UserID == s.State.User.ID {
		if e.ChannelID == "" {
			m.clearCredentials(guildID)
			return
		}
		m.mu.Lock()
		c := m.credentialsLocked(guildID)
		c.sessionID = e.SessionID
		m.mu.Unlock()
		m.submitIfReady(guildID)
		return
	}

	if m.stayWhenAlone || m.onEmptyChannel == nil {
		return
	}

	// Someone else moved. If the bot's channel is now empty of everyone but
	// the bot, tear the session down.
	botState, err := s.State.VoiceState(e.GuildID, s.State.User.ID)
	if err != nil || botState == nil || botState.ChannelID == "" {
		return
	}
	if common.VoiceChannelOccupants(s, e.GuildID, botState.ChannelID, s.State.User.ID) == 0 {
		log.WithField("guildID", guildID).Info("Voice channel empty, leaving")
		go m.onEmptyChannel(guildID)
	}
}

// handleVoiceServerUpdate stores the voice server half of the credentials
// and forwards them once complete
func (m *voiceManager) handleVoiceServerUpdate(s *discordgo.Session, e *discordgo.VoiceServerUpdate) {
	guildID := common.ParseSnowflake(e.GuildID)
	if guildID == 0 || e.Endpoint == "" {
		// A nil endpoint means the voice server is reallocating; a new
		// update with a real endpoint follows
		return
	}

	m.mu.Lock()
	c := m.credentialsLocked(guildID)
	c.token = e.Token
	c.endpoint = e.Endpoint
	m.mu.Unlock()
	m.submitIfReady(guildID)
}

// submitIfReady pushes complete credentials to the audio node and releases
// any join waiting on them
func (m *voiceManager) submitIfReady(guildID int64) {
	m.mu.Lock()
	c := m.creds[guildID]
	if c == nil || !c.complete() {
		m.mu.Unlock()
		return
	}
	update := node.VoiceUpdate{
		Token:     c.token,
		Endpoint:  c.endpoint,
		SessionID: c.sessionID,
	}
	m.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := m.node.SubmitVoiceUpdate(ctx, guildID, update); err != nil {
		log.WithError(err).WithField("guildID", guildID).Error("Failed to submit voice update to audio node")
		return
	}

	m.mu.Lock()
	if ready, ok := m.pending[guildID]; ok {
		close(ready)
		delete(m.pending, guildID)
	}
	m.mu.Unlock()
}

func (m *voiceManager) armJoin(guildID int64) chan struct{} {
	m.mu.Lock()
	defer m.mu.Unlock()
	if ready, ok := m.pending[guildID]; ok {
		return ready
	}
	ready := make(chan struct{})
	m.pending[guildID] = ready
	return ready
}

func (m *voiceManager) disarmJoin(guildID int64) {
	m.mu.Lock()
	delete(m.pending, guildID)
	m.mu.Unlock()
}

func (m *voiceManager) clearCredentials(guildID int64) {
	m.mu.Lock()
	delete(m.creds, guildID)
	m.mu.Unlock()
}

func (m *voiceManager) credentialsLocked(guildID int64) *voiceCredentials {
	c := m.creds[guildID]
	if c == nil {
		c = &voiceCredentials{}
		m.creds[guildID] = c
	}
	return c
}

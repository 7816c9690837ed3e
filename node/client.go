package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"dusko/events"
	"dusko/models"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
)

// Config holds audio node connection settings
type Config struct {
	// Address is the node's host:port
	Address  string
	Password string
	// IdleTimeout is how long a connected guild player may sit with nothing
	// sounding before a player-inactive event is emitted for it
	IdleTimeout time.Duration
}

// Client talks to the external audio node: commands over REST, events over a
// single websocket shared by all guild players. A reconnect of the event
// socket never tears down guild players, and a command failure for one guild
// does not affect others.
type Client struct {
	config Config
	bus    *events.Bus
	http   *http.Client

	mu        sync.Mutex
	idleOnce  sync.Once
	sessionID string
	conn      *websocket.Conn
	closed    bool
	// idleSince tracks guild players with nothing sounding, keyed by guild
	idleSince map[int64]time.Time
}

// NewClient creates a node client publishing events on the given bus
func NewClient(config Config, bus *events.Bus) *Client {
	return &Client{
		config:    config,
		bus:       bus,
		http:      &http.Client{Timeout: 10 * time.Second},
		idleSince: make(map[int64]time.Time),
	}
}

// Connect dials the node's event socket and starts the read and idle-watch
// loops. It blocks until the node has acknowledged the session, so callers
// can issue player commands as soon as it returns.
func (c *Client) Connect(ctx context.Context, botUserID string) error {
	conn, err := c.dial(ctx, botUserID)
	if err != nil {
		return fmt.Errorf("node connect: %v: %w", err, models.ErrConnectionFailure)
	}

	// The first message must be the ready op carrying our session id
	var ready wsMessage
	if err := conn.ReadJSON(&ready); err != nil {
		conn.Close()
		return fmt.Errorf("node ready handshake: %v: %w", err, models.ErrConnectionFailure)
	}
	if ready.Op != "ready" || ready.SessionID == "" {
		conn.Close()
		return fmt.Errorf("node sent %q before ready: %w", ready.Op, models.ErrConnectionFailure)
	}

	c.mu.Lock()
	c.conn = conn
	c.sessionID = ready.SessionID
	c.mu.Unlock()

	log.WithFields(log.Fields{
		"address":   c.config.Address,
		"sessionID": ready.SessionID,
	}).Info("Connected to the audio node")

	go c.readLoop(ctx, conn, botUserID)
	c.idleOnce.Do(func() {
		go c.idleLoop(ctx)
	})

	return nil
}

func (c *Client) dial(ctx context.Context, botUserID string) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", c.config.Password)
	header.Set("User-Id", botUserID)
	header.Set("Client-Name", "dusko/1.0")

	wsURL := fmt.Sprintf("ws://%s/v4/websocket", c.config.Address)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, header)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// readLoop decodes node events and republishes them on the event bus. On a
// socket error it reconnects with backoff until the context is cancelled;
// guild players on the node survive the gap.
func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn, botUserID string) {
	for {
		var msg wsMessage
		if err := conn.ReadJSON(&msg); err != nil {
			conn.Close()

			c.mu.Lock()
			closed := c.closed
			c.mu.Unlock()
			if closed || ctx.Err() != nil {
				return
			}

			log.Warnf("Audio node event socket dropped: %v", err)
			if !c.reconnect(ctx, botUserID) {
				return
			}
			return
		}

		c.handleMessage(ctx, msg)
	}
}

// reconnect retries the event socket with a capped backoff. Returns false
// when the context ended first. Each successful dial starts a fresh read
// loop, so the caller's loop exits either way.
func (c *Client) reconnect(ctx context.Context, botUserID string) bool {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(backoff):
		}

		if err := c.Connect(ctx, botUserID); err != nil {
			log.Warnf("Audio node reconnect failed, retrying in %s: %v", backoff, err)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}

		log.Info("Audio node event socket re-established")
		return true
	}
}

func (c *Client) handleMessage(ctx context.Context, msg wsMessage) {
	switch msg.Op {
	case "playerUpdate":
		guildID, err := strconv.ParseInt(msg.GuildID, 10, 64)
		if err != nil || msg.State == nil {
			return
		}
		c.bus.Emit(ctx, events.PlayerUpdateEvent{
			GuildID:   guildID,
			Connected: msg.State.Connected,
			Position:  msg.State.Position,
		})

	case "event":
		guildID, err := strconv.ParseInt(msg.GuildID, 10, 64)
		if err != nil {
			return
		}
		c.handlePlayerEvent(ctx, guildID, msg)

	case "stats":
		// Node load statistics are not consumed

	default:
		log.Debugf("Ignoring unknown node op %q", msg.Op)
	}
}

func (c *Client) handlePlayerEvent(ctx context.Context, guildID int64, msg wsMessage) {
	var trackURI string
	if msg.Track != nil {
		trackURI = msg.Track.Info.URI
	}

	switch msg.Type {
	case "TrackStartEvent":
		c.markActive(guildID)
		c.bus.Emit(ctx, events.TrackStartEvent{GuildID: guildID, TrackURI: trackURI})

	case "TrackEndEvent":
		c.markIdle(guildID)
		c.bus.Emit(ctx, events.TrackEndEvent{
			GuildID:      guildID,
			TrackURI:     trackURI,
			Reason:       msg.Reason,
			MayStartNext: mayStartNext(msg.Reason),
		})

	case "TrackExceptionEvent", "TrackStuckEvent":
		// Surfaced as a track end so the session can move on
		c.markIdle(guildID)
		c.bus.Emit(ctx, events.TrackEndEvent{
			GuildID:      guildID,
			TrackURI:     trackURI,
			Reason:       "loadFailed",
			MayStartNext: true,
		})

	case "WebSocketClosedEvent":
		log.WithFields(log.Fields{"guildID": guildID}).Debug("Node reported discord voice socket closed")

	default:
		log.Debugf("Ignoring unknown node event type %q", msg.Type)
	}
}

// idleLoop emits a player-inactive event for guild players that have had
// nothing sounding for the configured threshold. Subscribers recheck current
// session state before tearing anything down, so a stale emission is safe.
func (c *Client) idleLoop(ctx context.Context) {
	if c.config.IdleTimeout <= 0 {
		return
	}

	ticker := time.NewTicker(c.config.IdleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			var expired []int64
			c.mu.Lock()
			for guildID, since := range c.idleSince {
				if now.Sub(since) >= c.config.IdleTimeout {
					expired = append(expired, guildID)
					delete(c.idleSince, guildID)
				}
			}
			c.mu.Unlock()

			for _, guildID := range expired {
				log.WithFields(log.Fields{"guildID": guildID}).Info("Guild player idle past threshold")
				c.bus.Emit(ctx, events.PlayerInactiveEvent{GuildID: guildID})
			}
		}
	}
}

func (c *Client) markIdle(guildID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.idleSince[guildID]; !ok {
		c.idleSince[guildID] = time.Now()
	}
}

func (c *Client) markActive(guildID int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.idleSince, guildID)
}

// Close shuts the event socket down for good
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// Search resolves a URL or search query to tracks. A bare query is wrapped
// in the node's search prefix. Playlist results are rejected with
// models.ErrUnsupported; an empty result returns no tracks and no error.
func (c *Client) Search(ctx context.Context, query string) ([]models.Track, error) {
	identifier := query
	if !strings.HasPrefix(query, "http://") && !strings.HasPrefix(query, "https://") {
		identifier = "ytsearch:" + query
	}

	endpoint := fmt.Sprintf("http://%s/v4/loadtracks?identifier=%s", c.config.Address, url.QueryEscape(identifier))
	body, err := c.rest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	var result loadResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("failed to decode load result: %w", err)
	}

	switch result.LoadType {
	case "track":
		var track restTrack
		if err := json.Unmarshal(result.Data, &track); err != nil {
			return nil, fmt.Errorf("failed to decode track: %w", err)
		}
		return []models.Track{track.toModel()}, nil

	case "search":
		var tracks []restTrack
		if err := json.Unmarshal(result.Data, &tracks); err != nil {
			return nil, fmt.Errorf("failed to decode search results: %w", err)
		}
		out := make([]models.Track, 0, len(tracks))
		for _, t := range tracks {
			out = append(out, t.toModel())
		}
		return out, nil

	case "playlist":
		return nil, fmt.Errorf("playlists: %w", models.ErrUnsupported)

	case "empty":
		return nil, nil

	case "error":
		var exc loadException
		if err := json.Unmarshal(result.Data, &exc); err == nil && exc.Message != "" {
			return nil, fmt.Errorf("node failed to load %q: %s", query, exc.Message)
		}
		return nil, fmt.Errorf("node failed to load %q", query)

	default:
		return nil, fmt.Errorf("unknown load type %q", result.LoadType)
	}
}

// Play starts the given track on the guild's node player
func (c *Client) Play(ctx context.Context, guildID int64, track models.Track) error {
	encoded := track.Encoded
	err := c.updatePlayer(ctx, guildID, playerUpdateRequest{
		Track: &trackUpdate{Encoded: &encoded},
	})
	if err != nil {
		return err
	}
	c.markActive(guildID)
	return nil
}

// Pause suspends or resumes the guild's node player
func (c *Client) Pause(ctx context.Context, guildID int64, paused bool) error {
	return c.updatePlayer(ctx, guildID, playerUpdateRequest{Paused: &paused})
}

// Stop clears the guild player's current track without destroying the player
func (c *Client) Stop(ctx context.Context, guildID int64) error {
	err := c.updatePlayer(ctx, guildID, playerUpdateRequest{
		Track: &trackUpdate{Encoded: nil},
	})
	if err != nil {
		return err
	}
	c.markIdle(guildID)
	return nil
}

// Destroy removes the guild's player from the node entirely
func (c *Client) Destroy(ctx context.Context, guildID int64) error {
	sessionID := c.currentSessionID()
	if sessionID == "" {
		return fmt.Errorf("no node session: %w", models.ErrConnectionFailure)
	}

	c.markActive(guildID) // drop idle tracking for the destroyed player

	endpoint := fmt.Sprintf("http://%s/v4/sessions/%s/players/%d", c.config.Address, sessionID, guildID)
	_, err := c.rest(ctx, http.MethodDelete, endpoint, nil)
	return err
}

// SubmitVoiceUpdate hands the chat platform's voice credentials for a guild
// to the node, which then owns the actual voice transport
func (c *Client) SubmitVoiceUpdate(ctx context.Context, guildID int64, voice VoiceUpdate) error {
	err := c.updatePlayer(ctx, guildID, playerUpdateRequest{Voice: &voice})
	if err != nil {
		return err
	}
	c.markIdle(guildID) // a fresh player starts with nothing sounding
	return nil
}

func (c *Client) updatePlayer(ctx context.Context, guildID int64, update playerUpdateRequest) error {
	sessionID := c.currentSessionID()
	if sessionID == "" {
		return fmt.Errorf("no node session: %w", models.ErrConnectionFailure)
	}

	payload, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("failed to encode player update: %w", err)
	}

	endpoint := fmt.Sprintf("http://%s/v4/sessions/%s/players/%d?noReplace=false", c.config.Address, sessionID, guildID)
	_, err = c.rest(ctx, http.MethodPatch, endpoint, payload)
	return err
}

func (c *Client) currentSessionID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessionID
}

func (c *Client) rest(ctx context.Context, method, endpoint string, payload []byte) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("failed to build node request: %w", err)
	}
	req.Header.Set("Authorization", c.config.Password)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("node request %s %s: %v: %w", method, endpoint, err, models.ErrConnectionFailure)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read node response: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("node returned 404 for %s: %w", endpoint, models.ErrNotFound)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("node returned %d for %s %s: %s", resp.StatusCode, method, endpoint, strings.TrimSpace(string(data)))
	}

	return data, nil
}

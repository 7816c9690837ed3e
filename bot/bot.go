package bot

import (
	"context"
	"fmt"

	"github.com/bwmarrin/discordgo"
	log "github.com/sirupsen/logrus"

	"dusko/bot/features/music"
	"dusko/bot/features/panel"
	"dusko/events"
	"dusko/node"
	"dusko/player"
	"dusko/service"
)

// Config holds bot configuration
type Config struct {
	Token string
	// GuildID scopes slash command registration to one guild when set;
	// empty registers commands globally
	GuildID       string
	StayWhenAlone bool
}

type Bot struct {
	config   Config
	session  *discordgo.Session
	registry *player.Registry
	panels   *service.PanelService

	panelFeature *panel.Feature
	musicFeature *music.Feature
}

// New creates the Discord session, builds the session registry and panel
// service on top of it, opens the gateway and registers commands
func New(config Config, nodeClient *node.Client, panelRepo service.PanelRepository, eventBus *events.Bus) (*Bot, error) {
	dg, err := discordgo.New("Bot " + config.Token)
	if err != nil {
		return nil, fmt.Errorf("error creating discord session: %w", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildMessages | discordgo.IntentsGuildVoiceStates

	voice := newVoiceManager(dg, nodeClient, config.StayWhenAlone)
	registry := player.NewRegistry(nodeClient, voice)
	panels := service.NewPanelService(panelRepo, registry, NewMessenger(dg), panel.NewRenderer())

	bot := &Bot{
		config:   config,
		session:  dg,
		registry: registry,
		panels:   panels,
	}
	bot.musicFeature = music.New(registry, nodeClient, panels)
	bot.panelFeature = panel.New(panels, registry, bot.musicFeature)

	voice.onEmptyChannel = func(guildID int64) {
		ctx := context.Background()
		registry.Destroy(ctx, guildID)
		bot.reconcile(ctx, guildID)
	}

	// Register slash command handlers
	dg.AddHandler(bot.handleCommands)

	// Register component and modal interaction handlers
	dg.AddHandler(bot.handleInteractions)

	// Voice plumbing for the audio node
	dg.AddHandler(voice.handleVoiceStateUpdate)
	dg.AddHandler(voice.handleVoiceServerUpdate)

	// Open websocket connection
	if err := dg.Open(); err != nil {
		return nil, fmt.Errorf("error opening connection: %w", err)
	}

	// Register slash commands with Discord
	if err := bot.registerCommands(); err != nil {
		dg.Close()
		return nil, fmt.Errorf("error registering commands: %w", err)
	}

	bot.subscribeNodeEvents(eventBus)

	return bot, nil
}

// UserID returns the bot's own Discord user ID
func (b *Bot) UserID() string {
	return b.session.State.User.ID
}

// ReconcileAll sweeps every stored panel binding into agreement with current
// session state. Run once after startup.
func (b *Bot) ReconcileAll(ctx context.Context) error {
	return b.panels.ReconcileAll(ctx)
}

// Shutdown disconnects every playback session and closes the gateway
func (b *Bot) Shutdown(ctx context.Context) error {
	b.registry.Shutdown(ctx)
	return b.session.Close()
}

func (b *Bot) handleCommands(s *discordgo.Session, i *discordgo.InteractionCreate) {
	if i.Type != discordgo.InteractionApplicationCommand {
		return
	}

	switch i.ApplicationCommandData().Name {
	case "music":
		b.musicFeature.HandleCommand(s, i)
	case "create-player":
		b.panelFeature.HandleCommand(s, i)
	}
}

func (b *Bot) handleInteractions(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionMessageComponent, discordgo.InteractionModalSubmit:
		b.panelFeature.HandleInteraction(s, i)
	}
}

// subscribeNodeEvents wires audio node events into queue advancement and
// panel reconciliation. Reconcile recomputes from current state, so a stale
// event at worst causes a redundant pass.
func (b *Bot) subscribeNodeEvents(eventBus *events.Bus) {
	eventBus.Subscribe(events.EventTypeTrackStart, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.TrackStartEvent); ok {
			b.reconcile(ctx, e.GuildID)
		}
	})

	eventBus.Subscribe(events.EventTypePlayerUpdate, func(ctx context.Context, event events.Event) {
		if e, ok := event.(events.PlayerUpdateEvent); ok {
			b.reconcile(ctx, e.GuildID)
		}
	})

	eventBus.Subscribe(events.EventTypeTrackEnd, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.TrackEndEvent)
		if !ok {
			return
		}
		if session := b.registry.Get(e.GuildID); session != nil && e.MayStartNext {
			if err := session.AdvanceQueue(ctx); err != nil {
				log.WithError(err).WithField("guildID", e.GuildID).Error("Failed to advance queue")
			}
		}
		b.reconcile(ctx, e.GuildID)
	})

	eventBus.Subscribe(events.EventTypePlayerInactive, func(ctx context.Context, event events.Event) {
		e, ok := event.(events.PlayerInactiveEvent)
		if !ok {
			return
		}
		// Recheck before tearing down; the session may have started
		// playing since the node flagged it idle
		session := b.registry.Get(e.GuildID)
		if session != nil && session.State().Connected() && !session.Snapshot().Playing() {
			log.WithField("guildID", e.GuildID).Info("Session idle past threshold, disconnecting")
			b.registry.Destroy(ctx, e.GuildID)
		}
		b.reconcile(ctx, e.GuildID)
	})
}

func (b *Bot) reconcile(ctx context.Context, guildID int64) {
	if err := b.panels.Reconcile(ctx, guildID); err != nil {
		log.WithError(err).WithField("guildID", guildID).Error("Failed to reconcile player panel")
	}
}

package cmd

import (
	"context"
	"fmt"
	"log"
	"time"

	"dusko/bot"
	"dusko/config"
	"dusko/database"
	"dusko/events"
	"dusko/node"
	"dusko/repository"
)

// Run initializes and starts the application
func Run(ctx context.Context) error {
	log.Println("Starting dusko bot...")

	// Load configuration
	cfg := config.Get()

	// Initialize database connection
	log.Println("Connecting to database...")
	db, err := database.NewConnection(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	log.Println("Database connection established successfully")

	// Initialize event bus
	eventBus := events.NewBus()

	// Initialize audio node client
	nodeClient := node.NewClient(node.Config{
		Address:     cfg.NodeAddress,
		Password:    cfg.NodePassword,
		IdleTimeout: cfg.NodeIdleTimeout,
	}, eventBus)

	// Initialize panel binding repository
	panelRepo := repository.NewPanelRepository(db)

	// Initialize Discord bot
	log.Println("Initializing Discord bot...")
	botConfig := bot.Config{
		Token:         cfg.DiscordToken,
		GuildID:       cfg.DiscordGuildID,
		StayWhenAlone: cfg.StayWhenAlone,
	}
	discordBot, err := bot.New(botConfig, nodeClient, panelRepo, eventBus)
	if err != nil {
		return fmt.Errorf("failed to initialize Discord bot: %w", err)
	}
	log.Println("Discord bot initialized successfully")

	// Connect to the audio node now that the bot's user ID is known
	log.Println("Connecting to audio node...")
	if err := nodeClient.Connect(ctx, discordBot.UserID()); err != nil {
		return fmt.Errorf("failed to connect to audio node: %w", err)
	}
	log.Println("Audio node connection established successfully")

	// Bring stored panels into agreement with reality
	if err := discordBot.ReconcileAll(ctx); err != nil {
		log.Printf("Startup panel sweep reported errors: %v", err)
	}

	// Wait for context cancellation
	log.Printf("Bot is running in %s mode...", cfg.Environment)
	<-ctx.Done()

	// Cleanup resources
	log.Println("Shutting down bot...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Disconnect playback sessions and close the Discord connection
	if err := discordBot.Shutdown(shutdownCtx); err != nil {
		log.Printf("Error closing Discord bot: %v", err)
	}

	// Close the audio node connection
	if err := nodeClient.Close(); err != nil {
		log.Printf("Error closing audio node client: %v", err)
	}

	// Close database connection
	log.Println("Closing database connection...")
	db.Close()

	log.Println("Shutdown completed")
	return nil
}

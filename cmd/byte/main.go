package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"

	"github.com/XenioxYT/discord-chatbot/internal/agent"
	"github.com/XenioxYT/discord-chatbot/internal/bot"
	"github.com/XenioxYT/discord-chatbot/internal/config"
	"github.com/XenioxYT/discord-chatbot/internal/disclose"
	"github.com/XenioxYT/discord-chatbot/internal/history"
	"github.com/XenioxYT/discord-chatbot/internal/llm"
	"github.com/XenioxYT/discord-chatbot/internal/logger"
	"github.com/XenioxYT/discord-chatbot/internal/tools"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.L.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	logger.SetLevel(cfg.LogLevel)

	var archive *history.Archive
	if cfg.ArchivePath != "" {
		archive, err = history.OpenArchive(cfg.ArchivePath)
		if err != nil {
			logger.L.Warn("transcript archive unavailable", "path", cfg.ArchivePath, "error", err)
		} else {
			defer archive.Close()
		}
	}

	store := history.NewStore(cfg.LLM.SystemPrompt, archive)
	tracker := disclose.NewTracker()

	ctx := context.Background()
	registry := tools.NewRegistry()
	search, err := tools.NewGoogleSearchTool(ctx, cfg.Google)
	if err != nil {
		logger.L.Error("failed to build search tool", "error", err)
		os.Exit(1)
	}
	registry.Register(search)
	registry.Register(tools.NewScrapeTool(&http.Client{Timeout: cfg.Timeouts.ToolCall}, cfg.Limits.ScrapeMaxChars))
	registry.Register(tools.NewClockTool())
	for _, closer := range tools.RegisterMCPServers(ctx, registry, cfg.MCPServers) {
		defer closer.Close()
	}

	orchestrator := agent.New(llm.NewClient(cfg.LLM), store, registry, cfg)

	session, err := discordgo.New("Bot " + cfg.Discord.Token)
	if err != nil {
		logger.L.Error("failed to create Discord session", "error", err)
		os.Exit(1)
	}
	session.Identify.Intents = discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMessageReactions |
		discordgo.IntentsDirectMessages |
		discordgo.IntentsMessageContent

	if err := session.Open(); err != nil {
		logger.L.Error("failed to open Discord session", "error", err)
		os.Exit(1)
	}
	defer session.Close()

	selfID := session.State.User.ID
	b := bot.New(
		bot.NewSession(session),
		orchestrator,
		store,
		tracker,
		cfg,
		selfID,
		bot.TriggerWordPredicate(cfg.Discord.TriggerWord),
	)
	b.Register(session)

	logger.L.Info("logged on", "user", session.State.User.Username, "id", selfID)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop

	logger.L.Info("shutting down")
	// Give in-flight turns a moment to drain before the deferred closes run.
	time.Sleep(time.Second)
}

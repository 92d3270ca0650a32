package config

import (
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	Discord    DiscordConfig     `mapstructure:"discord"`
	LLM        LLMConfig         `mapstructure:"llm"`
	Google     GoogleConfig      `mapstructure:"google"`
	Limits     LimitsConfig      `mapstructure:"limits"`
	Reveal     RevealConfig      `mapstructure:"reveal"`
	Timeouts   TimeoutsConfig    `mapstructure:"timeouts"`
	MCPServers []MCPServerConfig `mapstructure:"mcp_servers"`
	LogLevel   string            `mapstructure:"log_level"`
	// ArchivePath is the SQLite transcript database; empty disables archiving.
	ArchivePath string `mapstructure:"archive_path"`
}

// DiscordConfig holds the Discord transport configuration.
type DiscordConfig struct {
	Token string `mapstructure:"token"`
	// TriggerWord engages the model only when it appears in a message
	// (case-insensitive substring). The bot's display name by convention.
	TriggerWord string `mapstructure:"trigger_word"`
	// BotName is stripped when the model echoes it as a "Name: " reply prefix.
	BotName string `mapstructure:"bot_name"`
}

// LLMConfig holds the model configuration.
type LLMConfig struct {
	Provider     string  `mapstructure:"provider"`
	BaseURL      string  `mapstructure:"base_url"`
	APIKey       string  `mapstructure:"api_key"`
	Model        string  `mapstructure:"model"`
	Temperature  float32 `mapstructure:"temperature"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	SystemPrompt string  `mapstructure:"system_prompt"`
}

// GoogleConfig holds the Custom Search credentials.
type GoogleConfig struct {
	APIKey string `mapstructure:"api_key"`
	CSEID  string `mapstructure:"cse_id"`
	// Geolocation passed to the search API (e.g. "uk").
	GL string `mapstructure:"gl"`
}

// LimitsConfig holds the size budgets.
type LimitsConfig struct {
	// TokenLimit is the conversation history budget in model tokens.
	TokenLimit int `mapstructure:"token_limit"`
	// ScrapeMaxChars caps scraped page text before it enters history.
	ScrapeMaxChars int `mapstructure:"scrape_max_chars"`
	// ChunkSize is the transport's outbound message size limit.
	ChunkSize int `mapstructure:"chunk_size"`
}

// RevealConfig governs the source-disclosure toggle reaction.
type RevealConfig struct {
	// Emoji is the reaction that toggles the sources panel.
	Emoji string `mapstructure:"emoji"`
	// SelfBaseline makes the bot pre-add the reaction to eligible replies,
	// so a human toggle is visible as count > Threshold.
	SelfBaseline bool `mapstructure:"self_baseline"`
	// Threshold is the reaction count above which the panel shows and at or
	// below which it hides.
	Threshold int `mapstructure:"threshold"`
}

// TimeoutsConfig bounds the external calls a turn may make.
type TimeoutsConfig struct {
	ModelCall time.Duration `mapstructure:"model_call"`
	ToolCall  time.Duration `mapstructure:"tool_call"`
}

// ClientType is the transport used to reach an MCP server.
type ClientType string

const (
	ClientTypeSSE            ClientType = "sse"
	ClientTypeStreamableHTTP ClientType = "streamable_http"
	ClientTypeStdio          ClientType = "stdio"
)

// MCPServerConfig describes one external MCP tool server.
type MCPServerConfig struct {
	Name    string            `mapstructure:"name"`
	Type    ClientType        `mapstructure:"type"`
	URL     string            `mapstructure:"url"`
	Headers map[string]string `mapstructure:"headers"`
	Command string            `mapstructure:"command"`
	Args    []string          `mapstructure:"args"`
	Env     map[string]string `mapstructure:"env"`
}

// Load reads config.yaml (or the file named by CONFIG_PATH) and applies
// defaults for everything the file omits.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if path := os.Getenv("CONFIG_PATH"); path != "" {
		viper.SetConfigFile(path)
	}

	viper.SetDefault("discord.trigger_word", "byte")
	viper.SetDefault("discord.bot_name", "Byte")
	viper.SetDefault("llm.model", "gpt-3.5-turbo-16k")
	viper.SetDefault("llm.temperature", 1.0)
	viper.SetDefault("llm.max_tokens", 750)
	viper.SetDefault("google.gl", "uk")
	viper.SetDefault("limits.token_limit", 16000)
	viper.SetDefault("limits.scrape_max_chars", 1750)
	viper.SetDefault("limits.chunk_size", 2000)
	viper.SetDefault("reveal.emoji", "\U0001F4DA")
	viper.SetDefault("reveal.self_baseline", true)
	viper.SetDefault("reveal.threshold", 1)
	viper.SetDefault("timeouts.model_call", 60*time.Second)
	viper.SetDefault("timeouts.tool_call", 30*time.Second)
	viper.SetDefault("log_level", "info")
	viper.SetDefault("archive_path", "transcripts.db")
	viper.SetDefault("llm.system_prompt",
		"You are a helpful bot that can answer questions and perform tasks, such as searching the web and scraping web pages.")

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

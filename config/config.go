package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the bot.
type Config struct {
	BotToken         string
	GuildID          string
	DBPath           string
	TickInterval     time.Duration
	TransportTimeout time.Duration
}

// Load reads configuration from the environment with sane defaults. A
// .env file in the working directory is applied first, if present.
// Token validation is left to the caller, since flags may supply it.
func Load() Config {
	godotenv.Load()

	cfg := Config{
		BotToken:         strings.TrimSpace(os.Getenv("BOT_TOKEN")),
		GuildID:          strings.TrimSpace(os.Getenv("GUILD_ID")),
		DBPath:           strings.TrimSpace(os.Getenv("DB_PATH")),
		TickInterval:     parseDuration(os.Getenv("TICK_INTERVAL")),
		TransportTimeout: parseDuration(os.Getenv("TRANSPORT_TIMEOUT")),
	}

	if cfg.DBPath == "" {
		cfg.DBPath = "birdbot.db"
	}

	if cfg.TickInterval == 0 {
		cfg.TickInterval = time.Minute
	}

	if cfg.TransportTimeout == 0 {
		cfg.TransportTimeout = 10 * time.Second
	}

	return cfg
}

func parseDuration(raw string) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d <= 0 {
		return 0
	}
	return d
}

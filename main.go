package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"

	"birdbot/bot"
	"birdbot/config"
	"birdbot/dal"
	"birdbot/scheduler"
)

var (
	botToken = flag.String(
		"token",
		"",
		"Bot access token. Overrides BOT_TOKEN.",
	)
	guildID = flag.String(
		"guild",
		"",
		"Test guild ID. If not set, slash commands will be registered globally.",
	)
	dbPath = flag.String(
		"dbPath",
		"",
		"SQLite database file path. Overrides DB_PATH.",
	)
)

func main() {
	flag.Parse()

	cfg := config.Load()
	if *botToken != "" {
		cfg.BotToken = *botToken
	}
	if *guildID != "" {
		cfg.GuildID = *guildID
	}
	if *dbPath != "" {
		cfg.DBPath = *dbPath
	}

	if cfg.BotToken == "" {
		fmt.Println("-token or BOT_TOKEN must be provided.")
		fmt.Println()
		flag.Usage()
		os.Exit(1)
	}

	db := dal.InitDB(cfg.DBPath)
	birdbot := bot.New(cfg.BotToken, cfg.GuildID, db)
	defer birdbot.Shutdown(cfg.GuildID)

	sched := scheduler.New(
		bot.NewConfigStore(db),
		bot.NewRecordSource(db),
		bot.NewTransport(birdbot.Session()),
		nil,
		cfg.TransportTimeout,
	)
	if err := sched.Start(cfg.TickInterval); err != nil {
		fmt.Printf("Failed to start scheduler: %v\n", err)
		os.Exit(1)
	}
	defer sched.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)
	<-stop
}

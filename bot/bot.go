package bot

import (
	"fmt"
	"log"
	"time"

	"birdbot/cmdlog"
	"birdbot/discordutils"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
)

type commandHandler = func(
	*discordgo.InteractionCreate,
	*gorm.DB,
)

var botCommands = []*discordgo.ApplicationCommand{
	{
		Name:        "birthday-set",
		Description: "Saves your birthday to the birthday database.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type: discordgo.ApplicationCommandOptionString,
				Name: "date",
				Description: fmt.Sprintf(
					"Your birthday (format: %v)",
					BirthdayFormat,
				),
				Required: true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "year",
				Description: "Your birth year, if you're happy to share it.",
				Required:    false,
			},
		},
	}, {
		Name:        "birthday-show",
		Description: "Looks up a birthday in the birthday database.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "The user to look up. Defaults to you.",
				Required:    false,
			},
		},
	}, {
		Name:        "birthday-remove",
		Description: "Removes your birthday from the birthday database.",
	}, {
		Name:        "birthday-upcoming",
		Description: "Shows upcoming birthdays.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "days",
				Description: "How many days to look ahead. Defaults to 7.",
				Required:    false,
			},
		},
	}, {
		Name:        "bdset-time",
		Description: "Sets the time of day for birthday announcements.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "time",
				Description: "The UTC time of day, e.g. 7:00 or 3PM. Seconds are ignored.",
				Required:    true,
			},
		},
	}, {
		Name:        "bdset-channel",
		Description: "Sets the channel to use for announcements.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionChannel,
				Name:        "channel",
				Description: "The channel to use.",
				Required:    true,
			},
		},
	}, {
		Name:        "bdset-role",
		Description: "Sets the role to apply on users' birthdays.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionRole,
				Name:        "role",
				Description: "The role to use on birthdays.",
				Required:    true,
			},
		},
	}, {
		Name:        "bdset-msg-year",
		Description: "Sets the announcement for users who shared their birth year.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "message",
				Description: "The message. Placeholders: {mention}, {name}, {new_age}.",
				Required:    true,
			},
		},
	}, {
		Name:        "bdset-msg-noyear",
		Description: "Sets the announcement for users who didn't share their birth year.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "message",
				Description: "The message. Placeholders: {mention}, {name}.",
				Required:    true,
			},
		},
	}, {
		Name:        "bdset-settings",
		Description: "Shows this server's birthday settings.",
	}, {
		Name:        "bdset-force",
		Description: "Force-sets a user's birthday.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionUser,
				Name:        "user",
				Description: "The user to set a birthday for.",
				Required:    true,
			},
			{
				Type: discordgo.ApplicationCommandOptionString,
				Name: "date",
				Description: fmt.Sprintf(
					"The birthday (format: %v)",
					BirthdayFormat,
				),
				Required: true,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "year",
				Description: "The birth year, if known.",
				Required:    false,
			},
		},
	}, {
		Name:        "cmdlog",
		Description: "Shows recent command usage.",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "amount",
				Description: "How many entries to show. Defaults to 10.",
				Required:    false,
			},
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "cap-kb",
				Description: "Sets a new cache size cap, in KB.",
				Required:    false,
			},
		},
	}, {
		Name:        "timezones",
		Description: "Shows the current time around the world.",
	},
}

type userID string

// Bot represents an instance of the birdbot discord bot.
type Bot struct {
	session            *discordgo.Session
	db                 *gorm.DB
	usageLog           *cmdlog.Log
	registeredCommands []*discordgo.ApplicationCommand
	commandHandlers    map[string]commandHandler
	lastSaveUsage      map[userID]time.Time
}

func (bot *Bot) initSession(token string, db *gorm.DB) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		log.Fatalf("Failed to create discord session: %v", err)
	}

	session.Identify.Intents = discordgo.IntentsAll

	session.AddHandler(func(*discordgo.Session, *discordgo.Ready) {
		log.Println("Bot is up!")
	})

	session.AddHandler(func(
		s *discordgo.Session,
		i *discordgo.InteractionCreate,
	) {
		if i.Type != discordgo.InteractionApplicationCommand {
			return
		}
		if handler, ok := bot.commandHandlers[i.ApplicationCommandData().Name]; ok {
			bot.logUsage(i, false)
			handler(i, db)
		}
	})

	err = session.Open()
	if err != nil {
		log.Fatalf("Failed to open session: %v", err)
	}

	bot.session = session
}

func (bot *Bot) registerCommands(guildID string) {
	for _, command := range botCommands {
		newCommand, err := bot.session.ApplicationCommandCreate(
			bot.session.State.User.ID,
			guildID,
			command,
		)
		bot.registeredCommands = append(bot.registeredCommands, newCommand)
		if err != nil {
			log.Fatalf("Failed to create %v command: %v", command.Name, err)
		}
		log.Printf("Created %v command.", command.Name)
	}
}

// New initialises a new birdbot instance.
func New(
	token string,
	guildID string,
	db *gorm.DB,
) Bot {
	bot := Bot{
		db:            db,
		usageLog:      cmdlog.New(cmdlog.DefaultMaxBytes),
		lastSaveUsage: make(map[userID]time.Time),
	}

	bot.commandHandlers = map[string]commandHandler{
		"birthday-set":      bot.BirthdaySet,
		"birthday-show":     bot.BirthdayShow,
		"birthday-remove":   bot.BirthdayRemove,
		"birthday-upcoming": bot.BirthdayUpcoming,
		"bdset-time":        bot.SetTime,
		"bdset-channel":     bot.SetChannel,
		"bdset-role":        bot.SetRole,
		"bdset-msg-year":    bot.SetMessageWithYear,
		"bdset-msg-noyear":  bot.SetMessageWithoutYear,
		"bdset-settings":    bot.Settings,
		"bdset-force":       bot.ForceSet,
		"cmdlog":            bot.CmdLog,
		"timezones":         bot.Timezones,
	}

	bot.initSession(token, db)
	bot.registerCommands(guildID)

	return bot
}

// Session exposes the underlying discord session, for the scheduler
// transport.
func (bot *Bot) Session() *discordgo.Session {
	return bot.session
}

// Shutdown shuts down the bot cleanly.
func (bot *Bot) Shutdown(guildID string) {
	log.Println("Shutting down.")

	for _, command := range bot.registeredCommands {
		err := bot.session.ApplicationCommandDelete(
			bot.session.State.User.ID,
			guildID,
			command.ID,
		)
		if err != nil {
			log.Printf("Failed to delete %v command: %v", command.Name, err)
		} else {
			log.Printf("Deleted %v command.", command.Name)
		}
	}

	bot.session.Close()
}

// logUsage records a command invocation in the in-memory usage log.
func (bot *Bot) logUsage(i *discordgo.InteractionCreate, checkFailed bool) {
	user := discordutils.InteractionUser(i.Interaction)

	entry := cmdlog.Entry{
		Command:     i.ApplicationCommandData().Name,
		UserID:      user.ID,
		UserName:    user.Username,
		ChannelID:   i.ChannelID,
		GuildID:     i.GuildID,
		Time:        time.Now(),
		CheckFailed: checkFailed,
	}

	if channel, err := bot.session.State.Channel(i.ChannelID); err == nil {
		entry.ChannelName = "#" + channel.Name
	}
	if guild, err := bot.session.State.Guild(i.GuildID); err == nil {
		entry.GuildName = guild.Name
	}

	bot.usageLog.Add(entry)
	log.Println(entry.String())
}

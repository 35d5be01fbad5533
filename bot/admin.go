package bot

import (
	"fmt"
	"log"
	"strings"
	"time"

	"birdbot/birthday"
	"birdbot/dal"
	"birdbot/discordutils"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"gorm.io/gorm"
)

var timeLayouts = []string{"15:04:05", "15:04", "15", "3:04PM", "3PM"}

// requireAdmin checks the invoking member for admin permissions,
// replying and logging a check failure if they don't have them.
func (bot *Bot) requireAdmin(i *discordgo.InteractionCreate) bool {
	guild, err := bot.session.State.Guild(i.GuildID)
	if err != nil {
		log.Panicf(
			"We have received an interaction from a guild we're not in... " +
				"this should never happen!",
		)
	}

	if discordutils.MemberHasAdminPermissions(guild, i.Member) {
		return true
	}

	bot.logUsage(i, true)
	discordutils.SendFollowup("Nice try.", i.Interaction, bot.session)
	return false
}

// SetTime sets the time of day for birthday announcements. Seconds are
// truncated to whole minutes.
func (bot *Bot) SetTime(
	i *discordgo.InteractionCreate,
	db *gorm.DB,
) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	if !bot.requireAdmin(i) {
		return
	}

	raw := strings.ToUpper(strings.TrimSpace(options(i)["time"].StringValue()))

	var parsed time.Time
	var err error
	for _, layout := range timeLayouts {
		parsed, err = time.Parse(layout, raw)
		if err == nil {
			break
		}
	}

	var reply string

	if err != nil {
		reply = "I couldn't understand that time. " +
			"Please use the UTC time, for example `12AM` for midnight or `7:00`."
	} else {
		utcSeconds := parsed.Hour()*3600 + parsed.Minute()*60

		if err := dal.SetTime(i.GuildID, utcSeconds, db); err != nil {
			reply = fmt.Sprintf("Failed to set new time: %v", err)
		} else {
			reply = fmt.Sprintf(
				"Time set! I'll send the birthday message and update the "+
					"birthday role at %v UTC.",
				parsed.Format("15:04"),
			)
		}
	}

	discordutils.SendFollowup(reply, i.Interaction, bot.session)
}

// SetChannel sets the channel to use for announcements.
func (bot *Bot) SetChannel(
	i *discordgo.InteractionCreate,
	db *gorm.DB,
) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	if !bot.requireAdmin(i) {
		return
	}

	channel := options(i)["channel"].ChannelValue(nil)

	var reply string

	if err := dal.SetChannel(i.GuildID, channel.ID, db); err != nil {
		reply = fmt.Sprintf("Failed to set new channel: %v", err)
	} else {
		reply = fmt.Sprintf(
			"I will now use %v for announcements.",
			channel.Mention(),
		)
	}

	discordutils.SendFollowup(reply, i.Interaction, bot.session)
}

// SetRole sets the role to assign on users' birthdays.
func (bot *Bot) SetRole(
	i *discordgo.InteractionCreate,
	db *gorm.DB,
) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	if !bot.requireAdmin(i) {
		return
	}

	role := options(i)["role"].RoleValue(bot.session, i.GuildID)

	var reply string

	if discordutils.RoleAllowsAdminPermissions(role) {
		reply = "That role allows admin permissions, that's a bad idea."
	} else if err := dal.SetRole(i.GuildID, role.ID, db); err != nil {
		reply = fmt.Sprintf("Failed to set new role: %v", err)
	} else {
		reply = fmt.Sprintf(
			"I will now assign %v on birthdays.",
			role.Mention(),
		)
	}

	discordutils.SendFollowup(reply, i.Interaction, bot.session)
}

// SetMessageWithYear sets the announcement template used when the birth
// year is known.
func (bot *Bot) SetMessageWithYear(
	i *discordgo.InteractionCreate,
	db *gorm.DB,
) {
	bot.setMessage(i, db, true)
}

// SetMessageWithoutYear sets the announcement template used when the
// birth year is unknown.
func (bot *Bot) SetMessageWithoutYear(
	i *discordgo.InteractionCreate,
	db *gorm.DB,
) {
	bot.setMessage(i, db, false)
}

func (bot *Bot) setMessage(
	i *discordgo.InteractionCreate,
	db *gorm.DB,
	withYear bool,
) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	if !bot.requireAdmin(i) {
		return
	}

	message := options(i)["message"].StringValue()

	if len(message) > birthday.MaxMessageLen {
		discordutils.SendFollowup(
			fmt.Sprintf(
				"That message is too long! It needs to be under %v characters.",
				birthday.MaxMessageLen,
			),
			i.Interaction,
			bot.session,
		)
		return
	}

	var err error
	if withYear {
		err = dal.SetMessageWithYear(i.GuildID, message, db)
	} else {
		err = dal.SetMessageWithoutYear(i.GuildID, message, db)
	}

	if err != nil {
		discordutils.SendFollowup(
			fmt.Sprintf("Failed to set message: %v", err),
			i.Interaction,
			bot.session,
		)
		return
	}

	// Preview the message as the scheduler would send it.
	var preview string
	if withYear {
		age := 20
		preview = birthday.FormatMessage(
			message,
			i.Member.Mention(),
			i.Member.User.Username,
			&age,
		)
		discordutils.SendFollowup(
			"Message set. Here's how it will look, if you're turning 20:\n"+preview,
			i.Interaction,
			bot.session,
		)
	} else {
		preview = birthday.FormatMessage(
			message,
			i.Member.Mention(),
			i.Member.User.Username,
			nil,
		)
		discordutils.SendFollowup(
			"Message set. Here's how it will look:\n"+preview,
			i.Interaction,
			bot.session,
		)
	}
}

// Settings shows the guild's current birthday settings.
func (bot *Bot) Settings(
	i *discordgo.InteractionCreate,
	db *gorm.DB,
) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	if !bot.requireAdmin(i) {
		return
	}

	settings, err := dal.GetSettings(i.GuildID, db)
	if err != nil {
		discordutils.SendFollowup(
			"Nothing is set up for this server yet.",
			i.Interaction,
			bot.session,
		)
		return
	}

	channel := "not set"
	if settings.ChannelID != "" {
		channel = "<#" + settings.ChannelID + ">"
	}

	role := "not set"
	if settings.RoleID != "" {
		role = "<@&" + settings.RoleID + ">"
	}

	timeOfDay := "not set"
	if settings.TimeSet() {
		secs := *settings.TimeUTCSeconds
		timeOfDay = fmt.Sprintf("%02d:%02d UTC", secs/3600, secs%3600/60)
	}

	withYear := settings.MessageWYear
	if withYear == "" {
		withYear = "No message set"
	}
	withoutYear := settings.MessageWOYear
	if withoutYear == "" {
		withoutYear = "No message set"
	}

	reply := fmt.Sprintf(
		"Settings for this server:\n"+
			"Channel: %v\nRole: %v\nTime: %v\n"+
			"Message with year:\n```%v```\n"+
			"Message without year:\n```%v```",
		channel,
		role,
		timeOfDay,
		withYear,
		withoutYear,
	)

	discordutils.SendFollowup(reply, i.Interaction, bot.session)
}

// ForceSet force-sets another user's birthday.
func (bot *Bot) ForceSet(
	i *discordgo.InteractionCreate,
	db *gorm.DB,
) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	if !bot.requireAdmin(i) {
		return
	}

	opts := options(i)
	user := opts["user"].UserValue(nil)

	date, err := time.Parse(BirthdayExample, opts["date"].StringValue())
	if err != nil {
		discordutils.SendFollowup(
			fmt.Sprintf(
				"Invalid date given! Make sure you use %v format. "+
					"For example: %v (2nd January).",
				BirthdayFormat,
				BirthdayExample,
			),
			i.Interaction,
			bot.session,
		)
		return
	}

	var year *int
	if opt, ok := opts["year"]; ok {
		y := int(opt.IntValue())
		year = &y
	}

	reply := bot.saveBirthday(i.GuildID, user.ID, user.Mention(), date, year, db)
	discordutils.SendFollowup(reply, i.Interaction, bot.session)
}

// CmdLog shows recent command usage, and optionally adjusts the cache
// size cap.
func (bot *Bot) CmdLog(
	i *discordgo.InteractionCreate,
	db *gorm.DB,
) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	if !bot.requireAdmin(i) {
		return
	}

	opts := options(i)

	if opt, ok := opts["cap-kb"]; ok {
		bot.usageLog.SetMaxBytes(int(opt.IntValue()) * 1000)
	}

	amount := 10
	if opt, ok := opts["amount"]; ok {
		amount = int(opt.IntValue())
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf(
		"Cached %v entries, using about %v.\n```\n",
		bot.usageLog.Len(),
		humanize.Bytes(uint64(bot.usageLog.SizeBytes())),
	))
	for _, entry := range bot.usageLog.Recent(amount) {
		builder.WriteString(entry.String())
		builder.WriteByte('\n')
	}
	builder.WriteString("```")

	discordutils.SendFollowup(builder.String(), i.Interaction, bot.session)
}

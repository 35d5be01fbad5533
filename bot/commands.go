package bot

import (
	"fmt"
	"log"
	"time"

	"birdbot/birthday"
	"birdbot/dal"
	"birdbot/discordutils"
	"birdbot/models"
	"birdbot/timechannel"

	"github.com/bwmarrin/discordgo"
	"github.com/dustin/go-humanize"
	"gorm.io/gorm"
)

// Birthday date format used when setting a birthday.
const (
	BirthdayExample         = "01-02"
	BirthdayFormat          = "MM-DD"
	BirthdayResponseExample = "January 2"
)

const birthdaySaveCooldown = 3 * 24 * time.Hour
const confirmTimeout = time.Minute
const prettyDateFormat = "2006-01-02"
const prettyTimeFormat = "15:04:05"

func options(i *discordgo.InteractionCreate) map[string]*discordgo.ApplicationCommandInteractionDataOption {
	opts := i.ApplicationCommandData().Options
	byName := make(map[string]*discordgo.ApplicationCommandInteractionDataOption, len(opts))
	for _, opt := range opts {
		byName[opt.Name] = opt
	}
	return byName
}

// BirthdaySet saves the caller's birthday.
func (bot *Bot) BirthdaySet(
	i *discordgo.InteractionCreate,
	db *gorm.DB,
) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	var reply string

	if ok, lastUse := bot.userCanChangeBirthday(userID(i.Member.User.ID)); !ok {
		nextUse := lastUse.Add(birthdaySaveCooldown)
		reply = fmt.Sprintf(
			"You last changed your birthday on %v at %v. "+
				"You can change it again %v.",
			lastUse.Format(prettyDateFormat),
			lastUse.Format(prettyTimeFormat),
			humanize.Time(nextUse),
		)
	} else {
		opts := options(i)

		date, err := time.Parse(BirthdayExample, opts["date"].StringValue())
		if err != nil {
			reply = fmt.Sprintf(
				"Invalid date given! Make sure you use %v format. "+
					"For example: %v (2nd January).",
				BirthdayFormat,
				BirthdayExample,
			)
			discordutils.SendFollowup(reply, i.Interaction, bot.session)
			return
		}

		var year *int
		if opt, ok := opts["year"]; ok {
			y := int(opt.IntValue())
			year = &y
		}

		reply = bot.saveBirthday(i.GuildID, i.Member.User.ID, i.Member.Mention(), date, year, db)
	}

	discordutils.SendFollowup(reply, i.Interaction, bot.session)
}

// saveBirthday validates and stores a birthday, returning the reply to
// show the caller.
func (bot *Bot) saveBirthday(
	guildID string,
	targetID string,
	targetMention string,
	date time.Time,
	year *int,
	db *gorm.DB,
) string {
	if year != nil {
		if *year < birthday.MinYear {
			return fmt.Sprintf(
				"I'm sorry, but I can't set a birthday to before %v.",
				birthday.MinYear,
			)
		}

		born := time.Date(
			*year, date.Month(), date.Day(),
			0, 0, 0, 0, time.UTC,
		)
		if born.After(time.Now().UTC()) {
			return "You can't be born in the future!"
		}
	}

	err := dal.UpsertBirthday(
		models.Birthday{
			GuildID: guildID,
			UserID:  targetID,
			Month:   uint(date.Month()),
			Day:     uint(date.Day()),
			Year:    year,
		},
		db,
	)
	if err != nil {
		return fmt.Sprintf(
			"Failed to set %v's birthday: %v",
			targetMention,
			err,
		)
	}

	bot.lastSaveUsage[userID(targetID)] = time.Now()

	if year != nil {
		return fmt.Sprintf(
			"Saved %v, %v as %v's birthday.",
			date.Format(BirthdayResponseExample),
			*year,
			targetMention,
		)
	}
	return fmt.Sprintf(
		"Saved %v as %v's birthday.",
		date.Format(BirthdayResponseExample),
		targetMention,
	)
}

// BirthdayShow looks up a birthday in the database.
func (bot *Bot) BirthdayShow(
	i *discordgo.InteractionCreate,
	db *gorm.DB,
) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	var user *discordgo.User
	if opt, ok := options(i)["user"]; ok {
		user = opt.UserValue(nil)
	} else {
		user = i.Member.User
	}

	var reply string

	record, err := dal.GetBirthday(i.GuildID, user.ID, db)
	if err != nil {
		reply = fmt.Sprintf(
			"%v hasn't registered their birthday with me yet.",
			user.Mention(),
		)
	} else {
		birthDate := time.Date(
			0,
			time.Month(record.Month),
			int(record.Day),
			0, 0, 0, 0,
			time.UTC,
		)
		if record.Year != nil {
			reply = fmt.Sprintf(
				"I've got %v's birthday down as %v, %v.",
				user.Mention(),
				birthDate.Format(BirthdayResponseExample),
				*record.Year,
			)
		} else {
			reply = fmt.Sprintf(
				"I've got %v's birthday down as %v.",
				user.Mention(),
				birthDate.Format(BirthdayResponseExample),
			)
		}
	}

	discordutils.SendFollowup(reply, i.Interaction, bot.session)
}

// BirthdayRemove removes the caller's birthday, after a button-press
// confirmation.
func (bot *Bot) BirthdayRemove(
	i *discordgo.InteractionCreate,
	db *gorm.DB,
) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	var reply string

	if ok, lastUse := bot.userCanChangeBirthday(userID(i.Member.User.ID)); !ok {
		nextUse := lastUse.Add(birthdaySaveCooldown)
		reply = fmt.Sprintf(
			"You last changed your birthday on %v at %v. "+
				"You can change it again %v.",
			lastUse.Format(prettyDateFormat),
			lastUse.Format(prettyTimeFormat),
			humanize.Time(nextUse),
		)
		discordutils.SendFollowup(reply, i.Interaction, bot.session)
		return
	}

	if _, err := dal.GetBirthday(i.GuildID, i.Member.User.ID, db); err != nil {
		discordutils.SendFollowup(
			"I don't seem to have your birthday on record. "+
				"Isn't that a lovely coincidence?",
			i.Interaction,
			bot.session,
		)
		return
	}

	confirmed, err := discordutils.WaitForYesNo(
		bot.session,
		i.ChannelID,
		i.Member.User.ID,
		"Are you sure you want me to forget your birthday?",
		confirmTimeout,
	)
	if err != nil {
		discordutils.SendFollowup(
			"Took too long, cancelling.",
			i.Interaction,
			bot.session,
		)
		return
	}
	if !confirmed {
		discordutils.SendFollowup("Cancelled.", i.Interaction, bot.session)
		return
	}

	err = dal.DeleteBirthday(i.GuildID, i.Member.User.ID, db)
	if err != nil {
		reply = fmt.Sprintf(
			"I'm unable to delete your birthday from my database: %v\n"+
				"Please contact an admin to resolve this issue.",
			err,
		)
	} else {
		bot.lastSaveUsage[userID(i.Member.User.ID)] = time.Now()
		reply = "I have erased your birthday from my database."
	}

	discordutils.SendFollowup(reply, i.Interaction, bot.session)
}

// BirthdayUpcoming shows birthdays coming up within the given number of
// days, grouped by day.
func (bot *Bot) BirthdayUpcoming(
	i *discordgo.InteractionCreate,
	db *gorm.DB,
) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	days := 7
	if opt, ok := options(i)["days"]; ok {
		days = int(opt.IntValue())
	}

	if days < 1 || days > birthday.MaxWindowDays {
		discordutils.SendFollowup(
			fmt.Sprintf(
				"You must enter a number of days greater than 0 and smaller than %v.",
				birthday.MaxWindowDays+1,
			),
			i.Interaction,
			bot.session,
		)
		return
	}

	records, err := dal.ListBirthdays(i.GuildID, db)
	if err != nil {
		log.Printf("Failed to list birthdays for guild %v: %v", i.GuildID, err)
		discordutils.SendFollowup(
			"Something went wrong looking up birthdays, sorry.",
			i.Interaction,
			bot.session,
		)
		return
	}

	due, err := birthday.DueWithin(toRecords(records), time.Now().UTC(), days)
	if err != nil {
		discordutils.SendFollowup(err.Error(), i.Interaction, bot.session)
		return
	}

	if len(due) == 0 {
		discordutils.SendFollowup(
			"No upcoming birthdays.",
			i.Interaction,
			bot.session,
		)
		return
	}

	embed := upcomingEmbed(due)
	bot.session.FollowupMessageCreate(
		i.Interaction,
		true,
		&discordgo.WebhookParams{
			Embeds: []*discordgo.MessageEmbed{embed},
		},
	)
}

// upcomingEmbed groups due birthdays into one embed field per day.
// Discord caps embeds at 25 fields.
func upcomingEmbed(due []birthday.Due) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{Title: "Upcoming Birthdays"}

	var field *discordgo.MessageEmbedField
	lastDays := -1

	for _, d := range due {
		if d.DaysUntil != lastDays {
			if len(embed.Fields) == 25 {
				embed.Description = "Too many days to display. I've had to stop at 25."
				break
			}

			name := "Today"
			if d.DaysUntil > 0 {
				name = d.Occurrence.Format("January 2")
			}
			field = &discordgo.MessageEmbedField{Name: name}
			embed.Fields = append(embed.Fields, field)
			lastDays = d.DaysUntil
		}

		line := "<@" + d.UserID + ">"
		if d.NewAge != nil {
			if d.DaysUntil == 0 {
				line += fmt.Sprintf(" turns %v", *d.NewAge)
			} else {
				line += fmt.Sprintf(" will turn %v", *d.NewAge)
			}
		}

		if field.Value != "" {
			field.Value += "\n"
		}
		field.Value += line
	}

	return embed
}

// Timezones shows the current time in a set of well-known timezones.
func (bot *Bot) Timezones(
	i *discordgo.InteractionCreate,
	db *gorm.DB,
) {
	discordutils.AckInteraction(i.Interaction, bot.session)

	discordutils.SendFollowup(
		"```\n"+timechannel.Render(time.Now())+"```",
		i.Interaction,
		bot.session,
	)
}

func (bot *Bot) userCanChangeBirthday(uid userID) (bool, *time.Time) {
	if lastUse, ok := bot.lastSaveUsage[uid]; ok {
		nextUse := lastUse.Add(birthdaySaveCooldown)
		return nextUse.Before(time.Now()), &lastUse
	}
	return true, nil
}

func toRecords(birthdays []models.Birthday) []birthday.Record {
	records := make([]birthday.Record, len(birthdays))
	for i, b := range birthdays {
		records[i] = birthday.Record{
			UserID: b.UserID,
			Month:  int(b.Month),
			Day:    int(b.Day),
			Year:   b.Year,
		}
	}
	return records
}

package bot

import (
	"context"
	"log"

	"birdbot/birthday"
	"birdbot/dal"
	"birdbot/discordutils"
	"birdbot/scheduler"

	"github.com/bwmarrin/discordgo"
	"gorm.io/gorm"
)

// Transport adapts a discord session to the scheduler's transport
// interface.
type Transport struct {
	session *discordgo.Session
}

// NewTransport wraps the given session.
func NewTransport(session *discordgo.Session) *Transport {
	return &Transport{session: session}
}

// SendMessage sends content to the given channel.
func (t *Transport) SendMessage(ctx context.Context, channelID string, content string) error {
	_, err := t.session.ChannelMessageSend(
		channelID,
		content,
		discordgo.WithContext(ctx),
	)
	return err
}

// GrantRole adds the role to the member, unless they already hold it.
func (t *Transport) GrantRole(
	ctx context.Context,
	guildID string,
	memberID string,
	roleID string,
) error {
	if member, err := t.session.State.Member(guildID, memberID); err == nil {
		if discordutils.MemberHasRole(member, roleID) {
			return nil
		}
	}

	err := t.session.GuildMemberRoleAdd(
		guildID,
		memberID,
		roleID,
		discordgo.WithContext(ctx),
	)
	if err == nil {
		log.Printf("Added birthday role to %v in %v", memberID, guildID)
	}
	return err
}

// RevokeRole removes the role from the member.
func (t *Transport) RevokeRole(
	ctx context.Context,
	guildID string,
	memberID string,
	roleID string,
) error {
	err := t.session.GuildMemberRoleRemove(
		guildID,
		memberID,
		roleID,
		discordgo.WithContext(ctx),
	)
	if err == nil {
		log.Printf("Removed birthday role from %v in %v", memberID, guildID)
	}
	return err
}

// MemberName resolves a member's display name, preferring their nick.
func (t *Transport) MemberName(guildID string, memberID string) string {
	member, err := t.session.State.Member(guildID, memberID)
	if err != nil {
		member, err = t.session.GuildMember(guildID, memberID)
		if err != nil {
			return memberID
		}
	}

	if member.Nick != "" {
		return member.Nick
	}
	return member.User.Username
}

// ConfigStore adapts the DAL to the scheduler's config store interface.
type ConfigStore struct {
	db *gorm.DB
}

// NewConfigStore wraps the given database.
func NewConfigStore(db *gorm.DB) *ConfigStore {
	return &ConfigStore{db: db}
}

// List returns every guild's notification config.
func (s *ConfigStore) List() ([]scheduler.Config, error) {
	settings, err := dal.ListSettings(s.db)
	if err != nil {
		return nil, err
	}

	configs := make([]scheduler.Config, len(settings))
	for i, guild := range settings {
		configs[i] = scheduler.Config{
			GuildID:            guild.GuildID,
			ChannelID:          guild.ChannelID,
			RoleID:             guild.RoleID,
			TimeUTCSeconds:     guild.TimeUTCSeconds,
			MessageWithYear:    guild.MessageWYear,
			MessageWithoutYear: guild.MessageWOYear,
			LastNotified:       guild.LastNotified,
		}
	}
	return configs, nil
}

// MarkNotified records the date the guild's notification last fired.
func (s *ConfigStore) MarkNotified(guildID string, date string) error {
	return dal.MarkNotified(guildID, date, s.db)
}

// RecordSource adapts the DAL to the scheduler's birthday source.
type RecordSource struct {
	db *gorm.DB
}

// NewRecordSource wraps the given database.
func NewRecordSource(db *gorm.DB) *RecordSource {
	return &RecordSource{db: db}
}

// List returns the guild's stored birthdays.
func (s *RecordSource) List(guildID string) ([]birthday.Record, error) {
	birthdays, err := dal.ListBirthdays(guildID, s.db)
	if err != nil {
		return nil, err
	}
	return toRecords(birthdays), nil
}

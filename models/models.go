package models

import "gorm.io/gorm"

// Birthday represents a member's birthday within a guild. Year is nil
// when the member chose not to share it.
type Birthday struct {
	gorm.Model
	GuildID string `gorm:"uniqueIndex:idx_guild_user"`
	UserID  string `gorm:"uniqueIndex:idx_guild_user"`
	Month   uint
	Day     uint
	Year    *int
}

// GuildSettings holds a guild's notification configuration. A guild is
// considered set up once channel, role and time have all been set.
type GuildSettings struct {
	gorm.Model
	GuildID        string `gorm:"uniqueIndex"`
	ChannelID      string
	RoleID         string
	TimeUTCSeconds *int
	MessageWYear   string
	MessageWOYear  string
	// LastNotified is the UTC date ("2006-01-02") the birthday
	// notification last fired, or empty if it never has.
	LastNotified string
}

// TimeSet reports whether a notification time has been configured.
func (s *GuildSettings) TimeSet() bool {
	return s.TimeUTCSeconds != nil
}

// Configured reports whether the guild has completed setup.
func (s *GuildSettings) Configured() bool {
	return s.ChannelID != "" && s.RoleID != "" && s.TimeSet()
}

package dal

import (
	"log"

	"birdbot/models"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// InitDB creates and returns a database connection.
func InitDB(dbPath string) *gorm.DB {
	db, err := gorm.Open(
		sqlite.Open(dbPath),
		&gorm.Config{},
	)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	log.Println("Connected to database.")

	db.AutoMigrate(&models.Birthday{}, &models.GuildSettings{})
	log.Println("Migrated database.")

	return db
}

// UpsertBirthday inserts or updates the given birthday.
func UpsertBirthday(birthday models.Birthday, db *gorm.DB) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}, {Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"month", "day", "year"}),
	}).Create(&birthday).Error
}

// GetBirthday gets the birthday for the given guild & user.
func GetBirthday(
	guildID string,
	userID string,
	db *gorm.DB,
) (*models.Birthday, error) {
	var birthday models.Birthday
	err := db.Where(
		&models.Birthday{
			GuildID: guildID,
			UserID:  userID,
		},
	).Take(&birthday).Error

	if err != nil {
		return nil, err
	}

	return &birthday, nil
}

// DeleteBirthday removes the birthday for the given guild & user.
func DeleteBirthday(guildID string, userID string, db *gorm.DB) error {
	return db.Where(
		&models.Birthday{
			GuildID: guildID,
			UserID:  userID,
		},
	).Delete(&models.Birthday{}).Error
}

// ListBirthdays returns every birthday stored for the given guild.
func ListBirthdays(guildID string, db *gorm.DB) ([]models.Birthday, error) {
	var birthdays []models.Birthday
	err := db.Where(&models.Birthday{GuildID: guildID}).Find(&birthdays).Error
	if err != nil {
		return nil, err
	}
	return birthdays, nil
}

// GetSettings returns the saved settings for the given guild.
func GetSettings(guildID string, db *gorm.DB) (*models.GuildSettings, error) {
	var settings models.GuildSettings
	err := db.Where(
		&models.GuildSettings{GuildID: guildID},
	).Take(&settings).Error

	if err != nil {
		return nil, err
	}

	return &settings, nil
}

// ListSettings returns the settings rows for every guild that has one.
func ListSettings(db *gorm.DB) ([]models.GuildSettings, error) {
	var settings []models.GuildSettings
	err := db.Find(&settings).Error
	if err != nil {
		return nil, err
	}
	return settings, nil
}

func upsertSettings(db *gorm.DB, settings models.GuildSettings, columns []string) error {
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "guild_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(&settings).Error
}

// SetChannel sets the announcement channel for the given guild.
func SetChannel(guildID string, channelID string, db *gorm.DB) error {
	return upsertSettings(
		db,
		models.GuildSettings{GuildID: guildID, ChannelID: channelID},
		[]string{"channel_id"},
	)
}

// SetRole sets the birthday role for the given guild.
func SetRole(guildID string, roleID string, db *gorm.DB) error {
	return upsertSettings(
		db,
		models.GuildSettings{GuildID: guildID, RoleID: roleID},
		[]string{"role_id"},
	)
}

// SetTime sets the notification time, in seconds from UTC midnight,
// for the given guild.
func SetTime(guildID string, utcSeconds int, db *gorm.DB) error {
	return upsertSettings(
		db,
		models.GuildSettings{GuildID: guildID, TimeUTCSeconds: &utcSeconds},
		[]string{"time_utc_seconds"},
	)
}

// SetMessageWithYear sets the template used when a birth year is known.
func SetMessageWithYear(guildID string, message string, db *gorm.DB) error {
	return upsertSettings(
		db,
		models.GuildSettings{GuildID: guildID, MessageWYear: message},
		[]string{"message_w_year"},
	)
}

// SetMessageWithoutYear sets the template used when no birth year is known.
func SetMessageWithoutYear(guildID string, message string, db *gorm.DB) error {
	return upsertSettings(
		db,
		models.GuildSettings{GuildID: guildID, MessageWOYear: message},
		[]string{"message_wo_year"},
	)
}

// MarkNotified records the UTC date the guild's notification last fired.
func MarkNotified(guildID string, date string, db *gorm.DB) error {
	return db.Model(&models.GuildSettings{}).
		Where(&models.GuildSettings{GuildID: guildID}).
		Update("last_notified", date).Error
}

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"birdbot/birthday"

	"github.com/robfig/cron/v3"
)

// DateLayout is how notified-dates are stored and compared.
const DateLayout = "2006-01-02"

// ErrTransport is returned when every send to a guild's channel failed,
// leaving the guild to retry on the next tick.
var ErrTransport = errors.New("transport failure")

// Config is one guild's notification configuration.
type Config struct {
	GuildID            string
	ChannelID          string
	RoleID             string
	TimeUTCSeconds     *int
	MessageWithYear    string
	MessageWithoutYear string
	// LastNotified is the UTC date the notification last fired, in
	// DateLayout, or empty.
	LastNotified string
}

// Configured reports whether the guild finished setup. Unconfigured
// guilds are skipped on every tick.
func (c Config) Configured() bool {
	return c.ChannelID != "" && c.RoleID != "" && c.TimeUTCSeconds != nil
}

// Transport sends messages and manages roles on the chat platform.
type Transport interface {
	SendMessage(ctx context.Context, channelID string, content string) error
	GrantRole(ctx context.Context, guildID string, userID string, roleID string) error
	RevokeRole(ctx context.Context, guildID string, userID string, roleID string) error
	// MemberName resolves a member's display name for templating.
	MemberName(guildID string, userID string) string
}

// ConfigStore reads guild configurations and records the per-day
// notified marker.
type ConfigStore interface {
	List() ([]Config, error)
	MarkNotified(guildID string, date string) error
}

// RecordSource lists a guild's stored birthdays.
type RecordSource interface {
	List(guildID string) ([]birthday.Record, error)
}

// State is a guild's position in the daily notification cycle.
type State int

const (
	// StateIdle means the guild's notification time has not arrived,
	// or the guild is not configured.
	StateIdle State = iota
	// StateDue means the time has passed and today's notification has
	// not fired yet.
	StateDue
	// StateNotified means today's notification already fired.
	StateNotified
)

// GuildState derives the guild's cycle state at the given instant.
func GuildState(cfg Config, now time.Time) State {
	if !cfg.Configured() {
		return StateIdle
	}
	now = now.UTC()
	if cfg.LastNotified == now.Format(DateLayout) {
		return StateNotified
	}
	if secondsIntoDay(now) < *cfg.TimeUTCSeconds {
		return StateIdle
	}
	return StateDue
}

func secondsIntoDay(t time.Time) int {
	return t.Hour()*3600 + t.Minute()*60 + t.Second()
}

// Scheduler fires each guild's birthday notification once per UTC day,
// at the guild's configured time.
type Scheduler struct {
	store       ConfigStore
	records     RecordSource
	transport   Transport
	now         func() time.Time
	callTimeout time.Duration
	cron        *cron.Cron
}

// New creates a scheduler. The now function may be nil, in which case
// time.Now is used.
func New(
	store ConfigStore,
	records RecordSource,
	transport Transport,
	now func() time.Time,
	callTimeout time.Duration,
) *Scheduler {
	if now == nil {
		now = time.Now
	}
	return &Scheduler{
		store:       store,
		records:     records,
		transport:   transport,
		now:         now,
		callTimeout: callTimeout,
		// SkipIfStillRunning keeps ticks from overlapping.
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DefaultLogger),
		)),
	}
}

// Start begins ticking at the given interval.
func (s *Scheduler) Start(interval time.Duration) error {
	seconds := int(interval.Seconds())
	if seconds <= 0 {
		return fmt.Errorf("interval must be at least a second")
	}
	_, err := s.cron.AddFunc(fmt.Sprintf("@every %ds", seconds), s.Tick)
	if err != nil {
		return err
	}
	s.cron.Start()
	return nil
}

// Stop halts ticking, waiting for an in-flight tick to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Stopped birthday scheduler.")
}

// Tick runs one pass over every configured guild. Guild failures are
// logged and contained; they never stop the pass.
func (s *Scheduler) Tick() {
	configs, err := s.store.List()
	if err != nil {
		log.Printf("Failed to list guild configs: %v", err)
		return
	}

	now := s.now().UTC()
	for _, cfg := range configs {
		if err := s.tickGuild(cfg, now); err != nil {
			log.Printf(
				"Birthday pass failed for guild %v, will retry next tick: %v",
				cfg.GuildID,
				err,
			)
		}
	}
}

// tickGuild runs the notification pipeline for one guild. It returns an
// error only when the notified marker was left unset, meaning the next
// tick retries the whole guild.
func (s *Scheduler) tickGuild(cfg Config, now time.Time) error {
	if GuildState(cfg, now) != StateDue {
		return nil
	}

	records, err := s.records.List(cfg.GuildID)
	if err != nil {
		return fmt.Errorf("listing birthdays: %w", err)
	}

	due, err := birthday.DueWithin(records, now, 0)
	if err != nil {
		return err
	}
	yesterday := birthday.TodayExact(records, now.AddDate(0, 0, -1))

	if err := s.announce(cfg, due); err != nil {
		return err
	}
	s.reconcileRoles(cfg, due, yesterday)

	today := now.Format(DateLayout)
	if err := s.store.MarkNotified(cfg.GuildID, today); err != nil {
		return fmt.Errorf("recording notified date: %w", err)
	}
	return nil
}

// announce sends one templated message per due member. Individual
// failures are logged and skipped; only a wholesale failure, where no
// message got through at all, is returned so the marker stays unset.
func (s *Scheduler) announce(cfg Config, due []birthday.Due) error {
	failed := 0
	for _, d := range due {
		template := cfg.MessageWithoutYear
		if d.NewAge != nil {
			template = cfg.MessageWithYear
		}

		content := birthday.FormatMessage(
			template,
			mention(d.UserID),
			s.transport.MemberName(cfg.GuildID, d.UserID),
			d.NewAge,
		)

		ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
		err := s.transport.SendMessage(ctx, cfg.ChannelID, content)
		cancel()
		if err != nil {
			failed++
			log.Printf(
				"Failed to announce %v's birthday in %v: %v",
				d.UserID,
				cfg.ChannelID,
				err,
			)
		}
	}

	if len(due) > 0 && failed == len(due) {
		return fmt.Errorf("%w: all %d sends failed", ErrTransport, failed)
	}
	return nil
}

// reconcileRoles grants the birthday role to today's members and
// revokes it from members whose birthday was yesterday. Role failures
// are logged only; they never block the day marker.
func (s *Scheduler) reconcileRoles(cfg Config, due []birthday.Due, yesterday []string) {
	today := make(map[string]bool, len(due))

	for _, d := range due {
		today[d.UserID] = true

		ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
		err := s.transport.GrantRole(ctx, cfg.GuildID, d.UserID, cfg.RoleID)
		cancel()
		if err != nil {
			log.Printf(
				"Failed to grant birthday role to %v in %v: %v",
				d.UserID,
				cfg.GuildID,
				err,
			)
		}
	}

	for _, userID := range yesterday {
		if today[userID] {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), s.callTimeout)
		err := s.transport.RevokeRole(ctx, cfg.GuildID, userID, cfg.RoleID)
		cancel()
		if err != nil {
			log.Printf(
				"Failed to revoke birthday role from %v in %v: %v",
				userID,
				cfg.GuildID,
				err,
			)
		}
	}
}

func mention(userID string) string {
	return "<@" + userID + ">"
}

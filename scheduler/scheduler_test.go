package scheduler

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"birdbot/birthday"
)

type fakeTransport struct {
	mu       sync.Mutex
	sent     []string
	granted  []string
	revoked  []string
	failFor  map[string]bool
	failAll  bool
	attempts int
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{failFor: make(map[string]bool)}
}

func (t *fakeTransport) SendMessage(_ context.Context, channelID string, content string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.attempts++
	for userID := range t.failFor {
		if strings.Contains(content, userID) {
			return errors.New("send failed")
		}
	}
	if t.failAll {
		return errors.New("send failed")
	}

	t.sent = append(t.sent, channelID+": "+content)
	return nil
}

func (t *fakeTransport) GrantRole(_ context.Context, guildID, userID, roleID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.granted = append(t.granted, guildID+"/"+userID)
	return nil
}

func (t *fakeTransport) RevokeRole(_ context.Context, guildID, userID, roleID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.revoked = append(t.revoked, guildID+"/"+userID)
	return nil
}

func (t *fakeTransport) MemberName(guildID, userID string) string {
	return "name-" + userID
}

type fakeStore struct {
	mu      sync.Mutex
	configs []Config
	marked  []string
}

func (s *fakeStore) List() ([]Config, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Config(nil), s.configs...), nil
}

func (s *fakeStore) MarkNotified(guildID string, date string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.marked = append(s.marked, guildID+"@"+date)
	for i := range s.configs {
		if s.configs[i].GuildID == guildID {
			s.configs[i].LastNotified = date
		}
	}
	return nil
}

type fakeRecords struct {
	byGuild map[string][]birthday.Record
}

func (r *fakeRecords) List(guildID string) ([]birthday.Record, error) {
	return r.byGuild[guildID], nil
}

func intPtr(n int) *int {
	return &n
}

const noon = 12 * 3600

func testConfig() Config {
	return Config{
		GuildID:            "g1",
		ChannelID:          "c1",
		RoleID:             "r1",
		TimeUTCSeconds:     intPtr(noon),
		MessageWithYear:    "{mention} ({name}) turns {new_age}!",
		MessageWithoutYear: "Happy birthday {mention} ({name})!",
	}
}

// at returns a fixed UTC instant on 2024-06-15 at the given
// seconds-into-day offset.
func at(secondsIntoDay int) time.Time {
	return time.Date(2024, time.June, 15, 0, 0, secondsIntoDay, 0, time.UTC)
}

func newTestScheduler(
	store *fakeStore,
	records *fakeRecords,
	transport *fakeTransport,
	now time.Time,
) *Scheduler {
	return New(store, records, transport, func() time.Time { return now }, time.Second)
}

func TestGuildStateTransitions(t *testing.T) {
	cfg := testConfig()

	if got := GuildState(cfg, at(noon-1)); got != StateIdle {
		t.Errorf("one second early: got %v, want StateIdle", got)
	}
	if got := GuildState(cfg, at(noon)); got != StateDue {
		t.Errorf("at the configured time: got %v, want StateDue", got)
	}

	cfg.LastNotified = "2024-06-15"
	if got := GuildState(cfg, at(noon)); got != StateNotified {
		t.Errorf("already notified: got %v, want StateNotified", got)
	}

	// Midnight rolls the date over, so yesterday's marker no longer
	// holds and the cycle restarts.
	nextDay := at(noon).AddDate(0, 0, 1)
	if got := GuildState(cfg, nextDay); got != StateDue {
		t.Errorf("next day: got %v, want StateDue", got)
	}

	unconfigured := Config{GuildID: "g2"}
	if got := GuildState(unconfigured, at(noon)); got != StateIdle {
		t.Errorf("unconfigured: got %v, want StateIdle", got)
	}
}

func TestTickSendsAndReconcilesRoles(t *testing.T) {
	store := &fakeStore{configs: []Config{testConfig()}}
	records := &fakeRecords{byGuild: map[string][]birthday.Record{
		"g1": {
			{UserID: "u1", Month: 6, Day: 15, Year: intPtr(2000)},
			{UserID: "u2", Month: 6, Day: 15},
			{UserID: "u3", Month: 6, Day: 14},
		},
	}}
	transport := newFakeTransport()

	newTestScheduler(store, records, transport, at(noon)).Tick()

	if len(transport.sent) != 2 {
		t.Fatalf("got %d sends, want 2: %v", len(transport.sent), transport.sent)
	}
	if want := "c1: <@u1> (name-u1) turns 24!"; transport.sent[0] != want {
		t.Errorf("got %q, want %q", transport.sent[0], want)
	}
	if want := "c1: Happy birthday <@u2> (name-u2)!"; transport.sent[1] != want {
		t.Errorf("got %q, want %q", transport.sent[1], want)
	}

	if len(transport.granted) != 2 {
		t.Errorf("got grants %v, want u1 and u2", transport.granted)
	}
	if len(transport.revoked) != 1 || transport.revoked[0] != "g1/u3" {
		t.Errorf("got revokes %v, want only g1/u3", transport.revoked)
	}

	if len(store.marked) != 1 || store.marked[0] != "g1@2024-06-15" {
		t.Errorf("got marks %v, want g1@2024-06-15", store.marked)
	}
}

func TestTickBeforeConfiguredTime(t *testing.T) {
	store := &fakeStore{configs: []Config{testConfig()}}
	records := &fakeRecords{byGuild: map[string][]birthday.Record{
		"g1": {{UserID: "u1", Month: 6, Day: 15}},
	}}
	transport := newFakeTransport()

	newTestScheduler(store, records, transport, at(noon-1)).Tick()

	if len(transport.sent) != 0 || len(store.marked) != 0 {
		t.Errorf(
			"expected nothing before the configured time, got sends %v marks %v",
			transport.sent,
			store.marked,
		)
	}
}

func TestTickIdempotentWithinDay(t *testing.T) {
	store := &fakeStore{configs: []Config{testConfig()}}
	records := &fakeRecords{byGuild: map[string][]birthday.Record{
		"g1": {{UserID: "u1", Month: 6, Day: 15}},
	}}
	transport := newFakeTransport()

	sched := newTestScheduler(store, records, transport, at(noon))
	sched.Tick()
	sched.Tick()

	if len(transport.sent) != 1 {
		t.Errorf("got %d sends over two ticks, want 1", len(transport.sent))
	}
	if len(transport.granted) != 1 {
		t.Errorf("got %d grants over two ticks, want 1", len(transport.granted))
	}
	if len(store.marked) != 1 {
		t.Errorf("got %d marks over two ticks, want 1", len(store.marked))
	}
}

func TestTickPartialSendFailure(t *testing.T) {
	store := &fakeStore{configs: []Config{testConfig()}}
	records := &fakeRecords{byGuild: map[string][]birthday.Record{
		"g1": {
			{UserID: "u1", Month: 6, Day: 15},
			{UserID: "u2", Month: 6, Day: 15},
		},
	}}
	transport := newFakeTransport()
	transport.failFor["u1"] = true

	newTestScheduler(store, records, transport, at(noon)).Tick()

	// Best effort: u2 is still announced and both get the role, and
	// the day is marked done.
	if len(transport.sent) != 1 || !strings.Contains(transport.sent[0], "u2") {
		t.Errorf("got sends %v, want only u2's", transport.sent)
	}
	if len(transport.granted) != 2 {
		t.Errorf("got grants %v, want both members", transport.granted)
	}
	if len(store.marked) != 1 {
		t.Errorf("got marks %v, want the day marked done", store.marked)
	}
}

func TestTickTotalSendFailureRetriesNextTick(t *testing.T) {
	store := &fakeStore{configs: []Config{testConfig()}}
	records := &fakeRecords{byGuild: map[string][]birthday.Record{
		"g1": {{UserID: "u1", Month: 6, Day: 15}},
	}}
	transport := newFakeTransport()
	transport.failAll = true

	sched := newTestScheduler(store, records, transport, at(noon))
	sched.Tick()

	if len(store.marked) != 0 {
		t.Fatalf("marker must stay unset when every send failed, got %v", store.marked)
	}

	transport.failAll = false
	sched.Tick()

	if len(transport.sent) != 1 {
		t.Errorf("got %d sends after recovery, want 1", len(transport.sent))
	}
	if len(store.marked) != 1 {
		t.Errorf("got marks %v, want the retry to mark the day", store.marked)
	}
}

func TestTickNoDueMembersStillMarksDay(t *testing.T) {
	store := &fakeStore{configs: []Config{testConfig()}}
	records := &fakeRecords{byGuild: map[string][]birthday.Record{
		"g1": {{UserID: "u1", Month: 1, Day: 1}},
	}}
	transport := newFakeTransport()

	newTestScheduler(store, records, transport, at(noon)).Tick()

	if len(transport.sent) != 0 {
		t.Errorf("got sends %v, want none", transport.sent)
	}
	if len(store.marked) != 1 {
		t.Errorf("got marks %v, want the quiet day marked done", store.marked)
	}
}

func TestTickSkipsUnconfiguredGuilds(t *testing.T) {
	store := &fakeStore{configs: []Config{
		{GuildID: "g1", ChannelID: "c1"},
		{GuildID: "g2", RoleID: "r2", TimeUTCSeconds: intPtr(0)},
	}}
	records := &fakeRecords{byGuild: map[string][]birthday.Record{
		"g1": {{UserID: "u1", Month: 6, Day: 15}},
		"g2": {{UserID: "u2", Month: 6, Day: 15}},
	}}
	transport := newFakeTransport()

	newTestScheduler(store, records, transport, at(noon)).Tick()

	if transport.attempts != 0 || len(store.marked) != 0 {
		t.Errorf(
			"expected unconfigured guilds untouched, got attempts %v marks %v",
			transport.attempts,
			store.marked,
		)
	}
}

func TestTickKeepsRoleAcrossConsecutiveBirthdays(t *testing.T) {
	// A member due both yesterday and today must not be revoked.
	store := &fakeStore{configs: []Config{testConfig()}}
	records := &fakeRecords{byGuild: map[string][]birthday.Record{
		"g1": {
			{UserID: "u1", Month: 6, Day: 14},
			{UserID: "u1", Month: 6, Day: 15},
		},
	}}
	transport := newFakeTransport()

	newTestScheduler(store, records, transport, at(noon)).Tick()

	if len(transport.revoked) != 0 {
		t.Errorf("got revokes %v, want none", transport.revoked)
	}
}

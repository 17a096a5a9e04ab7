package sched

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"fresherwatch/internal/domain"
)

var (
	ErrInvalidTime     = errors.New("invalid time, expected HH:MM (24h)")
	ErrInvalidTimezone = errors.New("unknown timezone")
	ErrInvalidCron     = errors.New("invalid cron expression")
	ErrNotScheduled    = errors.New("no schedule for channel")
)

// FireFunc runs one refresh-and-deliver cycle for a channel. It is invoked
// on its own goroutine per fire, so one slow channel never delays another.
// Whatever it reports, the entry is rearmed for its next occurrence; the
// next scheduled fire is the retry.
type FireFunc func(ctx context.Context, channelID string, sel domain.Selector)

// Entry is one per-channel daily schedule. At most one exists per channel;
// re-scheduling replaces it.
type Entry struct {
	ChannelID string          `json:"channelId"`
	Hour      int             `json:"hour"`
	Minute    int             `json:"minute"`
	TZ        string          `json:"tz"`
	Selector  domain.Selector `json:"selector"`
	CreatedAt time.Time       `json:"createdAt"`
}

type dailyEntry struct {
	Entry
	loc  *time.Location
	next time.Time
}

type globalEntry struct {
	expr      string
	channelID string
	sched     cron.Schedule
	next      time.Time
}

// Scheduler owns the schedule registry and the single timer loop that fires
// entries through the FireFunc.
type Scheduler struct {
	mu        sync.Mutex
	daily     map[string]*dailyEntry
	global    *globalEntry
	fire      FireFunc
	storePath string

	wake chan struct{}
	now  func() time.Time // swapped in tests
}

// New creates an empty registry. storePath may be empty to disable
// persistence (tests); otherwise daily entries are saved there as JSON and
// restored by Load.
func New(storePath string, fire FireFunc) *Scheduler {
	return &Scheduler{
		daily:     make(map[string]*dailyEntry),
		fire:      fire,
		storePath: storePath,
		wake:      make(chan struct{}, 1),
		now:       time.Now,
	}
}

// ScheduleDaily registers (or replaces) the channel's daily refresh at hhmm
// wall-clock time in tz.
func (s *Scheduler) ScheduleDaily(channelID, hhmm, tz string, sel domain.Selector) (Entry, error) {
	hour, minute, err := parseHHMM(hhmm)
	if err != nil {
		return Entry{}, err
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return Entry{}, fmt.Errorf("%w: %q", ErrInvalidTimezone, tz)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := &dailyEntry{
		Entry: Entry{
			ChannelID: channelID,
			Hour:      hour,
			Minute:    minute,
			TZ:        tz,
			Selector:  sel,
			CreatedAt: s.now(),
		},
		loc:  loc,
		next: NextDaily(s.now(), hour, minute, loc),
	}
	s.daily[channelID] = e

	if err := s.saveLocked(); err != nil {
		log.Printf("[sched] persist failed: %v", err)
	}
	s.kick()
	return e.Entry, nil
}

// Unschedule removes the channel's daily entry.
func (s *Scheduler) Unschedule(channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.daily[channelID]; !ok {
		return fmt.Errorf("%w: %s", ErrNotScheduled, channelID)
	}
	delete(s.daily, channelID)

	if err := s.saveLocked(); err != nil {
		log.Printf("[sched] persist failed: %v", err)
	}
	s.kick()
	return nil
}

// ScheduleGlobal installs the single process-wide cron entry (5-field
// expression) bound to the given channel, replacing any prior one.
func (s *Scheduler) ScheduleGlobal(expr, channelID string) error {
	schedule, err := cron.ParseStandard(expr)
	if err != nil {
		return fmt.Errorf("%w: %q: %v", ErrInvalidCron, expr, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.global = &globalEntry{
		expr:      expr,
		channelID: channelID,
		sched:     schedule,
		next:      schedule.Next(s.now()),
	}
	s.kick()
	return nil
}

// Entries lists the daily registry, sorted by channel for stable output.
func (s *Scheduler) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Entry, 0, len(s.daily))
	for _, e := range s.daily {
		out = append(out, e.Entry)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out
}

// NextFire reports the channel's next fire instant, if scheduled.
func (s *Scheduler) NextFire(channelID string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.daily[channelID]
	if !ok {
		return time.Time{}, false
	}
	return e.next, true
}

// Run drives the timer loop until ctx is cancelled. Registry changes wake
// the loop so a newly added earlier entry takes effect immediately.
func (s *Scheduler) Run(ctx context.Context) {
	for {
		next, ok := s.earliest()
		if !ok {
			select {
			case <-ctx.Done():
				return
			case <-s.wake:
				continue
			}
		}

		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-s.wake:
			timer.Stop()
		case <-timer.C:
			s.fireDue(ctx)
		}
	}
}

func (s *Scheduler) earliest() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var next time.Time
	ok := false
	for _, e := range s.daily {
		if !ok || e.next.Before(next) {
			next, ok = e.next, true
		}
	}
	if g := s.global; g != nil && (!ok || g.next.Before(next)) {
		next, ok = g.next, true
	}
	return next, ok
}

// fireDue launches the FireFunc for every entry whose instant has passed and
// rearms each for its next occurrence. Rearming happens before the fire
// runs, so a failing cycle cannot deregister anything.
func (s *Scheduler) fireDue(ctx context.Context) {
	type due struct {
		channelID string
		sel       domain.Selector
	}
	var fires []due

	s.mu.Lock()
	now := s.now()
	for _, e := range s.daily {
		if e.next.After(now) {
			continue
		}
		fires = append(fires, due{e.ChannelID, e.Selector})
		e.next = NextDaily(now, e.Hour, e.Minute, e.loc)
	}
	if g := s.global; g != nil && !g.next.After(now) {
		fires = append(fires, due{g.channelID, domain.SelectBoth})
		g.next = g.sched.Next(now)
	}
	s.mu.Unlock()

	for _, f := range fires {
		log.Printf("[sched] firing channel=%s selector=%s", f.channelID, f.sel)
		go s.fire(ctx, f.channelID, f.sel)
	}
}

func (s *Scheduler) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func parseHHMM(hhmm string) (int, int, error) {
	h, m, ok := strings.Cut(strings.TrimSpace(hhmm), ":")
	if !ok {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, hhmm)
	}
	hour, err := strconv.Atoi(h)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, hhmm)
	}
	minute, err := strconv.Atoi(m)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTime, hhmm)
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: %q out of range", ErrInvalidTime, hhmm)
	}
	return hour, minute, nil
}

type scheduleFile struct {
	Entries []Entry `json:"entries"`
}

// Load restores persisted daily entries. Entries that no longer validate
// (e.g. tz database changed) are skipped with a log line, not fatal.
func (s *Scheduler) Load() error {
	if s.storePath == "" {
		return nil
	}
	data, err := os.ReadFile(s.storePath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read schedule store: %w", err)
	}

	var f scheduleFile
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("parse schedule store: %w", err)
	}

	for _, e := range f.Entries {
		if _, err := s.ScheduleDaily(e.ChannelID, fmt.Sprintf("%02d:%02d", e.Hour, e.Minute), e.TZ, e.Selector); err != nil {
			log.Printf("[sched] skipping persisted entry channel=%s: %v", e.ChannelID, err)
		}
	}
	return nil
}

// saveLocked persists the daily registry. Caller must hold s.mu.
func (s *Scheduler) saveLocked() error {
	if s.storePath == "" {
		return nil
	}

	f := scheduleFile{Entries: make([]Entry, 0, len(s.daily))}
	for _, e := range s.daily {
		f.Entries = append(f.Entries, e.Entry)
	}
	sort.Slice(f.Entries, func(i, j int) bool { return f.Entries[i].ChannelID < f.Entries[j].ChannelID })

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.storePath), 0o755); err != nil {
		return err
	}

	tmp := s.storePath + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, s.storePath)
}

package sched

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"fresherwatch/internal/domain"
)

type fireRecorder struct {
	mu    sync.Mutex
	fired []string
	sels  []domain.Selector
	done  chan struct{}
}

func newFireRecorder(n int) *fireRecorder {
	return &fireRecorder{done: make(chan struct{}, n)}
}

func (r *fireRecorder) fire(ctx context.Context, channelID string, sel domain.Selector) {
	r.mu.Lock()
	r.fired = append(r.fired, channelID)
	r.sels = append(r.sels, sel)
	r.mu.Unlock()
	r.done <- struct{}{}
}

func (r *fireRecorder) wait(t *testing.T) {
	t.Helper()
	select {
	case <-r.done:
	case <-time.After(2 * time.Second):
		t.Fatal("fire never happened")
	}
}

func TestScheduleDailyReplaces(t *testing.T) {
	s := New("", nil)

	if _, err := s.ScheduleDaily("chan-1", "09:00", "Asia/Kolkata", domain.SelectBoth); err != nil {
		t.Fatalf("ScheduleDaily: %v", err)
	}
	if _, err := s.ScheduleDaily("chan-1", "18:30", "UTC", domain.SelectFreshersNow); err != nil {
		t.Fatalf("ScheduleDaily (replace): %v", err)
	}

	entries := s.Entries()
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	e := entries[0]
	if e.Hour != 18 || e.Minute != 30 || e.TZ != "UTC" || e.Selector != domain.SelectFreshersNow {
		t.Fatalf("entry = %+v", e)
	}
}

func TestScheduleDailyRejectsBadInput(t *testing.T) {
	s := New("", nil)

	if _, err := s.ScheduleDaily("c", "25:00", "UTC", domain.SelectBoth); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("25:00 err = %v, want ErrInvalidTime", err)
	}
	if _, err := s.ScheduleDaily("c", "9am", "UTC", domain.SelectBoth); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("9am err = %v, want ErrInvalidTime", err)
	}
	if _, err := s.ScheduleDaily("c", "9:5am", "UTC", domain.SelectBoth); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("9:5am err = %v, want ErrInvalidTime", err)
	}
	if _, err := s.ScheduleDaily("c", "09:00", "Mars/Olympus", domain.SelectBoth); !errors.Is(err, ErrInvalidTimezone) {
		t.Errorf("bad tz err = %v, want ErrInvalidTimezone", err)
	}
	if len(s.Entries()) != 0 {
		t.Error("rejected inputs must not register entries")
	}
}

func TestUnschedule(t *testing.T) {
	s := New("", nil)

	if err := s.Unschedule("chan-1"); !errors.Is(err, ErrNotScheduled) {
		t.Fatalf("Unschedule on empty = %v, want ErrNotScheduled", err)
	}

	if _, err := s.ScheduleDaily("chan-1", "09:00", "UTC", domain.SelectBoth); err != nil {
		t.Fatalf("ScheduleDaily: %v", err)
	}
	if err := s.Unschedule("chan-1"); err != nil {
		t.Fatalf("Unschedule: %v", err)
	}
	if _, ok := s.NextFire("chan-1"); ok {
		t.Error("NextFire still reports a removed channel")
	}
}

func TestScheduleGlobalRejectsBadCron(t *testing.T) {
	s := New("", nil)

	if err := s.ScheduleGlobal("not a cron", "chan-1"); !errors.Is(err, ErrInvalidCron) {
		t.Fatalf("err = %v, want ErrInvalidCron", err)
	}
	if err := s.ScheduleGlobal("0 9 * * *", "chan-1"); err != nil {
		t.Fatalf("valid cron rejected: %v", err)
	}
}

func TestPersistenceRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedules.json")

	s := New(path, nil)
	if _, err := s.ScheduleDaily("chan-1", "09:00", "Asia/Kolkata", domain.SelectBoth); err != nil {
		t.Fatalf("ScheduleDaily: %v", err)
	}
	if _, err := s.ScheduleDaily("chan-2", "18:45", "UTC", domain.SelectTNPOfficer); err != nil {
		t.Fatalf("ScheduleDaily: %v", err)
	}

	restored := New(path, nil)
	if err := restored.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}

	entries := restored.Entries()
	if len(entries) != 2 {
		t.Fatalf("restored %d entries, want 2", len(entries))
	}
	if entries[0].ChannelID != "chan-1" || entries[0].TZ != "Asia/Kolkata" {
		t.Errorf("entry 0 = %+v", entries[0])
	}
	if entries[1].Hour != 18 || entries[1].Minute != 45 || entries[1].Selector != domain.SelectTNPOfficer {
		t.Errorf("entry 1 = %+v", entries[1])
	}
}

func TestLoadMissingFileIsFine(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "schedules.json"), nil)
	if err := s.Load(); err != nil {
		t.Fatalf("Load on missing file: %v", err)
	}
}

func TestFireDueRearms(t *testing.T) {
	rec := newFireRecorder(4)
	s := New("", rec.fire)

	base := time.Date(2025, 6, 10, 8, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	if _, err := s.ScheduleDaily("chan-1", "09:00", "UTC", domain.SelectFreshersNow); err != nil {
		t.Fatalf("ScheduleDaily: %v", err)
	}

	// not due yet
	s.fireDue(context.Background())
	if len(rec.fired) != 0 {
		t.Fatal("fired before the scheduled instant")
	}

	// jump past the slot
	s.now = func() time.Time { return base.Add(90 * time.Minute) }
	s.fireDue(context.Background())
	rec.wait(t)

	rec.mu.Lock()
	if len(rec.fired) != 1 || rec.fired[0] != "chan-1" || rec.sels[0] != domain.SelectFreshersNow {
		t.Fatalf("fired = %v sels = %v", rec.fired, rec.sels)
	}
	rec.mu.Unlock()

	// rearmed for tomorrow
	next, ok := s.NextFire("chan-1")
	if !ok {
		t.Fatal("entry deregistered after firing")
	}
	want := time.Date(2025, 6, 11, 9, 0, 0, 0, time.UTC)
	if !next.Equal(want) {
		t.Fatalf("next = %v, want %v", next, want)
	}
}

func TestFireDueGlobalUsesBothSources(t *testing.T) {
	rec := newFireRecorder(4)
	s := New("", rec.fire)

	base := time.Date(2025, 6, 10, 8, 59, 0, 0, time.UTC)
	s.now = func() time.Time { return base }

	if err := s.ScheduleGlobal("0 9 * * *", "chan-g"); err != nil {
		t.Fatalf("ScheduleGlobal: %v", err)
	}

	s.now = func() time.Time { return base.Add(2 * time.Minute) }
	s.fireDue(context.Background())
	rec.wait(t)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if len(rec.fired) != 1 || rec.fired[0] != "chan-g" || rec.sels[0] != domain.SelectBoth {
		t.Fatalf("fired = %v sels = %v", rec.fired, rec.sels)
	}
}

func TestRunFiresAndStops(t *testing.T) {
	rec := newFireRecorder(4)
	s := New("", rec.fire)

	// an entry that is due almost immediately
	now := time.Now().UTC()
	soon := now.Add(50 * time.Millisecond)
	if _, err := s.ScheduleDaily("chan-1", soon.Format("15:04"), "UTC", domain.SelectBoth); err != nil {
		t.Fatalf("ScheduleDaily: %v", err)
	}
	// force the next instant to the near future regardless of wall clock
	s.mu.Lock()
	s.daily["chan-1"].next = soon
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()

	rec.wait(t)
	cancel()

	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

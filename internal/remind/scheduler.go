// Package remind arms one-shot lesson reminders and presents the
// ongoing-lesson status notification.
package remind

import (
	"fmt"
	"sync"
	"time"

	appLog "tutorcal/internal/log"
	"tutorcal/internal/model"
	"tutorcal/internal/notify"
	"tutorcal/internal/store"
)

// ReminderType distinguishes the two reminders armed per schedule.
type ReminderType int

const (
	TypeBefore ReminderType = iota // 10 minutes before start
	TypeStart                      // at start
)

const (
	reminderMinutesBefore = 10

	// startKeyOffset separates start-reminder keys from before-reminder
	// keys. It must exceed any plausible schedule ID.
	startKeyOffset = 100000
)

// timerKey maps (scheduleID, type) to a unique timer key. The encoding
// is injective as long as schedule IDs stay below startKeyOffset.
func timerKey(scheduleID int, typ ReminderType) int {
	if typ == TypeStart {
		return scheduleID + startKeyOffset
	}
	return scheduleID
}

// Scheduler arms in-process one-shot timers for upcoming lessons.
// Timers do not survive a process restart; Rearm re-creates them from
// the cache at startup, best-effort.
type Scheduler struct {
	notifier notify.Notifier
	loc      *time.Location
	Now      func() time.Time

	mu     sync.Mutex
	timers map[int]*time.Timer
}

func NewScheduler(notifier notify.Notifier, loc *time.Location) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	return &Scheduler{
		notifier: notifier,
		loc:      loc,
		Now:      time.Now,
		timers:   make(map[int]*time.Timer),
	}
}

// ScheduleReminder arms the before-start and at-start reminders for
// one schedule. Triggers already in the past are skipped silently:
// reminders are for upcoming events only, never retroactive.
func (s *Scheduler) ScheduleReminder(sched model.Schedule) {
	s.scheduleOne(sched, TypeBefore)
	s.scheduleOne(sched, TypeStart)
}

// ScheduleReminders arms reminders for every pending schedule in list.
// Ongoing lessons are handled by the Presenter, not here.
func (s *Scheduler) ScheduleReminders(list []model.Schedule) {
	for _, sched := range list {
		if sched.Status == model.StatusPending {
			s.ScheduleReminder(sched)
		}
	}
}

// CancelReminder cancels both timers for the schedule. Cancelling
// timers that were never armed is a no-op.
func (s *Scheduler) CancelReminder(scheduleID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelKey(timerKey(scheduleID, TypeBefore))
	s.cancelKey(timerKey(scheduleID, TypeStart))
	appLog.Debug("reminders cancelled", "schedule_id", scheduleID)
}

// CancelAll stops every armed timer; used at shutdown.
func (s *Scheduler) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.timers {
		s.cancelKey(key)
	}
}

// Armed reports how many timers are currently registered.
func (s *Scheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Rearm re-arms reminders for the given dates from whatever is in the
// cache, without touching the network. Dates with no cache entry are
// skipped until the next successful fetch.
func (s *Scheduler) Rearm(cache *store.ScheduleCache, dates ...string) {
	for _, date := range dates {
		schedules, ok := cache.Get(date)
		if !ok {
			continue
		}
		s.ScheduleReminders(schedules)
		appLog.Info("reminders re-armed from cache", "date", date, "count", len(schedules))
	}
}

func (s *Scheduler) scheduleOne(sched model.Schedule, typ ReminderType) {
	minutesBefore := 0
	if typ == TypeBefore {
		minutesBefore = reminderMinutesBefore
	}

	trigger, ok := s.triggerTime(sched, minutesBefore)
	if !ok {
		// Unparseable date or start time; skip, never retry.
		return
	}

	now := s.Now()
	if !trigger.After(now) {
		appLog.Debug("reminder time already passed", "schedule_id", sched.ID, "type", int(typ))
		return
	}

	key := timerKey(sched.ID, typ)
	n := reminderNotification(key, sched, typ)

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-arming the same key replaces the previous timer.
	s.cancelKey(key)
	s.timers[key] = time.AfterFunc(trigger.Sub(now), func() {
		s.fire(key, n)
	})

	appLog.Debug("reminder armed",
		"schedule_id", sched.ID, "type", int(typ), "at", trigger.Format(time.RFC3339))
}

func (s *Scheduler) fire(key int, n notify.Notification) {
	s.mu.Lock()
	delete(s.timers, key)
	s.mu.Unlock()

	if err := s.notifier.Show(n); err != nil {
		appLog.Error("reminder notification failed", err, "id", n.ID)
	}
}

// cancelKey must be called with s.mu held.
func (s *Scheduler) cancelKey(key int) {
	if t, ok := s.timers[key]; ok {
		t.Stop()
		delete(s.timers, key)
	}
}

// triggerTime computes the trigger instant from the schedule's date
// and start time, minus minutesBefore. Returns false if either part is
// unparseable.
func (s *Scheduler) triggerTime(sched model.Schedule, minutesBefore int) (time.Time, bool) {
	day, err := time.ParseInLocation("2006-01-02", sched.Date, s.loc)
	if err != nil {
		return time.Time{}, false
	}
	start, err := time.Parse("15:04", sched.StartTime())
	if err != nil {
		return time.Time{}, false
	}

	trigger := time.Date(day.Year(), day.Month(), day.Day(),
		start.Hour(), start.Minute(), 0, 0, s.loc)
	if minutesBefore > 0 {
		trigger = trigger.Add(-time.Duration(minutesBefore) * time.Minute)
	}
	return trigger, true
}

// reminderNotification carries the full payload so firing never needs
// to re-query any store.
func reminderNotification(id int, sched model.Schedule, typ ReminderType) notify.Notification {
	if typ == TypeStart {
		return notify.Notification{
			ID:      id,
			Channel: notify.ChannelReminder,
			Title:   "Lesson started",
			Body:    fmt.Sprintf("%s - %s", sched.StudentName, sched.Subject),
			BigText: fmt.Sprintf("Student: %s\nSubject: %s\nTime: %s\n\nThe lesson has started.",
				sched.StudentName, sched.Subject, sched.TimeSlot),
		}
	}
	return notify.Notification{
		ID:      id,
		Channel: notify.ChannelReminder,
		Title:   "Lesson starting soon",
		Body:    fmt.Sprintf("%s - %s (%s)", sched.StudentName, sched.Subject, sched.TimeSlot),
		BigText: fmt.Sprintf("Student: %s\nSubject: %s\nTime: %s\n\nStarts in %d minutes.",
			sched.StudentName, sched.Subject, sched.TimeSlot, reminderMinutesBefore),
	}
}

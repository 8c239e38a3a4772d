package remind

import (
	"fmt"
	"sync"
	"time"

	appLog "tutorcal/internal/log"
	"tutorcal/internal/notify"
)

// ongoingNotificationID is the single notification slot for the
// ongoing-lesson status. Only one lesson is presented at a time; a new
// Start replaces the previous one.
const ongoingNotificationID = 1001

const defaultTickInterval = 30 * time.Second

// Lesson is the payload the Presenter needs to render the ongoing
// notification without consulting any store.
type Lesson struct {
	ScheduleID  int
	StudentName string
	Subject     string
	TimeSlot    string
	EndTime     string // "HH:mm"
	Date        string // "yyyy-MM-dd", empty means today
}

// Presenter shows a persistent, silent notification with the
// remaining time of the lesson currently in progress, refreshed every
// 30 seconds, and removes it once the lesson's end time passes.
//
// At most one lesson is presented at a time. The per-schedule dedup
// set outlives the ticker: a lesson that already self-terminated is
// not re-presented when a later fetch still reports it as ongoing.
type Presenter struct {
	notifier notify.Notifier
	loc      *time.Location
	interval time.Duration
	Now      func() time.Time

	mu       sync.Mutex
	notified map[int]struct{}
	current  int // schedule ID of the live presentation, 0 if none
	stopCh   chan struct{}
}

func NewPresenter(notifier notify.Notifier, loc *time.Location) *Presenter {
	if loc == nil {
		loc = time.Local
	}
	return &Presenter{
		notifier: notifier,
		loc:      loc,
		interval: defaultTickInterval,
		Now:      time.Now,
		notified: make(map[int]struct{}),
	}
}

// Start presents lesson. A schedule that was already presented is
// ignored; a different schedule replaces the current presentation.
func (p *Presenter) Start(lesson Lesson) {
	p.mu.Lock()

	if _, seen := p.notified[lesson.ScheduleID]; seen {
		p.mu.Unlock()
		appLog.Debug("ongoing lesson already presented", "schedule_id", lesson.ScheduleID)
		return
	}
	p.notified[lesson.ScheduleID] = struct{}{}

	p.stopTickLocked()
	end := p.endInstant(lesson)
	p.current = lesson.ScheduleID
	stopCh := make(chan struct{})
	p.stopCh = stopCh
	p.mu.Unlock()

	p.show(lesson, end)
	go p.tick(lesson, end, stopCh)

	appLog.Info("ongoing lesson presented",
		"schedule_id", lesson.ScheduleID, "student", lesson.StudentName)
}

// Stop ends the presentation for the given schedule and allows it to
// be presented again later. Stopping a schedule that is not presented
// is a no-op.
func (p *Presenter) Stop(scheduleID int) {
	p.mu.Lock()
	delete(p.notified, scheduleID)
	live := p.current == scheduleID
	if live {
		p.stopTickLocked()
	}
	p.mu.Unlock()

	if live {
		p.notifier.Cancel(ongoingNotificationID)
	}
}

// StopAll tears everything down: the ticker, the notification, and
// the dedup set.
func (p *Presenter) StopAll() {
	p.mu.Lock()
	p.notified = make(map[int]struct{})
	p.stopTickLocked()
	p.mu.Unlock()

	p.notifier.Cancel(ongoingNotificationID)
}

// Presenting reports whether scheduleID is the live presentation.
func (p *Presenter) Presenting(scheduleID int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current == scheduleID
}

// stopTickLocked must be called with p.mu held.
func (p *Presenter) stopTickLocked() {
	if p.stopCh != nil {
		close(p.stopCh)
		p.stopCh = nil
	}
	p.current = 0
}

func (p *Presenter) tick(lesson Lesson, end time.Time, stopCh chan struct{}) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			if !p.Now().Before(end) {
				// Lesson over; remove the notification and stop.
				p.mu.Lock()
				if p.current == lesson.ScheduleID {
					p.current = 0
					p.stopCh = nil
				}
				p.mu.Unlock()
				p.notifier.Cancel(ongoingNotificationID)
				appLog.Info("ongoing lesson ended", "schedule_id", lesson.ScheduleID)
				return
			}
			p.show(lesson, end)
		}
	}
}

func (p *Presenter) show(lesson Lesson, end time.Time) {
	n := notify.Notification{
		ID:      ongoingNotificationID,
		Channel: notify.ChannelOngoing,
		Title:   "Lesson in progress",
		Body:    fmt.Sprintf("%s - %s", lesson.StudentName, lesson.Subject),
		BigText: fmt.Sprintf("%s - %s\nTime: %s\n%s",
			lesson.StudentName, lesson.Subject, lesson.TimeSlot, p.remainingText(end)),
		Ongoing: true,
	}
	if err := p.notifier.Show(n); err != nil {
		appLog.Error("ongoing notification failed", err, "schedule_id", lesson.ScheduleID)
	}
}

func (p *Presenter) remainingText(end time.Time) string {
	remaining := end.Sub(p.Now())
	if remaining <= 0 {
		return "Lesson ended"
	}
	if minutes := int(remaining.Minutes()); minutes > 0 {
		return fmt.Sprintf("%d min left", minutes)
	}
	return fmt.Sprintf("%d sec left", int(remaining.Seconds()))
}

// endInstant resolves the lesson's end time on its date (today when
// the date is empty). An unparseable end time yields the zero time, so
// the first tick terminates the presentation.
func (p *Presenter) endInstant(lesson Lesson) time.Time {
	end, err := time.Parse("15:04", lesson.EndTime)
	if err != nil {
		appLog.Error("unparseable lesson end time", err, "schedule_id", lesson.ScheduleID)
		return time.Time{}
	}

	day := p.Now().In(p.loc)
	if lesson.Date != "" {
		if d, derr := time.ParseInLocation("2006-01-02", lesson.Date, p.loc); derr == nil {
			day = d
		}
	}
	return time.Date(day.Year(), day.Month(), day.Day(), end.Hour(), end.Minute(), 0, 0, p.loc)
}

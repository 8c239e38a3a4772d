// Package calendar exports lessons as iCalendar events so the user
// can pull them into any calendar application. Exports are
// fire-and-forget: a written file is never read back or verified.
package calendar

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	ics "github.com/arran4/golang-ical"

	appLog "tutorcal/internal/log"
	"tutorcal/internal/model"
)

// alarmMinutesBefore is the calendar-side reminder lead time.
const alarmMinutesBefore = 20

// Exporter writes one .ics file per exported lesson into dir.
type Exporter struct {
	dir string
	loc *time.Location
}

func NewExporter(dir string, loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	return &Exporter{dir: dir, loc: loc}
}

// Export writes the lesson on date as a VEVENT with a display alarm
// 20 minutes before start, and returns the written path.
func (e *Exporter) Export(sched model.Schedule, date string) (string, error) {
	if e.dir == "" {
		return "", errors.New("calendar export directory not configured")
	}

	data, err := e.Build(sched, date)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(e.dir, 0o700); err != nil {
		return "", err
	}
	path := filepath.Join(e.dir, fmt.Sprintf("lesson-%d-%s.ics", sched.ID, date))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", err
	}

	appLog.Info("lesson exported to calendar", "schedule_id", sched.ID, "path", path)
	return path, nil
}

// Build serializes the lesson as an iCalendar payload.
func (e *Exporter) Build(sched model.Schedule, date string) ([]byte, error) {
	start, err := e.instant(date, sched.StartTime())
	if err != nil {
		return nil, fmt.Errorf("lesson start: %w", err)
	}
	end, err := e.instant(date, sched.EndTime())
	if err != nil {
		return nil, fmt.Errorf("lesson end: %w", err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)

	event := cal.AddEvent(fmt.Sprintf("lesson-%d-%s@tutorcal", sched.ID, date))
	event.SetDtStampTime(time.Now())
	event.SetStartAt(start)
	event.SetEndAt(end)
	event.SetSummary(fmt.Sprintf("%s - %s", sched.StudentName, sched.Subject))
	event.SetDescription("Lesson time: " + sched.TimeSlot)

	alarm := event.AddAlarm()
	alarm.SetAction(ics.ActionDisplay)
	alarm.SetTrigger(fmt.Sprintf("-PT%dM", alarmMinutesBefore))

	return []byte(cal.Serialize()), nil
}

func (e *Exporter) instant(date, clock string) (time.Time, error) {
	day, err := time.ParseInLocation("2006-01-02", date, e.loc)
	if err != nil {
		return time.Time{}, err
	}
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(), t.Hour(), t.Minute(), 0, 0, e.loc), nil
}

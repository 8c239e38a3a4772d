// Package sched coordinates per-date schedule loading: cache-first
// display, network refresh, change detection, sync logging, and
// dispatch to the reminder scheduler and ongoing-lesson presenter.
package sched

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	appLog "tutorcal/internal/log"
	"tutorcal/internal/model"
	"tutorcal/internal/remind"
	"tutorcal/internal/store"
)

const dateLayout = "2006-01-02"

// Fetcher is the remote schedule source.
type Fetcher interface {
	FetchToday(ctx context.Context) ([]model.Schedule, error)
	FetchByDate(ctx context.Context, date string) ([]model.Schedule, error)
}

// DateState is the view state for one calendar date.
type DateState struct {
	Schedules []model.Schedule `json:"schedules"`
	HasData   bool             `json:"has_data"`
	Loading   bool             `json:"loading"`
	Err       string           `json:"error,omitempty"`
}

// Subscriber receives state updates. Updates are last-value-wins; a
// subscriber that needs the latest state can also read Snapshot.
type Subscriber func(date string, state DateState)

// Coordinator owns the per-date view states and drives every fetch.
// State maps are mutated only under the coordinator mutex; fetches for
// different dates run concurrently, while at most one fetch is in
// flight per date.
type Coordinator struct {
	fetcher   Fetcher
	cache     *store.ScheduleCache
	logs      *store.SyncLog
	reminders *remind.Scheduler
	presenter *remind.Presenter

	preloadDays int
	nowFunc     func() time.Time

	mu          sync.Mutex
	states      map[string]*DateState
	inflight    map[string]bool
	current     string
	subscribers []Subscriber

	notices chan string
}

func New(fetcher Fetcher, cache *store.ScheduleCache, logs *store.SyncLog,
	reminders *remind.Scheduler, presenter *remind.Presenter, preloadDays int) *Coordinator {

	if preloadDays <= 0 {
		preloadDays = 2
	}
	return &Coordinator{
		fetcher:     fetcher,
		cache:       cache,
		logs:        logs,
		reminders:   reminders,
		presenter:   presenter,
		preloadDays: preloadDays,
		nowFunc:     time.Now,
		states:      make(map[string]*DateState),
		inflight:    make(map[string]bool),
		notices:     make(chan string, 8),
	}
}

// Subscribe registers a callback for state updates. Safe for multiple
// subscribers; callbacks run outside the coordinator lock.
func (c *Coordinator) Subscribe(fn Subscriber) {
	c.mu.Lock()
	c.subscribers = append(c.subscribers, fn)
	c.mu.Unlock()
}

// Notices returns the channel of transient user-facing messages
// (refresh succeeded/failed). Messages are dropped when nobody reads.
func (c *Coordinator) Notices() <-chan string {
	return c.notices
}

// Snapshot returns the current state for date.
func (c *Coordinator) Snapshot(date string) (DateState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	st, ok := c.states[date]
	if !ok {
		return DateState{}, false
	}
	return *st, true
}

// Schedules returns the current schedule list for date, if any.
func (c *Coordinator) Schedules(date string) ([]model.Schedule, bool) {
	st, ok := c.Snapshot(date)
	if !ok || !st.HasData {
		return nil, false
	}
	return st.Schedules, true
}

// SyncLogs returns the change audit trail, most recent first.
func (c *Coordinator) SyncLogs() []model.SyncLogEntry {
	return c.logs.List()
}

func (c *Coordinator) ClearLogs() {
	c.logs.Clear()
}

// PreloadAround warms the window centered on date: the date itself
// plus preloadDays days either side, each loaded concurrently. Dates
// already in flight are skipped.
func (c *Coordinator) PreloadAround(ctx context.Context, center time.Time) {
	for i := -c.preloadDays; i <= c.preloadDays; i++ {
		date := center.AddDate(0, 0, i)
		go c.LoadDate(ctx, date)
	}
}

// OnDateChanged records the new center date and warms its window.
func (c *Coordinator) OnDateChanged(ctx context.Context, date time.Time) {
	c.mu.Lock()
	c.current = date.Format(dateLayout)
	c.mu.Unlock()
	c.PreloadAround(ctx, date)
}

// CurrentDate returns the center date, defaulting to today.
func (c *Coordinator) CurrentDate() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == "" {
		return c.nowFunc().Format(dateLayout)
	}
	return c.current
}

// Refresh reloads the current date and reports the outcome as a
// transient notice.
func (c *Coordinator) Refresh(ctx context.Context) {
	date, err := time.ParseInLocation(dateLayout, c.CurrentDate(), c.nowFunc().Location())
	if err != nil {
		return
	}
	c.loadDate(ctx, date, true)
}

// Retry reloads one date after a blocking error.
func (c *Coordinator) Retry(ctx context.Context, date time.Time) {
	c.loadDate(ctx, date, false)
}

// LoadDate fetches one date, serving any cached value first. It is
// synchronous; PreloadAround fans it out across goroutines.
func (c *Coordinator) LoadDate(ctx context.Context, date time.Time) {
	c.loadDate(ctx, date, false)
}

func (c *Coordinator) loadDate(ctx context.Context, date time.Time, manual bool) {
	key := date.Format(dateLayout)

	c.mu.Lock()
	if c.inflight[key] {
		c.mu.Unlock()
		return
	}
	c.inflight[key] = true

	st := c.ensureStateLocked(key)
	st.Loading = true
	st.Err = ""

	// Serve cache immediately so the reader never waits on the network.
	cached, haveCache := c.cache.Get(key)
	if haveCache {
		st.Schedules = cached
		st.HasData = true
	}
	snapshot := *st
	c.mu.Unlock()
	c.publish(key, snapshot)

	schedules, err := c.fetch(ctx, key)
	if err != nil {
		c.finishError(key, err, haveCache, manual)
		return
	}

	// Fetched schedules may omit their date field; pin them to the
	// bucket they were requested for.
	for i := range schedules {
		if schedules[i].Date == "" {
			schedules[i].Date = key
		}
	}

	result := c.cache.CompareAndSave(key, schedules)
	c.logChange(key, result)
	c.dispatch(key, schedules)

	c.mu.Lock()
	st = c.ensureStateLocked(key)
	st.Schedules = schedules
	st.HasData = true
	st.Err = ""
	st.Loading = false
	c.inflight[key] = false
	snapshot = *st
	c.mu.Unlock()
	c.publish(key, snapshot)

	if manual {
		c.notice("Refreshed")
	}
}

func (c *Coordinator) fetch(ctx context.Context, key string) ([]model.Schedule, error) {
	if key == c.nowFunc().Format(dateLayout) {
		return c.fetcher.FetchToday(ctx)
	}
	return c.fetcher.FetchByDate(ctx, key)
}

// finishError clears the loading flag and either keeps showing the
// cached value with a transient notice, or surfaces a blocking
// per-date error when nothing is cached.
func (c *Coordinator) finishError(key string, err error, haveCache, manual bool) {
	appLog.Error("schedule fetch failed", err, "date", key)

	c.mu.Lock()
	st := c.ensureStateLocked(key)
	if !haveCache {
		st.Err = err.Error()
	}
	st.Loading = false
	c.inflight[key] = false
	snapshot := *st
	c.mu.Unlock()
	c.publish(key, snapshot)

	if haveCache {
		c.notice("Refresh failed: " + err.Error())
	}
}

// dispatch routes each schedule by status: pending lessons get
// reminders armed, ongoing lessons get the persistent presentation.
func (c *Coordinator) dispatch(date string, schedules []model.Schedule) {
	for _, sched := range schedules {
		switch sched.Status {
		case model.StatusPending:
			c.reminders.ScheduleReminder(sched)
		case model.StatusOngoing:
			c.presenter.Start(remind.Lesson{
				ScheduleID:  sched.ID,
				StudentName: sched.StudentName,
				Subject:     sched.Subject,
				TimeSlot:    sched.TimeSlot,
				EndTime:     sched.EndTime(),
				Date:        date,
			})
		}
	}
}

// logChange records non-trivial change results; no-change never logs.
func (c *Coordinator) logChange(date string, result model.ChangeResult) {
	switch result.Kind {
	case model.ChangeNewData:
		c.logs.Add(date, store.ActionFirstSync, fmt.Sprintf("fetched %d lessons", result.Count))
	case model.ChangeDiff:
		var parts []string
		if len(result.Added) > 0 {
			parts = append(parts, "added: "+joinNames(result.Added))
		}
		if len(result.Updated) > 0 {
			parts = append(parts, "updated: "+joinNames(result.Updated))
		}
		if len(result.Removed) > 0 {
			parts = append(parts, "removed: "+joinNames(result.Removed))
		}
		c.logs.Add(date, store.ActionChanged, strings.Join(parts, "; "))
	}
}

func (c *Coordinator) ensureStateLocked(key string) *DateState {
	st, ok := c.states[key]
	if !ok {
		st = &DateState{}
		c.states[key] = st
	}
	return st
}

func (c *Coordinator) publish(date string, st DateState) {
	c.mu.Lock()
	subs := make([]Subscriber, len(c.subscribers))
	copy(subs, c.subscribers)
	c.mu.Unlock()

	for _, fn := range subs {
		fn(date, st)
	}
}

func (c *Coordinator) notice(msg string) {
	select {
	case c.notices <- msg:
	default:
	}
}

func joinNames(schedules []model.Schedule) string {
	parts := make([]string, len(schedules))
	for i, s := range schedules {
		parts[i] = s.StudentName
	}
	return strings.Join(parts, ", ")
}

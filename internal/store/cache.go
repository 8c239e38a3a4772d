package store

import (
	"encoding/json"

	appLog "tutorcal/internal/log"
	"tutorcal/internal/model"
)

// ScheduleCache stores one schedule list per calendar date under the
// key "schedules_<yyyy-MM-dd>". Entries are overwritten wholesale and
// never expire.
type ScheduleCache struct {
	kv *KV
}

func NewScheduleCache(kv *KV) *ScheduleCache {
	return &ScheduleCache{kv: kv}
}

func cacheKey(date string) string {
	return "schedules_" + date
}

// Get returns the cached list for date. A missing entry and an
// undecodable entry both report a miss; decode failures are silent.
func (c *ScheduleCache) Get(date string) ([]model.Schedule, bool) {
	raw, ok, err := c.kv.Get(BucketScheduleCache, cacheKey(date))
	if err != nil || !ok {
		return nil, false
	}
	var schedules []model.Schedule
	if err := json.Unmarshal([]byte(raw), &schedules); err != nil {
		return nil, false
	}
	return schedules, true
}

// Save replaces the cached list for date.
func (c *ScheduleCache) Save(date string, schedules []model.Schedule) error {
	data, err := json.Marshal(schedules)
	if err != nil {
		return err
	}
	return c.kv.Put(BucketScheduleCache, cacheKey(date), string(data))
}

// CompareAndSave compares newSchedules against the cached list for
// date, classifies the delta, and writes newSchedules into the cache.
// The write happens even on no-change so non-watched fields stay fresh.
//
// Comparison is by exact field equality on student name, time slot,
// subject and status; no normalization. Added/Updated follow the order
// of newSchedules, Removed the order of the old list.
func (c *ScheduleCache) CompareAndSave(date string, newSchedules []model.Schedule) model.ChangeResult {
	old, ok := c.Get(date)

	if !ok {
		c.save(date, newSchedules)
		if len(newSchedules) > 0 {
			return model.ChangeResult{Kind: model.ChangeNewData, Count: len(newSchedules)}
		}
		return model.ChangeResult{Kind: model.ChangeNone}
	}

	oldByID := make(map[int]model.Schedule, len(old))
	for _, s := range old {
		oldByID[s.ID] = s
	}
	newIDs := make(map[int]struct{}, len(newSchedules))
	for _, s := range newSchedules {
		newIDs[s.ID] = struct{}{}
	}

	var added, updated, removed []model.Schedule
	for _, s := range newSchedules {
		prev, exists := oldByID[s.ID]
		if !exists {
			added = append(added, s)
			continue
		}
		if prev.StudentName != s.StudentName ||
			prev.TimeSlot != s.TimeSlot ||
			prev.Subject != s.Subject ||
			prev.Status != s.Status {
			updated = append(updated, s)
		}
	}
	for _, s := range old {
		if _, exists := newIDs[s.ID]; !exists {
			removed = append(removed, s)
		}
	}

	c.save(date, newSchedules)

	if len(added) == 0 && len(updated) == 0 && len(removed) == 0 {
		return model.ChangeResult{Kind: model.ChangeNone}
	}
	return model.ChangeResult{
		Kind:    model.ChangeDiff,
		Added:   added,
		Updated: updated,
		Removed: removed,
	}
}

func (c *ScheduleCache) save(date string, schedules []model.Schedule) {
	if err := c.Save(date, schedules); err != nil {
		// A failed cache write degrades to re-fetching next time.
		appLog.Error("schedule cache save failed", err, "date", date)
	}
}

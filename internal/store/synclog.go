package store

import (
	"encoding/json"
	"time"

	appLog "tutorcal/internal/log"
	"tutorcal/internal/model"
)

// Sync log actions.
const (
	ActionFirstSync = "first sync"
	ActionChanged   = "changed"
)

const (
	syncLogKey = "logs"
	maxLogs    = 100
)

// nowFunc is overridable in tests.
var nowFunc = time.Now

// SyncLog is the bounded, most-recent-first audit trail of detected
// schedule changes.
type SyncLog struct {
	kv *KV
}

func NewSyncLog(kv *KV) *SyncLog {
	return &SyncLog{kv: kv}
}

// List returns all entries, most recent first. A missing or corrupt
// stored value yields an empty list.
func (l *SyncLog) List() []model.SyncLogEntry {
	raw, ok, err := l.kv.Get(BucketSyncLogs, syncLogKey)
	if err != nil || !ok {
		return nil
	}
	var entries []model.SyncLogEntry
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil
	}
	return entries
}

// Add prepends a new entry with a generated timestamp. After insertion
// the log is truncated to the 100 most recent entries.
func (l *SyncLog) Add(date, action, details string) {
	entry := model.SyncLogEntry{
		Timestamp: nowFunc().Format("01-02 15:04:05"),
		Date:      date,
		Action:    action,
		Details:   details,
	}

	entries := append([]model.SyncLogEntry{entry}, l.List()...)
	if len(entries) > maxLogs {
		entries = entries[:maxLogs]
	}

	data, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := l.kv.Put(BucketSyncLogs, syncLogKey, string(data)); err != nil {
		appLog.Error("sync log write failed", err, "date", date)
	}
}

// Clear empties the log.
func (l *SyncLog) Clear() {
	if err := l.kv.Put(BucketSyncLogs, syncLogKey, "[]"); err != nil {
		appLog.Error("sync log clear failed", err)
	}
}

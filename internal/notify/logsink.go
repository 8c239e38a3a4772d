package notify

import (
	appLog "tutorcal/internal/log"
)

// LogSink writes notifications to the application log. It is the
// fallback sink when no Telegram bot is configured, and keeps the rest
// of the system indifferent to whether a real sink exists.
type LogSink struct{}

func NewLogSink() *LogSink {
	return &LogSink{}
}

func (*LogSink) Show(n Notification) error {
	appLog.Info("notification",
		"id", n.ID,
		"channel", string(n.Channel),
		"title", n.Title,
		"body", n.Body,
		"ongoing", n.Ongoing,
	)
	return nil
}

func (*LogSink) Cancel(id int) error {
	appLog.Info("notification cancelled", "id", id)
	return nil
}

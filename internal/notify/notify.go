// Package notify abstracts the notification sink. Notifications are
// grouped under two logical channels: lesson reminders (alerting) and
// the ongoing-lesson ticker (silent, persistent, updated in place).
package notify

// Channel identifies the logical notification channel.
type Channel string

const (
	// ChannelReminder alerts the user that a lesson is about to start
	// or has started.
	ChannelReminder Channel = "lesson_reminder"
	// ChannelOngoing is the silent, persistent ongoing-lesson status.
	ChannelOngoing Channel = "ongoing_lesson"
)

// Notification is one message to present. ID is stable per logical
// notification: showing the same ID again replaces the previous
// presentation instead of stacking a new one.
type Notification struct {
	ID      int
	Channel Channel
	Title   string
	Body    string
	BigText string
	// Ongoing marks a persistent notification that is updated in
	// place and removed via Cancel rather than dismissed by the user.
	Ongoing bool
}

// Notifier delivers notifications. Cancel of an unknown ID is a no-op.
type Notifier interface {
	Show(n Notification) error
	Cancel(id int) error
}

package notify

import (
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"

	appLog "tutorcal/internal/log"
)

// Telegram delivers notifications as chat messages. Re-showing a
// notification ID deletes the previous message and sends a fresh one,
// so persistent notifications update in place instead of flooding the
// chat. Ongoing-channel messages are sent silently.
type Telegram struct {
	bot    *tgbotapi.BotAPI
	chatID int64

	mu      sync.Mutex
	lastMsg map[int]int // notification ID -> telegram message ID
}

// NewTelegram connects the bot for the given token and target chat.
func NewTelegram(token string, chatID int64) (*Telegram, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	return &Telegram{
		bot:     bot,
		chatID:  chatID,
		lastMsg: make(map[int]int),
	}, nil
}

func (t *Telegram) Show(n Notification) error {
	text := n.Title + "\n" + n.Body
	if n.BigText != "" {
		text = n.Title + "\n" + n.BigText
	}

	msg := tgbotapi.NewMessage(t.chatID, text)
	if n.Channel == ChannelOngoing {
		msg.DisableNotification = true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if prevID, ok := t.lastMsg[n.ID]; ok {
		t.delete(prevID)
	}

	sent, err := t.bot.Send(msg)
	if err != nil {
		return err
	}
	t.lastMsg[n.ID] = sent.MessageID
	return nil
}

func (t *Telegram) Cancel(id int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	msgID, ok := t.lastMsg[id]
	if !ok {
		return nil
	}
	delete(t.lastMsg, id)
	t.delete(msgID)
	return nil
}

func (t *Telegram) delete(messageID int) {
	if _, err := t.bot.Send(tgbotapi.NewDeleteMessage(t.chatID, messageID)); err != nil {
		appLog.Debug("telegram delete failed", "message_id", messageID, "err", err)
	}
}

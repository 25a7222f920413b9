// Package notify delivers turn notifications to players. Notifications for
// the same user are debounced: a newer one replaces a pending one.
package notify

import (
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	tele "gopkg.in/telebot.v3"
)

// Sender delivers a message to a user.
type Sender interface {
	Send(userID int64, text string) error
}

// Debouncer sends the latest text per user once no newer text arrived for
// the debounce window.
type Debouncer struct {
	sender Sender
	window time.Duration

	mu      sync.Mutex
	pending map[int64]*time.Timer
	stopped bool
}

// NewDebouncer creates a Debouncer.
func NewDebouncer(sender Sender, window time.Duration) *Debouncer {
	return &Debouncer{
		sender:  sender,
		window:  window,
		pending: make(map[int64]*time.Timer),
	}
}

// Notify schedules text for userID, cancelling whatever was pending for them.
// It never blocks on delivery.
func (d *Debouncer) Notify(userID int64, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	if t, ok := d.pending[userID]; ok {
		t.Stop()
	}

	var timer *time.Timer
	timer = time.AfterFunc(d.window, func() {
		d.mu.Lock()
		if d.pending[userID] != timer {
			d.mu.Unlock()
			return
		}
		delete(d.pending, userID)
		d.mu.Unlock()

		d.send(userID, text)
	})
	d.pending[userID] = timer
}

func (d *Debouncer) send(userID int64, text string) {
	if err := d.sender.Send(userID, text); err != nil {
		log.Warn().Err(err).Int64("user_id", userID).Msg("Failed to send notification")
		return
	}
	log.Debug().Int64("user_id", userID).Msg("Notification sent")
}

// Pending returns the number of users with a scheduled notification.
func (d *Debouncer) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Stop cancels every pending notification. Later calls to Notify are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	for id, t := range d.pending {
		t.Stop()
		delete(d.pending, id)
	}
}

// TelegramSender sends notifications as private bot messages.
type TelegramSender struct {
	bot *tele.Bot
}

// NewTelegramSender creates a TelegramSender.
func NewTelegramSender(bot *tele.Bot) *TelegramSender {
	return &TelegramSender{bot: bot}
}

// Send implements Sender.
func (s *TelegramSender) Send(userID int64, text string) error {
	_, err := s.bot.Send(&tele.User{ID: userID}, text, &tele.SendOptions{DisableWebPagePreview: true})
	return err
}

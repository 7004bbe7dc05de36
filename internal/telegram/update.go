package telegram

import (
	"strconv"
	"strings"
	"time"

	"github.com/Vovarama1992/fitcoach-bridge/internal/coach"
)

type Update struct {
	UpdateID int      `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type User struct {
	ID        int64  `json:"id"`
	IsBot     bool   `json:"is_bot"`
	FirstName string `json:"first_name"`
	Username  string `json:"username"`
}

type Chat struct {
	ID   int64  `json:"id"`
	Type string `json:"type"`
}

type Message struct {
	MessageID int    `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
}

type apiResponse[T any] struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
	Result      T      `json:"result"`
}

// Event converts a private text message into an engine event. Group chats,
// bots and non-text messages are skipped.
func (u Update) Event() (coach.Event, bool) {
	m := u.Message
	if m == nil || m.From == nil || m.From.IsBot || m.Chat.Type != "private" {
		return coach.Event{}, false
	}
	if strings.TrimSpace(m.Text) == "" {
		return coach.Event{}, false
	}

	return coach.Event{
		UserKey: strconv.FormatInt(m.From.ID, 10),
		Text:    m.Text,
		At:      time.Unix(m.Date, 0).UTC(),
	}, true
}

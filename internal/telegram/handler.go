package telegram

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"
)

const secretHeader = "X-Telegram-Bot-Api-Secret-Token"

type Handler struct {
	dispatch Dispatcher
	secret   string
	logger   *log.Logger
}

func NewHandler(dispatch Dispatcher, secret string, logger *log.Logger) *Handler {
	return &Handler{dispatch: dispatch, secret: secret, logger: logger}
}

// HandleWebhook accepts an update pushed by Telegram.
func (h *Handler) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if h.secret != "" {
		got := r.Header.Get(secretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) != 1 {
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}

	var u Update
	if err := json.NewDecoder(r.Body).Decode(&u); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if ev, ok := u.Event(); ok {
		// The turn outlives this request; Telegram only needs the ACK.
		h.dispatch.Dispatch(context.WithoutCancel(r.Context()), ev)
	} else {
		h.logger.Debug("skipping update", "update_id", u.UpdateID)
	}

	w.WriteHeader(http.StatusOK)
}

package telegram

import (
	"context"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Vovarama1992/fitcoach-bridge/internal/coach"
)

// Dispatcher accepts events in arrival order and processes them in the
// background.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev coach.Event)
}

type updatesSource interface {
	GetUpdates(ctx context.Context, offset int) ([]Update, error)
}

type Poller struct {
	api      updatesSource
	dispatch Dispatcher
	logger   *log.Logger
	backoff  time.Duration
}

func NewPoller(api updatesSource, dispatch Dispatcher, logger *log.Logger) *Poller {
	return &Poller{api: api, dispatch: dispatch, logger: logger, backoff: 5 * time.Second}
}

// Run long-polls until ctx is cancelled. Each update is handed to the
// dispatcher in order; the dispatcher keeps per-user ordering.
func (p *Poller) Run(ctx context.Context) error {
	offset := 0
	for {
		if ctx.Err() != nil {
			return nil
		}

		updates, err := p.api.GetUpdates(ctx, offset)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			p.logger.Error("getUpdates failed", "err", err)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(p.backoff):
			}
			continue
		}

		for _, u := range updates {
			if u.UpdateID >= offset {
				offset = u.UpdateID + 1
			}
			ev, ok := u.Event()
			if !ok {
				p.logger.Debug("skipping update", "update_id", u.UpdateID)
				continue
			}
			p.dispatch.Dispatch(ctx, ev)
		}
	}
}

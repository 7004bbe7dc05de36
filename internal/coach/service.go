package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/Vovarama1992/fitcoach-bridge/internal/ai"
)

type Options struct {
	Logger            *log.Logger
	CompletionTimeout time.Duration
}

type service struct {
	repo     Repo
	ai       ai.AI
	outbound Outbound

	history *History
	primer  *Primer
	syncer  *Synchronizer
	slots   *keyedSlots

	logger  *log.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewService(repo Repo, aiClient ai.AI, outbound Outbound, opts Options) Service {
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	timeout := opts.CompletionTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	history := NewHistory()
	return &service{
		repo:     repo,
		ai:       aiClient,
		outbound: outbound,
		history:  history,
		primer:   NewPrimer(repo, history),
		syncer:   NewSynchronizer(repo),
		slots:    newKeyedSlots(),
		logger:   logger,
		timeout:  timeout,
	}
}

// HandleIncoming processes one message and returns once the reply was sent.
// Messages from the same user are processed one at a time, in call order.
func (s *service) HandleIncoming(ctx context.Context, ev Event) error {
	return s.process(ctx, s.slots.Reserve(ev.UserKey), ev)
}

// Dispatch reserves the user's slot before returning and processes the
// message in the background, so consecutive Dispatch calls keep their order.
func (s *service) Dispatch(ctx context.Context, ev Event) {
	ticket := s.slots.Reserve(ev.UserKey)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.process(ctx, ticket, ev); err != nil {
			s.logger.Error("turn failed", "user", ev.UserKey, "err", err)
		}
	}()
}

// Wait blocks until every dispatched message has been processed.
func (s *service) Wait() {
	s.wg.Wait()
}

func (s *service) process(ctx context.Context, ticket *slot, ev Event) error {
	if err := ticket.Wait(ctx); err != nil {
		return err
	}
	defer ticket.Release()

	text := strings.TrimSpace(ev.Text)
	switch commandOf(text) {
	case commandReset:
		return s.reset(ctx, ev.UserKey)
	case commandStart:
		// Re-prime on the next call; the stored profile is kept.
		s.history.Clear(ev.UserKey)
	}

	return s.turn(ctx, ev.UserKey, text)
}

func (s *service) turn(ctx context.Context, userKey, text string) error {
	logger := s.logger.With("user", userKey, "turn", uuid.NewString())
	logger.Debug("incoming message", "text", text)

	s.saveLog(ctx, logger, userKey, SenderUser, text)

	if err := s.outbound.SendTyping(ctx, userKey); err != nil {
		logger.Warn("typing indicator failed", "err", err)
	}

	primed, err := s.primer.Prime(ctx, userKey)
	if err != nil {
		logger.Error("priming failed", "err", err)
		s.sendFailure(ctx, logger, userKey)
		return fmt.Errorf("prime %s: %w", userKey, err)
	}

	pending := make([]Turn, 0, 3)
	if primed != nil {
		logger.Info("session primed", "returning", primed.Text != onboardingNote)
		pending = append(pending, *primed)
	}
	pending = append(pending, Turn{Role: RoleUser, Text: text})

	raw, err := s.complete(ctx, append(s.history.Snapshot(userKey), pending...))
	if err != nil {
		logger.Error("completion failed", "err", err)
		s.sendFailure(ctx, logger, userKey)
		return fmt.Errorf("%w: %w", ErrCompletion, err)
	}

	extracted := Extract(raw)
	if extracted.LowConfidence {
		logger.Warn("payload boundary unclear, using best effort", "payload", short(extracted.Payload))
	}
	if extracted.HasPayload {
		s.syncPayload(ctx, logger, userKey, extracted)
	} else if extracted.IsFinal {
		logger.Warn("plan finished without a data block")
	}

	visible := extracted.VisibleText
	if visible == "" {
		visible = emptyReplyText
	}

	s.history.Append(userKey, append(pending, Turn{Role: RoleAssistant, Text: visible})...)
	s.saveLog(ctx, logger, userKey, SenderAI, raw)

	if err := s.outbound.SendText(ctx, userKey, visible); err != nil {
		return fmt.Errorf("send reply to %s: %w", userKey, err)
	}
	return nil
}

// syncPayload never fails the turn: the reply goes out whatever happens here.
func (s *service) syncPayload(ctx context.Context, logger *log.Logger, userKey string, extracted ExtractedTurn) {
	var hint []string
	if extracted.IsFinal {
		hint = planFromText(extracted.VisibleText)
	}

	profile, err := s.syncer.Sync(ctx, userKey, extracted.Payload, hint)
	var syncErr *SyncError
	switch {
	case errors.As(err, &syncErr):
		logger.Warn("payload rejected, profile not saved", "err", err, "payload", short(extracted.Payload))
	case err != nil:
		logger.Error("profile save failed", "err", err)
	default:
		logger.Info("profile saved", "plan_points", len(profile.Plan), "final", extracted.IsFinal)
	}
}

func (s *service) complete(ctx context.Context, turns []Turn) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	msgs := make([]ai.Message, 0, len(turns)+1)
	msgs = append(msgs, ai.Message{Role: ai.RoleSystem, Text: MasterInstruction})
	msgs = append(msgs, lo.Map(turns, func(t Turn, _ int) ai.Message {
		return ai.Message{Role: aiRole(t.Role), Text: t.Text}
	})...)

	return s.ai.GetReply(ctx, msgs)
}

func (s *service) reset(ctx context.Context, userKey string) error {
	s.history.Clear(userKey)

	if err := s.repo.DeleteProfile(ctx, userKey); err != nil {
		s.logger.Error("reset failed", "user", userKey, "err", err)
		if sendErr := s.outbound.SendText(ctx, userKey, resetFailedText); sendErr != nil {
			s.logger.Warn("reset failure notice not sent", "user", userKey, "err", sendErr)
		}
		return fmt.Errorf("reset %s: %w", userKey, err)
	}

	s.logger.Info("user reset", "user", userKey)
	return s.outbound.SendText(ctx, userKey, resetText)
}

func (s *service) sendFailure(ctx context.Context, logger *log.Logger, userKey string) {
	if err := s.outbound.SendText(ctx, userKey, retryText); err != nil {
		logger.Warn("failure notice not sent", "err", err)
	}
}

func (s *service) saveLog(ctx context.Context, logger *log.Logger, userKey string, sender Sender, text string) {
	if err := s.repo.SaveMessage(ctx, &LogEntry{UserKey: userKey, Sender: sender, Text: text}); err != nil {
		logger.Warn("conversation log write failed", "sender", sender, "err", err)
	}
}

func (s *service) State(ctx context.Context, userKey string) (State, error) {
	_, err := s.repo.GetProfile(ctx, userKey)
	switch {
	case err == nil:
		return StateActive, nil
	case !errors.Is(err, ErrProfileNotFound):
		return "", err
	case s.history.Len(userKey) == 0:
		return StateNew, nil
	default:
		return StateOnboarding, nil
	}
}

func (s *service) GetProfile(ctx context.Context, userKey string) (*Profile, error) {
	return s.repo.GetProfile(ctx, userKey)
}

func (s *service) GetHistory(ctx context.Context, userKey string) ([]LogEntry, error) {
	return s.repo.GetHistory(ctx, userKey)
}

// commandOf returns the bot command in text, ignoring a "@botname" suffix.
func commandOf(text string) string {
	if !strings.HasPrefix(text, "/") {
		return ""
	}
	cmd, _, _ := strings.Cut(strings.Fields(text)[0], "@")
	return strings.ToLower(cmd)
}

func aiRole(r Role) string {
	switch r {
	case RoleContext:
		return ai.RoleSystem
	case RoleAssistant:
		return ai.RoleAssistant
	default:
		return ai.RoleUser
	}
}

// short trims s for logging, on a rune boundary.
func short(s string) string {
	const limit = 180
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	return string([]rune(s)[:limit]) + "..."
}

package ai

import (
	"context"
	"errors"
)

const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ErrEmptyReply is returned when the provider answered without any text.
var ErrEmptyReply = errors.New("ai: empty reply")

// AI is the completion capability. It knows nothing about users, storage or
// transport: it gets the whole ordered conversation and returns one reply.
type AI interface {
	GetReply(ctx context.Context, history []Message) (string, error)
}

// Message is the provider-neutral dialogue format.
type Message struct {
	Role string // "system" | "user" | "assistant"
	Text string
}

package coach

import (
	"context"
	"errors"
	"time"
)

// PlanPoints is the number of points a complete plan has.
const PlanPoints = 10

var (
	ErrProfileNotFound = errors.New("profile not found")
	ErrCompletion      = errors.New("completion failed")
)

type Role string

const (
	RoleContext   Role = "context"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one entry of the in-process conversation history.
type Turn struct {
	Role Role
	Text string
}

// Profile is the normalized row kept per user. Nil fields are unknown.
type Profile struct {
	UserKey   string    `json:"user_key"`
	Name      *string   `json:"name,omitempty"`
	Age       *int      `json:"age,omitempty"`
	Gender    *string   `json:"gender,omitempty"`
	Height    *float64  `json:"height,omitempty"`
	Weight    *float64  `json:"weight,omitempty"`
	Goal      *string   `json:"goal,omitempty"`
	Plan      []string  `json:"plan,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Sender string

const (
	SenderUser Sender = "user"
	SenderAI   Sender = "ai"
)

// LogEntry is one line of the persisted conversation audit log.
type LogEntry struct {
	ID        string    `json:"id"`
	UserKey   string    `json:"user_key"`
	Sender    Sender    `json:"sender"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// Event is an inbound text message from the transport.
type Event struct {
	UserKey string
	Text    string
	At      time.Time
}

// State is derived from (history empty, profile exists) and never stored.
type State string

const (
	StateNew        State = "NEW"
	StateOnboarding State = "ONBOARDING"
	StateActive     State = "ACTIVE"
)

type Outbound interface {
	SendText(ctx context.Context, userKey string, text string) error
	SendTyping(ctx context.Context, userKey string) error
}

// ProfileRepo is the Profile Store.
type ProfileRepo interface {
	GetProfile(ctx context.Context, userKey string) (*Profile, error)
	ReplaceProfile(ctx context.Context, p *Profile) error
	DeleteProfile(ctx context.Context, userKey string) error
}

// Repo is the persistence port.
type Repo interface {
	ProfileRepo
	SaveMessage(ctx context.Context, entry *LogEntry) error
	GetHistory(ctx context.Context, userKey string) ([]LogEntry, error)
}

// Service is the turn orchestration port.
type Service interface {
	HandleIncoming(ctx context.Context, ev Event) error
	Dispatch(ctx context.Context, ev Event)
	Wait()

	State(ctx context.Context, userKey string) (State, error)
	GetProfile(ctx context.Context, userKey string) (*Profile, error)
	GetHistory(ctx context.Context, userKey string) ([]LogEntry, error)
}

package coach

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Primer builds the context turn that opens a session.
type Primer struct {
	repo    ProfileRepo
	history *History
}

func NewPrimer(repo ProfileRepo, history *History) *Primer {
	return &Primer{repo: repo, history: history}
}

// Prime returns the context turn for a user whose history is empty, or nil
// when the session is already primed. The caller commits the turn to the
// history ahead of the user's message.
func (p *Primer) Prime(ctx context.Context, userKey string) (*Turn, error) {
	if p.history.Len(userKey) > 0 {
		return nil, nil
	}

	profile, err := p.repo.GetProfile(ctx, userKey)
	switch {
	case errors.Is(err, ErrProfileNotFound):
		return &Turn{Role: RoleContext, Text: onboardingNote}, nil
	case err != nil:
		return nil, fmt.Errorf("load profile: %w", err)
	}

	return &Turn{Role: RoleContext, Text: recap(profile)}, nil
}

func recap(p *Profile) string {
	var fields strings.Builder
	line := func(name, value string) {
		fields.WriteString("- ")
		fields.WriteString(name)
		fields.WriteString(": ")
		fields.WriteString(value)
		fields.WriteByte('\n')
	}
	line("name", strOr(p.Name))
	if p.Age != nil {
		line("age", strconv.Itoa(*p.Age))
	} else {
		line("age", "unknown")
	}
	line("gender", strOr(p.Gender))
	line("height", floatOr(p.Height))
	line("weight", floatOr(p.Weight))
	line("goal", strOr(p.Goal))

	plan := noPlanPlaceholder
	if len(p.Plan) > 0 {
		plan = planText(p.Plan)
	}

	return fmt.Sprintf(recapTemplate, strings.TrimRight(fields.String(), "\n"), plan)
}

func strOr(s *string) string {
	if s == nil {
		return "unknown"
	}
	return *s
}

func floatOr(f *float64) string {
	if f == nil {
		return "unknown"
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

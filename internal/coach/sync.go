package coach

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrEmptyPayload means the payload carried none of the profile fields.
var ErrEmptyPayload = errors.New("payload has no profile fields")

// SyncError is a payload that failed validation. Nothing was written.
type SyncError struct {
	Field  string
	Reason string
	Err    error
}

func (e *SyncError) Error() string {
	msg := "sync: "
	if e.Field != "" {
		msg += e.Field + ": "
	}
	msg += e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SyncError) Unwrap() error { return e.Err }

// profileKeys lists, per profile field, the payload keys models tend to
// produce for it. The first key present wins; later ones only fill a gap.
var profileKeys = []struct {
	field string
	keys  []string
}{
	{"name", []string{"name"}},
	{"age", []string{"age"}},
	{"gender", []string{"gender", "sex"}},
	{"height", []string{"height", "height_cm"}},
	{"weight", []string{"weight", "weight_kg"}},
	{"goal", []string{"goal", "fitness_goal", "main_goal"}},
	{"plan", []string{"plan", "plan_points"}},
}

// Synchronizer validates extracted payloads and replaces the stored profile.
type Synchronizer struct {
	repo ProfileRepo
	now  func() time.Time
}

func NewSynchronizer(repo ProfileRepo) *Synchronizer {
	return &Synchronizer{repo: repo, now: time.Now}
}

// Sync decodes payload and replaces the user's row with it. planHint is used
// as the plan when the payload itself carries none. The returned error is a
// *SyncError for bad payloads and a wrapped store error otherwise.
func (s *Synchronizer) Sync(ctx context.Context, userKey, payload string, planHint []string) (*Profile, error) {
	p, err := DecodePayload(payload)
	if err != nil {
		return nil, err
	}
	if len(p.Plan) == 0 && len(planHint) == PlanPoints {
		p.Plan = planHint
	}
	p.UserKey = userKey
	p.UpdatedAt = s.now().UTC()

	if err := s.repo.ReplaceProfile(ctx, p); err != nil {
		return nil, fmt.Errorf("store: %w", err)
	}
	return p, nil
}

// DecodePayload parses a profile payload. Unknown keys are ignored, null
// values count as absent.
func DecodePayload(payload string) (*Profile, error) {
	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()

	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &SyncError{Reason: "malformed payload", Err: err}
	}

	values := make(map[string]any, len(raw))
	origin := make(map[string]string, len(raw))
	for key, value := range raw {
		norm := strings.ToLower(strings.TrimSpace(key))
		// An exact lowercase key wins; among case variants the smallest one does.
		if prev, taken := origin[norm]; taken && (prev == norm || key != norm && key > prev) {
			continue
		}
		values[norm] = value
		origin[norm] = key
	}

	p := &Profile{}
	found := 0
	for _, pk := range profileKeys {
		for _, key := range pk.keys {
			value := values[key]
			if value == nil {
				continue
			}
			set, err := setField(p, pk.field, value)
			if err != nil {
				return nil, err
			}
			if set {
				found++
				break
			}
		}
	}
	if found == 0 {
		return nil, &SyncError{Reason: "no profile fields", Err: ErrEmptyPayload}
	}
	if n := len(p.Plan); n != 0 && n != PlanPoints {
		return nil, &SyncError{Field: "plan", Reason: fmt.Sprintf("has %d points, want %d", n, PlanPoints)}
	}
	return p, nil
}

func setField(p *Profile, field string, value any) (bool, error) {
	switch field {
	case "name", "gender", "goal":
		s, ok := coerceString(value)
		if !ok {
			return false, &SyncError{Field: field, Reason: fmt.Sprintf("want string, got %T", value)}
		}
		if s == "" {
			return false, nil
		}
		switch field {
		case "name":
			p.Name = &s
		case "gender":
			p.Gender = &s
		default:
			p.Goal = &s
		}
	case "age":
		n, ok := coerceInt(value)
		if !ok {
			return false, &SyncError{Field: field, Reason: fmt.Sprintf("want integer, got %v", value)}
		}
		if n < 0 || n > 150 {
			return false, &SyncError{Field: field, Reason: fmt.Sprintf("out of range: %d", n)}
		}
		p.Age = &n
	case "height", "weight":
		f, ok := coerceFloat(value)
		if !ok {
			return false, &SyncError{Field: field, Reason: fmt.Sprintf("want number, got %v", value)}
		}
		if f <= 0 {
			return false, &SyncError{Field: field, Reason: fmt.Sprintf("must be positive: %v", f)}
		}
		if field == "height" {
			p.Height = &f
		} else {
			p.Weight = &f
		}
	case "plan":
		items, ok := value.([]any)
		if !ok {
			return false, &SyncError{Field: field, Reason: fmt.Sprintf("want list, got %T", value)}
		}
		points := make([]string, 0, len(items))
		for i, item := range items {
			s, ok := coerceString(item)
			if !ok || s == "" {
				return false, &SyncError{Field: field, Reason: fmt.Sprintf("point %d is empty or not text", i+1)}
			}
			points = append(points, s)
		}
		p.Plan = points
		return len(points) > 0, nil
	}
	return true, nil
}

func coerceString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t), true
	case json.Number:
		return t.String(), true
	}
	return "", false
}

func coerceInt(v any) (int, bool) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return int(n), true
		}
		f, err := t.Float64()
		if err != nil || f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	case string:
		f, ok := leadingNumber(t)
		if !ok || f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	}
	return 0, false
}

func coerceFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case json.Number:
		f, err := t.Float64()
		return f, err == nil
	case string:
		return leadingNumber(t)
	}
	return 0, false
}

// leadingNumber parses "180", "180.5 cm" or "75,5kg"; the unit suffix is
// dropped.
func leadingNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	end := 0
	seenDot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if (c == '.' || c == ',') && !seenDot && end > 0 {
			seenDot = true
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	num := strings.TrimRight(strings.Replace(s[:end], ",", ".", 1), ".")
	f, err := strconv.ParseFloat(num, 64)
	return f, err == nil
}

// MarshalPayload renders p in the marker syntax the model is asked to use, so
// Extract followed by DecodePayload gives p back.
func MarshalPayload(p *Profile) string {
	body := struct {
		Name   *string  `json:"name,omitempty"`
		Age    *int     `json:"age,omitempty"`
		Gender *string  `json:"gender,omitempty"`
		Height *float64 `json:"height,omitempty"`
		Weight *float64 `json:"weight,omitempty"`
		Goal   *string  `json:"goal,omitempty"`
		Plan   []string `json:"plan,omitempty"`
	}{p.Name, p.Age, p.Gender, p.Height, p.Weight, p.Goal, p.Plan}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(body)
	return DataMarker + strings.TrimSpace(buf.String())
}

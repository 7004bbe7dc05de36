package coach

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

var planColumns = func() []string {
	cols := make([]string, PlanPoints)
	for i := range cols {
		cols[i] = fmt.Sprintf("plan_%d", i+1)
	}
	return cols
}()

var profileColumns = append([]string{
	"user_id", "name", "age", "gender", "height", "weight", "goal",
}, append(planColumns, "updated_at")...)

type repo struct {
	db *sqlx.DB
}

func NewRepo(db *sqlx.DB) Repo {
	return &repo{db: db}
}

func (r *repo) GetProfile(ctx context.Context, userKey string) (*Profile, error) {
	query := r.db.Rebind(`SELECT ` + strings.Join(profileColumns, ", ") + ` FROM user_profiles WHERE user_id = ?`)

	var (
		p      Profile
		name   sql.NullString
		age    sql.NullInt64
		gender sql.NullString
		height sql.NullFloat64
		weight sql.NullFloat64
		goal   sql.NullString
		plan   = make([]sql.NullString, PlanPoints)
	)

	dest := []any{&p.UserKey, &name, &age, &gender, &height, &weight, &goal}
	for i := range plan {
		dest = append(dest, &plan[i])
	}
	dest = append(dest, &p.UpdatedAt)

	if err := r.db.QueryRowxContext(ctx, query, userKey).Scan(dest...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProfileNotFound
		}
		return nil, errors.Wrapf(err, "get profile %s", userKey)
	}

	if name.Valid {
		p.Name = &name.String
	}
	if age.Valid {
		v := int(age.Int64)
		p.Age = &v
	}
	if gender.Valid {
		p.Gender = &gender.String
	}
	if height.Valid {
		p.Height = &height.Float64
	}
	if weight.Valid {
		p.Weight = &weight.Float64
	}
	if goal.Valid {
		p.Goal = &goal.String
	}
	// A stored plan is always complete; any NULL column means there is none.
	points := make([]string, 0, PlanPoints)
	for _, pt := range plan {
		if !pt.Valid {
			points = nil
			break
		}
		points = append(points, pt.String)
	}
	p.Plan = points

	return &p, nil
}

// ReplaceProfile writes every column, so fields the new profile lacks end up
// NULL instead of keeping their old value. In the same transaction the active
// plan history row is closed, and a new one is opened when p carries a plan.
func (r *repo) ReplaceProfile(ctx context.Context, p *Profile) error {
	if len(p.Plan) != 0 && len(p.Plan) != PlanPoints {
		return errors.Errorf("replace profile %s: plan has %d points, want %d", p.UserKey, len(p.Plan), PlanPoints)
	}

	args := map[string]any{
		"user_id":    p.UserKey,
		"name":       p.Name,
		"age":        p.Age,
		"gender":     p.Gender,
		"height":     p.Height,
		"weight":     p.Weight,
		"goal":       p.Goal,
		"updated_at": p.UpdatedAt,
	}
	for i, col := range planColumns {
		if len(p.Plan) == PlanPoints {
			args[col] = p.Plan[i]
		} else {
			args[col] = nil
		}
	}

	updates := make([]string, 0, len(profileColumns)-1)
	for _, col := range profileColumns[1:] {
		updates = append(updates, col+" = excluded."+col)
	}
	upsert := `INSERT INTO user_profiles (` + strings.Join(profileColumns, ", ") + `)
		VALUES (:` + strings.Join(profileColumns, ", :") + `)
		ON CONFLICT (user_id) DO UPDATE SET ` + strings.Join(updates, ", ")

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin replace profile")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.NamedExecContext(ctx, upsert, args); err != nil {
		return errors.Wrapf(err, "upsert profile %s", p.UserKey)
	}

	// The active plan ends whether it is superseded or dropped.
	if _, err := tx.ExecContext(ctx, tx.Rebind(`
		UPDATE plan_history SET end_date = ?
		WHERE user_id = ? AND end_date IS NULL
	`), p.UpdatedAt, p.UserKey); err != nil {
		return errors.Wrapf(err, "close active plan %s", p.UserKey)
	}

	if len(p.Plan) == PlanPoints {
		if _, err := tx.ExecContext(ctx, tx.Rebind(`
			INSERT INTO plan_history (id, user_id, plan_text, start_date, end_date)
			VALUES (?, ?, ?, ?, NULL)
		`), uuid.NewString(), p.UserKey, planText(p.Plan), p.UpdatedAt); err != nil {
			return errors.Wrapf(err, "open plan %s", p.UserKey)
		}
	}

	return errors.Wrap(tx.Commit(), "commit replace profile")
}

func (r *repo) DeleteProfile(ctx context.Context, userKey string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "begin delete profile")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM user_profiles WHERE user_id = ?`), userKey); err != nil {
		return errors.Wrapf(err, "delete profile %s", userKey)
	}
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM plan_history WHERE user_id = ?`), userKey); err != nil {
		return errors.Wrapf(err, "delete plan history %s", userKey)
	}

	return errors.Wrap(tx.Commit(), "commit delete profile")
}

func (r *repo) SaveMessage(ctx context.Context, entry *LogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.db.ExecContext(ctx, r.db.Rebind(`
		INSERT INTO conversation_log (id, user_id, sender, text, created_at)
		VALUES (?, ?, ?, ?, ?)
	`),
		entry.ID,
		entry.UserKey,
		string(entry.Sender),
		entry.Text,
		entry.CreatedAt,
	)
	return errors.Wrap(err, "save message")
}

func (r *repo) GetHistory(ctx context.Context, userKey string) ([]LogEntry, error) {
	rows, err := r.db.QueryxContext(ctx, r.db.Rebind(`
		SELECT id, user_id, sender, text, created_at
		FROM conversation_log
		WHERE user_id = ?
		ORDER BY created_at ASC
	`), userKey)
	if err != nil {
		return nil, errors.Wrap(err, "get history")
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var e LogEntry
		var sender string
		if err := rows.Scan(&e.ID, &e.UserKey, &sender, &e.Text, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan history")
		}
		e.Sender = Sender(sender)
		out = append(out, e)
	}

	return out, errors.Wrap(rows.Err(), "iterate history")
}

func planText(points []string) string {
	var b strings.Builder
	for i, pt := range points {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(strconv.Itoa(i + 1))
		b.WriteString(". ")
		b.WriteString(pt)
	}
	return b.String()
}

package coach

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRepoProfileLifecycle(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	_, err := repo.GetProfile(ctx, "1")
	require.ErrorIs(t, err, ErrProfileNotFound)

	p := &Profile{
		UserKey:   "1",
		Name:      strPtr("Sam"),
		Age:       intPtr(31),
		UpdatedAt: fixedNow,
	}
	require.NoError(t, repo.ReplaceProfile(ctx, p))

	got, err := repo.GetProfile(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, "Sam", *got.Name)
	assert.Equal(t, 31, *got.Age)
	assert.Nil(t, got.Gender)
	assert.Nil(t, got.Height)
	assert.Nil(t, got.Plan)

	// Other users are untouched by writes and deletes.
	require.NoError(t, repo.ReplaceProfile(ctx, &Profile{UserKey: "2", Goal: strPtr("bulk"), UpdatedAt: fixedNow}))

	require.NoError(t, repo.DeleteProfile(ctx, "1"))
	_, err = repo.GetProfile(ctx, "1")
	require.ErrorIs(t, err, ErrProfileNotFound)

	other, err := repo.GetProfile(ctx, "2")
	require.NoError(t, err)
	assert.Equal(t, "bulk", *other.Goal)

	// Deleting a missing profile is fine.
	require.NoError(t, repo.DeleteProfile(ctx, "404"))
}

func TestRepoRejectsPartialPlan(t *testing.T) {
	repo := newTestRepo(t)

	err := repo.ReplaceProfile(context.Background(), &Profile{UserKey: "1", Plan: []string{"only one"}, UpdatedAt: fixedNow})
	require.Error(t, err)

	_, err = repo.GetProfile(context.Background(), "1")
	require.ErrorIs(t, err, ErrProfileNotFound)
}

func TestRepoPlanHistory(t *testing.T) {
	db := newTestDB(t)
	repo := NewRepo(db)
	ctx := context.Background()

	first := &Profile{UserKey: "1", Name: strPtr("Sam"), Plan: tenPoints(), UpdatedAt: fixedNow}
	require.NoError(t, repo.ReplaceProfile(ctx, first))

	// A profile saved without a plan ends the active one.
	dropped := fixedNow.Add(time.Hour)
	require.NoError(t, repo.ReplaceProfile(ctx, &Profile{UserKey: "1", Name: strPtr("Sam"), UpdatedAt: dropped}))

	var active int
	require.NoError(t, db.Get(&active, `SELECT count(*) FROM plan_history WHERE user_id = ? AND end_date IS NULL`, "1"))
	assert.Zero(t, active)

	second := tenPoints()
	second[9] = "Hike on Sundays"
	require.NoError(t, repo.ReplaceProfile(ctx, &Profile{UserKey: "1", Name: strPtr("Sam"), Plan: second, UpdatedAt: fixedNow.Add(24 * time.Hour)}))

	got, err := repo.GetProfile(ctx, "1")
	require.NoError(t, err)
	assert.Equal(t, second, got.Plan)

	type row struct {
		PlanText string     `db:"plan_text"`
		Start    time.Time  `db:"start_date"`
		End      *time.Time `db:"end_date"`
	}
	var rows []row
	require.NoError(t, db.Select(&rows, `SELECT plan_text, start_date, end_date FROM plan_history WHERE user_id = ? ORDER BY start_date`, "1"))
	require.Len(t, rows, 2)

	assert.Equal(t, planText(tenPoints()), rows[0].PlanText)
	require.NotNil(t, rows[0].End)
	assert.True(t, rows[0].End.Equal(dropped))

	assert.Equal(t, planText(second), rows[1].PlanText)
	assert.Nil(t, rows[1].End)

	require.NoError(t, db.Get(&active, `SELECT count(*) FROM plan_history WHERE user_id = ? AND end_date IS NULL`, "1"))
	assert.Equal(t, 1, active)

	require.NoError(t, repo.DeleteProfile(ctx, "1"))
	var left int
	require.NoError(t, db.Get(&left, `SELECT count(*) FROM plan_history WHERE user_id = ?`, "1"))
	assert.Zero(t, left)
}

func TestRepoConversationLog(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	entries := []*LogEntry{
		{UserKey: "1", Sender: SenderUser, Text: "hi", CreatedAt: fixedNow},
		{UserKey: "2", Sender: SenderUser, Text: "other user", CreatedAt: fixedNow.Add(time.Second)},
		{UserKey: "1", Sender: SenderAI, Text: "hello!", CreatedAt: fixedNow.Add(2 * time.Second)},
	}
	for _, e := range entries {
		require.NoError(t, repo.SaveMessage(ctx, e))
		assert.NotEmpty(t, e.ID)
	}

	auto := &LogEntry{UserKey: "1", Sender: SenderUser, Text: "later"}
	require.NoError(t, repo.SaveMessage(ctx, auto))
	assert.False(t, auto.CreatedAt.IsZero())

	got, err := repo.GetHistory(ctx, "1")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"hi", "hello!", "later"}, []string{got[0].Text, got[1].Text, got[2].Text})
	assert.Equal(t, SenderAI, got[1].Sender)

	empty, err := repo.GetHistory(ctx, "404")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestPlanText(t *testing.T) {
	assert.Equal(t, "1. a\n2. b", planText([]string{"a", "b"}))
}

package importer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tillbook/tillbook/internal/database/repository"
)

func existingCats(names ...string) []repository.Category {
	out := make([]repository.Category, 0, len(names))
	for _, n := range names {
		out = append(out, repository.Category{ID: deterministicTestID(n), Name: n, Type: repository.TypeExpense})
	}
	return out
}

func TestCategoryConflictThresholds(t *testing.T) {
	t.Parallel()

	t.Run("short name within one edit is flagged", func(t *testing.T) {
		t.Parallel()
		got := categoryConflicts(
			[]ParsedCategory{{ID: "c1", Name: "Food"}},
			existingCats("Good"),
		)
		require.Len(t, got, 1)
		require.Equal(t, "Good", got[0].Existing.Name)
		require.Equal(t, 1, got[0].Distance)
	})

	t.Run("long name within two edits is flagged", func(t *testing.T) {
		t.Parallel()
		got := categoryConflicts(
			[]ParsedCategory{{ID: "c1", Name: "Trasportation"}},
			existingCats("Transportation"),
		)
		require.Len(t, got, 1)
		require.Equal(t, 1, got[0].Distance)
	})

	t.Run("distant names are not flagged", func(t *testing.T) {
		t.Parallel()
		got := categoryConflicts(
			[]ParsedCategory{{ID: "c1", Name: "Food"}},
			existingCats("Fuel"),
		)
		require.Empty(t, got)
	})

	t.Run("exact case-insensitive match is never a conflict", func(t *testing.T) {
		t.Parallel()
		got := categoryConflicts(
			[]ParsedCategory{{ID: "c1", Name: "GROCERIES"}},
			existingCats("Groceries"),
		)
		require.Empty(t, got)
	})

	t.Run("short names are measured in runes, not bytes", func(t *testing.T) {
		t.Parallel()
		// "Crèche" is 6 runes but 7 bytes; it must still get the
		// strict single-edit threshold.
		got := categoryConflicts(
			[]ParsedCategory{{ID: "c1", Name: "Crèche"}},
			existingCats("Crachu"), // distance 2
		)
		require.Empty(t, got)

		got = categoryConflicts(
			[]ParsedCategory{{ID: "c1", Name: "Crèche"}},
			existingCats("Crèchy"), // distance 1
		)
		require.Len(t, got, 1)
	})

	t.Run("root markers are ignored", func(t *testing.T) {
		t.Parallel()
		got := categoryConflicts(
			[]ParsedCategory{{ID: RootMarkerExpense, Name: "Expens"}},
			existingCats("Expense"),
		)
		require.Empty(t, got)
	})
}

func TestClosestCategoryTieBreak(t *testing.T) {
	t.Parallel()

	// Both are distance 1 from "Cars"; the shorter name wins, and equal
	// lengths fall back to lexicographic order.
	best, dist, found := closestCategory("Cars", existingCats("Carts", "Card"))
	require.True(t, found)
	require.Equal(t, 1, dist)
	require.Equal(t, "Card", best.Name)

	best, _, _ = closestCategory("Cars", existingCats("Care", "Card"))
	require.Equal(t, "Card", best.Name)
}

func TestRecurringConflicts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	db := newTestDB(t)

	recRepo := repository.NewRecurringRepo(db)
	cat := mustInsertCategory(t, db, "Subscriptions", repository.TypeExpense)
	require.NoError(t, recRepo.Insert(ctx, repository.RecurringEntry{
		ID:          "rec-1",
		Description: "Netflix Subscription",
		AmountCents: 1599,
		Type:        repository.TypeExpense,
		Frequency:   "monthly",
		CategoryID:  &cat.ID,
		StartDate:   mustDate(t, "2025-01-01"),
	}))

	a := &Analyzer{
		Categories: repository.NewCategoryRepo(db),
		Recurring:  recRepo,
	}

	data := ParsedData{Recurring: []ParsedRecurring{
		{ID: "r1", Description: "Netflix Subscriptio", AmountCents: 1599}, // 1 edit, same amount
		{ID: "r2", Description: "Netflix Subscription", AmountCents: 4599},
		{ID: "r3", Description: "Gym Membership", AmountCents: 1599},
	}}

	// Deliberate two-phase API: analysis before loading is an error.
	_, err := a.AnalyzeRecurringConflicts(data)
	require.ErrorIs(t, err, ErrRecurringNotLoaded)

	require.NoError(t, a.LoadExistingRecurring(ctx))
	got, err := a.AnalyzeRecurringConflicts(data)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "r1", got[0].Imported.ID)
	require.Equal(t, "Netflix Subscription", got[0].Existing.Description)
}

func TestRecurringDistanceThreshold(t *testing.T) {
	t.Parallel()
	require.Equal(t, 2, recurringDistanceThreshold("short", "tiny"))
	require.Equal(t, 4, recurringDistanceThreshold("a description of len 23", "x"))
}

func TestAnalyzeGroupData(t *testing.T) {
	t.Parallel()

	data := ParsedData{Transactions: []ParsedTransaction{
		{Description: "groceries"},
		{Description: "shared dinner", GroupID: "g1"},
		{Description: "legacy split", Raw: map[string]any{"expense_group": "flatmates"}},
	}}
	got := AnalyzeGroupData(data)
	require.True(t, got.HasGroups)
	require.Equal(t, 2, got.GroupTransactionCount)

	require.False(t, AnalyzeGroupData(ParsedData{}).HasGroups)
}

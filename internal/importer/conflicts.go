package importer

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/tillbook/tillbook/internal/database/repository"
)

// PotentialMerge pairs an imported category with its closest existing
// category. Distance 0 is never surfaced: exact matches merge automatically
// inside the processor and need no review.
type PotentialMerge struct {
	Imported ParsedCategory
	Existing repository.Category
	Distance int
}

// RecurringConflict pairs an imported recurring obligation with an existing
// one that looks like the same commitment.
type RecurringConflict struct {
	Imported ParsedRecurring
	Existing repository.RecurringEntry
	Distance int
}

// GroupDataSummary reports whether group-associated transactions are present
// in a bundle, so the caller can warn that group semantics will not survive
// import. Informational only.
type GroupDataSummary struct {
	HasGroups             bool
	GroupTransactionCount int
}

// Analyzer produces merge and duplicate candidates for human review. It is
// request-scoped: construct one per import session and never share it
// across concurrent imports.
type Analyzer struct {
	Categories *repository.CategoryRepo
	Recurring  *repository.RecurringRepo

	existingRecurring []repository.RecurringEntry
	recurringLoaded   bool
}

// AnalyzeCategoryConflicts compares every imported category name against the
// existing non-deleted categories and returns near-miss pairs under the
// conflict threshold. Exact case-insensitive matches are skipped entirely.
func (a *Analyzer) AnalyzeCategoryConflicts(ctx context.Context, data ParsedData) ([]PotentialMerge, error) {
	existing, err := a.Categories.List(ctx)
	if err != nil {
		return nil, err
	}
	return categoryConflicts(data.Categories, existing), nil
}

// categoryConflicts is the pure core of category conflict analysis.
func categoryConflicts(parsed []ParsedCategory, existing []repository.Category) []PotentialMerge {
	var out []PotentialMerge
	for _, pc := range parsed {
		if pc.Name == "" {
			continue
		}
		if _, ok := rootMarkerType(pc.ID); ok {
			continue
		}
		best, dist, found := closestCategory(pc.Name, existing)
		if !found || dist == 0 {
			continue
		}
		if dist <= categoryConflictThreshold(pc.Name) {
			out = append(out, PotentialMerge{Imported: pc, Existing: best, Distance: dist})
		}
	}
	return out
}

// categoryConflictThreshold returns the max edit distance still considered
// a conflict: short names tolerate a single edit, longer names two. Length
// is counted in runes, matching how the edit distance counts.
func categoryConflictThreshold(name string) int {
	if utf8.RuneCountInString(name) <= 6 {
		return 1
	}
	return 2
}

// closestCategory returns the minimum-distance existing category for a name.
// Ties are broken by shortest existing name, then lexicographically, so the
// choice is a stable policy rather than an accident of fetch order.
func closestCategory(name string, existing []repository.Category) (repository.Category, int, bool) {
	lower := strings.ToLower(name)
	var best repository.Category
	bestDist := -1
	for _, ec := range existing {
		d := levenshtein.ComputeDistance(lower, strings.ToLower(ec.Name))
		switch {
		case bestDist < 0 || d < bestDist:
			best, bestDist = ec, d
		case d == bestDist && betterTie(ec, best):
			best = ec
		}
	}
	return best, bestDist, bestDist >= 0
}

func betterTie(candidate, current repository.Category) bool {
	if len(candidate.Name) != len(current.Name) {
		return len(candidate.Name) < len(current.Name)
	}
	return candidate.Name < current.Name
}

// ErrRecurringNotLoaded is returned when AnalyzeRecurringConflicts runs
// before LoadExistingRecurring.
var ErrRecurringNotLoaded = errors.New("importer: existing recurring entries not loaded")

// LoadExistingRecurring fetches the existing recurring obligations once so
// conflict analysis can run repeatedly without re-reading the table.
func (a *Analyzer) LoadExistingRecurring(ctx context.Context) error {
	entries, err := a.Recurring.List(ctx)
	if err != nil {
		return err
	}
	a.existingRecurring = entries
	a.recurringLoaded = true
	return nil
}

// AnalyzeRecurringConflicts flags imported recurring obligations that look
// like existing ones: amounts within one cent and descriptions equal or
// within max(2, 20% of the longer description) edits.
func (a *Analyzer) AnalyzeRecurringConflicts(data ParsedData) ([]RecurringConflict, error) {
	if !a.recurringLoaded {
		return nil, ErrRecurringNotLoaded
	}
	var out []RecurringConflict
	for _, pr := range data.Recurring {
		if pr.Description == "" {
			continue
		}
		best, dist, found := closestRecurring(pr, a.existingRecurring)
		if found {
			out = append(out, RecurringConflict{Imported: pr, Existing: best, Distance: dist})
		}
	}
	return out, nil
}

func closestRecurring(pr ParsedRecurring, existing []repository.RecurringEntry) (repository.RecurringEntry, int, bool) {
	var best repository.RecurringEntry
	bestDist := -1
	amount := abs64(pr.AmountCents)
	for _, er := range existing {
		if abs64(er.AmountCents-amount) > 1 {
			continue
		}
		d := levenshtein.ComputeDistance(pr.Description, er.Description)
		if d > recurringDistanceThreshold(pr.Description, er.Description) {
			continue
		}
		if bestDist < 0 || d < bestDist {
			best, bestDist = er, d
		}
	}
	return best, bestDist, bestDist >= 0
}

func recurringDistanceThreshold(a, b string) int {
	longer := len(a)
	if len(b) > longer {
		longer = len(b)
	}
	t := longer / 5
	if t < 2 {
		t = 2
	}
	return t
}

// AnalyzeGroupData scans the bundle for group-association markers. It has
// no side effects and mutates nothing.
func AnalyzeGroupData(data ParsedData) GroupDataSummary {
	var s GroupDataSummary
	for _, t := range data.Transactions {
		if hasGroupMarker(t) {
			s.GroupTransactionCount++
		}
	}
	s.HasGroups = s.GroupTransactionCount > 0 || len(data.Groups) > 0
	return s
}

func abs64(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

package importer

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tillbook/tillbook/internal/database"
	"github.com/tillbook/tillbook/internal/database/repository"
)

// ProgressFunc reports pipeline progress. current is monotonically
// non-decreasing and never exceeds total.
type ProgressFunc func(current, total int, message string)

// Options tunes one import run.
type Options struct {
	// UserID identifies the importing user for group-share lookups.
	UserID string
	// RegenerateColors replaces imported palettes with deterministic
	// golden-angle colors. Only effective for legacy migrations.
	RegenerateColors bool
	// ProgressEvery throttles callbacks on the long phases. Zero means
	// the default of every 25 records.
	ProgressEvery int
}

// Summary is returned to the caller after a committed import. Orphans
// counts transactions that fell back to the Uncategorized sentinel; the
// caller should prompt the user to finish categorizing them, because the
// sentinel is excluded from cloud synchronization.
type Summary struct {
	Contexts     int
	Categories   int
	Transactions int
	Recurring    int
	Budgets      int
	Skipped      int
	Malformed    int
	Orphans      int
}

// importStrategy selects the per-source pipeline variants instead of
// duplicating the whole pipeline per source.
type importStrategy struct {
	// walkTypes resolves category types by walking to a reserved root
	// marker rather than trusting declared types.
	walkTypes bool
	// regenerateColors replaces source colors with the golden-angle
	// palette.
	regenerateColors bool
}

func strategyFor(src Source, opts Options) importStrategy {
	if src == SourceLegacyMigration {
		return importStrategy{walkTypes: true, regenerateColors: opts.RegenerateColors}
	}
	return importStrategy{}
}

// Processor drives a full import: contexts, categories, transactions,
// recurring entries, budgets, then one atomic multi-table commit. It is
// request-scoped; construct a new one per import run.
type Processor struct {
	DB    *sql.DB
	Rules *RuleEngine
	Log   *slog.Logger
}

// staged accumulates the insertion batches for every affected table. Nothing
// is written until the single commit at the end of the run.
type staged struct {
	contexts     []repository.Context
	categories   []repository.Category
	transactions []repository.Transaction
	recurring    []repository.RecurringEntry
	budgets      []repository.Budget
	record       repository.ImportRecord
}

// Run executes the deterministic pipeline. mergeDecisions pre-seeds the
// category id map with user-approved merges (source id -> existing local
// id); skipRecurringIDs excludes recurring candidates the user resolved as
// duplicates.
func (p *Processor) Run(
	ctx context.Context,
	data ParsedData,
	onProgress ProgressFunc,
	mergeDecisions map[string]string,
	skipRecurringIDs map[string]struct{},
	opts Options,
) (Summary, error) {
	strat := strategyFor(data.Source, opts)
	prog := newProgress(onProgress, progressTotal(data), opts.ProgressEvery)
	var sum Summary

	catRepo := repository.NewCategoryRepo(p.DB)
	ctxRepo := repository.NewContextRepo(p.DB)
	budgetRepo := repository.NewBudgetRepo(p.DB)

	existingCats, err := catRepo.List(ctx)
	if err != nil {
		return sum, fmt.Errorf("load categories: %w", err)
	}
	existingCtxs, err := ctxRepo.List(ctx)
	if err != nil {
		return sum, fmt.Errorf("load contexts: %w", err)
	}

	var st staged

	// Step 1: contexts, merge-by-name-or-create. Single pass: contexts
	// have no hierarchy.
	ctxMap := make(map[string]string, len(data.Contexts))
	ctxByName := make(map[string]string, len(existingCtxs))
	for _, ec := range existingCtxs {
		ctxByName[strings.ToLower(ec.Name)] = ec.ID
	}
	for _, pc := range data.Contexts {
		prog.step("contexts")
		if id, ok := ctxByName[strings.ToLower(pc.Name)]; ok {
			ctxMap[pc.ID] = id
			continue
		}
		id := uuid.NewString()
		ctxMap[pc.ID] = id
		ctxByName[strings.ToLower(pc.Name)] = id
		st.contexts = append(st.contexts, repository.Context{
			ID:    id,
			Name:  pc.Name,
			Icon:  validIcon(pc.Icon),
			Color: pc.Color,
		})
	}
	sum.Contexts = len(st.contexts)

	// Step 2: categories, two-pass hierarchy resolution.
	resolved := resolveCategories(data, mergeDecisions, existingCats, strat)
	st.categories = resolved.created
	sum.Categories = len(resolved.created)
	prog.add(len(data.Categories), "categories")

	bySourceID := make(map[string]ParsedCategory, len(data.Categories))
	for _, pc := range data.Categories {
		bySourceID[pc.ID] = pc
	}

	// Step 3: rules, then transactions.
	if p.Rules != nil {
		if err := p.Rules.LoadRules(ctx); err != nil {
			return sum, fmt.Errorf("load rules: %w", err)
		}
		applied, issues := p.Rules.ApplyRules(data.Transactions)
		if applied > 0 || len(issues) > 0 {
			p.logger().Info("rules applied", "categorized", applied, "invalid_rules", len(issues))
		}
	}

	importID := uuid.NewString()
	sentinel := repository.UncategorizedCategoryID
	for _, pt := range data.Transactions {
		prog.step("transactions")
		date, ok := validTransaction(pt)
		if !ok {
			sum.Malformed++
			continue
		}
		if pt.ruleCategoryID == SkipCategoryID {
			sum.Skipped++
			continue
		}

		var categoryID string
		switch {
		case pt.ruleCategoryID != "":
			categoryID = pt.ruleCategoryID
		case pt.CategoryID != "":
			categoryID = resolved.idMap[pt.CategoryID]
		}
		if categoryID == "" {
			categoryID = sentinel
			sum.Orphans++
		}

		amount := abs64(pt.AmountCents)
		// Shared-group expenses import as the user's personal share;
		// the group association itself does not survive.
		if pt.GroupID != "" {
			if share, ok := memberShare(data.GroupMembers, pt.GroupID, opts.UserID); ok {
				amount = int64(math.Round(float64(amount) * share / 100))
			}
		}

		typ := normalizeType(pt.Type)
		if typ == "" && strat.walkTypes && pt.CategoryID != "" {
			typ = resolveCategoryType(pt.CategoryID, bySourceID)
		}
		if typ == "" {
			typ = repository.TypeExpense
		}

		t := repository.Transaction{
			ID:          uuid.NewString(),
			Date:        date,
			AmountCents: amount,
			Description: pt.Description,
			Type:        typ,
			CategoryID:  &categoryID,
			ImportID:    &importID,
		}
		if pt.ContextID != "" {
			if mapped, ok := ctxMap[pt.ContextID]; ok {
				t.ContextID = &mapped
			}
		}
		st.transactions = append(st.transactions, t)
	}
	sum.Transactions = len(st.transactions)

	// Step 4: recurring obligations.
	for _, pr := range data.Recurring {
		prog.step("recurring")
		if _, skip := skipRecurringIDs[pr.ID]; skip {
			sum.Skipped++
			continue
		}
		if pr.Description == "" {
			sum.Malformed++
			continue
		}
		categoryID := resolved.idMap[pr.CategoryID]
		if categoryID == "" {
			categoryID = sentinel
		}
		typ := normalizeType(pr.Type)
		if typ == "" {
			typ = repository.TypeExpense
		}
		freq := pr.Frequency
		if freq == "" {
			freq = "monthly"
		}
		start := database.Now()
		if d, err := time.Parse(time.DateOnly, pr.StartDate); err == nil {
			start = d
		}
		st.recurring = append(st.recurring, repository.RecurringEntry{
			ID:          uuid.NewString(),
			Description: pr.Description,
			AmountCents: abs64(pr.AmountCents),
			Type:        typ,
			Frequency:   freq,
			CategoryID:  &categoryID,
			StartDate:   start,
		})
	}
	sum.Recurring = len(st.recurring)

	// Step 5: budgets, idempotent by (category, period).
	seenBudget := make(map[string]struct{})
	for _, pb := range data.Budgets {
		prog.step("budgets")
		categoryID := resolved.idMap[pb.CategoryID]
		if categoryID == "" || pb.Period == "" {
			sum.Malformed++
			continue
		}
		key := categoryID + "|" + pb.Period
		if _, dup := seenBudget[key]; dup {
			continue
		}
		seenBudget[key] = struct{}{}
		exists, err := budgetRepo.Exists(ctx, categoryID, pb.Period)
		if err != nil {
			return sum, fmt.Errorf("check budget: %w", err)
		}
		if exists {
			continue
		}
		st.budgets = append(st.budgets, repository.Budget{
			ID:          uuid.NewString(),
			CategoryID:  categoryID,
			Period:      pb.Period,
			AmountCents: abs64(pb.AmountCents),
		})
	}
	sum.Budgets = len(st.budgets)

	st.record = repository.ImportRecord{
		ID:           importID,
		Source:       string(data.Source),
		Categories:   sum.Categories,
		Transactions: sum.Transactions,
		Recurring:    sum.Recurring,
		Budgets:      sum.Budgets,
		Orphans:      sum.Orphans,
	}

	// Step 6: one atomic multi-table commit. Partial failure rolls back
	// the whole batch; readers never observe a half-imported dataset.
	if err := p.commit(ctx, st); err != nil {
		return sum, fmt.Errorf("commit import: %w", err)
	}
	prog.finish("done")

	p.logger().Info("import committed",
		"source", data.Source,
		"categories", sum.Categories,
		"transactions", sum.Transactions,
		"recurring", sum.Recurring,
		"budgets", sum.Budgets,
		"orphans", sum.Orphans,
		"skipped", sum.Skipped,
		"malformed", sum.Malformed,
	)
	return sum, nil
}

func (p *Processor) commit(ctx context.Context, st staged) error {
	return database.WithTx(p.DB, func(tx *sql.Tx) error {
		imports := repository.NewImportRepo(tx)
		if err := imports.Add(ctx, st.record); err != nil {
			return err
		}
		contexts := repository.NewContextRepo(tx)
		for _, c := range st.contexts {
			if err := contexts.Insert(ctx, c); err != nil {
				return err
			}
		}
		categories := repository.NewCategoryRepo(tx)
		for _, c := range orderParentsFirst(st.categories) {
			if err := categories.Insert(ctx, c); err != nil {
				return err
			}
		}
		transactions := repository.NewTransactionRepo(tx)
		for _, t := range st.transactions {
			if err := transactions.Insert(ctx, t); err != nil {
				return err
			}
		}
		recurring := repository.NewRecurringRepo(tx)
		for _, e := range st.recurring {
			if err := recurring.Insert(ctx, e); err != nil {
				return err
			}
		}
		budgets := repository.NewBudgetRepo(tx)
		for _, b := range st.budgets {
			if err := budgets.Insert(ctx, b); err != nil {
				return err
			}
		}
		return nil
	})
}

// orderParentsFirst sorts staged categories so a parent row is inserted
// before any of its children, keeping the foreign key on parent_id happy
// regardless of source ordering.
func orderParentsFirst(cats []repository.Category) []repository.Category {
	staged := make(map[string]repository.Category, len(cats))
	for _, c := range cats {
		staged[c.ID] = c
	}
	out := make([]repository.Category, 0, len(cats))
	done := make(map[string]struct{}, len(cats))
	var place func(c repository.Category, depth int)
	place = func(c repository.Category, depth int) {
		if _, ok := done[c.ID]; ok {
			return
		}
		if c.ParentID != nil && depth <= maxParentDepth {
			if parent, ok := staged[*c.ParentID]; ok {
				place(parent, depth+1)
			}
		}
		done[c.ID] = struct{}{}
		out = append(out, c)
	}
	for _, c := range cats {
		place(c, 0)
	}
	return out
}

// validTransaction enforces the parser contract: date, amount, description.
// Malformed rows are skipped silently, never fatal.
func validTransaction(pt ParsedTransaction) (time.Time, bool) {
	if pt.Description == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(time.DateOnly, pt.Date)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// memberShare finds the importing user's share percentage in a group.
func memberShare(members []ParsedGroupMember, groupID, userID string) (float64, bool) {
	if userID == "" {
		return 0, false
	}
	for _, m := range members {
		if m.GroupID == groupID && m.UserID == userID {
			return m.SharePct, true
		}
	}
	return 0, false
}

func normalizeType(t string) string {
	switch t {
	case repository.TypeExpense, repository.TypeIncome, repository.TypeInvestment:
		return t
	}
	return ""
}

func (p *Processor) logger() *slog.Logger {
	if p.Log != nil {
		return p.Log
	}
	return slog.Default()
}

// progress throttles callback invocation on the long phases so the host
// event loop is not starved by per-record callbacks.
type progress struct {
	fn      ProgressFunc
	current int
	total   int
	every   int
}

func progressTotal(data ParsedData) int {
	return len(data.Contexts) + len(data.Categories) + len(data.Transactions) +
		len(data.Recurring) + len(data.Budgets) + 1 // +1 for the commit
}

func newProgress(fn ProgressFunc, total, every int) *progress {
	if every <= 0 {
		every = 25
	}
	return &progress{fn: fn, total: total, every: every}
}

func (p *progress) step(message string) {
	p.current++
	if p.fn != nil && p.current%p.every == 0 {
		p.fn(p.current, p.total, message)
	}
}

func (p *progress) add(n int, message string) {
	if n <= 0 {
		return
	}
	p.current += n
	if p.fn != nil {
		p.fn(p.current, p.total, message)
	}
}

func (p *progress) finish(message string) {
	p.current = p.total
	if p.fn != nil {
		p.fn(p.current, p.total, message)
	}
}

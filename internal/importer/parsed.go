// Package importer implements the import reconciliation and merge engine:
// it takes pre-parsed financial data from any format parser and merges it
// into the local dataset without duplicating categories or recurring
// entries, preserving hierarchy and re-scaling shared-group amounts.
package importer

import "github.com/tillbook/tillbook/internal/database/repository"

// Source identifies which parser produced a ParsedData bundle.
type Source string

const (
	SourceFullBackup      Source = "full-backup"
	SourceLegacyMigration Source = "legacy-migration"
	SourceGenericCSV      Source = "generic-csv"
	SourceBankExport      Source = "bank-export"
)

// Reserved root markers. Legacy exports model the three top-level domains
// as pseudo-categories with these ids; they are structural placeholders and
// are never materialized as real categories.
const (
	RootMarkerExpense    = "__root_expense__"
	RootMarkerIncome     = "__root_income__"
	RootMarkerInvestment = "__root_investment__"
)

// SkipCategoryID is the pseudo-category a rule may target to exclude
// matching transactions from this and future imports.
const SkipCategoryID = "SKIP"

// rootMarkerType resolves a reserved root marker to its domain.
func rootMarkerType(id string) (string, bool) {
	switch id {
	case RootMarkerExpense:
		return repository.TypeExpense, true
	case RootMarkerIncome:
		return repository.TypeIncome, true
	case RootMarkerInvestment:
		return repository.TypeInvestment, true
	}
	return "", false
}

// ParsedData is the entire contract between format parsers and the engine.
// The engine assumes nothing about how a bundle was produced.
type ParsedData struct {
	Source       Source              `json:"source"`
	Transactions []ParsedTransaction `json:"transactions"`
	Categories   []ParsedCategory    `json:"categories,omitempty"`
	Contexts     []ParsedContext     `json:"contexts,omitempty"`
	Recurring    []ParsedRecurring   `json:"recurring,omitempty"`
	Budgets      []ParsedBudget      `json:"budgets,omitempty"`
	Groups       []ParsedGroup       `json:"groups,omitempty"`
	GroupMembers []ParsedGroupMember `json:"group_members,omitempty"`
}

// ParsedTransaction is one imported transaction. AmountCents is signed as
// parsed; the engine normalizes it to an absolute value on commit, with
// direction carried by Type alone. Raw is an opaque diagnostics bag that
// core logic never inspects except through the group-data scan.
type ParsedTransaction struct {
	Date        string         `json:"date"` // ISO day, 2006-01-02
	AmountCents int64          `json:"amount_cents"`
	Description string         `json:"description"`
	CategoryID  string         `json:"category_id,omitempty"` // source id
	ContextID   string         `json:"context_id,omitempty"`  // source id
	Type        string         `json:"type,omitempty"`
	GroupID     string         `json:"group_id,omitempty"`
	UserID      string         `json:"user_id,omitempty"` // originating user
	Raw         map[string]any `json:"raw,omitempty"`

	// ruleCategoryID holds a local category id assigned by the rule
	// engine during an import run. It is never serialized.
	ruleCategoryID string
}

// ParsedCategory is one imported category. ParentID references another
// source id or a reserved root marker; the hierarchy must be acyclic, and
// the engine bounds parent walks to tolerate malformed input.
type ParsedCategory struct {
	ID       string `json:"id"` // source id
	Name     string `json:"name"`
	Type     string `json:"type,omitempty"`
	Icon     string `json:"icon,omitempty"`
	Color    string `json:"color,omitempty"`
	ParentID string `json:"parent_id,omitempty"`
	Active   *bool  `json:"active,omitempty"`
}

// ParsedContext is one imported spending context.
type ParsedContext struct {
	ID    string `json:"id"` // source id
	Name  string `json:"name"`
	Icon  string `json:"icon,omitempty"`
	Color string `json:"color,omitempty"`
}

// ParsedRecurring is one imported recurring obligation.
type ParsedRecurring struct {
	ID          string `json:"id"` // source id
	Description string `json:"description"`
	AmountCents int64  `json:"amount_cents"`
	Type        string `json:"type,omitempty"`
	Frequency   string `json:"frequency,omitempty"`
	CategoryID  string `json:"category_id,omitempty"` // source id
	StartDate   string `json:"start_date,omitempty"`  // ISO day
}

// ParsedBudget is one imported budget.
type ParsedBudget struct {
	CategoryID  string `json:"category_id"` // source id
	Period      string `json:"period"`
	AmountCents int64  `json:"amount_cents"`
}

// ParsedGroup is a shared-expense group present in the source data. Group
// semantics do not survive import; groups are consumed only to re-scale
// member shares.
type ParsedGroup struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ParsedGroupMember is one group membership with its expense share.
type ParsedGroupMember struct {
	GroupID  string  `json:"group_id"`
	UserID   string  `json:"user_id"`
	SharePct float64 `json:"share_pct"`
}

// rawGroupKeys are the payload markers parsers of various origins use to
// tag a transaction with a group association.
var rawGroupKeys = []string{"group_id", "groupId", "expense_group", "split_group"}

// hasGroupMarker is the single accessor allowed to look inside the raw
// payload; everything else in the engine stays strongly typed.
func hasGroupMarker(t ParsedTransaction) bool {
	if t.GroupID != "" {
		return true
	}
	for _, k := range rawGroupKeys {
		if v, ok := t.Raw[k]; ok && v != nil && v != "" {
			return true
		}
	}
	return false
}

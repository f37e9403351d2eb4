package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same repository code
// serves ad-hoc queries and the import engine's single-transaction commit.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Category types. A category's type is assigned once and never changes.
const (
	TypeExpense    = "expense"
	TypeIncome     = "income"
	TypeInvestment = "investment"
)

// UncategorizedCategoryID is the well-known id of the local-only sentinel
// category that holds transactions the import engine could not classify.
// It is never written to the sync layer.
var UncategorizedCategoryID = uuid.NewSHA1(uuid.NameSpaceOID, []byte("cat:uncategorized")).String()

// Category represents a category row.
type Category struct {
	ID        string
	ParentID  *string
	Name      string
	Type      string
	Icon      string
	Color     string
	Active    bool
	LocalOnly bool
	SortOrder int
	DeletedAt *time.Time
}

// Context represents a spending context row (wallet, account, envelope).
type Context struct {
	ID        string
	Name      string
	Icon      string
	Color     string
	DeletedAt *time.Time
}

// Transaction represents a transaction row. Amounts are stored as absolute
// cents; direction is carried entirely by Type.
type Transaction struct {
	ID          string
	Date        time.Time
	AmountCents int64
	Description string
	Type        string
	CategoryID  *string
	ContextID   *string
	ImportID    *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// RecurringEntry represents a recurring obligation row.
type RecurringEntry struct {
	ID          string
	Description string
	AmountCents int64
	Type        string
	Frequency   string
	CategoryID  *string
	StartDate   time.Time
	DeletedAt   *time.Time
}

// Budget represents a budget row. (CategoryID, Period) is unique.
type Budget struct {
	ID          string
	CategoryID  string
	Period      string
	AmountCents int64
	CreatedAt   time.Time
}

// Rule match types.
const (
	MatchExact    = "exact"
	MatchContains = "contains"
	MatchRegex    = "regex"
)

// ImportRule represents a user classification rule. Rules are consulted in
// Position order; the first match wins. CategoryID may be the SKIP sentinel.
type ImportRule struct {
	ID          string
	MatchString string
	MatchType   string
	CategoryID  string
	Active      bool
	Position    int
	CreatedAt   time.Time
	DeletedAt   *time.Time
}

// ImportRecord summarizes one committed import run.
type ImportRecord struct {
	ID           string
	Source       string
	Categories   int
	Transactions int
	Recurring    int
	Budgets      int
	Orphans      int
	CreatedAt    time.Time
}

package importer

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/tillbook/tillbook/internal/database/repository"
)

// MatchOutcome classifies the result of testing one rule against a
// description. Invalid rules are an explicit outcome rather than a silent
// no-op so rule management can flag them to the user.
type MatchOutcome int

const (
	MatchOutcomeNone MatchOutcome = iota
	MatchOutcomeMatched
	MatchOutcomeInvalid
)

// RuleIssue reports a rule that could not be evaluated (currently only
// regex rules that fail to compile).
type RuleIssue struct {
	Rule repository.ImportRule
	Err  error
}

// compiledRule pairs a stored rule with its compiled regex, if any.
type compiledRule struct {
	rule repository.ImportRule
	re   *regexp.Regexp
	err  error
}

// RuleEngine applies user classification rules to uncategorized imported
// transactions. It is request-scoped: the cache belongs to one import
// session and is never shared across concurrent imports.
type RuleEngine struct {
	Rules *repository.ImportRuleRepo
	Log   *slog.Logger

	cache  []compiledRule
	loaded bool
}

// LoadRules fetches the active, non-deleted rules once and caches them in
// consultation order. Regex rules are compiled here, case-insensitively;
// compilation failures are kept as invalid entries, not raised.
func (e *RuleEngine) LoadRules(ctx context.Context) error {
	rules, err := e.Rules.ListActive(ctx)
	if err != nil {
		return err
	}
	e.cache = e.cache[:0]
	for _, r := range rules {
		cr := compiledRule{rule: r}
		if r.MatchType == repository.MatchRegex {
			cr.re, cr.err = regexp.Compile("(?i)" + r.MatchString)
			if cr.err != nil {
				e.logger().Warn("invalid regex rule", "rule_id", r.ID, "pattern", r.MatchString, "err", cr.err)
			}
		}
		e.cache = append(e.cache, cr)
	}
	e.loaded = true
	return nil
}

// Match tests the cached rules against a description in consultation order
// and returns the first matching rule's target category.
func (e *RuleEngine) Match(description string) (string, MatchOutcome) {
	desc := strings.ToLower(description)
	for _, cr := range e.cache {
		switch outcome := matchOne(cr, desc); outcome {
		case MatchOutcomeMatched:
			return cr.rule.CategoryID, MatchOutcomeMatched
		case MatchOutcomeInvalid:
			continue
		}
	}
	return "", MatchOutcomeNone
}

func matchOne(cr compiledRule, loweredDesc string) MatchOutcome {
	switch cr.rule.MatchType {
	case repository.MatchExact:
		if loweredDesc == strings.ToLower(cr.rule.MatchString) {
			return MatchOutcomeMatched
		}
	case repository.MatchContains:
		if strings.Contains(loweredDesc, strings.ToLower(cr.rule.MatchString)) {
			return MatchOutcomeMatched
		}
	case repository.MatchRegex:
		if cr.err != nil {
			return MatchOutcomeInvalid
		}
		if cr.re.MatchString(loweredDesc) {
			return MatchOutcomeMatched
		}
	}
	return MatchOutcomeNone
}

// ApplyRules assigns a category to every transaction lacking one, first
// match wins. A rule targeting SKIP marks the transaction for exclusion;
// the processor filters those out before commit. Returns the count of
// transactions newly categorized and any invalid-rule issues found.
func (e *RuleEngine) ApplyRules(txs []ParsedTransaction) (int, []RuleIssue) {
	applied := 0
	for i := range txs {
		if txs[i].CategoryID != "" || txs[i].ruleCategoryID != "" {
			continue
		}
		if target, outcome := e.Match(txs[i].Description); outcome == MatchOutcomeMatched {
			txs[i].ruleCategoryID = target
			if target != SkipCategoryID {
				applied++
			}
		}
	}
	return applied, e.Issues()
}

// Issues returns the cached rules that could not be evaluated.
func (e *RuleEngine) Issues() []RuleIssue {
	var out []RuleIssue
	for _, cr := range e.cache {
		if cr.err != nil {
			out = append(out, RuleIssue{Rule: cr.rule, Err: cr.err})
		}
	}
	return out
}

// CreateRule persists a new rule and appends it to the in-memory cache so
// it takes effect immediately without a reload.
func (e *RuleEngine) CreateRule(ctx context.Context, matchString, categoryID, matchType string) (repository.ImportRule, error) {
	switch matchType {
	case repository.MatchExact, repository.MatchContains, repository.MatchRegex:
	default:
		return repository.ImportRule{}, fmt.Errorf("unknown match type %q", matchType)
	}
	pos, err := e.Rules.NextPosition(ctx)
	if err != nil {
		return repository.ImportRule{}, err
	}
	rule := repository.ImportRule{
		ID:          uuid.NewString(),
		MatchString: matchString,
		MatchType:   matchType,
		CategoryID:  categoryID,
		Active:      true,
		Position:    pos,
	}
	if err := e.Rules.Insert(ctx, rule); err != nil {
		return repository.ImportRule{}, err
	}
	cr := compiledRule{rule: rule}
	if matchType == repository.MatchRegex {
		cr.re, cr.err = regexp.Compile("(?i)" + matchString)
	}
	e.cache = append(e.cache, cr)
	return rule, nil
}

func (e *RuleEngine) logger() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tillbook/tillbook/internal/config"
	"github.com/tillbook/tillbook/internal/database"
	"github.com/tillbook/tillbook/internal/database/repository"
	"github.com/tillbook/tillbook/internal/importer"
)

func main() {
	var (
		file        = flag.String("file", "", "path to a ParsedData JSON bundle")
		userID      = flag.String("user", "", "importing user id, used for group share scaling")
		analyzeOnly = flag.Bool("analyze", false, "report conflicts without committing")
	)
	flag.Parse()
	if *file == "" {
		fmt.Fprintln(os.Stderr, "usage: tillbook-import -file bundle.json [-user id] [-analyze]")
		os.Exit(2)
	}

	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0o755); err != nil {
		log.Fatalf("mkdir db dir: %v", err)
	}
	if err := database.RunMigrations(cfg.Database.Path, cfg.Database.MigrationsPath); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if err := database.SeedDefaults(ctx, db); err != nil {
		log.Fatalf("seed defaults: %v", err)
	}

	raw, err := os.ReadFile(*file)
	if err != nil {
		log.Fatalf("read bundle: %v", err)
	}
	var data importer.ParsedData
	if err := json.Unmarshal(raw, &data); err != nil {
		log.Fatalf("decode bundle: %v", err)
	}

	analyzer := &importer.Analyzer{
		Categories: repository.NewCategoryRepo(db),
		Recurring:  repository.NewRecurringRepo(db),
	}
	merges, err := analyzer.AnalyzeCategoryConflicts(ctx, data)
	if err != nil {
		log.Fatalf("analyze categories: %v", err)
	}
	for _, m := range merges {
		fmt.Printf("category %q is close to existing %q (distance %d)\n",
			m.Imported.Name, m.Existing.Name, m.Distance)
	}
	if err := analyzer.LoadExistingRecurring(ctx); err != nil {
		log.Fatalf("load recurring: %v", err)
	}
	recConflicts, err := analyzer.AnalyzeRecurringConflicts(data)
	if err != nil {
		log.Fatalf("analyze recurring: %v", err)
	}
	for _, c := range recConflicts {
		fmt.Printf("recurring %q may duplicate existing %q (distance %d)\n",
			c.Imported.Description, c.Existing.Description, c.Distance)
	}
	if g := importer.AnalyzeGroupData(data); g.HasGroups {
		fmt.Printf("warning: %d group-associated transactions; group semantics will not survive import\n",
			g.GroupTransactionCount)
	}
	if *analyzeOnly {
		return
	}

	proc := &importer.Processor{
		DB:    db,
		Rules: &importer.RuleEngine{Rules: repository.NewImportRuleRepo(db), Log: logger},
		Log:   logger,
	}
	onProgress := func(current, total int, message string) {
		fmt.Fprintf(os.Stderr, "\r%s %d/%d", message, current, total)
	}
	sum, err := proc.Run(ctx, data, onProgress, nil, nil, importer.Options{
		UserID:           *userID,
		RegenerateColors: cfg.Import.RegenerateColors,
		ProgressEvery:    cfg.Import.ProgressEvery,
	})
	fmt.Fprintln(os.Stderr)
	if err != nil {
		log.Fatalf("import: %v", err)
	}

	fmt.Printf("imported %d categories, %d transactions, %d recurring, %d budgets\n",
		sum.Categories, sum.Transactions, sum.Recurring, sum.Budgets)
	if sum.Orphans > 0 {
		fmt.Printf("%d transactions were filed under Uncategorized; categorize them before they can sync\n", sum.Orphans)
	}
	if sum.Skipped > 0 || sum.Malformed > 0 {
		fmt.Printf("skipped %d, malformed %d\n", sum.Skipped, sum.Malformed)
	}
}

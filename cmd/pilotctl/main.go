package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"pocketpilot/internal/config"
	"pocketpilot/internal/importer"
	applog "pocketpilot/internal/log"
	"pocketpilot/internal/services"
	"pocketpilot/internal/storage"
)

var (
	logger  = applog.New(applog.Config{Component: applog.ComponentImport})
	horizon int

	rootCmd = &cobra.Command{
		Use:   "pilotctl",
		Short: "Manage a pocketpilot expense database from the command line.",
		Long: `pilotctl works directly against the SQLite database configured through
SQLITE_DB_PATH, without a running server. It imports bank statement CSV
files and prints per-category spending forecasts.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			_ = godotenv.Load()
			applog.SetDefault(logger)
		},
	}

	importCmd = &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import a bank statement CSV, categorizing each row",
		Args:  cobra.ExactArgs(1),
		RunE:  runImport,
	}

	predictCmd = &cobra.Command{
		Use:   "predict",
		Short: "Print per-category spending forecasts",
		Args:  cobra.NoArgs,
		RunE:  runPredict,
	}
)

func init() {
	predictCmd.Flags().IntVarP(&horizon, "months", "m", 0, "Forecast horizon in months (default: PREDICT_HORIZON)")
	rootCmd.AddCommand(importCmd, predictCmd)
}

func openService() (*services.ReportService, *storage.SQLiteRepository, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return services.NewReportService(repo, nil), repo, nil
}

func runImport(cmd *cobra.Command, args []string) error {
	file, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("open statement: %w", err)
	}
	defer file.Close()

	txs, err := importer.Parse(file)
	if err != nil {
		return fmt.Errorf("parse statement: %w", err)
	}

	svc, repo, err := openService()
	if err != nil {
		return err
	}
	defer repo.Close()

	count, err := svc.Import(cmd.Context(), txs)
	if err != nil {
		return fmt.Errorf("import transactions: %w", err)
	}

	logger.Info("Import complete", applog.FieldCount, count, "file", args[0])
	return nil
}

func runPredict(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	months := horizon
	if months <= 0 {
		months = cfg.PredictHorizon
	}

	svc, repo, err := openService()
	if err != nil {
		return err
	}
	defer repo.Close()

	preds, err := svc.Predict(cmd.Context(), months)
	if err != nil {
		return fmt.Errorf("predict: %w", err)
	}
	if len(preds) == 0 {
		fmt.Println("no transactions recorded yet")
		return nil
	}

	categories := make([]string, 0, len(preds))
	for cat := range preds {
		categories = append(categories, cat)
	}
	sort.Strings(categories)

	for _, cat := range categories {
		fmt.Printf("%s:", cat)
		for _, v := range preds[cat] {
			fmt.Printf(" %s", v.StringFixed(2))
		}
		fmt.Println()
	}
	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

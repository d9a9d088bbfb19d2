package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"

	"solana-sniper-bot/config"
	"solana-sniper-bot/internal/database"
	"solana-sniper-bot/internal/logging"
	"solana-sniper-bot/internal/thresholds"
)

// Offline threshold analysis over the recorded outcome history. By default it
// only reports what the optimizer would change; -apply writes the changes to
// the threshold history so the bot picks them up as a baseline.
func main() {
	lookback := flag.Int("lookback", 200, "number of most recent completed outcomes to analyze")
	apply := flag.Bool("apply", false, "persist recommended changes to the threshold history")
	flag.Parse()

	godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Println("failed to load configuration:", err)
		os.Exit(1)
	}
	if !cfg.DatabaseConfig.Enabled {
		fmt.Println("threshold analysis needs the database: set DB_ENABLED=true")
		os.Exit(1)
	}

	logger := logging.New(&logging.Config{Level: "WARN", Output: "stderr"})

	db, err := database.NewDB(database.Config{
		Host:     cfg.DatabaseConfig.Host,
		Port:     cfg.DatabaseConfig.Port,
		User:     cfg.DatabaseConfig.User,
		Password: cfg.DatabaseConfig.Password,
		Database: cfg.DatabaseConfig.Database,
		SSLMode:  cfg.DatabaseConfig.SSLMode,
	})
	if err != nil {
		fmt.Println("database connection failed:", err)
		os.Exit(1)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	repo := database.NewRepository(db)
	outcomes, err := repo.CompletedOutcomes(ctx, *lookback)
	if err != nil {
		fmt.Println("loading outcomes failed:", err)
		os.Exit(1)
	}

	wins, losses := 0, 0
	pnlSOL := 0.0
	for _, oc := range outcomes {
		if oc.Won {
			wins++
		} else {
			losses++
		}
		pnlSOL += oc.PnlSOL
	}

	fmt.Println("================================================================")
	fmt.Println("THRESHOLD ANALYSIS")
	fmt.Println("================================================================")
	fmt.Printf("Outcomes analyzed: %d (%d wins, %d losses)\n", len(outcomes), wins, losses)
	if len(outcomes) > 0 {
		fmt.Printf("Win rate:          %.1f%%\n", float64(wins)/float64(len(outcomes))*100)
	}
	fmt.Printf("Net PnL:           %+.4f SOL\n", pnlSOL)
	fmt.Println()

	store := thresholds.NewStore(thresholds.DefaultThresholdSet())
	optimizerConfig := thresholds.DefaultOptimizerConfig()
	optimizerConfig.MinSampleSize = cfg.OptimizerConfig.MinSampleSize
	optimizerConfig.TargetWinRate = cfg.OptimizerConfig.TargetWinRate
	optimizerConfig.MaxChangePercent = cfg.OptimizerConfig.MaxChangePercent
	optimizer := thresholds.NewOptimizer(optimizerConfig, store, logger)

	recs, err := optimizer.Recommend(outcomes)
	if err != nil {
		fmt.Println("no recommendations:", err)
		os.Exit(0)
	}
	if len(recs) == 0 {
		fmt.Println("Current thresholds look right for this history; nothing to change.")
		return
	}

	fmt.Println("Recommended changes:")
	for _, rec := range recs {
		fmt.Printf("  %-28s %8.2f -> %8.2f  (separation %.2f)\n",
			rec.Factor, rec.Current, rec.Recommended, rec.Separation)
		fmt.Printf("    %s\n", rec.Reason)
	}

	if !*apply {
		fmt.Println()
		fmt.Println("Dry analysis only. Re-run with -apply to persist these changes.")
		return
	}

	now := time.Now()
	for _, rec := range recs {
		change := thresholds.Change{
			Factor:    rec.Factor,
			OldValue:  rec.Current,
			NewValue:  rec.Recommended,
			Reason:    rec.Reason,
			AppliedAt: now,
		}
		if err := repo.SaveThresholdChange(ctx, change); err != nil {
			fmt.Printf("failed to persist change for %s: %v\n", rec.Factor, err)
			os.Exit(1)
		}
	}
	fmt.Printf("\nPersisted %d threshold changes.\n", len(recs))
}

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dvloznov/statement-sync/internal/batch"
	"github.com/dvloznov/statement-sync/internal/config"
	"github.com/dvloznov/statement-sync/internal/logger"
	"github.com/dvloznov/statement-sync/internal/statement"
	"github.com/dvloznov/statement-sync/internal/storage"
)

func main() {
	log := logger.New()

	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "sync":
		runSync(log)
	case "status":
		runStatus(log)
	case "accounts":
		runAccounts()
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println("Statement Sync CLI")
	fmt.Println("\nUsage:")
	fmt.Println("  cli <command> [options]")
	fmt.Println("\nCommands:")
	fmt.Println("  sync      Parse new and changed statements for an account")
	fmt.Println("  status    Show parse status per account")
	fmt.Println("  accounts  List configured accounts")
	fmt.Println("  help      Show this help message")
	fmt.Println("\nRun 'cli <command> -h' for more information on a command.")
}

func runSync(log zerolog.Logger) {
	fs := flag.NewFlagSet("sync", flag.ExitOnError)
	accountKey := fs.String("account", "", "account key to sync, or 'all'")
	configPath := fs.String("config", "", "path to config file (optional)")
	fs.Parse(os.Args[2:])

	if *accountKey == "" {
		log.Fatal().Msg("Error: --account is required (use 'all' for every account)")
	}

	settings, accounts := mustSetup(log, *configPath, *accountKey)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	store, err := storage.NewGCS(ctx, settings, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.Close()

	orchestrator := batch.New(store, settings, log)

	failed := false
	for _, account := range accounts {
		accountLog := logger.ForAccount(log, account.Key)
		accountLog.Info().Msg("Starting sync")

		result := orchestrator.ProcessAccount(ctx, account, func(p statement.Progress) {
			accountLog.Debug().Str("status", p.Status).Str("details", p.Details).
				Str("file", p.CurrentFile).Int("percent", p.Percent).Msg("progress")
		})

		if !result.Success {
			failed = true
			accountLog.Error().Str("message", result.Message).Msg("Sync failed")
			continue
		}
		fmt.Printf("%s: %s\n", account.DisplayName, result.Message)
		for _, msg := range result.Errors {
			fmt.Printf("  file error: %s\n", msg)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func runStatus(log zerolog.Logger) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	accountKey := fs.String("account", "all", "account key, or 'all'")
	configPath := fs.String("config", "", "path to config file (optional)")
	fs.Parse(os.Args[2:])

	settings, accounts := mustSetup(log, *configPath, *accountKey)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	store, err := storage.NewGCS(ctx, settings, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open storage")
	}
	defer store.Close()

	orchestrator := batch.New(store, settings, log)

	for _, account := range accounts {
		summary, err := orchestrator.Summary(ctx, account)
		if err != nil {
			log.Error().Err(err).Str("account", account.Key).Msg("Failed to read status")
			continue
		}
		fmt.Printf("%s (%s)\n", summary.DisplayName, summary.Currency)
		fmt.Printf("  transactions: %d\n", summary.TotalTransactions)
		fmt.Printf("  files: %d tracked, %d parsed, %d failed\n",
			summary.FilesTracked, summary.FilesParsed, summary.FilesFailed)
		if !summary.LastUpdated.IsZero() {
			fmt.Printf("  last updated: %s\n", summary.LastUpdated.Format(time.RFC3339))
		}
	}
}

func runAccounts() {
	for _, account := range config.Accounts() {
		fmt.Printf("%-18s %s  CLABE %s  (%s)\n",
			account.Key, account.DisplayName, account.CLABE, account.Currency)
	}
}

// mustSetup loads settings and resolves the requested accounts, exiting on
// any configuration problem.
func mustSetup(log zerolog.Logger, configPath, accountKey string) (config.Settings, []config.Account) {
	settings, err := config.Load(configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if settings.Bucket == "" {
		log.Fatal().Msg("Error: no storage bucket configured (set STATEMENT_SYNC_BUCKET or the config file)")
	}

	if accountKey == "all" {
		return settings, config.Accounts()
	}
	account, ok := config.AccountByKey(accountKey)
	if !ok {
		log.Fatal().Str("account", accountKey).Strs("known", config.AccountKeys()).
			Msg("Unknown account key")
	}
	return settings, []config.Account{account}
}

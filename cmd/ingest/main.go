package main

import (
	"context"
	"flag"
	"log/slog"
	"os"

	"credit-engine/internal/config"
	"credit-engine/internal/infrastructure/database/postgres"
	"credit-engine/internal/infrastructure/logging"
	"credit-engine/internal/ingest"
)

func main() {
	customerFile := flag.String("customers", "", "path to the customer sheet (.xlsx or .csv), overrides config")
	loanFile := flag.String("loans", "", "path to the loan sheet (.xlsx or .csv), overrides config")
	flag.Parse()

	cfg, err := config.LoadConfig(".")
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg.Logger)
	slog.SetDefault(logger)

	if *customerFile == "" {
		*customerFile = cfg.Ingest.CustomerFile
	}
	if *loanFile == "" {
		*loanFile = cfg.Ingest.LoanFile
	}
	if *customerFile == "" && *loanFile == "" {
		logger.Error("No input files configured; pass -customers and/or -loans")
		os.Exit(1)
	}

	ctx := context.Background()

	dbPool, err := postgres.NewConnectionPool(ctx, cfg.Database, logger)
	if err != nil {
		logger.Error("Failed to initialize database connection pool", "error", err)
		os.Exit(1)
	}
	defer dbPool.Close()

	customerRepo := postgres.NewCustomerRepository(dbPool, logger)
	loanRepo := postgres.NewLoanRepository(dbPool, logger)
	ingestor := ingest.NewIngestor(customerRepo, loanRepo, cfg.Ingest, logger)

	exitCode := 0

	// Customers first so loan rows can resolve their owners.
	if *customerFile != "" {
		result, err := ingestor.IngestCustomers(ctx, *customerFile)
		if err != nil {
			logger.Error("Customer ingestion failed", "path", *customerFile, "error", err)
			exitCode = 1
		} else {
			logger.Info("Customer ingestion complete",
				"path", *customerFile, "created", result.Created, "updated", result.Updated, "skipped", result.Skipped)
		}
	}

	if *loanFile != "" {
		result, err := ingestor.IngestLoans(ctx, *loanFile)
		if err != nil {
			logger.Error("Loan ingestion failed", "path", *loanFile, "error", err)
			exitCode = 1
		} else {
			logger.Info("Loan ingestion complete",
				"path", *loanFile, "created", result.Created, "updated", result.Updated, "skipped", result.Skipped)
		}
	}

	os.Exit(exitCode)
}

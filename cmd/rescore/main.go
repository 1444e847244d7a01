package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/fadilmartias/hireflow/internal/bootstrap"
	"github.com/fadilmartias/hireflow/internal/config"
	"github.com/fadilmartias/hireflow/internal/logger"
	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "rescore JOB_ID [JOB_ID...]",
	Short: "Recompute unset and degraded match scores for the given job postings",
	Args:  cobra.MinimumNArgs(1),
	RunE:  run,
}

func init() {
	rootCmd.Flags().Bool("json", false, "log in json format")
	rootCmd.Flags().Bool("debug", false, "enable debug logging")
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Could not load .env file")
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	ids := make([]uuid.UUID, 0, len(args))
	for _, arg := range args {
		id, err := uuid.Parse(arg)
		if err != nil {
			return fmt.Errorf("invalid job id %q: %w", arg, err)
		}
		ids = append(ids, id)
	}

	appConfig := config.LoadAppConfig()
	jsonLogs, _ := cmd.Flags().GetBool("json")
	debug, _ := cmd.Flags().GetBool("debug")
	zl, err := logger.New(jsonLogs || appConfig.LogJSON, debug || appConfig.LogDebug)
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	components, err := bootstrap.Build(ctx, zl)
	if err != nil {
		return err
	}
	if sqlDB, err := components.DB.DB(); err == nil {
		defer sqlDB.Close()
	}

	results, err := components.Scoring.RescoreJobs(ctx, ids)
	if err != nil {
		zl.Error("rescore failed", zap.Error(err))
		return err
	}

	out := cmd.OutOrStdout()
	for _, id := range ids {
		fmt.Fprintf(out, "job %s\n", id)
		for _, a := range results[id] {
			fmt.Fprintf(out, "  %-36s %-24s %3d %s\n", a.ID, a.CandidateID, a.MatchScore, a.ScoreTrust)
		}
	}
	return nil
}

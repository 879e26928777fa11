package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jonathan/recipe-importer/internal/worker"
)

var workCmd = &cobra.Command{
	Use:   "work",
	Short: "Run the import pipeline workers",
	Long:  `Run background workers that claim queued import jobs and execute the note, image, ingredient, instruction and categorize pipelines. Worker counts per queue come from configuration.`,
	RunE:  runWork,
}

func init() {
	rootCmd.AddCommand(workCmd)
}

func runWork(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool := worker.NewPool(a.queue, a.jobDeps(), a.cfg.Workers, a.pollInterval())
	a.log.Infof("workers starting")

	err = pool.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	a.log.Infof("workers stopped")
	return nil
}

package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonathan/recipe-importer/internal/broadcast"
	"github.com/jonathan/recipe-importer/internal/server"
	"github.com/jonathan/recipe-importer/internal/types"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server that exposes REST endpoints for registering users, submitting recipe imports and following their progress.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close()

	addr := a.cfg.ListenAddr
	if serveAddr != "" {
		addr = serveAddr
	}

	// Workers run in a separate process, so their events reach this one
	// through Kafka: relay them into the local fan-out for SSE subscribers.
	// The worker already persisted the event, so the relay only broadcasts.
	if a.cfg.KafkaConfigured() {
		ctx, cancel := context.WithCancel(cmd.Context())
		defer cancel()

		consumer := broadcast.NewConsumer(a.cfg.Kafka, a.log)
		defer consumer.Close() //nolint:errcheck
		go func() {
			err := consumer.Run(ctx, func(_ context.Context, event types.StatusEvent) error {
				a.events.Broadcast(event)
				return nil
			})
			if err != nil && ctx.Err() == nil {
				a.log.Errorf("status event relay stopped: %v", err)
			}
		}()
		a.log.Infof("relaying status events from kafka (group %s)", a.cfg.Kafka.GroupID)
	}

	health := server.NewHealthChecker(a.database, 10*time.Second)
	var opts []server.Option
	if a.images != nil {
		opts = append(opts, server.WithImages(a.images))
	}
	srv, err := server.New(server.Config{ListenAddr: addr}, a.database, a.queue, a.events, health, a.log, opts...)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return srv.Start()
}

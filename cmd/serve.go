package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-moments/internal/config"
	"github.com/kozaktomas/photo-moments/internal/constants"
	"github.com/kozaktomas/photo-moments/internal/database/postgres"
	"github.com/kozaktomas/photo-moments/internal/pipeline"
	"github.com/kozaktomas/photo-moments/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the web server",
	Long: `Start the Photo Moments web server.
The server exposes an HTTP API to launch clustering runs, follow their
progress over SSE, and browse the clusters of past runs.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().Int("port", constants.DefaultWebPort, "Port to listen on")
	serveCmd.Flags().String("host", constants.DefaultWebHost, "Host to bind to")
	serveCmd.Flags().String("source", "photoprism", "Photo source: dir, photoprism")
	serveCmd.Flags().String("dir", "", "Photo directory (for the dir source)")
	serveCmd.Flags().String("criteria", "", "Path to a YAML file overriding clustering criteria")
	serveCmd.Flags().String("analyzer", "none", "AI quality analyzer: openai, gemini, none")
}

// resolveServeHostPort resolves port and host from flags and environment variables.
func resolveServeHostPort(cmd *cobra.Command) (int, string) {
	port := mustGetInt(cmd, "port")
	host := mustGetString(cmd, "host")

	if envPort := os.Getenv("WEB_PORT"); envPort != "" {
		fmt.Sscanf(envPort, "%d", &port)
	}
	if envHost := os.Getenv("WEB_HOST"); envHost != "" {
		host = envHost
	}
	return port, host
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := newLogger()

	criteria, err := config.LoadCriteria(mustGetString(cmd, "criteria"))
	if err != nil {
		return err
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := openPostgres(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	source, cleanup, err := buildSource(cfg, mustGetString(cmd, "source"), mustGetString(cmd, "dir"))
	if err != nil {
		return err
	}
	defer cleanup()

	analyzer, err := buildAnalyzer(context.Background(), cfg, mustGetString(cmd, "analyzer"))
	if err != nil {
		return err
	}

	clusterRepo := postgres.NewClusterRepository(pool)
	fingerprintRepo := postgres.NewFingerprintRepository(pool)

	provider, err := buildProvider(cfg, source, analyzer, fingerprintRepo, logger)
	if err != nil {
		return err
	}

	runner, err := pipeline.New(source, provider, criteria, clusterRepo, logger)
	if err != nil {
		return err
	}

	port, host := resolveServeHostPort(cmd)
	server := web.NewServer(port, host, runner, clusterRepo)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		fmt.Println("\nShutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			fmt.Printf("Error during shutdown: %v\n", err)
		}
	}()

	fmt.Printf("Starting Photo Moments API on http://%s:%d\n", host, port)
	fmt.Println("Press Ctrl+C to stop")

	if err := server.Start(); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	return nil
}

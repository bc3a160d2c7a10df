package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-moments/internal/config"
	"github.com/kozaktomas/photo-moments/internal/database/postgres"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Cache management commands",
	Long:  `Commands for managing the PostgreSQL fingerprint cache.`,
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show fingerprint cache statistics",
	RunE:  runCacheStats,
}

func init() {
	rootCmd.AddCommand(cacheCmd)
	cacheCmd.AddCommand(cacheStatsCmd)
}

func runCacheStats(cmd *cobra.Command, args []string) error {
	cfg := config.Load()

	pool, err := openPostgres(cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	repo := postgres.NewFingerprintRepository(pool)
	count, err := repo.Count(context.Background())
	if err != nil {
		return fmt.Errorf("counting cached fingerprints: %w", err)
	}

	fmt.Printf("Cached fingerprints: %d\n", count)
	return nil
}

package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/kozaktomas/photo-moments/internal/ai"
	"github.com/kozaktomas/photo-moments/internal/config"
	"github.com/kozaktomas/photo-moments/internal/database/postgres"
	"github.com/kozaktomas/photo-moments/internal/features"
	"github.com/kozaktomas/photo-moments/internal/pipeline"
)

var clusterCmd = &cobra.Command{
	Use:   "cluster",
	Short: "Group photos into moment clusters and rank them",
	Long: `Group a photo library into moment clusters and rank the photos inside
each cluster. Photos are compared on capture time, location, visual
similarity and the number of people in frame.

With --save the run is persisted to PostgreSQL and can be browsed
through the web API afterwards.`,
	RunE: runCluster,
}

func init() {
	rootCmd.AddCommand(clusterCmd)

	clusterCmd.Flags().String("source", "dir", "Photo source: dir, photoprism")
	clusterCmd.Flags().String("dir", "", "Photo directory (for the dir source)")
	clusterCmd.Flags().String("criteria", "", "Path to a YAML file overriding clustering criteria")
	clusterCmd.Flags().String("analyzer", "none", "AI quality analyzer: openai, gemini, none")
	clusterCmd.Flags().Bool("sub-clusters", false, "Detect near-duplicate groups inside clusters")
	clusterCmd.Flags().Bool("save", false, "Persist the run to PostgreSQL (requires DATABASE_URL)")
	clusterCmd.Flags().Bool("no-cache", false, "Skip the fingerprint cache even when a database is configured")
	clusterCmd.Flags().Bool("json", false, "Print clusters as JSON instead of a summary")
}

func runCluster(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	logger := newLogger()

	sourceKind := mustGetString(cmd, "source")
	dir := mustGetString(cmd, "dir")
	criteriaPath := mustGetString(cmd, "criteria")
	analyzerName := mustGetString(cmd, "analyzer")
	subClusters := mustGetBool(cmd, "sub-clusters")
	save := mustGetBool(cmd, "save")
	noCache := mustGetBool(cmd, "no-cache")
	asJSON := mustGetBool(cmd, "json")

	criteria, err := config.LoadCriteria(criteriaPath)
	if err != nil {
		return err
	}

	source, cleanup, err := buildSource(cfg, sourceKind, dir)
	if err != nil {
		return err
	}
	defer cleanup()

	// Set up context with signal handling for graceful cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\nReceived interrupt signal...")
		cancel()
	}()

	analyzer, err := buildAnalyzer(ctx, cfg, analyzerName)
	if err != nil {
		return err
	}

	var cache features.FingerprintCache
	var store pipeline.Store
	if save || (cfg.Database.URL != "" && !noCache) {
		pool, err := openPostgres(cfg)
		if err != nil {
			return err
		}
		defer pool.Close()

		if !noCache {
			cache = postgres.NewFingerprintRepository(pool)
		}
		if save {
			store = postgres.NewClusterRepository(pool)
		}
	}

	provider, err := buildProvider(cfg, source, analyzer, cache, logger)
	if err != nil {
		return err
	}

	runner, err := pipeline.New(source, provider, criteria, store, logger)
	if err != nil {
		return err
	}

	var bar *progressbar.ProgressBar
	result, err := runner.Run(ctx, pipeline.RunOptions{
		SubClusters: subClusters,
		OnProgress: func(info pipeline.ProgressInfo) {
			if info.Phase != "clustering" || asJSON {
				return
			}
			if bar == nil {
				bar = progressbar.NewOptions(info.Total,
					progressbar.OptionSetDescription("Clustering"),
					progressbar.OptionShowCount(),
					progressbar.OptionSetWriter(os.Stderr),
				)
			}
			_ = bar.Set(info.Current)
		},
	})
	if err != nil {
		return fmt.Errorf("clustering failed: %w", err)
	}
	if bar != nil {
		_ = bar.Finish()
		fmt.Fprintln(os.Stderr)
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result.Clusters)
	}

	printRunSummary(cfg, result, save, analyzer)
	return nil
}

func printRunSummary(cfg *config.Config, result *pipeline.RunResult, saved bool, analyzer ai.Analyzer) {
	fmt.Printf("Processed %d photos into %d clusters in %s\n\n",
		result.PhotoCount, len(result.Clusters), result.Duration.Round(10*time.Millisecond))

	for i, c := range result.Clusters {
		fmt.Printf("Cluster %d (%d photos) %s - %s\n",
			i+1, len(c.Members),
			c.StartTime.Format("2006-01-02 15:04:05"),
			c.EndTime.Format("15:04:05"))

		if c.Representative != nil {
			ref := c.Representative.ID
			if url := cfg.PhotoPrism.PhotoURL(c.Representative.ID); url != "" {
				ref = url
			}
			fmt.Printf("  Best shot: %s (confidence %.2f)\n", ref, c.RankingConfidence)
		}
		if c.Quality != nil {
			fmt.Printf("  Diversity: %.2f  Coherence: %.2f\n",
				c.Quality.Diversity, c.Quality.TemporalCoherence)
		}
		for _, s := range c.RankedMembers {
			if s.Rank > 3 {
				break
			}
			fmt.Printf("    #%d %s (score %.3f)\n", s.Rank, s.PhotoID, s.Combined)
		}
		if len(c.SubClusters) > 0 {
			fmt.Printf("  Near-duplicate groups: %d\n", len(c.SubClusters))
		}
		fmt.Println()
	}

	if len(result.Warnings) > 0 {
		fmt.Printf("Warnings: %d\n", len(result.Warnings))
		for _, w := range result.Warnings {
			fmt.Printf("  - %s\n", w)
		}
	}

	if analyzer != nil {
		usage := analyzer.GetUsage()
		if usage.InputTokens > 0 || usage.OutputTokens > 0 {
			fmt.Printf("\nAPI Usage:\n")
			fmt.Printf("  Input tokens: %d\n", usage.InputTokens)
			fmt.Printf("  Output tokens: %d\n", usage.OutputTokens)
			fmt.Printf("  Total cost: $%.4f\n", usage.TotalCost)
		}
	}

	if saved {
		fmt.Printf("\nRun saved as %s\n", result.RunID)
	}
}

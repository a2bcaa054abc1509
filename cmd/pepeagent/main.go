package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/pumpfrog/pepeagent/internal/agent"
	"github.com/pumpfrog/pepeagent/internal/config"
)

const (
	appName = "pepeagent"
	version = "v1.2.0"
)

var configPath string

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	if term.IsTerminal(int(os.Stderr.Fd())) {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen})
	}

	rootCmd := &cobra.Command{
		Use:     appName,
		Short:   "Autonomous frog-flavored content agent",
		Version: version,
		Long: `pepeagent runs an automated social account: it generates posts in a
fixed persona, vets them through validation and self-critique, engages
with replies and mentions under a shared hourly budget, and learns from
what the community responds to.`,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to config YAML (env vars apply on top)")

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run the agent loops until interrupted",
		RunE:  runAgent,
	}

	postCmd := &cobra.Command{
		Use:   "post",
		Short: "Generate and publish a single post, then exit",
		RunE:  runPostOnce,
	}

	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Print engagement stats for the last 7 days",
		RunE:  runStats,
	}

	rootCmd.AddCommand(runCmd, postCmd, statsCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("Command failed")
		os.Exit(1)
	}
}

func buildAgent() (*agent.Agent, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	log.Info().Str("environment", cfg.Environment).Msg("Config loaded")
	return agent.New(cfg)
}

func runAgent(cmd *cobra.Command, _ []string) error {
	a, err := buildAgent()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.TestConnections(ctx); err != nil {
		return err
	}

	log.Info().Str("version", version).Msg("Agent starting")
	a.Run(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	a.Shutdown(shutdownCtx)
	return nil
}

func runPostOnce(cmd *cobra.Command, _ []string) error {
	a, err := buildAgent()
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := a.TestConnections(ctx); err != nil {
		return err
	}
	if err := a.PostOnce(ctx); err != nil {
		return err
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	a.Shutdown(shutdownCtx)
	return nil
}

func runStats(cmd *cobra.Command, _ []string) error {
	a, err := buildAgent()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	stats, quota, err := a.Stats(ctx, 7)
	if err != nil {
		return err
	}

	fmt.Printf("Last 7 days:\n")
	fmt.Printf("  posts:          %d\n", stats.TotalPosts)
	fmt.Printf("  likes:          %d\n", stats.TotalLikes)
	fmt.Printf("  retweets:       %d\n", stats.TotalRetweets)
	fmt.Printf("  replies:        %d\n", stats.TotalReplies)
	fmt.Printf("  avg engagement: %.1f\n", stats.AvgEngagement)
	fmt.Printf("Reply budget: %d/%d used this hour\n", quota.RepliesLastHour, quota.MaxPerHour)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	a.Shutdown(shutdownCtx)
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/okian/squadron/internal/smoke"
)

var smokeCfg = smoke.DefaultConfig()

var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Smoke-test a running service with generated candidates",
	Long: `Generates --runs candidate sets, posts them to /teams concurrently and
checks every returned team for size, threshold, shared tag, membership and
naming. Exits non-zero when any team breaks a rule.`,
	Args: cobra.NoArgs,
	RunE: runSmoke,
}

func init() {
	f := smokeCmd.Flags()
	f.StringVar(&smokeCfg.BaseURL, "url", smokeCfg.BaseURL, "Service base URL")
	f.IntVar(&smokeCfg.Candidates, "candidates", smokeCfg.Candidates, "Candidates per set")
	f.IntVar(&smokeCfg.Runs, "runs", smokeCfg.Runs, "Number of sets")
	f.IntVar(&smokeCfg.Workers, "workers", smokeCfg.Workers, "Concurrent requests")
	f.Float64VarP(&smokeCfg.ScoreThreshold, "threshold", "t", smokeCfg.ScoreThreshold, "Minimum team score")
	f.IntVarP(&smokeCfg.ChunkSize, "chunk", "c", smokeCfg.ChunkSize, "Team size")
	f.DurationVar(&smokeCfg.Timeout, "timeout", smokeCfg.Timeout, "Per-request timeout")
	f.Uint64Var(&smokeCfg.Seed, "seed", smokeCfg.Seed, "Generator seed")
}

func runSmoke(cmd *cobra.Command, _ []string) error {
	stats, err := smoke.Run(cmd.Context(), smokeCfg)
	if stats != nil {
		fmt.Fprintf(cmd.OutOrStdout(), "Runs: %d (failed %d), teams checked: %d, leftovers: %d, violations: %d, took %s\n",
			stats.RunsSubmitted, stats.RunsFailed, stats.TeamsChecked, stats.Leftovers, len(stats.Violations), stats.Duration)
	}
	return err
}

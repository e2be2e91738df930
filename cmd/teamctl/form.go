package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/squadron/internal/adapters/csvio"
	"github.com/okian/squadron/internal/domain/model"
	"github.com/okian/squadron/internal/domain/types"
)

var (
	formInput     string
	formOutput    string
	formThreshold float64
	formChunk     int
)

var formCmd = &cobra.Command{
	Use:   "form",
	Short: "Form teams from a candidate table",
	Long: `Reads a candidate table (id, score, eligibility), forms teams of
--chunk members whose scores reach --threshold and who share a tag, writes
the team CSV and prints the candidates left without a team.`,
	Args: cobra.NoArgs,
	RunE: runForm,
}

func init() {
	formCmd.Flags().StringVarP(&formInput, "input", "i", "", "Candidate table")
	formCmd.Flags().StringVarP(&formOutput, "output", "o", "final_teams.csv", "Team CSV to write")
	formCmd.Flags().Float64VarP(&formThreshold, "threshold", "t", 300, "Minimum team score")
	formCmd.Flags().IntVarP(&formChunk, "chunk", "c", 5, "Team size")
	_ = formCmd.MarkFlagRequired("input")
}

func runForm(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	data, err := os.ReadFile(formInput)
	if err != nil {
		return err
	}

	svc, stop, err := startService(ctx)
	if err != nil {
		return err
	}
	defer stop()

	run, err := svc.FormTeams(ctx, &types.FormRequest{
		Input:          data,
		ScoreThreshold: &formThreshold,
		ChunkSize:      &formChunk,
	})
	if err != nil {
		return err
	}

	if err := writeFile(formOutput, func(f *os.File) error { return csvio.WriteTeams(f, run.Teams) }); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Formed %d teams, written to %s\n", len(run.Teams), formOutput)
	if len(run.Leftovers) == 0 {
		return nil
	}
	fmt.Fprintln(out, "Leftover participants:")
	for _, l := range run.Leftovers {
		fmt.Fprintf(out, "  %s (%s)\n", l.ID, model.FormatScore(l.Score))
	}
	return nil
}

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/okian/squadron/internal/adapters/csvio"
	"github.com/okian/squadron/internal/domain/types"
)

var (
	predictStack  string
	predictName   string
	predictInput  string
	predictOutput string
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Predict team scores from their tech stack",
	Long: `Predicts one score from --stack, or a score per row of a feature table
given with --input, written to --output.`,
	Args: cobra.NoArgs,
	RunE: runPredict,
}

func init() {
	predictCmd.Flags().StringVar(&predictStack, "stack", "", "Tech stack, e.g. \"React Go AWS\"")
	predictCmd.Flags().StringVar(&predictName, "name", "Team 1", "Team name for --stack")
	predictCmd.Flags().StringVarP(&predictInput, "input", "i", "", "Feature table")
	predictCmd.Flags().StringVarP(&predictOutput, "output", "o", "predicted_scores.csv", "Prediction CSV to write")
	predictCmd.MarkFlagsMutuallyExclusive("stack", "input")
}

func runPredict(cmd *cobra.Command, _ []string) error {
	if predictStack == "" && predictInput == "" {
		return errors.New("one of --stack or --input is required")
	}
	ctx := cmd.Context()
	svc, stop, err := startService(ctx)
	if err != nil {
		return err
	}
	defer stop()

	out := cmd.OutOrStdout()
	if predictStack != "" {
		res, err := svc.PredictScore(ctx, types.PredictRequest{Name: predictName, TechStackUsed: predictStack})
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s: %d\n", res.Name, res.Score)
		return nil
	}

	f, err := os.Open(predictInput)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	results, err := svc.PredictTable(ctx, f)
	if err != nil {
		return err
	}
	if err := writeFile(predictOutput, func(f *os.File) error { return csvio.WritePredictions(f, results) }); err != nil {
		return err
	}
	fmt.Fprintf(out, "Predicted %d scores, written to %s\n", len(results), predictOutput)
	return nil
}

// Command teamctl runs team formation, room assignment and score prediction
// on local files, and smoke-tests a running squadron service.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/okian/squadron/internal/adapters/repository"
	app "github.com/okian/squadron/internal/app"
	"github.com/okian/squadron/internal/config"
	"github.com/okian/squadron/pkg/logger"
)

const stopTimeout = 10 * time.Second

var (
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:           "teamctl",
	Short:         "Form teams, assign rooms and predict team scores",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := logger.InitWithFormat(logFormat); err != nil {
			return err
		}
		return logger.SetLevelString(logLevel)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", logger.FormatText, "Log format (text, json)")

	rootCmd.AddCommand(formCmd)
	rootCmd.AddCommand(roomsCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(smokeCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// startService loads configuration and starts an in-process service backed
// by the memory store. The returned func stops it.
func startService(ctx context.Context) (*app.Service, func(), error) {
	cfg, err := config.Load(ctx)
	if err != nil {
		return nil, nil, err
	}
	cfg.Store = config.StoreMemory
	cfg.WorkerCount = 1

	svc := app.New(ctx,
		app.WithConfig(cfg),
		app.WithStore(repository.NewMemoryStore(), config.StoreMemory))
	if err := svc.Start(ctx); err != nil {
		return nil, nil, err
	}
	return svc, func() {
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), stopTimeout)
		defer cancel()
		_ = svc.Stop(sctx)
	}, nil
}

// writeFile creates path and hands it to write.
func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return f.Close()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/noah-isme/class-schedule-api/internal/app"
	"github.com/noah-isme/class-schedule-api/pkg/config"
	appErrors "github.com/noah-isme/class-schedule-api/pkg/errors"
	"github.com/noah-isme/class-schedule-api/pkg/logger"
)

var (
	verbose   bool
	storePath string
	driver    string
	timeout   time.Duration
)

// rootCmd is the schedulectl entry point.
var rootCmd = &cobra.Command{
	Use:   "schedulectl",
	Short: "Operate the class schedule store from the command line",
	Long: `schedulectl ingests schedule workbooks into the configured store and answers
teacher lookups without running the HTTP server.

Configuration is read from .env and the environment, the same way the API does.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVar(&storePath, "store", "", "Schedule document path (overrides STORE_PATH)")
	rootCmd.PersistentFlags().StringVar(&driver, "driver", "", "Store driver: file, sqlite, postgres, redis (overrides STORE_DRIVER)")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Operation timeout")

	rootCmd.AddCommand(ingestCmd, queryCmd, exportCmd, clearCmd, statsCmd, tokenCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", describe(err))
		os.Exit(1)
	}
}

// withApp loads configuration, wires the services and runs fn.
func withApp(cmd *cobra.Command, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if storePath != "" {
		cfg.Store.Path = storePath
	}
	if driver != "" {
		cfg.Store.Driver = driver
	}

	logr, err := logger.NewCLI(cfg, verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logr.Sync() //nolint:errcheck

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := app.New(ctx, cfg, logr)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logr.Warn("close application", zap.Error(err))
		}
	}()
	return fn(ctx, a)
}

// describe prefers the user-facing message of domain errors.
func describe(err error) string {
	var appErr *appErrors.Error
	if errors.As(err, &appErr) && appErr.Code != appErrors.ErrInternal.Code {
		return appErr.Message
	}
	return err.Error()
}

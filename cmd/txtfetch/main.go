package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/vertextoedge/txtfetch/internal/service/fetcher"
)

const version = "0.1.0"

// Exit codes
const (
	exitOK          = 0
	exitError       = 1
	exitFailedTasks = 2
	exitInterrupted = 130
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	a := &app{}
	err := newRootCmd(a).ExecuteContext(ctx)
	code := exitCode(err)
	reportError(a.logger, err, code)
	a.close()
	stop()

	os.Exit(code)
}

// reportError logs a fatal error with its classification. Before the logger
// exists (bad flags or config) it falls back to stderr.
func reportError(log *zap.Logger, err error, code int) {
	if err == nil || code == exitFailedTasks {
		return
	}
	if log == nil {
		fmt.Fprintf(os.Stderr, "txtfetch: %v\n", err)
		return
	}
	log.Error("txtfetch failed",
		zap.String("kind", fetcher.ErrorKind(err)),
		zap.Int("exit_code", code),
		zap.Error(err))
}

func exitCode(err error) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, context.Canceled):
		return exitInterrupted
	case errors.Is(err, fetcher.ErrFailedTasks):
		return exitFailedTasks
	default:
		return exitError
	}
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "txtfetch",
		Short:         "Download the plain-text files listed in scraper metadata",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "path to configuration file (default ./config.yaml if present)")
	root.PersistentFlags().StringVar(&a.flags.metadataDir, "metadata-dir", "", "directory holding metadata files")
	root.PersistentFlags().StringVar(&a.flags.outputDir, "output-dir", "", "directory downloads are written to")
	root.PersistentFlags().StringVar(&a.flags.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	root.AddCommand(newFetchCmd(a), newPlanCmd(a), newRunsCmd(a))
	return root
}

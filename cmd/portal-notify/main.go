package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nhle/portal-notify/internal/model"
)

var (
	configPath string

	rootCmd = &cobra.Command{
		Use:          "portal-notify",
		Short:        "Real-time job portal notifications in the terminal",
		Long:         `Tracks connection and message notifications for a job portal account, merging REST snapshots with live push events.`,
		SilenceUsage: true,
	}
)

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", model.DefaultConfigPath(), "path to the config file")

	rootCmd.AddCommand(watchCmd, syncCmd, loginCmd, logoutCmd, historyCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/portal-notify/internal/journal"
)

var (
	historyLimit int
	historyAcks  bool

	historyCmd = &cobra.Command{
		Use:   "history",
		Short: "Show recent sync runs or acknowledgements from the local journal",
		RunE:  runHistory,
	}
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of rows")
	historyCmd.Flags().BoolVar(&historyAcks, "acks", false, "show acknowledgements instead of sync runs")
}

func runHistory(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	if e.journal == nil {
		return errors.New("the journal is disabled (journal.enabled=false)")
	}

	out := cmd.OutOrStdout()
	if historyAcks {
		acks, err := e.journal.RecentAcks(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		printAcks(out, acks)
		return nil
	}

	runs, err := e.journal.RecentSyncs(cmd.Context(), historyLimit)
	if err != nil {
		return err
	}
	printRuns(out, runs)
	return nil
}

func printRuns(w io.Writer, runs []journal.SyncRun) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("STARTED", "DOMAIN", "MODE", "OUTCOME", "RECORDS", "UNREAD", "TOOK", "ERROR")
	for _, r := range runs {
		mode := "user"
		if r.Silent {
			mode = "silent"
		}
		t.Row(
			r.StartedAt.Local().Format(time.DateTime),
			string(r.Domain),
			mode,
			string(r.Outcome),
			strconv.Itoa(r.RecordCount),
			strconv.Itoa(r.UnreadCount),
			r.Duration().Round(time.Millisecond).String(),
			r.Error,
		)
	}
	_, _ = fmt.Fprintln(w, t.Render())
}

func printAcks(w io.Writer, acks []journal.Ack) {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("AT", "NOTIFICATION", "ACTION", "OUTCOME", "ERROR")
	for _, a := range acks {
		t.Row(
			a.CreatedAt.Local().Format(time.DateTime),
			a.NotificationID,
			string(a.Action),
			string(a.Outcome),
			a.Error,
		)
	}
	_, _ = fmt.Fprintln(w, t.Render())
}

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/nhle/portal-notify/internal/store"
	appsync "github.com/nhle/portal-notify/internal/sync"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Fetch both notification feeds once and print the dropdown",
	RunE:  runSync,
}

func runSync(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(false)
	if err != nil {
		return err
	}
	defer e.Close()

	sess, err := e.session()
	if err != nil {
		return err
	}

	st := store.New()
	syncer := appsync.NewSyncer(st, e.remote(sess),
		appsync.WithRecorder(e.recorder()),
		appsync.WithLogger(e.logger),
		appsync.WithLimit(e.cfg.Sync.Limit),
	)
	syncer.SetSession(sess)

	syncErr := syncer.SyncAll(cmd.Context(), false)
	printView(cmd.OutOrStdout(), st.Snapshot())
	return syncErr
}

func printView(w io.Writer, v store.View) {
	badge := v.BadgeLabel()
	if badge == "" {
		badge = "0"
	}
	_, _ = fmt.Fprintf(w, "Unread: %s (connections %d, messages %d)\n", badge, v.UnreadConnections, v.UnreadMessages)

	if v.Empty() {
		_, _ = fmt.Fprintln(w, "No notifications yet.")
		return
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("", "TYPE", "NOTIFICATION", "WHEN", "OPEN")
	for _, n := range v.Items {
		mark := ""
		if !n.IsRead {
			mark = "●"
		}
		when := ""
		if at := n.EffectiveTime(); !at.IsZero() {
			when = at.Local().Format(time.DateTime)
		}
		t.Row(mark, n.Category.Label(), n.Message, when, n.NavigationPath())
	}
	_, _ = fmt.Fprintln(w, t.Render())
}

package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/nhle/portal-notify/internal/app"
	"github.com/nhle/portal-notify/internal/theme"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Open the live notification dropdown",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, _ []string) error {
	e, err := loadEnv(true)
	if err != nil {
		return err
	}
	defer e.Close()

	sess, err := e.session()
	if err != nil {
		return err
	}
	c, err := e.center()
	if err != nil {
		return err
	}
	if err := c.Start(cmd.Context(), sess); err != nil {
		return fmt.Errorf("starting session: %w", err)
	}
	defer c.Stop()

	theme.Apply(e.cfg.Display.Theme)
	p := tea.NewProgram(app.New(c), tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running ui: %w", err)
	}
	return nil
}

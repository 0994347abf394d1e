package main

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jwulff/minutes/internal/app"
)

func newTUICmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the terminal UI",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTUI(cmd)
		},
	}
}

func runTUI(cmd *cobra.Command) error {
	e, err := openEnv(cmd, envOptions{logFile: true})
	if err != nil {
		return err
	}
	defer e.Close()

	flow := e.newFlow()
	defer flow.Clear()

	m := app.New(app.Deps{
		Auth:      e.gate,
		Flow:      flow,
		Chat:      e.newChat(),
		Agents:    e.client,
		History:   e.store,
		NewSource: e.newSource,
		Language:  e.cfg.API.Language,
		Log:       e.log,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(cmd.Context()))
	_, err = p.Run()
	return err
}

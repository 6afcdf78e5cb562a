package cli

import (
	"fmt"

	"github.com/atotto/clipboard"
	"github.com/jwulff/calo/internal/app"
	"github.com/jwulff/calo/internal/config"
	"github.com/spf13/cobra"

	tea "github.com/charmbracelet/bubbletea"
)

func init() {
	rootCmd.AddCommand(tuiCmd)
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Open the interactive day/week/month view",
	RunE:  runTUI,
}

func runTUI(cmd *cobra.Command, args []string) error {
	e, err := setup(true)
	if err != nil {
		return err
	}
	defer e.Close()

	m := app.New(app.Deps{
		Recorder: e.pipeline,
		Store:    e.store,
		State:    e.state,
		SaveKey: func(key string) error {
			return config.SaveAPIKey(e.cfgPath, key)
		},
		Copy: clipboard.WriteAll,
		Log:  e.log.Named("tui"),
	})

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run tui: %w", err)
	}
	return nil
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/user/netdiag/internal/tui"
)

var uiCmd = &cobra.Command{
	Use:   "ui",
	Short: "Browse saved diagnoses in the terminal",
	Long: `Launch an interactive browser over saved diagnosis records.

The list shows a summary of the last week's classifications. Open a record
to read it with its prognosis. The list reloads when records change.

Use arrow keys to navigate, 'q' to quit.`,
	Args: cobra.NoArgs,
	RunE: runUI,
}

func init() {
	rootCmd.AddCommand(uiCmd)
}

func runUI(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	app := tui.NewApp(archive, archive.Index, cfg)
	return app.Run()
}

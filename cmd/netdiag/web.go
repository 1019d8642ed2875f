package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/netdiag/internal/probes"
	"github.com/user/netdiag/internal/runner"
	"github.com/user/netdiag/internal/web"
)

var webPort int

var webCmd = &cobra.Command{
	Use:   "web",
	Short: "Serve saved diagnoses over HTTP",
	Long: `Start a read-only JSON API over saved diagnoses.

Endpoints:
  GET /api/records?pattern=   saved records
  GET /api/records/:name      one record with its prognosis
  GET /api/records/:name/path traceroute hops as a Mermaid diagram
  GET /api/prognosis?name=    prognosis of the newest or named record
  GET /api/history?kind=&limit=
  GET /api/summary?since=168h
  GET /api/rules
  GET /api/tools

Examples:
  netdiag web
  netdiag web --port 8080`,
	Args: cobra.NoArgs,
	RunE: runWeb,
}

func init() {
	webCmd.Flags().IntVarP(&webPort, "port", "p", 0, "Web server port (default from config)")
	rootCmd.AddCommand(webCmd)
}

func runWeb(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	if webPort > 0 {
		cfg.WebPort = webPort
	}

	fmt.Printf("Serving on http://localhost:%d\n", cfg.WebPort)
	fmt.Println("Press Ctrl+C to stop")

	srv := web.NewServer(archive, archive.Index, probes.New(runner.New(), cfg), cfg)
	return srv.Start(context.Background())
}

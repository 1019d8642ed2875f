package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/report"
)

var (
	saveRecord bool
	jsonOutput bool
	rawOutput  bool
)

// addProbeFlags registers the flags shared by every probe command.
func addProbeFlags(cmds ...*cobra.Command) {
	for _, c := range cmds {
		c.Flags().BoolVarP(&saveRecord, "save", "s", false, "Save the diagnosis to the record store")
		c.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
		c.Flags().BoolVar(&rawOutput, "raw", false, "Print captured command output")
		rootCmd.AddCommand(c)
	}
}

// execProbe runs one probe, prints its report and saves it when asked.
// A probe that fails still produces a report; only persistence errors are
// returned.
func execProbe(inv model.ProbeInvocation) (model.ProbeResult, error) {
	res, r, err := runAndPrint(inv)
	if err != nil || !saveRecord {
		return res, err
	}
	return res, saveReport(r, res)
}

func runAndPrint(inv model.ProbeInvocation) (model.ProbeResult, report.Report, error) {
	ctx, stop := signalContext()
	defer stop()

	p := newPrinter()
	p.ShowRaw = rawOutput
	prober := newProber(p)
	if jsonOutput {
		prober.OnLine = nil
	}

	res := prober.Run(ctx, inv)
	r := report.Compose(res)

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(r); err != nil {
			return res, r, fmt.Errorf("failed to encode report: %w", err)
		}
		return res, r, nil
	}
	p.Report(r)
	return res, r, nil
}

func saveReport(r report.Report, res model.ProbeResult) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	info, err := archive.SaveResult(r.Record(time.Now()), res)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	if !jsonOutput {
		newPrinter().Success("Saved %s", info.TextPath)
	}
	return nil
}

// probeRunE builds a RunE that runs the invocation returned by build.
func probeRunE(build func(args []string) (model.ProbeInvocation, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		inv, err := build(args)
		if err != nil {
			return err
		}
		_, err = execProbe(inv)
		return err
	}
}

func targetArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return ""
}

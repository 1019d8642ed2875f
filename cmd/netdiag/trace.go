package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/user/netdiag/internal/extract"
	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/report"
	"github.com/user/netdiag/internal/util"
)

var traceCompare bool

var tracerouteCmd = &cobra.Command{
	Use:   "traceroute [target]",
	Short: "Trace the route to a host",
	Long: `Run traceroute and show each hop as it arrives.

With --compare the hops are diffed against the newest saved traceroute to
the same target.

Examples:
  netdiag traceroute 8.8.8.8 --save
  netdiag traceroute 8.8.8.8 --compare`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTraceroute,
}

var mtrCmd = &cobra.Command{
	Use:   "mtr [target]",
	Short: "Run an mtr report",
	Args:  cobra.MaximumNArgs(1),
	RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
		return model.ProbeInvocation{Kind: model.KindMTR, Target: targetArg(args)}, nil
	}),
}

func init() {
	tracerouteCmd.Flags().BoolVar(&traceCompare, "compare", false, "Compare with the last saved trace to this target")
	addProbeFlags(tracerouteCmd, mtrCmd)
}

func runTraceroute(cmd *cobra.Command, args []string) error {
	target := targetArg(args)
	if target == "" {
		target = cfg.DefaultTarget
	}
	inv := model.ProbeInvocation{Kind: model.KindTraceroute, Target: target}

	var previous []model.TraceHop
	var previousName string
	if traceCompare {
		previous, previousName = lastTrace(inv.Title())
	}

	res, err := execProbe(inv)
	if err != nil || !traceCompare || jsonOutput {
		return err
	}

	p := newPrinter()
	if previousName == "" {
		p.Info("No saved trace to %s to compare with.", target)
		return nil
	}

	change := report.ComparePaths(previous, res.Hops)
	if !change.Changed() {
		p.Success("Path unchanged since %s", previousName)
		return nil
	}
	p.Info("Path changed since %s", previousName)
	if len(change.Added) > 0 {
		fmt.Printf("  new hops:  %s\n", strings.Join(change.Added, ", "))
	}
	if len(change.Removed) > 0 {
		fmt.Printf("  lost hops: %s\n", strings.Join(change.Removed, ", "))
	}
	return nil
}

// lastTrace loads the hops of the newest saved trace with this title.
func lastTrace(title string) ([]model.TraceHop, string) {
	archive, err := openArchive()
	if err != nil {
		util.Warn("Trace comparison unavailable: %v", err)
		return nil, ""
	}
	defer archive.Close()

	infos, err := archive.List(util.SanitizeTitle(title))
	if err != nil || len(infos) == 0 {
		return nil, ""
	}
	rec, err := archive.Load(infos[0].Name)
	if err != nil {
		util.Warn("Trace comparison unavailable: %v", err)
		return nil, ""
	}
	return extract.Traceroute(rec.Output), infos[0].Name
}

package main

import (
	"github.com/spf13/cobra"

	"github.com/user/netdiag/internal/model"
)

var speedtestCmd = &cobra.Command{
	Use:   "speedtest",
	Short: "Run an Ookla speed test",
	Long: `Run the speedtest CLI and classify download, upload, latency,
jitter and packet loss.`,
	Args: cobra.NoArgs,
	RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
		return model.ProbeInvocation{Kind: model.KindSpeedtest}, nil
	}),
}

var downloadCmd = &cobra.Command{
	Use:   "download [url]",
	Short: "Measure HTTP download speed",
	Long: `Download a test file with curl and report the average speed.

Without a URL the first of the configured download_urls is used.`,
	Args: cobra.MaximumNArgs(1),
	RunE: probeRunE(func(args []string) (model.ProbeInvocation, error) {
		return model.ProbeInvocation{Kind: model.KindDownload, URL: targetArg(args)}, nil
	}),
}

func init() {
	addProbeFlags(speedtestCmd, downloadCmd)
}

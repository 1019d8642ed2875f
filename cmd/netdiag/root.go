package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/user/netdiag/internal/probes"
	"github.com/user/netdiag/internal/render"
	"github.com/user/netdiag/internal/runner"
	"github.com/user/netdiag/internal/storage"
	"github.com/user/netdiag/internal/util"
)

const version = "1.0.0"

var (
	cfgFile  string
	logLevel string
	noColor  bool
	cfg      *util.Config
)

// rootCmd represents the base command.
var rootCmd = &cobra.Command{
	Use:   "netdiag",
	Short: "Network path diagnosis for field technicians",
	Long: `netdiag runs external network probes (ping, speed tests, port scans,
traceroute, MTU discovery, Wi-Fi scans, DNS and captive-portal checks) and
turns their output into a diagnosis: metrics, a classification, probable
causes and suggested remedies.

Diagnoses can be saved and re-analyzed later with "netdiag prognosis".
Run "netdiag menu" for the interactive menu.`,
	SilenceUsage:      true,
	PersistentPreRunE: initConfig,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		util.GetLogger().Close()
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.netdiag/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"disable colored output")

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(completionCmd)
}

func initConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = util.LoadConfigFile(cfgFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}

	util.InitLogger(cfg.LogLevel, cfg.LogFile)
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM so a streamed probe stops
// and keeps its partial output.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func newPrinter() *render.Printer {
	return render.NewPrinter(os.Stdout, noColor || os.Getenv("NO_COLOR") != "")
}

func newProber(p *render.Printer) *probes.Prober {
	prober := probes.New(runner.New(), cfg)
	prober.OnLine = p.Line
	return prober
}

func openArchive() (*storage.Archive, error) {
	a, err := storage.OpenArchive(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open record archive: %w", err)
	}
	return a, nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("netdiag version %s\n", version)
	},
}

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate shell completion script",
	Long: `Generate shell completion script for netdiag.

To load completions:

Bash:
  $ source <(netdiag completion bash)

Zsh:
  $ source <(netdiag completion zsh)

Fish:
  $ netdiag completion fish | source

PowerShell:
  PS> netdiag completion powershell | Out-String | Invoke-Expression
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	PersistentPreRunE:     func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(os.Stdout)
		case "zsh":
			return cmd.Root().GenZshCompletion(os.Stdout)
		case "fish":
			return cmd.Root().GenFishCompletion(os.Stdout, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
		}
		return nil
	},
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/user/netdiag/internal/model"
	"github.com/user/netdiag/internal/prognosis"
)

var (
	historyPattern string
	historyIndex   bool
	historyKind    string
	historyLimit   int
	historyReindex bool
	prognosisLast  int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List saved diagnoses",
	Long: `List saved diagnosis records, newest first.

Examples:
  netdiag history
  netdiag history --pattern 'latency_*'
  netdiag history --index --kind speedtest --limit 20
  netdiag history --reindex
  netdiag history rm latency_1_1_1_1_2024-01-02_10-00-00`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var historyRmCmd = &cobra.Command{
	Use:   "rm <record>...",
	Short: "Delete saved records",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runHistoryRm,
}

var prognosisCmd = &cobra.Command{
	Use:   "prognosis [record]",
	Short: "Re-analyze saved diagnoses",
	Long: `Re-analyze saved records for packet loss, latency and download speed
problems.

Without a record name the newest record is analyzed; --last analyzes the
newest N records.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPrognosis,
}

func init() {
	historyCmd.Flags().StringVarP(&historyPattern, "pattern", "p", "", "Title glob, e.g. 'ping_*'")
	historyCmd.Flags().BoolVar(&historyIndex, "index", false, "Show the indexed history with metrics")
	historyCmd.Flags().StringVarP(&historyKind, "kind", "k", "", "Probe kind filter for --index")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Rows to show with --index (default from config)")
	historyCmd.Flags().BoolVar(&historyReindex, "reindex", false, "Index records missing from the history index")
	historyCmd.AddCommand(historyRmCmd)

	prognosisCmd.Flags().IntVarP(&prognosisLast, "last", "n", 0, "Analyze the newest N records")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(prognosisCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	p := newPrinter()

	if historyReindex {
		n, err := archive.Reindex()
		if err != nil {
			return fmt.Errorf("failed to reindex: %w", err)
		}
		p.Success("Indexed %d record(s)", n)
		return nil
	}

	if historyIndex {
		limit := historyLimit
		if limit <= 0 {
			limit = cfg.HistoryLimit
		}
		entries, err := archive.Index.Recent(limit, model.ProbeKind(historyKind))
		if err != nil {
			return err
		}
		return p.History(entries)
	}

	infos, err := archive.List(historyPattern)
	if err != nil {
		return err
	}
	return p.Records(infos)
}

func runHistoryRm(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	p := newPrinter()
	for _, name := range args {
		if err := archive.Delete(name); err != nil {
			return fmt.Errorf("failed to delete %s: %w", name, err)
		}
		p.Success("Deleted %s", name)
	}
	return nil
}

func runPrognosis(cmd *cobra.Command, args []string) error {
	archive, err := openArchive()
	if err != nil {
		return err
	}
	defer archive.Close()

	p := newPrinter()
	analyzer := prognosis.NewAnalyzer(archive)

	if len(args) == 1 {
		pr, err := analyzer.AnalyzeRecord(args[0])
		if err != nil {
			return err
		}
		p.Prognosis(pr)
		return nil
	}

	if prognosisLast <= 0 {
		pr, err := analyzer.AnalyzeLatest()
		if err != nil {
			return err
		}
		p.Prognosis(pr)
		return nil
	}

	infos, err := analyzer.Latest(prognosisLast)
	if err != nil {
		return err
	}
	if len(infos) == 0 {
		return prognosis.ErrNoRecords
	}
	for _, info := range infos {
		pr, err := analyzer.AnalyzeRecord(info.Name)
		if err != nil {
			p.Error("%v", err)
			continue
		}
		p.Prognosis(pr)
	}
	return nil
}

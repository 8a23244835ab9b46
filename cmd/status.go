package cmd

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/toyota-maintenance-collector/internal/catalog"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/checkpoint"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/clock/system"
	"github.com/JakeFAU/toyota-maintenance-collector/internal/config"
)

func newStatusCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Shows checkpoint progress for the configured matrix",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(c.v)
			if err != nil {
				return err
			}
			cat := catalog.Default()
			spec, err := cfg.MatrixSpec(cat)
			if err != nil {
				return err
			}
			matrix, err := checkpoint.NewMatrix(spec, cat)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if _, err := os.Stat(cfg.Checkpoint.Path); os.IsNotExist(err) {
				_, _ = fmt.Fprintf(out, "No checkpoint at %s; %d units pending.\n", cfg.Checkpoint.Path, matrix.Total())
				return nil
			}
			store, err := checkpoint.Load(cfg.Checkpoint.Path, system.New(), c.log())
			if err != nil {
				return err
			}
			renderProgress(out, matrix, store, shouldColorize(out))
			return nil
		},
	}
}

func renderProgress(w io.Writer, matrix *checkpoint.Matrix, store *checkpoint.Store, colorize bool) {
	progress := matrix.Progress(store)
	rows := make([][]string, 0, len(progress)+1)
	var done, total int
	for _, src := range matrix.Sources() {
		p := progress[src]
		done += p.Completed
		total += p.Total
		rows = append(rows, []string{string(src), strconv.Itoa(p.Completed), strconv.Itoa(p.Total), percent(p.Completed, p.Total)})
	}
	rows = append(rows, []string{"all", strconv.Itoa(done), strconv.Itoa(total), percent(done, total)})

	for _, line := range renderSectionHeader("Checkpoint "+store.RunID(), colorize) {
		_, _ = fmt.Fprintln(w, line)
	}
	if store.Corrupted() {
		_, _ = fmt.Fprintln(w, renderStatusLine("checkpoint", statusWarn, "corrupt file quarantined; starting fresh", colorize))
	}
	_, _ = fmt.Fprintln(w, renderTable(
		[]string{"Source", "Done", "Total", "Progress"},
		rows,
		[]columnAlignment{alignLeft, alignRight, alignRight, alignRight},
	))
}

func percent(n, total int) string {
	if total == 0 {
		return "-"
	}
	return strconv.FormatFloat(100*float64(n)/float64(total), 'f', 1, 64) + "%"
}

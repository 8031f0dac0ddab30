package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sadopc/hard75/internal/export"
	"github.com/sadopc/hard75/internal/program"
	"github.com/sadopc/hard75/internal/store"
)

func newExportCmd(configPath *string) *cobra.Command {
	var format, out, from, to string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write recorded entries to CSV or JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != "csv" && format != "json" {
				return fmt.Errorf("unknown format %q (want csv or json)", format)
			}
			if out == "" {
				out = fmt.Sprintf("hard75-export-%s.%s", program.FormatDate(program.Today()), format)
			}

			e, err := openEnv(*configPath, false)
			if err != nil {
				return err
			}
			defer e.Close()

			prog, err := program.Load(e.store)
			if err != nil {
				return err
			}
			entries, err := e.store.ListEntries(store.EntryFilter{From: from, To: to})
			if err != nil {
				return err
			}

			if format == "csv" {
				err = export.ToCSV(entries, prog, out)
			} else {
				err = export.ToJSON(entries, prog, out)
			}
			if err != nil {
				return err
			}

			abs, _ := filepath.Abs(out)
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d entries to %s\n", len(entries), abs)
			return nil
		},
	}

	cmd.Flags().StringVarP(&format, "format", "f", "csv", "csv or json")
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: hard75-export-<today>.<format>)")
	cmd.Flags().StringVar(&from, "from", "", "first date to include")
	cmd.Flags().StringVar(&to, "to", "", "last date to include")
	return cmd
}

package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sadopc/hard75/internal/program"
	"github.com/sadopc/hard75/internal/reconcile"
	"github.com/sadopc/hard75/internal/store"
)

func newDayCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "day [date]",
		Short: "Show the reconciled tasks for a day (default: today)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := openEnv(*configPath, false)
			if err != nil {
				return err
			}
			defer e.Close()

			prog, err := program.Load(e.store)
			if err != nil {
				return err
			}
			date := program.FormatDate(prog.InitialDate(program.Today()))
			if len(args) == 1 {
				if date, err = normalizeDate(args[0]); err != nil {
					return err
				}
			}

			view, err := e.rec.LoadDay(cmd.Context(), date)
			if err != nil {
				return err
			}
			printDay(cmd.OutOrStdout(), prog, view)
			return nil
		},
	}
}

func printDay(w io.Writer, prog program.Program, view reconcile.DayView) {
	header := view.Date
	if d, err := program.ParseDate(view.Date); err == nil && prog.HasStart() {
		header = fmt.Sprintf("%s  Day %d of %d", view.Date, prog.DayNumber(d), program.Length)
	}
	fmt.Fprintf(w, "%s  (%d/%d, %d%%)\n", header, view.Completed(), view.Total(), view.Percent())

	for _, e := range view.Ordered() {
		check := "[ ]"
		if e.Completed {
			check = "[x]"
		}
		line := check + " " + e.TaskKey.Label()
		if n := e.ImageCount(); n > 0 {
			line += fmt.Sprintf("  %d/%d photos", n, store.MaxImages)
		}
		fmt.Fprintln(w, line)
		if e.Description != "" {
			fmt.Fprintln(w, "    "+strings.ReplaceAll(e.Description, "\n", "\n    "))
		}
	}
}

// normalizeDate validates s and returns it in canonical form.
func normalizeDate(s string) (string, error) {
	d, err := program.ParseDate(strings.TrimSpace(s))
	if err != nil {
		return "", err
	}
	return program.FormatDate(d), nil
}

package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sadopc/hard75/internal/program"
)

func newStartDateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start-date [date]",
		Short: "Show or set day 1 of the program",
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
			if len(args) == 1 {
				start, err := program.ParseDate(args[0])
				if err != nil {
					return err
				}
				if prog, err = program.SaveStart(e.store, start); err != nil {
					return err
				}
			}

			start, ok := prog.Start()
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "no start date set")
				return nil
			}
			end, _ := prog.End()
			fmt.Fprintf(cmd.OutOrStdout(), "start %s, end %s\n", program.FormatDate(start), program.FormatDate(end))
			return nil
		},
	}
}

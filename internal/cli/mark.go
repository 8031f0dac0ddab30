package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sadopc/hard75/internal/program"
	"github.com/sadopc/hard75/internal/reconcile"
)

func newMarkCmd(configPath *string) *cobra.Command {
	var (
		date        string
		undo        bool
		note        string
		photos      []string
		clearPhotos bool
	)

	cmd := &cobra.Command{
		Use:   "mark <task>",
		Short: "Update one task for a day",
		Long: `Mark a task complete, attach a note or photos, or clear its photos.

Tasks: workout1, workout2_outdoor, diet, water, reading, progress_photo.
The diet task completes itself once it has two photos.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := program.ParseTaskKey(args[0])
			if err != nil {
				return err
			}
			if date == "" {
				date = program.FormatDate(program.Today())
			}
			if date, err = normalizeDate(date); err != nil {
				return err
			}

			e, err := openEnv(*configPath, false)
			if err != nil {
				return err
			}
			defer e.Close()
			ctx := cmd.Context()

			var p reconcile.Patch
			if !reconcile.Derived(key) || undo {
				p.Completed = reconcile.Set(!undo)
			}
			if cmd.Flags().Changed("note") {
				p.Description = reconcile.Set(note)
			}

			if e.rec.RemoteEnabled() {
				// Pulls photos uploaded elsewhere so the write below keeps them.
				if _, err := e.rec.LoadDay(ctx, date); err != nil {
					return err
				}
			}

			entry, err := e.rec.ApplyPatch(ctx, date, key, p)
			if err != nil {
				return err
			}
			if clearPhotos {
				if entry, err = e.rec.ClearAttachments(ctx, date, key); err != nil {
					return err
				}
			}
			if len(photos) > 0 {
				files := make([][]byte, 0, len(photos))
				for _, path := range photos {
					data, err := os.ReadFile(path)
					if err != nil {
						return fmt.Errorf("read photo: %w", err)
					}
					files = append(files, data)
				}
				if entry, err = e.rec.AddAttachments(ctx, date, key, files); err != nil {
					return err
				}
			}

			state := "open"
			if entry.Completed {
				state = "done"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s (%d photos)\n", date, key.Label(), state, entry.ImageCount())
			if reconcile.Derived(key) && !entry.Completed && !undo {
				fmt.Fprintf(cmd.OutOrStdout(), "%s completes with %d photos\n", key.Label(), reconcile.DietMinImages)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&date, "date", "d", "", "day to update, YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&undo, "undo", false, "mark the task not done")
	cmd.Flags().StringVarP(&note, "note", "n", "", "replace the task note")
	cmd.Flags().StringSliceVarP(&photos, "photo", "p", nil, "attach photo files")
	cmd.Flags().BoolVar(&clearPhotos, "clear-photos", false, "remove all photos first")
	return cmd
}

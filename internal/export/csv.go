package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/hard75/internal/program"
	"github.com/sadopc/hard75/internal/store"
)

// ToCSV writes entries to path, one row per (date, task).
func ToCSV(entries []store.Entry, prog program.Program, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	// Header
	if err := w.Write([]string{"Date", "Day", "Task", "Completed", "Description", "Local Photos", "Remote Photos", "Updated"}); err != nil {
		return err
	}

	for _, e := range entries {
		row := []string{
			e.Date,
			dayColumn(prog, e.Date),
			e.TaskKey.Label(),
			strconv.FormatBool(e.Completed),
			e.Description,
			strconv.Itoa(len(e.ImagesLocal)),
			strconv.Itoa(len(e.ImagesRemote)),
			formatUpdated(e.UpdatedAt),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// dayColumn is the program day of date, or empty without a start date.
func dayColumn(prog program.Program, date string) string {
	if !prog.HasStart() {
		return ""
	}
	d, err := program.ParseDate(date)
	if err != nil {
		return ""
	}
	return strconv.Itoa(prog.DayNumber(d))
}

func formatUpdated(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format(time.RFC3339)
}

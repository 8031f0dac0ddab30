package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sadopc/hard75/internal/program"
	"github.com/sadopc/hard75/internal/reconcile"
	"github.com/sadopc/hard75/internal/store"
)

// viewState represents the currently active view.
type viewState int

const (
	viewDay viewState = iota
	viewProgress
	viewSettings
)

var viewNames = []string{"Day", "Progress", "Settings"}

// --- Messages ---

type dayLoadedMsg struct {
	seq  int
	date string
	prog program.Program
	view reconcile.DayView
	err  error
}

type entrySavedMsg struct {
	entry store.Entry
	err   error
}

// noteDebounceMsg fires after the note debounce window. Only the message
// whose seq is still current is saved.
type noteDebounceMsg struct {
	seq  int
	date string
	key  program.TaskKey
	text string
}

type startDateSavedMsg struct {
	prog program.Program
}

type statusMsg struct {
	text    string
	isError bool
}

type exportDoneMsg struct {
	path string
}

// --- Helpers ---

// formatDayHeader renders "Day 12 of 75" or "Day 1" without a start date.
func formatDayHeader(prog program.Program, date string) string {
	d, err := program.ParseDate(date)
	if err != nil {
		return date
	}
	if !prog.HasStart() {
		return "Day 1"
	}
	return fmt.Sprintf("Day %d of %d", prog.DayNumber(d), program.Length)
}

func formatLongDate(date string) string {
	d, err := program.ParseDate(date)
	if err != nil {
		return date
	}
	return d.Format("Mon, Jan 02 2006")
}

func pluralize(n int, word string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, word)
	}
	return fmt.Sprintf("%d %ss", n, word)
}

// truncate shortens s to at most w cells, marking the cut with an ellipsis.
func truncate(s string, w int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if w <= 0 {
		return ""
	}
	if len(r) <= w {
		return s
	}
	if w == 1 {
		return "…"
	}
	return string(r[:w-1]) + "…"
}

// splitPaths splits a comma or newline separated list of file paths,
// expanding a leading ~.
func splitPaths(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool { return r == ',' || r == '\n' })
	var paths []string
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		if f == "~" || strings.HasPrefix(f, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				f = filepath.Join(home, strings.TrimPrefix(f, "~"))
			}
		}
		paths = append(paths, f)
	}
	return paths
}

func readFiles(paths []string) ([][]byte, error) {
	files := make([][]byte, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read photo: %w", err)
		}
		files = append(files, data)
	}
	return files, nil
}

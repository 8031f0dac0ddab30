package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/hard75/internal/program"
	"github.com/sadopc/hard75/internal/store"
)

// reportWindow is the number of days shown per chart page.
const reportWindow = 14

type reportsModel struct {
	store  *store.Store
	width  int
	height int

	prog     program.Program
	progress []store.DailyProgress
	offset   int // windows back from today (0 = current)
	today    func() time.Time

	chart barchart.Model
}

func newReportsModel(s *store.Store) reportsModel {
	return reportsModel{
		store: s,
		today: program.Today,
		chart: barchart.New(60, 12),
	}
}

func (r *reportsModel) setSize(w, h int) {
	r.width = w
	r.height = h
}

type reportsDataMsg struct {
	prog     program.Program
	progress []store.DailyProgress
}

func (r reportsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		prog, _ := program.Load(r.store)
		from, to := r.dateRange()
		progress, _ := r.store.GetDailyProgress(program.FormatDate(from), program.FormatDate(to))
		return reportsDataMsg{prog: prog, progress: progress}
	}
}

// dateRange returns the inclusive window of days for the current offset.
func (r reportsModel) dateRange() (time.Time, time.Time) {
	end := program.AddDays(program.Day(r.today()), -reportWindow*r.offset)
	return program.AddDays(end, 1-reportWindow), end
}

func (r reportsModel) update(msg tea.Msg) (reportsModel, tea.Cmd) {
	switch msg := msg.(type) {
	case reportsDataMsg:
		r.prog = msg.prog
		r.progress = msg.progress
		r.buildChart()
		return r, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Left):
			r.offset++
			return r, r.refresh()
		case key.Matches(msg, keys.Right):
			if r.offset > 0 {
				r.offset--
			}
			return r, r.refresh()
		}
	}
	return r, nil
}

func (r reportsModel) completedOn(date string) int {
	for _, p := range r.progress {
		if p.Date == date {
			return p.Completed
		}
	}
	return 0
}

func (r *reportsModel) buildChart() {
	chartWidth := max(20, r.width-8)
	chartHeight := 12
	if r.height > 30 {
		chartHeight = 16
	}

	r.chart = barchart.New(chartWidth, chartHeight)

	total := len(program.Tasks)
	from, to := r.dateRange()
	var bars []barchart.BarData
	for d := from; !d.After(to); d = program.AddDays(d, 1) {
		n := r.completedOn(program.FormatDate(d))
		style := lipgloss.NewStyle().Foreground(colorPrimary)
		switch {
		case n == total:
			style = lipgloss.NewStyle().Foreground(colorSuccess)
		case n == 0:
			style = lipgloss.NewStyle().Foreground(colorSubtle)
		}
		bars = append(bars, barchart.BarData{
			Label:  d.Format("02"),
			Values: []barchart.BarValue{{Name: "done", Value: float64(n), Style: style}},
		})
	}

	r.chart.PushAll(bars)
	r.chart.Draw()
}

func (r reportsModel) view() string {
	w := r.width - 4

	from, to := r.dateRange()
	dateLabel := mutedStyle.Render(fmt.Sprintf("%s to %s", from.Format("Jan 02"), to.Format("Jan 02, 2006")))
	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Progress"), "  ", dateLabel,
	)

	nav := mutedStyle.Render("  ←/→: navigate")

	return panelStyle.Width(w).Render(
		lipgloss.JoinVertical(lipgloss.Left,
			header, "", r.chart.View(), "", r.renderSummary(w), "", nav,
		),
	)
}

func (r reportsModel) renderSummary(w int) string {
	if len(r.progress) == 0 {
		return mutedStyle.Render("  No entries for this period")
	}

	total := len(program.Tasks)
	perfect, done := 0, 0
	for _, p := range r.progress {
		done += p.Completed
		if p.Completed == total {
			perfect++
		}
	}

	var rows []string
	rows = append(rows, mutedStyle.Render(fmt.Sprintf("  %-12s %-8s %10s", "Date", "Day", "Completed")))
	rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", min(w-6, 32))))
	for _, p := range r.progress {
		day := "-"
		if d, err := program.ParseDate(p.Date); err == nil && r.prog.HasStart() {
			day = fmt.Sprintf("%d", r.prog.DayNumber(d))
		}
		rows = append(rows, fmt.Sprintf("  %-12s %-8s %6d/%d", p.Date, day, p.Completed, total))
	}
	rows = append(rows, "")
	rows = append(rows, fmt.Sprintf("  %s  %s",
		highlightStyle.Render(pluralize(done, "task")+" done"),
		successStyle.Render(pluralize(perfect, "perfect day")),
	))
	return strings.Join(rows, "\n")
}

package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/hard75/internal/program"
	"github.com/sadopc/hard75/internal/reconcile"
	"github.com/sadopc/hard75/internal/store"
)

type settingsModel struct {
	store  *store.Store
	rec    *reconcile.Reconciler
	width  int
	height int

	prog       program.Program
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	startDate *string
}

func newSettingsModel(s *store.Store, r *reconcile.Reconciler) settingsModel {
	sd := ""
	return settingsModel{
		store:     s,
		rec:       r,
		startDate: &sd,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	prog program.Program
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		prog, _ := program.Load(s.store)
		return settingsDataMsg{prog: prog}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.prog = msg.prog
		return s, nil

	case tea.KeyMsg:
		if key.Matches(msg, keys.Enter) {
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.startDate = program.FormatDate(program.Today())
	if start, ok := s.prog.Start(); ok {
		*s.startDate = program.FormatDate(start)
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Start date").
				Description("Day 1 of the program (YYYY-MM-DD). Recorded days are kept.").
				Value(s.startDate).
				Validate(func(v string) error {
					_, err := program.ParseDate(strings.TrimSpace(v))
					return err
				}),
		).Title("Program"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		return s, s.saveStart(strings.TrimSpace(*s.startDate))
	}

	return s, cmd
}

func (s settingsModel) saveStart(v string) tea.Cmd {
	return func() tea.Msg {
		start, err := program.ParseDate(v)
		if err != nil {
			return statusMsg{text: err.Error(), isError: true}
		}
		prog, err := program.SaveStart(s.store, start)
		if err != nil {
			return statusMsg{text: fmt.Sprintf("Settings error: %v", err), isError: true}
		}
		return startDateSavedMsg{prog: prog}
	}
}

func (s settingsModel) view() string {
	w := s.width - 4
	title := titleStyle.Render("Settings")

	if s.formActive && s.form != nil {
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", s.form.View()),
		)
	}

	var rows []string
	rows = append(rows, title, "")
	rows = append(rows, settingRow("Start date", "not set"))
	if start, ok := s.prog.Start(); ok {
		end, _ := s.prog.End()
		rows[len(rows)-1] = settingRow("Start date", program.FormatDate(start))
		rows = append(rows, settingRow("End date", program.FormatDate(end)))
		rows = append(rows, settingRow("Today", fmt.Sprintf("day %d of %d", s.prog.DayNumber(program.Today()), program.Length)))
	}
	sync := "off (local only)"
	if s.rec != nil && s.rec.RemoteEnabled() {
		sync = "on"
	}
	rows = append(rows, settingRow("Sync", sync))

	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("Press enter to change the start date"))

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func settingRow(label, value string) string {
	return fmt.Sprintf("  %s %s", lipgloss.NewStyle().Width(16).Render(label), highlightStyle.Render(value))
}

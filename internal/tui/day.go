package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/hard75/internal/program"
	"github.com/sadopc/hard75/internal/reconcile"
	"github.com/sadopc/hard75/internal/store"
)

type dayForm int

const (
	formNone dayForm = iota
	formPhotos
	formClear
)

type dayModel struct {
	store    *store.Store
	rec      *reconcile.Reconciler
	debounce time.Duration
	width    int
	height   int

	prog   program.Program
	date   string
	day    reconcile.DayView
	loaded bool
	cursor int
	// loadSeq numbers day loads; replies from older loads are dropped.
	loadSeq int

	editing bool
	note    textarea.Model
	noteKey program.TaskKey
	noteSeq int

	formActive bool
	formKind   dayForm
	form       *huh.Form

	// Form values as pointers (survive value copies)
	photoPaths   *string
	confirmClear *bool

	bar progress.Model
}

func newDayModel(s *store.Store, r *reconcile.Reconciler, debounce time.Duration) dayModel {
	ta := textarea.New()
	ta.Placeholder = "How did it go?"
	ta.ShowLineNumbers = false
	ta.CharLimit = 2000
	ta.SetHeight(4)

	paths, confirm := "", false
	return dayModel{
		store:        s,
		rec:          r,
		debounce:     debounce,
		note:         ta,
		photoPaths:   &paths,
		confirmClear: &confirm,
		bar:          progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage()),
	}
}

func (d dayModel) Init() tea.Cmd {
	return d.fetch(d.loadSeq, d.date)
}

func (d *dayModel) setSize(w, h int) {
	d.width = w
	d.height = h
	d.bar.Width = max(10, w/3)
	d.note.SetWidth(max(20, w-12))
}

func (d dayModel) capturing() bool {
	return d.editing || d.formActive
}

// loadDay starts a load of date and supersedes any load still in flight.
// An empty date selects the program's initial day.
func (d *dayModel) loadDay(date string) tea.Cmd {
	d.loadSeq++
	return d.fetch(d.loadSeq, date)
}

// fetch reads the program and reconciles date.
func (d dayModel) fetch(seq int, date string) tea.Cmd {
	return func() tea.Msg {
		prog, err := program.Load(d.store)
		if err != nil {
			return dayLoadedMsg{seq: seq, date: date, err: err}
		}
		if date == "" {
			date = program.FormatDate(prog.InitialDate(program.Today()))
		}
		view, err := d.rec.LoadDay(context.Background(), date)
		return dayLoadedMsg{seq: seq, date: date, prog: prog, view: view, err: err}
	}
}

func (d dayModel) selected() program.TaskKey {
	return program.Tasks[d.cursor].Key
}

func (d dayModel) update(msg tea.Msg) (dayModel, tea.Cmd) {
	switch msg := msg.(type) {
	case dayLoadedMsg:
		if msg.seq != d.loadSeq {
			return d, nil
		}
		if msg.err != nil {
			return d, statusCmd(fmt.Sprintf("Load error: %v", msg.err), true)
		}
		d.prog = msg.prog
		d.date = msg.date
		d.day = msg.view
		d.loaded = true
		return d, nil

	case entrySavedMsg:
		if msg.err != nil {
			return d, statusCmd(fmt.Sprintf("Save error: %v", msg.err), true)
		}
		cmd := d.loadDay(d.date)
		return d, cmd

	case noteDebounceMsg:
		if msg.seq != d.noteSeq {
			return d, nil
		}
		return d, d.saveNote(msg.date, msg.key, msg.text)
	}

	if d.formActive && d.form != nil {
		return d.updateForm(msg)
	}
	if d.editing {
		return d.updateNote(msg)
	}

	msg2, ok := msg.(tea.KeyMsg)
	if !ok || !d.loaded {
		return d, nil
	}
	switch {
	case key.Matches(msg2, keys.Up):
		if d.cursor > 0 {
			d.cursor--
		}
	case key.Matches(msg2, keys.Down):
		if d.cursor < len(program.Tasks)-1 {
			d.cursor++
		}
	case key.Matches(msg2, keys.Left):
		cmd := d.step(d.prog.Prev)
		return d, cmd
	case key.Matches(msg2, keys.Right):
		cmd := d.step(d.prog.Next)
		return d, cmd
	case key.Matches(msg2, keys.Today):
		cmd := d.loadDay(program.FormatDate(d.prog.InitialDate(program.Today())))
		return d, cmd
	case key.Matches(msg2, keys.Toggle):
		return d, d.toggle()
	case key.Matches(msg2, keys.Note), key.Matches(msg2, keys.Enter):
		return d.startNote()
	case key.Matches(msg2, keys.Photo):
		return d.showPhotoForm()
	case key.Matches(msg2, keys.Clear):
		if d.day.Entry(d.selected()).ImageCount() == 0 {
			return d, statusCmd("No photos to clear", false)
		}
		return d.showClearForm()
	}
	return d, nil
}

func (d *dayModel) step(move func(time.Time) time.Time) tea.Cmd {
	cur, err := program.ParseDate(d.date)
	if err != nil {
		return nil
	}
	next := program.FormatDate(move(cur))
	if next == d.date {
		return nil
	}
	return d.loadDay(next)
}

func (d dayModel) toggle() tea.Cmd {
	k := d.selected()
	if reconcile.Derived(k) {
		return statusCmd(fmt.Sprintf("%s completes with %d photos", k.Label(), reconcile.DietMinImages), false)
	}
	done := !d.day.Entry(k).Completed
	date := d.date
	return func() tea.Msg {
		e, err := d.rec.ApplyPatch(context.Background(), date, k, reconcile.Patch{Completed: reconcile.Set(done)})
		return entrySavedMsg{entry: e, err: err}
	}
}

// --- Notes ---

func (d dayModel) startNote() (dayModel, tea.Cmd) {
	d.noteKey = d.selected()
	d.note.SetValue(d.day.Entry(d.noteKey).Description)
	d.editing = true
	return d, d.note.Focus()
}

func (d dayModel) updateNote(msg tea.Msg) (dayModel, tea.Cmd) {
	if km, ok := msg.(tea.KeyMsg); ok && key.Matches(km, keys.Back) {
		d.editing = false
		d.note.Blur()
		d.noteSeq++
		return d, d.saveNote(d.date, d.noteKey, d.note.Value())
	}

	before := d.note.Value()
	var cmd tea.Cmd
	d.note, cmd = d.note.Update(msg)
	if d.note.Value() == before {
		return d, cmd
	}

	d.noteSeq++
	pending := noteDebounceMsg{seq: d.noteSeq, date: d.date, key: d.noteKey, text: d.note.Value()}
	return d, tea.Batch(cmd, tea.Tick(d.debounce, func(time.Time) tea.Msg { return pending }))
}

func (d dayModel) saveNote(date string, k program.TaskKey, text string) tea.Cmd {
	return func() tea.Msg {
		e, err := d.rec.ApplyPatch(context.Background(), date, k, reconcile.Patch{Description: reconcile.Set(text)})
		return entrySavedMsg{entry: e, err: err}
	}
}

// --- Photo forms ---

func (d dayModel) showPhotoForm() (dayModel, tea.Cmd) {
	e := d.day.Entry(d.selected())
	room := store.MaxImages - e.ImageCount()
	if room <= 0 {
		return d, statusCmd(fmt.Sprintf("Photo limit reached (%d)", store.MaxImages), false)
	}
	*d.photoPaths = ""
	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewText().
				Title("Photo files").
				Description(fmt.Sprintf("One path per line or comma separated, up to %s", pluralize(room, "photo"))).
				Value(d.photoPaths).
				Validate(func(s string) error {
					if len(splitPaths(s)) == 0 {
						return fmt.Errorf("at least one path is required")
					}
					return nil
				}),
		),
	).WithShowHelp(true).WithShowErrors(true)
	d.formKind = formPhotos
	d.formActive = true
	return d, d.form.Init()
}

func (d dayModel) showClearForm() (dayModel, tea.Cmd) {
	*d.confirmClear = false
	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Remove all photos from %q?", d.selected().Label())).
				Affirmative("Remove").
				Negative("Keep").
				Value(d.confirmClear),
		),
	).WithShowHelp(true)
	d.formKind = formClear
	d.formActive = true
	return d, d.form.Init()
}

func (d dayModel) updateForm(msg tea.Msg) (dayModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			d.closeForm()
			return d, nil
		}
	}

	form, cmd := d.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		d.form = f
	}

	switch d.form.State {
	case huh.StateAborted:
		d.closeForm()
		return d, nil
	case huh.StateCompleted:
		kind := d.formKind
		d.closeForm()
		switch kind {
		case formPhotos:
			return d, d.addPhotos(splitPaths(*d.photoPaths))
		case formClear:
			if *d.confirmClear {
				return d, d.clearPhotos()
			}
		}
		return d, nil
	}
	return d, cmd
}

func (d *dayModel) closeForm() {
	d.formActive = false
	d.formKind = formNone
	d.form = nil
}

func (d dayModel) addPhotos(paths []string) tea.Cmd {
	date, k := d.date, d.selected()
	return func() tea.Msg {
		files, err := readFiles(paths)
		if err != nil {
			return statusMsg{text: err.Error(), isError: true}
		}
		e, err := d.rec.AddAttachments(context.Background(), date, k, files)
		return entrySavedMsg{entry: e, err: err}
	}
}

func (d dayModel) clearPhotos() tea.Cmd {
	date, k := d.date, d.selected()
	return func() tea.Msg {
		e, err := d.rec.ClearAttachments(context.Background(), date, k)
		return entrySavedMsg{entry: e, err: err}
	}
}

// --- View ---

func (d dayModel) view() string {
	w := d.width - 4
	if !d.loaded {
		return panelStyle.Width(w).Render(mutedStyle.Render("Loading day..."))
	}

	sections := []string{d.renderHeader(), "", d.renderProgress(), "", d.renderTasks(w)}
	switch {
	case d.formActive && d.form != nil:
		sections = append(sections, "", d.form.View())
	case d.editing:
		title := subtitleStyle.Render("Note · " + d.noteKey.Label())
		sections = append(sections, "", title, d.note.View(), mutedStyle.Render("esc: save & close"))
	default:
		sections = append(sections, "", mutedStyle.Render("  space: toggle  n: note  p: photos  c: clear  ←/→: day  t: today"))
	}
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func (d dayModel) renderHeader() string {
	title := titleStyle.Render(formatDayHeader(d.prog, d.date))
	date := mutedStyle.Render(formatLongDate(d.date))
	sync := mutedStyle.Render("○ local only")
	if d.rec.RemoteEnabled() {
		sync = successStyle.Render("● sync on")
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom, title, "  ", date, "  ", sync)
}

func (d dayModel) renderProgress() string {
	pct := d.day.Percent()
	summary := fmt.Sprintf("%d/%d tasks completed", d.day.Completed(), d.day.Total())
	style := highlightStyle
	if pct == 100 {
		style = successStyle
	}
	return lipgloss.JoinHorizontal(lipgloss.Center,
		d.bar.ViewAs(float64(pct)/100), " ", style.Render(fmt.Sprintf("%3d%%", pct)), "  ", mutedStyle.Render(summary),
	)
}

func (d dayModel) renderTasks(w int) string {
	var rows []string
	for i, e := range d.day.Ordered() {
		cursor := "  "
		style := normalItemStyle
		if i == d.cursor {
			cursor = "> "
			style = selectedItemStyle
		}

		check := checkOpenStyle.Render("[ ]")
		if e.Completed {
			check = checkDoneStyle.Render("[x]")
		}

		line := cursor + check + " " + style.Render(e.TaskKey.Label())
		var extra []string
		if n := e.ImageCount(); n > 0 || reconcile.Derived(e.TaskKey) {
			photos := fmt.Sprintf("%d/%d photos", n, store.MaxImages)
			if len(e.ImagesLocal) > 0 && d.rec.RemoteEnabled() {
				photos += fmt.Sprintf(", %d unsynced", len(e.ImagesLocal))
			}
			extra = append(extra, photos)
		}
		if reconcile.Derived(e.TaskKey) {
			line += " " + derivedStyle.Render("(auto)")
		}
		if len(extra) > 0 {
			line += " " + mutedStyle.Render(strings.Join(extra, " "))
		}
		rows = append(rows, line)

		if e.Description != "" {
			rows = append(rows, "      "+mutedStyle.Render(truncate(e.Description, w-10)))
		}
	}
	return strings.Join(rows, "\n")
}

func statusCmd(text string, isError bool) tea.Cmd {
	return func() tea.Msg { return statusMsg{text: text, isError: isError} }
}

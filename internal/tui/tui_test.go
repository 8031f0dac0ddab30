package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sadopc/hard75/internal/program"
	"github.com/sadopc/hard75/internal/reconcile"
	"github.com/sadopc/hard75/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func newTestDay(t *testing.T) (dayModel, *store.Store) {
	t.Helper()
	s := newTestStore(t)
	d := newDayModel(s, reconcile.New(s), 10*time.Millisecond)
	d.setSize(100, 30)
	return d, s
}

func runeKey(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

// loadDate drives a day load to completion.
func loadDate(t *testing.T, d dayModel, date string) dayModel {
	t.Helper()
	cmd := d.loadDay(date)
	d, _ = d.update(cmd())
	if !d.loaded {
		t.Fatalf("day %s did not load", date)
	}
	return d
}

// settle runs cmd and feeds its message back into the day model.
func settle(t *testing.T, d dayModel, cmd tea.Cmd) (dayModel, tea.Msg) {
	t.Helper()
	if cmd == nil {
		t.Fatal("expected a command")
	}
	msg := cmd()
	d, next := d.update(msg)
	if next != nil {
		d, _ = d.update(next())
	}
	return d, msg
}

func setStart(t *testing.T, s *store.Store, date string) program.Program {
	t.Helper()
	start, err := program.ParseDate(date)
	if err != nil {
		t.Fatal(err)
	}
	p, err := program.SaveStart(s, start)
	if err != nil {
		t.Fatal(err)
	}
	return p
}

// ============================================================
// Helper functions
// ============================================================

func TestSplitPaths(t *testing.T) {
	got := splitPaths("a.jpg, b.jpg\n\n  c.jpg ,")
	want := []string{"a.jpg", "b.jpg", "c.jpg"}
	if len(got) != len(want) {
		t.Fatalf("splitPaths = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("splitPaths[%d] = %q, want %q", i, got[i], want[i])
		}
	}

	if len(splitPaths(" , \n")) != 0 {
		t.Fatal("blank input should yield no paths")
	}

	home, err := os.UserHomeDir()
	if err == nil {
		got := splitPaths("~/photo.jpg")
		if got[0] != filepath.Join(home, "photo.jpg") {
			t.Fatalf("home not expanded: %q", got[0])
		}
	}
}

func TestReadFiles(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a.jpg")
	if err := os.WriteFile(p, []byte("abc"), 0o644); err != nil {
		t.Fatal(err)
	}

	files, err := readFiles([]string{p})
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 1 || string(files[0]) != "abc" {
		t.Fatalf("unexpected files: %v", files)
	}

	if _, err := readFiles([]string{p, filepath.Join(dir, "missing.jpg")}); err == nil {
		t.Fatal("missing file should fail")
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		w    int
		want string
	}{
		{"hello world", 5, "hell…"},
		{"hi", 5, "hi"},
		{"a\nb", 5, "a b"},
		{"abc", 1, "…"},
		{"abc", 0, ""},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.w); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.w, got, tt.want)
		}
	}
}

func TestPluralize(t *testing.T) {
	if got := pluralize(1, "photo"); got != "1 photo" {
		t.Fatalf("got %q", got)
	}
	if got := pluralize(3, "photo"); got != "3 photos" {
		t.Fatalf("got %q", got)
	}
}

func TestFormatDayHeader(t *testing.T) {
	if got := formatDayHeader(program.Program{}, "2024-02-10"); got != "Day 1" {
		t.Fatalf("no start: got %q", got)
	}
	p, err := program.Parse("2024-02-01")
	if err != nil {
		t.Fatal(err)
	}
	if got := formatDayHeader(p, "2024-02-10"); got != "Day 10 of 75" {
		t.Fatalf("got %q", got)
	}
	if got := formatDayHeader(p, "garbage"); got != "garbage" {
		t.Fatalf("bad date: got %q", got)
	}
}

// ============================================================
// View state
// ============================================================

func TestViewNames(t *testing.T) {
	expected := []string{"Day", "Progress", "Settings"}
	if len(viewNames) != len(expected) {
		t.Fatalf("expected %d view names, got %d", len(expected), len(viewNames))
	}
	for i, name := range expected {
		if viewNames[i] != name {
			t.Fatalf("viewNames[%d] = %q, want %q", i, viewNames[i], name)
		}
	}
}

func TestViewStateConstants(t *testing.T) {
	if viewDay != 0 || viewProgress != 1 || viewSettings != 2 {
		t.Fatal("view state constants out of order")
	}
}

// ============================================================
// Day model
// ============================================================

func TestDayLoadsInitialDate(t *testing.T) {
	d, s := newTestDay(t)
	future := program.FormatDate(program.AddDays(program.Today(), 10))
	setStart(t, s, future)

	d = loadDate(t, d, "")
	if d.date != future {
		t.Fatalf("initial date = %s, want program start %s", d.date, future)
	}
	if d.day.Completed() != 0 || d.day.Total() != len(program.Tasks) {
		t.Fatalf("unexpected counts %d/%d", d.day.Completed(), d.day.Total())
	}
}

func TestDayToggle(t *testing.T) {
	d, s := newTestDay(t)
	d = loadDate(t, d, "2024-02-10")
	d.cursor = 3 // water

	d, cmd := d.update(runeKey("x"))
	d, msg := settle(t, d, cmd)

	saved, ok := msg.(entrySavedMsg)
	if !ok || saved.err != nil {
		t.Fatalf("expected saved entry, got %#v", msg)
	}
	if !d.day.Entry(program.TaskWater).Completed {
		t.Fatal("water should be completed after toggle")
	}
	e, err := s.GetEntry("2024-02-10", program.TaskWater)
	if err != nil || e == nil || !e.Completed {
		t.Fatalf("toggle not persisted: %v %v", e, err)
	}

	d, cmd = d.update(runeKey("x"))
	d, _ = settle(t, d, cmd)
	if d.day.Entry(program.TaskWater).Completed {
		t.Fatal("second toggle should clear completion")
	}
}

func TestDayToggleDerivedTask(t *testing.T) {
	d, s := newTestDay(t)
	d = loadDate(t, d, "2024-02-10")
	d.cursor = 2 // diet

	_, cmd := d.update(runeKey("x"))
	if _, ok := cmd().(statusMsg); !ok {
		t.Fatal("toggling a derived task should only report status")
	}
	e, _ := s.GetEntry("2024-02-10", program.TaskDiet)
	if e != nil {
		t.Fatal("derived toggle must not write an entry")
	}
}

func TestDayCursorBounds(t *testing.T) {
	d, _ := newTestDay(t)
	d = loadDate(t, d, "2024-02-10")

	d, _ = d.update(tea.KeyMsg{Type: tea.KeyUp})
	if d.cursor != 0 {
		t.Fatal("cursor should not go above the first task")
	}
	for range program.Tasks {
		d, _ = d.update(tea.KeyMsg{Type: tea.KeyDown})
	}
	if d.cursor != len(program.Tasks)-1 {
		t.Fatalf("cursor = %d, want last task", d.cursor)
	}
}

func TestDayNavigationStaysInProgram(t *testing.T) {
	d, s := newTestDay(t)
	setStart(t, s, "2024-02-01")
	d = loadDate(t, d, "2024-02-01")

	_, cmd := d.update(tea.KeyMsg{Type: tea.KeyLeft})
	if cmd != nil {
		t.Fatal("should not navigate before the start date")
	}

	_, cmd = d.update(tea.KeyMsg{Type: tea.KeyRight})
	if cmd == nil {
		t.Fatal("expected load of next day")
	}
	msg, ok := cmd().(dayLoadedMsg)
	if !ok || msg.date != "2024-02-02" {
		t.Fatalf("next day = %#v", msg)
	}
}

func TestDayDropsStaleLoads(t *testing.T) {
	d, s := newTestDay(t)
	setStart(t, s, "2024-02-01")
	d = loadDate(t, d, "2024-02-10")

	d, toNext := d.update(tea.KeyMsg{Type: tea.KeyRight})
	d, toPrev := d.update(tea.KeyMsg{Type: tea.KeyLeft})
	if toNext == nil || toPrev == nil {
		t.Fatal("expected two day loads")
	}

	d, _ = d.update(toPrev())
	d, _ = d.update(toNext())
	if d.date != "2024-02-09" {
		t.Fatalf("date = %s, want the latest request 2024-02-09", d.date)
	}
}

func TestDayNoteEditing(t *testing.T) {
	d, s := newTestDay(t)
	d = loadDate(t, d, "2024-02-10")
	d.cursor = 4 // reading

	d, _ = d.update(runeKey("n"))
	if !d.editing || !d.capturing() {
		t.Fatal("n should open the note editor")
	}

	d, cmd := d.update(runeKey("a"))
	if cmd == nil || d.noteSeq != 1 {
		t.Fatalf("typing should schedule a debounced save (seq %d)", d.noteSeq)
	}
	if d.note.Value() != "a" {
		t.Fatalf("note = %q", d.note.Value())
	}

	d, cmd = d.update(tea.KeyMsg{Type: tea.KeyEsc})
	if d.editing {
		t.Fatal("esc should close the editor")
	}
	d, _ = settle(t, d, cmd)

	e, _ := s.GetEntry("2024-02-10", program.TaskReading)
	if e == nil || e.Description != "a" {
		t.Fatalf("note not flushed on close: %+v", e)
	}
}

func TestDayNoteDebounceDropsStaleEdits(t *testing.T) {
	d, s := newTestDay(t)
	d = loadDate(t, d, "2024-02-10")
	d.noteSeq = 2

	_, cmd := d.update(noteDebounceMsg{seq: 1, date: "2024-02-10", key: program.TaskWater, text: "old"})
	if cmd != nil {
		t.Fatal("stale debounce should not save")
	}

	_, cmd = d.update(noteDebounceMsg{seq: 2, date: "2024-02-10", key: program.TaskWater, text: "new"})
	if cmd == nil {
		t.Fatal("current debounce should save")
	}
	saved := cmd().(entrySavedMsg)
	if saved.err != nil || saved.entry.Description != "new" {
		t.Fatalf("unexpected save: %+v", saved)
	}
	e, _ := s.GetEntry("2024-02-10", program.TaskWater)
	if e == nil || e.Description != "new" {
		t.Fatal("note not persisted")
	}
}

func TestDayClearWithoutPhotos(t *testing.T) {
	d, _ := newTestDay(t)
	d = loadDate(t, d, "2024-02-10")

	d, cmd := d.update(runeKey("c"))
	if d.formActive {
		t.Fatal("clear form should not open without photos")
	}
	if _, ok := cmd().(statusMsg); !ok {
		t.Fatal("expected a status message")
	}
}

func TestDayPhotoFormOpens(t *testing.T) {
	d, _ := newTestDay(t)
	d = loadDate(t, d, "2024-02-10")

	d, _ = d.update(runeKey("p"))
	if !d.formActive || d.formKind != formPhotos {
		t.Fatal("p should open the photo form")
	}

	d, _ = d.update(tea.KeyMsg{Type: tea.KeyEsc})
	if d.formActive || d.form != nil {
		t.Fatal("esc should close the form")
	}
}

func TestDayAddAndClearPhotos(t *testing.T) {
	d, s := newTestDay(t)
	d = loadDate(t, d, "2024-02-10")
	d.cursor = 2 // diet

	dir := t.TempDir()
	var paths []string
	for _, name := range []string{"a.jpg", "b.jpg"} {
		p := filepath.Join(dir, name)
		if err := os.WriteFile(p, []byte("not really a jpeg"), 0o644); err != nil {
			t.Fatal(err)
		}
		paths = append(paths, p)
	}

	d, _ = settle(t, d, d.addPhotos(paths))
	diet := d.day.Entry(program.TaskDiet)
	if diet.ImageCount() != 2 || !diet.Completed {
		t.Fatalf("diet after photos: %d images, completed=%v", diet.ImageCount(), diet.Completed)
	}

	d, _ = settle(t, d, d.clearPhotos())
	diet = d.day.Entry(program.TaskDiet)
	if diet.ImageCount() != 0 || diet.Completed {
		t.Fatal("clearing photos should reset diet")
	}
	e, _ := s.GetEntry("2024-02-10", program.TaskDiet)
	if e == nil || e.ImageCount() != 0 {
		t.Fatal("clear not persisted")
	}
}

func TestDayView(t *testing.T) {
	d, s := newTestDay(t)
	if !strings.Contains(d.view(), "Loading day") {
		t.Fatal("unloaded day should show loading")
	}

	setStart(t, s, "2024-02-01")
	d = loadDate(t, d, "2024-02-10")
	out := d.view()
	for _, want := range []string{"Day 10 of 75", "local only", "0/6 tasks completed", "[ ]"} {
		if !strings.Contains(out, want) {
			t.Fatalf("day view missing %q", want)
		}
	}
}

// ============================================================
// Reports model
// ============================================================

func TestReportsDateRange(t *testing.T) {
	s := newTestStore(t)
	r := newReportsModel(s)
	r.today = func() time.Time { return time.Date(2024, 2, 14, 15, 0, 0, 0, time.UTC) }

	from, to := r.dateRange()
	if program.FormatDate(from) != "2024-02-01" || program.FormatDate(to) != "2024-02-14" {
		t.Fatalf("range = %s..%s", from, to)
	}

	r.offset = 1
	from, to = r.dateRange()
	if program.FormatDate(from) != "2024-01-18" || program.FormatDate(to) != "2024-01-31" {
		t.Fatalf("previous range = %s..%s", from, to)
	}
}

func TestReportsRefresh(t *testing.T) {
	s := newTestStore(t)
	for _, k := range []program.TaskKey{program.TaskWater, program.TaskReading} {
		e := store.NewEntry("2024-02-10", k)
		e.Completed = true
		if err := s.PutEntry(e); err != nil {
			t.Fatal(err)
		}
	}

	r := newReportsModel(s)
	r.today = func() time.Time { return time.Date(2024, 2, 14, 0, 0, 0, 0, time.UTC) }
	r.setSize(100, 30)
	r, _ = r.update(r.refresh()())

	if got := r.completedOn("2024-02-10"); got != 2 {
		t.Fatalf("completedOn = %d, want 2", got)
	}
	if !strings.Contains(r.view(), "2024-02-10") {
		t.Fatal("summary should list the recorded day")
	}
}

func TestReportsNavigation(t *testing.T) {
	s := newTestStore(t)
	r := newReportsModel(s)

	r, _ = r.update(tea.KeyMsg{Type: tea.KeyRight})
	if r.offset != 0 {
		t.Fatal("offset should not go below 0")
	}
	r, _ = r.update(tea.KeyMsg{Type: tea.KeyLeft})
	if r.offset != 1 {
		t.Fatal("left should move one window back")
	}
}

// ============================================================
// Settings model
// ============================================================

func TestSettingsSaveStart(t *testing.T) {
	s := newTestStore(t)
	m := newSettingsModel(s, reconcile.New(s))

	msg, ok := m.saveStart("2024-03-01")().(startDateSavedMsg)
	if !ok {
		t.Fatal("expected startDateSavedMsg")
	}
	if formatStart(msg.prog) != "2024-03-01" {
		t.Fatalf("start = %s", formatStart(msg.prog))
	}

	p, err := program.Load(s)
	if err != nil || !p.HasStart() {
		t.Fatal("start date not persisted")
	}

	if _, ok := m.saveStart("03/01/2024")().(statusMsg); !ok {
		t.Fatal("invalid date should report status")
	}
}

func TestSettingsView(t *testing.T) {
	s := newTestStore(t)
	setStart(t, s, "2024-02-01")
	m := newSettingsModel(s, reconcile.New(s))
	m.setSize(100, 30)
	m, _ = m.update(m.refresh()())

	out := m.view()
	for _, want := range []string{"2024-02-01", "2024-04-15", "off (local only)"} {
		if !strings.Contains(out, want) {
			t.Fatalf("settings view missing %q", want)
		}
	}

	m, _ = m.update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.formActive || *m.startDate != "2024-02-01" {
		t.Fatal("enter should open the form prefilled with the start date")
	}
}

// ============================================================
// App model
// ============================================================

func newTestApp(t *testing.T) App {
	t.Helper()
	s := newTestStore(t)
	return NewApp(s, reconcile.New(s), 10*time.Millisecond)
}

func TestNewApp(t *testing.T) {
	app := newTestApp(t)

	if app.activeView != viewDay {
		t.Fatal("default view should be day")
	}
	if app.showHelp {
		t.Fatal("help should be hidden by default")
	}
	if app.exportPicking {
		t.Fatal("export picker should be hidden by default")
	}
	if app.isFormActive() {
		t.Fatal("no forms should be active initially")
	}
}

func TestAppViewStates(t *testing.T) {
	app := newTestApp(t)
	app.width = 120
	app.height = 40

	for v := range viewNames {
		app.activeView = viewState(v)
		if app.View() == "" {
			t.Fatalf("view %d rendered empty", v)
		}
	}
}

func TestAppRenderHeaderContainsAllTabs(t *testing.T) {
	app := newTestApp(t)
	app.width = 120
	app.height = 40

	header := app.renderHeader()
	for _, name := range viewNames {
		if !strings.Contains(header, name) {
			t.Fatalf("header missing tab %q", name)
		}
	}
}

func TestAppLoadingState(t *testing.T) {
	app := newTestApp(t)
	// Width 0 means not yet sized
	if out := app.View(); out != "Loading..." {
		t.Fatalf("expected 'Loading...', got %q", out)
	}
}

func TestAppStatusMessage(t *testing.T) {
	app := newTestApp(t)
	app.width = 120
	app.height = 40

	model, _ := app.Update(statusMsg{text: "test status", isError: true})
	app = model.(App)
	if !app.isError {
		t.Fatal("error flag should be kept")
	}
	if !strings.Contains(app.renderFooter(), "test status") {
		t.Fatal("footer should contain status message")
	}
}

func TestAppTabSwitching(t *testing.T) {
	app := newTestApp(t)

	model, cmd := app.Update(runeKey("2"))
	app = model.(App)
	if app.activeView != viewProgress || cmd == nil {
		t.Fatal("2 should switch to progress and refresh")
	}

	model, _ = app.Update(tea.KeyMsg{Type: tea.KeyTab})
	app = model.(App)
	if app.activeView != viewSettings {
		t.Fatal("tab should cycle to settings")
	}

	model, _ = app.Update(tea.KeyMsg{Type: tea.KeyTab})
	app = model.(App)
	if app.activeView != viewDay {
		t.Fatal("tab should wrap to day")
	}
}

func TestAppRoutesDayMessagesFromOtherTabs(t *testing.T) {
	app := newTestApp(t)
	app.activeView = viewSettings

	cmd := app.day.loadDay("2024-02-10")
	model, _ := app.Update(cmd())
	app = model.(App)
	if !app.day.loaded || app.day.date != "2024-02-10" {
		t.Fatal("day load should reach the day view")
	}
}

func TestAppTabReloadSupersedesPendingLoad(t *testing.T) {
	app := newTestApp(t)
	stale := app.day.loadDay("2024-02-03")
	app.day.date = "2024-02-10"

	model, fresh := app.Update(runeKey("1"))
	app = model.(App)
	if fresh == nil {
		t.Fatal("1 should reload the day view")
	}

	model, _ = app.Update(fresh())
	app = model.(App)
	model, _ = app.Update(stale())
	app = model.(App)
	if app.day.date != "2024-02-10" {
		t.Fatalf("date = %s, stale load should be dropped", app.day.date)
	}
}

func TestAppFormCapturesKeys(t *testing.T) {
	app := newTestApp(t)
	load := app.day.loadDay("2024-02-10")
	model, _ := app.Update(load())
	app = model.(App)

	model, _ = app.Update(runeKey("n"))
	app = model.(App)
	if !app.isFormActive() {
		t.Fatal("note editor should capture input")
	}

	model, cmd := app.Update(runeKey("q"))
	app = model.(App)
	if app.day.note.Value() != "q" {
		t.Fatalf("q should be typed into the note, got %q", app.day.note.Value())
	}
	if cmd == nil {
		t.Fatal("typing should schedule a save")
	}
}

func TestAppExportPicker(t *testing.T) {
	app := newTestApp(t)
	model, _ := app.Update(runeKey("e"))
	app = model.(App)
	if !app.exportPicking {
		t.Fatal("e should open the export picker")
	}
	model, _ = app.Update(tea.KeyMsg{Type: tea.KeyEsc})
	app = model.(App)
	if app.exportPicking {
		t.Fatal("esc should close the export picker")
	}
}

// ============================================================
// Key bindings
// ============================================================

func TestKeyMapShortHelp(t *testing.T) {
	if len(keys.ShortHelp()) == 0 {
		t.Fatal("short help should have bindings")
	}
}

func TestKeyMapFullHelp(t *testing.T) {
	groups := keys.FullHelp()
	if len(groups) == 0 {
		t.Fatal("full help should have groups")
	}
	for i, g := range groups {
		if len(g) == 0 {
			t.Fatalf("full help group %d is empty", i)
		}
	}
}

// ============================================================
// Styles (smoke test)
// ============================================================

func TestStylesRender(t *testing.T) {
	styles := []struct {
		name string
		fn   func() string
	}{
		{"activeTab", func() string { return activeTabStyle.Render("test") }},
		{"inactiveTab", func() string { return inactiveTabStyle.Render("test") }},
		{"panel", func() string { return panelStyle.Render("test") }},
		{"activePanel", func() string { return activePanelStyle.Render("test") }},
		{"checkDone", func() string { return checkDoneStyle.Render("test") }},
		{"checkOpen", func() string { return checkOpenStyle.Render("test") }},
		{"derived", func() string { return derivedStyle.Render("test") }},
		{"title", func() string { return titleStyle.Render("test") }},
		{"subtitle", func() string { return subtitleStyle.Render("test") }},
		{"accent", func() string { return accentStyle.Render("test") }},
		{"success", func() string { return successStyle.Render("test") }},
		{"warning", func() string { return warningStyle.Render("test") }},
		{"error", func() string { return errorStyle.Render("test") }},
		{"muted", func() string { return mutedStyle.Render("test") }},
		{"highlight", func() string { return highlightStyle.Render("test") }},
		{"header", func() string { return headerStyle.Render("test") }},
		{"footer", func() string { return footerStyle.Render("test") }},
		{"selectedItem", func() string { return selectedItemStyle.Render("test") }},
		{"normalItem", func() string { return normalItemStyle.Render("test") }},
	}

	for _, s := range styles {
		if s.fn() == "" {
			t.Fatalf("style %q rendered empty", s.name)
		}
	}
}

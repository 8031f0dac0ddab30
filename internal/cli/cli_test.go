package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sadopc/hard75/internal/backend"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// writeConfig creates an isolated config whose files all live in a temp dir.
func writeConfig(t *testing.T, remoteURL string) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	yaml := fmt.Sprintf(`db_path: %s
log:
  level: error
  file: %s
server:
  db_path: %s
`, filepath.Join(dir, "hard75.db"), filepath.Join(dir, "hard75.log"), filepath.Join(dir, "server.db"))
	if remoteURL != "" {
		yaml += fmt.Sprintf("remote:\n  enabled: true\n  url: %s\n", remoteURL)
	}

	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	return path
}

func run(t *testing.T, cfg string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd("test")
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--config", cfg}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func mustRun(t *testing.T, cfg string, args ...string) string {
	t.Helper()
	out, err := run(t, cfg, args...)
	require.NoError(t, err, out)
	return out
}

func TestStartDate(t *testing.T) {
	cfg := writeConfig(t, "")

	assert.Contains(t, mustRun(t, cfg, "start-date"), "no start date set")
	assert.Contains(t, mustRun(t, cfg, "start-date", "2024-02-01"), "start 2024-02-01, end 2024-04-15")
	assert.Contains(t, mustRun(t, cfg, "start-date"), "start 2024-02-01")

	_, err := run(t, cfg, "start-date", "02/01/2024")
	assert.Error(t, err)
}

func TestMarkAndDay(t *testing.T) {
	cfg := writeConfig(t, "")
	mustRun(t, cfg, "start-date", "2024-02-01")

	out := mustRun(t, cfg, "mark", "water", "--date", "2024-02-10", "--note", "a gallon")
	assert.Contains(t, out, "2024-02-10 Drink 1 gallon of water: done (0 photos)")

	out = mustRun(t, cfg, "day", "2024-02-10")
	assert.Contains(t, out, "Day 10 of 75")
	assert.Contains(t, out, "(1/6, 17%)")
	assert.Contains(t, out, "[x] Drink 1 gallon of water")
	assert.Contains(t, out, "    a gallon")
	assert.Contains(t, out, "[ ] Read 10 pages")

	mustRun(t, cfg, "mark", "water", "--date", "2024-02-10", "--undo")
	out = mustRun(t, cfg, "day", "2024-02-10")
	assert.Contains(t, out, "[ ] Drink 1 gallon of water")
	assert.Contains(t, out, "    a gallon", "undo keeps the note")
}

func TestMarkDietNeedsPhotos(t *testing.T) {
	cfg := writeConfig(t, "")

	out := mustRun(t, cfg, "mark", "diet", "--date", "2024-02-10")
	assert.Contains(t, out, "open (0 photos)")
	assert.Contains(t, out, "completes with 2 photos")

	dir := t.TempDir()
	var args []string
	for _, name := range []string{"a.jpg", "b.jpg"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("raw "+name), 0o644))
		args = append(args, "--photo", p)
	}
	out = mustRun(t, cfg, append([]string{"mark", "diet", "--date", "2024-02-10"}, args...)...)
	assert.Contains(t, out, "done (2 photos)")

	out = mustRun(t, cfg, "mark", "diet", "--date", "2024-02-10", "--clear-photos")
	assert.Contains(t, out, "open (0 photos)")
}

func TestMarkRejectsBadInput(t *testing.T) {
	cfg := writeConfig(t, "")

	_, err := run(t, cfg, "mark", "sleep")
	assert.ErrorContains(t, err, "unknown task")

	_, err = run(t, cfg, "mark", "water", "--date", "tomorrow")
	assert.Error(t, err)

	_, err = run(t, cfg, "mark", "water", "--photo", filepath.Join(t.TempDir(), "missing.jpg"))
	assert.ErrorContains(t, err, "read photo")
}

func TestExport(t *testing.T) {
	cfg := writeConfig(t, "")
	mustRun(t, cfg, "start-date", "2024-02-01")
	mustRun(t, cfg, "mark", "reading", "--date", "2024-02-02")
	mustRun(t, cfg, "mark", "water", "--date", "2024-02-03")

	path := filepath.Join(t.TempDir(), "out.json")
	out := mustRun(t, cfg, "export", "--format", "json", "--out", path, "--to", "2024-02-02")
	assert.Contains(t, out, "exported 1 entries")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc struct {
		Count   int `json:"count"`
		Entries []struct {
			Date string `json:"date"`
			Task string `json:"task"`
			Day  int    `json:"day"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Equal(t, 1, doc.Count)
	assert.Equal(t, "2024-02-02", doc.Entries[0].Date)
	assert.Equal(t, "reading", doc.Entries[0].Task)
	assert.Equal(t, 2, doc.Entries[0].Day)

	csvPath := filepath.Join(t.TempDir(), "out.csv")
	mustRun(t, cfg, "export", "--out", csvPath)
	_, err = os.Stat(csvPath)
	assert.NoError(t, err)

	_, err = run(t, cfg, "export", "--format", "xml")
	assert.ErrorContains(t, err, "unknown format")
}

func TestSyncBetweenDevices(t *testing.T) {
	st, err := backend.OpenStore(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	srv := httptest.NewServer(backend.NewServer(st, backend.Options{}).Handler())
	t.Cleanup(srv.Close)

	phone := writeConfig(t, srv.URL)
	laptop := writeConfig(t, srv.URL)

	mustRun(t, phone, "mark", "workout1", "--date", "2024-02-10", "--note", "5k run")

	out := mustRun(t, laptop, "day", "2024-02-10")
	assert.Contains(t, out, "[x] 45-min workout #1")
	assert.Contains(t, out, "5k run")
}

func TestMarkKeepsPhotosFromOtherDevice(t *testing.T) {
	st, err := backend.OpenStore(filepath.Join(t.TempDir(), "server.db"))
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	srv := httptest.NewServer(backend.NewServer(st, backend.Options{}).Handler())
	t.Cleanup(srv.Close)

	phone := writeConfig(t, srv.URL)
	laptop := writeConfig(t, srv.URL)

	dir := t.TempDir()
	args := []string{"mark", "diet", "--date", "2024-02-10"}
	for _, name := range []string{"a.jpg", "b.jpg"} {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte("raw "+name), 0o644))
		args = append(args, "--photo", p)
	}
	assert.Contains(t, mustRun(t, phone, args...), "done (2 photos)")

	out := mustRun(t, laptop, "mark", "diet", "--date", "2024-02-10", "--note", "ate clean")
	assert.Contains(t, out, "done (2 photos)")

	out = mustRun(t, phone, "day", "2024-02-10")
	assert.Contains(t, out, "[x] Follow your diet (no cheat, no alcohol)  2/5 photos")
	assert.Contains(t, out, "    ate clean")
}

func TestDayOfflineFallsBackToCache(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	cfg := writeConfig(t, url)
	mustRun(t, cfg, "mark", "reading", "--date", "2024-02-10")

	out := mustRun(t, cfg, "day", "2024-02-10")
	assert.Contains(t, out, "[x] Read 10 pages")
}

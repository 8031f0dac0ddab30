package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/hard75/internal/program"
	"github.com/sadopc/hard75/internal/store"
)

type jsonExport struct {
	ExportedAt string      `json:"exported_at"`
	StartDate  string      `json:"start_date,omitempty"`
	Count      int         `json:"count"`
	Entries    []jsonEntry `json:"entries"`
}

type jsonEntry struct {
	Date         string       `json:"date"`
	Day          int          `json:"day,omitempty"`
	Task         string       `json:"task"`
	Label        string       `json:"label"`
	Completed    bool         `json:"completed"`
	Description  string       `json:"description,omitempty"`
	LocalPhotos  int          `json:"local_photos"`
	RemotePhotos []jsonRemote `json:"remote_photos"`
	UpdatedAt    string       `json:"updated_at,omitempty"`
}

type jsonRemote struct {
	StorageID string `json:"storage_id,omitempty"`
	URL       string `json:"url,omitempty"`
}

// ToJSON writes entries and the program start date to path. Local photo
// bytes are counted, not embedded.
func ToJSON(entries []store.Entry, prog program.Program, path string) error {
	export := jsonExport{
		ExportedAt: time.Now().UTC().Format(time.RFC3339),
		Count:      len(entries),
		Entries:    []jsonEntry{},
	}
	if start, ok := prog.Start(); ok {
		export.StartDate = program.FormatDate(start)
	}

	for _, e := range entries {
		je := jsonEntry{
			Date:         e.Date,
			Task:         string(e.TaskKey),
			Label:        e.TaskKey.Label(),
			Completed:    e.Completed,
			Description:  e.Description,
			LocalPhotos:  len(e.ImagesLocal),
			RemotePhotos: make([]jsonRemote, 0, len(e.ImagesRemote)),
			UpdatedAt:    formatUpdated(e.UpdatedAt),
		}
		if d, err := program.ParseDate(e.Date); err == nil && prog.HasStart() {
			je.Day = prog.DayNumber(d)
		}
		for _, r := range e.ImagesRemote {
			je.RemotePhotos = append(je.RemotePhotos, jsonRemote{StorageID: r.StorageID, URL: r.URL})
		}
		export.Entries = append(export.Entries, je)
	}

	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}

package store

import (
	"slices"
	"time"

	"github.com/sadopc/hard75/internal/program"
)

// MaxImages caps local plus remote attachments on a single entry.
const MaxImages = 5

// LocalImage is a compressed photo that has not been uploaded yet.
type LocalImage struct {
	Data     []byte
	MIMEType string
}

// RemoteImage is a server-confirmed upload. Either field may be empty when
// the server could not resolve it.
type RemoteImage struct {
	StorageID string
	URL       string
}

// Entry is one task's record for one calendar day, keyed by (Date, TaskKey).
type Entry struct {
	Date         string
	TaskKey      program.TaskKey
	Completed    bool
	Description  string
	ImagesLocal  []LocalImage
	ImagesRemote []RemoteImage
	UpdatedAt    time.Time
}

// NewEntry returns the default shape for a (date, task) pair with no record.
func NewEntry(date string, key program.TaskKey) Entry {
	return Entry{
		Date:         date,
		TaskKey:      key,
		ImagesLocal:  []LocalImage{},
		ImagesRemote: []RemoteImage{},
	}
}

func (e Entry) ImageCount() int {
	return len(e.ImagesLocal) + len(e.ImagesRemote)
}

// Clone returns a copy that shares no slices with e.
func (e Entry) Clone() Entry {
	c := e
	c.ImagesLocal = make([]LocalImage, len(e.ImagesLocal))
	for i, img := range e.ImagesLocal {
		c.ImagesLocal[i] = LocalImage{Data: slices.Clone(img.Data), MIMEType: img.MIMEType}
	}
	c.ImagesRemote = slices.Clone(e.ImagesRemote)
	if c.ImagesRemote == nil {
		c.ImagesRemote = []RemoteImage{}
	}
	return c
}

// StorageIDs returns the non-empty storage ids of the remote images, in order.
func (e Entry) StorageIDs() []string {
	ids := make([]string, 0, len(e.ImagesRemote))
	for _, r := range e.ImagesRemote {
		if r.StorageID != "" {
			ids = append(ids, r.StorageID)
		}
	}
	return ids
}

type Meta struct {
	Key   string
	Value string
}

// EntryFilter restricts ListEntries to an inclusive date range. Empty bounds
// are open.
type EntryFilter struct {
	From string
	To   string
}

// DailyProgress is the number of completed entries recorded for one date.
type DailyProgress struct {
	Date      string
	Completed int
	Recorded  int
}

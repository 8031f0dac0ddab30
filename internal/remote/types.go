package remote

// ImageRef is an uploaded image as returned by the backend.
type ImageRef struct {
	StorageID string `json:"storageId"`
	URL       string `json:"url"`
}

// Row is one remote entry for a date. ImageStorageID and ImageURL carry the
// legacy single-image fields; Images is the multi-image list.
type Row struct {
	Date            string     `json:"date"`
	TaskKey         string     `json:"taskKey"`
	Completed       bool       `json:"completed"`
	Description     string     `json:"description"`
	ImageStorageID  *string    `json:"imageStorageId"`
	ImageStorageIDs []string   `json:"imageStorageIds"`
	ImageURL        *string    `json:"imageUrl"`
	Images          []ImageRef `json:"images"`
	UpdatedAt       int64      `json:"updatedAt"` // epoch milliseconds
}

// SaveRequest is the body of a save call. A nil ImageStorageIDs leaves the
// stored list unchanged; a non-nil empty slice clears it.
type SaveRequest struct {
	Date            string    `json:"date"`
	TaskKey         string    `json:"taskKey"`
	Completed       bool      `json:"completed"`
	Description     string    `json:"description"`
	ImageStorageID  *string   `json:"imageStorageId,omitempty"`
	ImageStorageIDs *[]string `json:"imageStorageIds,omitempty"`
	ClearImage      bool      `json:"clearImage,omitempty"`
}

type UploadTargetRequest struct {
	ContentType string `json:"contentType"`
}

// Responses of the JSON API. OK is false on every handled failure.

type ListResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
	Rows  []Row  `json:"rows"`
}

type SaveResponse struct {
	OK     bool   `json:"ok"`
	Error  string `json:"error,omitempty"`
	Result string `json:"result,omitempty"`
}

type URLResponse struct {
	OK    bool    `json:"ok"`
	Error string  `json:"error,omitempty"`
	URL   *string `json:"url"`
}

// UploadResponse is returned by the upload target. Both spellings of the id
// are accepted.
type UploadResponse struct {
	StorageID    string `json:"storageId,omitempty"`
	StorageIDAlt string `json:"storage_id,omitempty"`
}

func (r UploadResponse) ID() string {
	if r.StorageID != "" {
		return r.StorageID
	}
	return r.StorageIDAlt
}

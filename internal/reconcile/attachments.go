package reconcile

import (
	"context"
	"fmt"

	"github.com/sadopc/hard75/internal/imaging"
	"github.com/sadopc/hard75/internal/program"
	"github.com/sadopc/hard75/internal/remote"
	"github.com/sadopc/hard75/internal/store"
)

// AddAttachments compresses files and attaches them to (date, key), taking
// only as many as still fit under store.MaxImages. With remote sync the
// batch is uploaded; if any upload fails the whole batch is kept locally
// instead. Adding photos marks the task done unless it derives completion.
func (r *Reconciler) AddAttachments(ctx context.Context, date string, key program.TaskKey, files [][]byte) (store.Entry, error) {
	if err := validDate(date); err != nil {
		return store.Entry{}, err
	}
	if !key.Valid() {
		return store.Entry{}, fmt.Errorf("%w: %q", ErrUnknownTask, key)
	}
	e, err := r.current(date, key)
	if err != nil {
		return store.Entry{}, err
	}
	remaining := max(0, store.MaxImages-e.ImageCount())
	if len(files) == 0 || remaining == 0 {
		return applyPolicy(e), nil
	}
	files = files[:min(len(files), remaining)]

	blobs := make([]imaging.Blob, len(files))
	for i, f := range files {
		blobs[i] = r.images.Compress(f)
	}

	var uploaded []store.RemoteImage
	if r.remote != nil {
		refs, err := r.remote.UploadImages(ctx, blobs)
		if err != nil {
			uploadFallbacks.Inc()
			r.logger.Warn("photo upload failed, keeping batch locally",
				"op", "upload", "date", date, "task", string(key), "count", len(blobs), "error", err)
		} else {
			uploaded = make([]store.RemoteImage, len(refs))
			for i, ref := range refs {
				uploaded[i] = store.RemoteImage{StorageID: ref.StorageID, URL: ref.URL}
			}
		}
	}

	saved, err := r.update(date, key, func(cur store.Entry) store.Entry {
		room := max(0, store.MaxImages-cur.ImageCount())
		if uploaded != nil {
			cur.ImagesRemote = append(cur.ImagesRemote, uploaded[:min(len(uploaded), room)]...)
		} else {
			for _, b := range blobs[:min(len(blobs), room)] {
				cur.ImagesLocal = append(cur.ImagesLocal, store.LocalImage{Data: b.Data, MIMEType: b.MIMEType})
			}
		}
		cur.Completed = true
		return cur
	})
	if err != nil {
		return store.Entry{}, err
	}

	ids := saved.StorageIDs()
	r.forward(ctx, "save", remote.SaveRequest{
		Date:            saved.Date,
		TaskKey:         string(saved.TaskKey),
		Completed:       saved.Completed,
		Description:     saved.Description,
		ImageStorageIDs: &ids,
	})
	return saved, nil
}

// ClearAttachments drops every local and remote photo of (date, key). The
// cache is written first; the backend is then told to clear its copy.
func (r *Reconciler) ClearAttachments(ctx context.Context, date string, key program.TaskKey) (store.Entry, error) {
	e, err := r.update(date, key, Patch{
		ImagesLocal:  Set([]store.LocalImage{}),
		ImagesRemote: Set([]store.RemoteImage{}),
	}.Apply)
	if err != nil {
		return store.Entry{}, err
	}
	ids := []string{}
	r.forward(ctx, "clear", remote.SaveRequest{
		Date:            e.Date,
		TaskKey:         string(e.TaskKey),
		Completed:       e.Completed,
		Description:     e.Description,
		ImageStorageIDs: &ids,
		ClearImage:      true,
	})
	return e, nil
}

package reconcile

import (
	"github.com/sadopc/hard75/internal/program"
	"github.com/sadopc/hard75/internal/store"
)

// DietMinImages is the number of photos that marks the diet task done.
const DietMinImages = 2

// A Derivation computes an entry's completed flag from its other fields.
type Derivation func(store.Entry) bool

// derivations holds the tasks whose completion cannot be set directly.
var derivations = map[program.TaskKey]Derivation{
	program.TaskDiet: MinImages(DietMinImages),
}

// MinImages is done once the entry has at least n attachments.
func MinImages(n int) Derivation {
	return func(e store.Entry) bool { return e.ImageCount() >= n }
}

// Derived reports whether key's completion is computed rather than set.
func Derived(key program.TaskKey) bool {
	_, ok := derivations[key]
	return ok
}

// applyPolicy normalizes e: nil image lists become empty, attachments are
// trimmed to store.MaxImages (local images go first) and derived completion
// is recomputed.
func applyPolicy(e store.Entry) store.Entry {
	if e.ImagesLocal == nil {
		e.ImagesLocal = []store.LocalImage{}
	}
	if e.ImagesRemote == nil {
		e.ImagesRemote = []store.RemoteImage{}
	}
	if len(e.ImagesRemote) > store.MaxImages {
		e.ImagesRemote = e.ImagesRemote[:store.MaxImages]
	}
	if room := store.MaxImages - len(e.ImagesRemote); len(e.ImagesLocal) > room {
		e.ImagesLocal = e.ImagesLocal[:room]
	}
	return derive(e)
}

// derive recomputes completion for tasks that derive it.
func derive(e store.Entry) store.Entry {
	if fn, ok := derivations[e.TaskKey]; ok {
		e.Completed = fn(e)
	}
	return e
}

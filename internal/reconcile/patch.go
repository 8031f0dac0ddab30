package reconcile

import "github.com/sadopc/hard75/internal/store"

// Opt is a patch field that is either unset or carries a value. The zero
// value is unset, so Set(""), Set(false) and Set([]T{}) are all distinct
// from leaving the field out.
type Opt[T any] struct {
	v   T
	set bool
}

func Set[T any](v T) Opt[T] { return Opt[T]{v: v, set: true} }

func (o Opt[T]) Get() (T, bool) { return o.v, o.set }

func (o Opt[T]) IsSet() bool { return o.set }

// Or returns the value if set, otherwise def.
func (o Opt[T]) Or(def T) T {
	if o.set {
		return o.v
	}
	return def
}

// Patch is a field-level change to one entry. Unset fields keep the stored
// value.
type Patch struct {
	Completed    Opt[bool]
	Description  Opt[string]
	ImagesLocal  Opt[[]store.LocalImage]
	ImagesRemote Opt[[]store.RemoteImage]
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return !p.Completed.set && !p.Description.set && !p.ImagesLocal.set && !p.ImagesRemote.set
}

// Apply returns a copy of e with the set fields replaced. A set but nil
// image list clears it.
func (p Patch) Apply(e store.Entry) store.Entry {
	out := e.Clone()
	out.Completed = p.Completed.Or(out.Completed)
	out.Description = p.Description.Or(out.Description)
	if imgs, ok := p.ImagesLocal.Get(); ok {
		out.ImagesLocal = store.Entry{ImagesLocal: imgs}.Clone().ImagesLocal
	}
	if imgs, ok := p.ImagesRemote.Get(); ok {
		out.ImagesRemote = store.Entry{ImagesRemote: imgs}.Clone().ImagesRemote
	}
	return out
}

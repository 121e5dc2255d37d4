package data

import "context"

// Snapshot is a captured copy of a value that can be written back to its
// source. Take it before any optimistic mutation.
type Snapshot[T any] struct {
	target *T
	value  T
	clone  func(T) T
}

// Take captures a deep copy of *target. clone must return a copy sharing no
// mutable state with its argument; nil means T is copied by assignment.
func Take[T any](target *T, clone func(T) T) Snapshot[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return Snapshot[T]{target: target, value: clone(*target), clone: clone}
}

// Value returns a copy of the captured value.
func (s Snapshot[T]) Value() T {
	return s.clone(s.value)
}

// Restore overwrites the target with a copy of the captured value. It can be
// called any number of times.
func (s Snapshot[T]) Restore() {
	*s.target = s.clone(s.value)
}

// Optimistic is one optimistic mutation: a local change applied immediately
// and a remote commit that must confirm it. The snapshot lives inside Run,
// so a failed commit always rolls back.
type Optimistic[T any] struct {
	// Target is the live value being mutated.
	Target *T
	// Clone deep-copies T for the snapshot.
	Clone func(T) T
	// Apply makes the local change. It may be nil when the change has
	// already been made and only the commit is pending.
	Apply func(T) T
	// Commit sends the mutated value. A non-nil error triggers rollback.
	Commit func(ctx context.Context, v T) error
	// Rollback, when set, repairs the target after a failed commit instead
	// of restoring the whole snapshot.
	Rollback func(current T, before T) T
}

// Run applies the mutation and commits it, restoring the pre-mutation state
// if the commit fails. The commit error is returned unchanged.
func (o Optimistic[T]) Run(ctx context.Context) error {
	snap := Take(o.Target, o.Clone)
	if o.Apply != nil {
		*o.Target = o.Apply(*o.Target)
	}
	if err := o.Commit(ctx, *o.Target); err != nil {
		if o.Rollback != nil {
			*o.Target = o.Rollback(*o.Target, snap.Value())
		} else {
			snap.Restore()
		}
		return err
	}
	return nil
}

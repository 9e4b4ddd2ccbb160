package decls

import (
	"errors"
	"fmt"
)

// EntityError is a failure that concerns a single entity. Passes that run
// over the whole table return them joined and keep going.
type EntityError struct {
	Entity EntityID
	Err    error
}

func (e *EntityError) Error() string {
	return fmt.Sprintf("entity %d: %v", e.Entity, e.Err)
}

func (e *EntityError) Unwrap() error { return e.Err }

// EntityErrors splits a joined error into its per-entity parts. rest holds
// whatever is not tied to an entity.
func EntityErrors(err error) (per []*EntityError, rest []error) {
	if err == nil {
		return nil, nil
	}
	if ee, ok := err.(*EntityError); ok {
		return []*EntityError{ee}, nil
	}
	var joined interface{ Unwrap() []error }
	if !errors.As(err, &joined) {
		return nil, []error{err}
	}
	for _, e := range joined.Unwrap() {
		p, r := EntityErrors(e)
		per = append(per, p...)
		rest = append(rest, r...)
	}
	return per, rest
}

// Invalidate marks an entity whose declaration cannot be processed further.
// The first reason is kept.
func (t *Table) Invalidate(id EntityID, reason error) error {
	if t.frozen {
		return ErrFrozen
	}
	e := t.Entity(id)
	if e == nil {
		return fmt.Errorf("entity %d does not exist", id)
	}
	if e.Invalid == nil {
		e.Invalid = reason
	}
	return nil
}

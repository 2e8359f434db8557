// Package resolver orders schemas so every reference target is committed
// no later than its referrer.
package resolver

import (
	"errors"
	"fmt"

	"github.com/unbywyd/schemareg/internal/schema"
)

// ErrUnresolvedReference is returned when a schema references an id that
// is neither pending nor already known to the consumer.
var ErrUnresolvedReference = errors.New("unresolved reference")

// UnresolvedError carries both ends of a broken reference so the operator
// can fix registration order or a typo.
type UnresolvedError struct {
	Referrer string // id of the schema holding the reference
	Missing  string // id the reference names
}

func (e *UnresolvedError) Error() string {
	return fmt.Sprintf("unresolved reference: %q referenced by %q was never registered", e.Missing, e.Referrer)
}

func (e *UnresolvedError) Unwrap() error { return ErrUnresolvedReference }

// Known reports whether an id is already available outside the pending
// set, typically because it was committed by an earlier flush or registered
// directly against the engine.
type Known func(id string) bool

// Order computes a commit order for the pending set via depth-first
// topological sort: each schema's dependencies are emitted before the
// schema itself. ids gives the pending insertion order and is used both
// for deterministic tie-breaking and as the fallback order within
// reference cycles; cycles are valid (mutually referencing schemas) and
// never an error. A reference to an id that is neither pending nor known
// aborts with an UnresolvedError.
func Order(ids []string, pending map[string]*schema.Node, known Known) ([]string, error) {
	const (
		unvisited = iota
		inProgress
		done
	)
	state := make(map[string]int, len(pending))
	order := make([]string, 0, len(pending))

	var visit func(id string) error
	visit = func(id string) error {
		switch state[id] {
		case done:
			return nil
		case inProgress:
			// Cycle: the member currently in progress will be appended by
			// the frame that started it, in discovery order.
			return nil
		}
		state[id] = inProgress

		node := pending[id]
		for _, dep := range schema.References(node) {
			if _, ok := pending[dep]; ok {
				if err := visit(dep); err != nil {
					return err
				}
				continue
			}
			if known != nil && known(dep) {
				continue
			}
			return &UnresolvedError{Referrer: id, Missing: dep}
		}

		state[id] = done
		order = append(order, id)
		return nil
	}

	for _, id := range ids {
		if err := visit(id); err != nil {
			return nil, err
		}
	}
	return order, nil
}

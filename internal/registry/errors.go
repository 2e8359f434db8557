package registry

import (
	"errors"

	"github.com/unbywyd/schemareg/internal/resolver"
)

var (
	// ErrMissingID is returned when a schema submitted for registration,
	// or a reference, carries no usable id.
	ErrMissingID = errors.New("schema has no identifier")

	// ErrConflictingDefinition is returned when an id is registered twice
	// with structurally different content. The registry is strict: the
	// second registration fails rather than being silently dropped.
	ErrConflictingDefinition = errors.New("conflicting schema definition")

	// ErrEngineRejection wraps a failure from the validation engine for a
	// schema the registry considered well-formed and resolved.
	ErrEngineRejection = errors.New("validation engine rejected schema")

	// ErrUnresolvedReference is surfaced at flush time when a reference
	// names an id that was never registered.
	ErrUnresolvedReference = resolver.ErrUnresolvedReference
)

// Package engine defines the validation engine the registry commits
// schemas into, and an implementation backed by a JSON Schema compiler.
package engine

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/unbywyd/schemareg/internal/schema"
)

// ErrDuplicateName is returned by Add when a different schema already owns
// the name. Re-adding identical content is a no-op.
var ErrDuplicateName = errors.New("schema name already in use")

// Engine is the external collaborator the registry pushes schemas into.
// Implementations must resolve references between added schemas and may
// know about schemas registered outside the registry.
type Engine interface {
	// GetByName returns the schema committed under id, if any.
	GetByName(id string) (*schema.Node, bool)

	// Add commits a schema. It must fail descriptively on a malformed
	// schema or on a name conflict; adding identical content twice is
	// idempotent. Reference resolution may be deferred until the engine
	// is asked to use the schema.
	Add(n *schema.Node) error
}

// Compiler is an Engine backed by github.com/santhosh-tekuri/jsonschema.
// Committed schemas are rendered to JSON Schema documents and registered
// as compiler resources under their ids, so "$ref" values naming other
// committed schemas resolve. Compilation happens as soon as a schema's
// reference closure is available; members of reference cycles compile once
// the last member arrives.
type Compiler struct {
	mu sync.Mutex

	nodes     map[string]*schema.Node
	resources map[string]string // id -> serialized JSON Schema document
	compiled  map[string]*jsonschema.Schema
}

// NewCompiler creates an empty compiler engine.
func NewCompiler() *Compiler {
	return &Compiler{
		nodes:     make(map[string]*schema.Node),
		resources: make(map[string]string),
		compiled:  make(map[string]*jsonschema.Schema),
	}
}

// GetByName returns the schema committed under id.
func (c *Compiler) GetByName(id string) (*schema.Node, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	n, ok := c.nodes[id]
	return n, ok
}

// Add commits a schema under its id.
func (c *Compiler) Add(n *schema.Node) error {
	if n == nil || n.ID == "" {
		return fmt.Errorf("cannot add unnamed schema")
	}
	rendered := schema.Document(n)
	// The resource name carries identity; an in-document "$id" would make
	// the compiler re-resolve the resource under a second URL.
	delete(rendered, "$id")
	doc, err := json.Marshal(rendered)
	if err != nil {
		return fmt.Errorf("rendering schema %q: %w", n.ID, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if existing, ok := c.nodes[n.ID]; ok {
		if schema.Canonical(existing) == schema.Canonical(n) {
			return nil
		}
		return fmt.Errorf("%w: %q", ErrDuplicateName, n.ID)
	}

	c.nodes[n.ID] = n
	c.resources[n.ID] = string(doc)

	// Compile eagerly when every referenced schema is already present.
	// A missing reference at this point can only mean the schema is part
	// of a cycle still being committed; compilation is retried on demand.
	if c.closureAvailable(n.ID, make(map[string]bool)) {
		if _, err := c.compileLocked(n.ID); err != nil {
			delete(c.nodes, n.ID)
			delete(c.resources, n.ID)
			return fmt.Errorf("schema %q rejected: %w", n.ID, err)
		}
	}
	return nil
}

// Validate checks a decoded JSON document against the schema committed
// under id, compiling it first if needed.
func (c *Compiler) Validate(id string, doc any) error {
	c.mu.Lock()
	compiled, err := c.compileLocked(id)
	c.mu.Unlock()
	if err != nil {
		return err
	}
	return compiled.Validate(doc)
}

// CompileAll compiles every committed schema, surfacing any reference the
// compiler cannot resolve. Used after a flush to force resolution.
func (c *Compiler) CompileAll() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	ids := make([]string, 0, len(c.resources))
	for id := range c.resources {
		ids = append(ids, id)
	}
	for _, id := range ids {
		if _, err := c.compileLocked(id); err != nil {
			return fmt.Errorf("schema %q: %w", id, err)
		}
	}
	return nil
}

// Names returns the ids of all committed schemas.
func (c *Compiler) Names() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.nodes))
	for id := range c.nodes {
		names = append(names, id)
	}
	return names
}

func (c *Compiler) compileLocked(id string) (*jsonschema.Schema, error) {
	if compiled, ok := c.compiled[id]; ok {
		return compiled, nil
	}
	if _, ok := c.resources[id]; !ok {
		return nil, fmt.Errorf("schema %q is not committed", id)
	}

	// A fresh compiler per compilation avoids resource conflicts across
	// calls; every committed document is registered so cross-schema
	// references resolve.
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft7
	for name, doc := range c.resources {
		if err := compiler.AddResource(name, strings.NewReader(doc)); err != nil {
			return nil, fmt.Errorf("adding resource %q: %w", name, err)
		}
	}
	compiled, err := compiler.Compile(id)
	if err != nil {
		return nil, err
	}
	c.compiled[id] = compiled
	return compiled, nil
}

// closureAvailable reports whether every schema transitively referenced by
// id is present as a resource.
func (c *Compiler) closureAvailable(id string, seen map[string]bool) bool {
	if seen[id] {
		return true
	}
	seen[id] = true
	node, ok := c.nodes[id]
	if !ok {
		return false
	}
	for _, dep := range schema.References(node) {
		if !c.closureAvailable(dep, seen) {
			return false
		}
	}
	return true
}

var _ Engine = (*Compiler)(nil)

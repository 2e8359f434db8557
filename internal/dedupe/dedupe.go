// Package dedupe detects structurally duplicate schema definitions
// registered under different ids.
package dedupe

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/unbywyd/schemareg/internal/schema"
)

// maxNormalizeDepth bounds normalization recursion. Past the ceiling the
// sub-node is returned as-is rather than risking unbounded recursion on
// pathological shapes.
const maxNormalizeDepth = 10

// Predicate classifies a schema node for exclusion decisions.
type Predicate func(*schema.Node) bool

// Config controls the detector.
type Config struct {
	// Envelope identifies response-envelope wrappers. Envelopes are exempt
	// from duplicate comparison entirely: many endpoints legitimately
	// produce identically shaped wrappers.
	Envelope Predicate

	// Generated identifies machine-generated schemas. Two generated
	// schemas are exempt from comparison against each other but still
	// compared against hand-written ones.
	Generated Predicate
}

// Detector compares schemas for structural equivalence.
type Detector struct {
	envelope  Predicate
	generated Predicate
}

// New creates a detector. Nil predicates fall back to the conventional
// defaults (IsEnvelope, IsGenerated).
func New(cfg Config) *Detector {
	d := &Detector{envelope: cfg.Envelope, generated: cfg.Generated}
	if d.envelope == nil {
		d.envelope = IsEnvelope
	}
	if d.generated == nil {
		d.generated = IsGenerated
	}
	return d
}

// Report describes one detected duplicate pair.
type Report struct {
	ID          string // report identifier
	SchemaID    string // the newly registered schema
	DuplicateOf string // the previously registered schema it duplicates
	Fingerprint string // shared fingerprint of the normalized form
}

// Equivalent reports whether two schemas represent the same logical
// definition: identical canonical serializations after metadata stripping
// and order canonicalization. The check is symmetric and ignores the ids
// the schemas are registered under. Exclusion rules are applied first.
func (d *Detector) Equivalent(a, b *schema.Node) bool {
	if a == nil || b == nil {
		return false
	}
	if d.envelope(a) || d.envelope(b) {
		return false
	}
	if d.generated(a) && d.generated(b) {
		return false
	}
	return Canonical(a) == Canonical(b)
}

// Scan compares a candidate against every existing schema and returns a
// report per duplicate found. Linear in the number of existing schemas,
// which is why duplicate detection is opt-in.
func (d *Detector) Scan(candidate *schema.Node, existing map[string]*schema.Node) []Report {
	ids := make([]string, 0, len(existing))
	for id := range existing {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var reports []Report
	for _, id := range ids {
		if id == candidate.ID {
			continue
		}
		if d.Equivalent(candidate, existing[id]) {
			reports = append(reports, Report{
				ID:          uuid.NewString(),
				SchemaID:    candidate.ID,
				DuplicateOf: id,
				Fingerprint: schema.Fingerprint(Normalize(candidate)),
			})
		}
	}
	return reports
}

// Canonical returns the canonical serialization of the normalized form.
func Canonical(n *schema.Node) string {
	return schema.Canonical(Normalize(n))
}

// Normalize produces the metadata-stripped, order-canonicalized form of a
// schema used for structural comparison:
//
//   - id, title, description, examples, default, and comments are dropped;
//   - object fields are normalized recursively (field names themselves are
//     part of the contract and are kept), required lists sorted, openness
//     kept;
//   - array item schemas are normalized;
//   - union branches are normalized and, unless branch order is
//     load-bearing, sorted by their canonical serialization;
//   - reference targets are preserved verbatim.
//
// The input is never mutated.
func Normalize(n *schema.Node) *schema.Node {
	return normalize(n, 0)
}

func normalize(n *schema.Node, depth int) *schema.Node {
	if n == nil {
		return nil
	}
	if depth >= maxNormalizeDepth {
		return n
	}

	out := &schema.Node{
		Kind:        n.Kind,
		Open:        n.Open,
		Ordered:     n.Ordered,
		Ref:         n.Ref,
		Constraints: n.Constraints,
	}

	if len(n.Fields) > 0 {
		out.Fields = make(map[string]*schema.Node, len(n.Fields))
		for name, field := range n.Fields {
			out.Fields[name] = normalize(field, depth+1)
		}
	}
	if len(n.Required) > 0 {
		out.Required = append([]string(nil), n.Required...)
		sort.Strings(out.Required)
	}
	if n.Items != nil {
		out.Items = normalize(n.Items, depth+1)
	}
	if len(n.Variants) > 0 {
		out.Variants = make([]*schema.Node, len(n.Variants))
		for i, v := range n.Variants {
			out.Variants[i] = normalize(v, depth+1)
		}
		if !n.Ordered {
			sort.Slice(out.Variants, func(i, j int) bool {
				return schema.Canonical(out.Variants[i]) < schema.Canonical(out.Variants[j])
			})
		}
	}
	return out
}

// auditFields is the field set conventionally present on generated
// schemas: an identifier plus creation and update timestamps.
var auditFields = []string{"id", "createdAt", "updatedAt"}

// generatedPrefixes are the naming prefixes generators conventionally use.
var generatedPrefixes = []string{"Gen", "Prisma", "Model"}

// IsEnvelope is the default envelope predicate: an object wrapping only a
// fixed status marker and a generic payload slot.
func IsEnvelope(n *schema.Node) bool {
	if n == nil || n.Kind != schema.KindObject {
		return false
	}
	if len(n.Fields) != 2 {
		return false
	}
	_, hasStatus := n.Fields["status"]
	_, hasData := n.Fields["data"]
	return hasStatus && hasData
}

// IsGenerated is the default generated-schema predicate: a conventional
// naming prefix plus the standard audit fields.
func IsGenerated(n *schema.Node) bool {
	if n == nil || n.Kind != schema.KindObject || n.ID == "" {
		return false
	}
	prefixed := false
	for _, p := range generatedPrefixes {
		if strings.HasPrefix(n.ID, p) {
			prefixed = true
			break
		}
	}
	if !prefixed {
		return false
	}
	for _, f := range auditFields {
		if _, ok := n.Fields[f]; !ok {
			return false
		}
	}
	return true
}

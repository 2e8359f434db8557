package dedupe

import (
	"testing"

	"github.com/unbywyd/schemareg/internal/schema"
)

func namedObject(id string, fields map[string]*schema.Node) *schema.Node {
	return schema.NewObject(id, fields)
}

func TestEquivalent_IgnoresMetadata(t *testing.T) {
	a := namedObject("C1", map[string]*schema.Node{"n": schema.Primitive(schema.KindNumber)})
	a.Title = "first"
	a.Description = "hand written"

	b := namedObject("C2", map[string]*schema.Node{"n": schema.Primitive(schema.KindNumber)})
	b.Comment = "copy"

	d := New(Config{})
	if !d.Equivalent(a, b) {
		t.Error("identical shapes under different ids must be equivalent")
	}
}

func TestEquivalent_Symmetric(t *testing.T) {
	a := namedObject("A", map[string]*schema.Node{"x": schema.Primitive(schema.KindString)})
	b := namedObject("B", map[string]*schema.Node{"x": schema.Primitive(schema.KindString)})
	c := namedObject("C", map[string]*schema.Node{"y": schema.Primitive(schema.KindString)})

	d := New(Config{})
	if d.Equivalent(a, b) != d.Equivalent(b, a) {
		t.Error("Equivalent must be symmetric")
	}
	if d.Equivalent(a, c) || d.Equivalent(c, a) {
		t.Error("different field names are different contracts")
	}
}

func TestEquivalent_RenamingIDDoesNotChangeVerdict(t *testing.T) {
	a := namedObject("Before", map[string]*schema.Node{"v": schema.Primitive(schema.KindBoolean)})
	b := namedObject("Other", map[string]*schema.Node{"v": schema.Primitive(schema.KindBoolean)})

	d := New(Config{})
	was := d.Equivalent(a, b)
	a.ID = "After"
	if d.Equivalent(a, b) != was {
		t.Error("renaming alone changed the duplicate verdict")
	}
}

func TestEquivalent_RefTargetsMustMatch(t *testing.T) {
	a := namedObject("A", map[string]*schema.Node{"r": schema.NewRef("X")})
	b := namedObject("B", map[string]*schema.Node{"r": schema.NewRef("Y")})

	if New(Config{}).Equivalent(a, b) {
		t.Error("schemas pointing at different targets are not duplicates")
	}
}

func TestEquivalent_UnorderedUnionBranchOrder(t *testing.T) {
	a := schema.NewUnion("A", schema.Primitive(schema.KindString), schema.Primitive(schema.KindInteger))
	b := schema.NewUnion("B", schema.Primitive(schema.KindInteger), schema.Primitive(schema.KindString))

	d := New(Config{})
	if !d.Equivalent(a, b) {
		t.Error("branch order must not matter for unordered unions")
	}

	a.Ordered = true
	b.Ordered = true
	if d.Equivalent(a, b) {
		t.Error("branch order must matter for ordered unions")
	}
}

func TestEquivalent_EnvelopesExempt(t *testing.T) {
	mk := func(id string) *schema.Node {
		return namedObject(id, map[string]*schema.Node{
			"status": schema.Primitive(schema.KindBoolean),
			"data":   schema.Primitive(schema.KindString),
		})
	}
	if New(Config{}).Equivalent(mk("OkA"), mk("OkB")) {
		t.Error("response envelopes are exempt from duplicate comparison")
	}
}

func TestEquivalent_GeneratedExemptAgainstEachOther(t *testing.T) {
	gen := func(id string) *schema.Node {
		return namedObject(id, map[string]*schema.Node{
			"id":        schema.Primitive(schema.KindString),
			"createdAt": schema.Primitive(schema.KindString),
			"updatedAt": schema.Primitive(schema.KindString),
		})
	}
	d := New(Config{})

	if d.Equivalent(gen("GenUser"), gen("GenAccount")) {
		t.Error("two generated schemas are expected to look alike")
	}
	// Same shape but hand-written id: still compared.
	if !d.Equivalent(gen("GenUser"), gen("Handmade")) {
		t.Error("generated schemas are still compared against hand-written ones")
	}
}

func TestEquivalent_CustomPredicates(t *testing.T) {
	never := func(*schema.Node) bool { return false }
	d := New(Config{Envelope: never, Generated: never})

	mk := func(id string) *schema.Node {
		return namedObject(id, map[string]*schema.Node{
			"status": schema.Primitive(schema.KindBoolean),
			"data":   schema.Primitive(schema.KindString),
		})
	}
	if !d.Equivalent(mk("A"), mk("B")) {
		t.Error("replacing the envelope predicate must disable the exemption")
	}
}

func TestNormalize_DepthCeiling(t *testing.T) {
	// Build a chain deeper than the ceiling; normalization must terminate
	// and return something comparable.
	leaf := schema.Primitive(schema.KindString)
	n := leaf
	for i := 0; i < 20; i++ {
		n = schema.NewArray("", n)
	}
	n.ID = "Deep"

	if Normalize(n) == nil {
		t.Fatal("normalization returned nil")
	}
}

func TestNormalize_DoesNotMutateInput(t *testing.T) {
	n := namedObject("Keep", map[string]*schema.Node{"z": schema.Primitive(schema.KindString)})
	n.Required = []string{"z"}
	before := schema.Canonical(n)
	_ = Normalize(n)
	if schema.Canonical(n) != before {
		t.Error("input mutated by Normalize")
	}
}

func TestScan_ReportsPairs(t *testing.T) {
	existing := map[string]*schema.Node{
		"C1":    namedObject("C1", map[string]*schema.Node{"n": schema.Primitive(schema.KindNumber)}),
		"Other": namedObject("Other", map[string]*schema.Node{"s": schema.Primitive(schema.KindString)}),
	}
	candidate := namedObject("C2", map[string]*schema.Node{"n": schema.Primitive(schema.KindNumber)})

	reports := New(Config{}).Scan(candidate, existing)
	if len(reports) != 1 {
		t.Fatalf("expected 1 report, got %d", len(reports))
	}
	r := reports[0]
	if r.SchemaID != "C2" || r.DuplicateOf != "C1" {
		t.Errorf("report names %s/%s, want C2/C1", r.SchemaID, r.DuplicateOf)
	}
	if r.ID == "" || r.Fingerprint == "" {
		t.Error("report must carry an id and the shared fingerprint")
	}
}

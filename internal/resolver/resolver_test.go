package resolver

import (
	"errors"
	"reflect"
	"testing"

	"github.com/unbywyd/schemareg/internal/schema"
)

func pendingSet(nodes ...*schema.Node) (ids []string, pending map[string]*schema.Node) {
	pending = make(map[string]*schema.Node, len(nodes))
	for _, n := range nodes {
		ids = append(ids, n.ID)
		pending[n.ID] = n
	}
	return ids, pending
}

func indexOf(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

func TestOrder_DependenciesFirst(t *testing.T) {
	a := schema.NewObject("A", map[string]*schema.Node{"x": schema.Primitive(schema.KindString)})
	b := schema.NewObject("B", map[string]*schema.Node{"a": schema.NewRef("A")})

	ids, pending := pendingSet(b, a) // referrer submitted first
	order, err := Order(ids, pending, nil)
	if err != nil {
		t.Fatalf("Order failed: %v", err)
	}
	if indexOf(order, "A") > indexOf(order, "B") {
		t.Errorf("A must come before B, got %v", order)
	}
}

func TestOrder_PermutationInvariant(t *testing.T) {
	mk := func() []*schema.Node {
		a := schema.NewObject("A", map[string]*schema.Node{"x": schema.Primitive(schema.KindString)})
		b := schema.NewObject("B", map[string]*schema.Node{"a": schema.NewRef("A")})
		c := schema.NewObject("C", map[string]*schema.Node{"b": schema.NewRef("B"), "a": schema.NewRef("A")})
		return []*schema.Node{a, b, c}
	}

	permutations := [][]int{{0, 1, 2}, {2, 1, 0}, {1, 2, 0}, {2, 0, 1}}
	for _, perm := range permutations {
		nodes := mk()
		var ordered []*schema.Node
		for _, i := range perm {
			ordered = append(ordered, nodes[i])
		}
		ids, pending := pendingSet(ordered...)
		order, err := Order(ids, pending, nil)
		if err != nil {
			t.Fatalf("perm %v: %v", perm, err)
		}
		want := []string{"A", "B", "C"}
		if !reflect.DeepEqual(order, want) {
			t.Errorf("perm %v: order = %v, want %v", perm, order, want)
		}
	}
}

func TestOrder_CycleFallsBackToDiscoveryOrder(t *testing.T) {
	e := schema.NewObject("E", map[string]*schema.Node{"f": schema.NewRef("F")})
	f := schema.NewObject("F", map[string]*schema.Node{"e": schema.NewRef("E")})

	ids, pending := pendingSet(e, f)
	order, err := Order(ids, pending, nil)
	if err != nil {
		t.Fatalf("cycle must not fail: %v", err)
	}
	if len(order) != 2 {
		t.Fatalf("both members must be emitted, got %v", order)
	}
}

func TestOrder_UnresolvedReference(t *testing.T) {
	b := schema.NewObject("B", map[string]*schema.Node{"a": schema.NewRef("A")})

	ids, pending := pendingSet(b)
	_, err := Order(ids, pending, nil)
	if !errors.Is(err, ErrUnresolvedReference) {
		t.Fatalf("expected ErrUnresolvedReference, got %v", err)
	}
	var unresolved *UnresolvedError
	if !errors.As(err, &unresolved) {
		t.Fatal("error must carry referrer and missing id")
	}
	if unresolved.Missing != "A" || unresolved.Referrer != "B" {
		t.Errorf("got missing=%s referrer=%s, want A/B", unresolved.Missing, unresolved.Referrer)
	}
}

func TestOrder_KnownIDsSatisfyReferences(t *testing.T) {
	b := schema.NewObject("B", map[string]*schema.Node{"a": schema.NewRef("A")})

	ids, pending := pendingSet(b)
	order, err := Order(ids, pending, func(id string) bool { return id == "A" })
	if err != nil {
		t.Fatalf("known ids must satisfy references: %v", err)
	}
	if !reflect.DeepEqual(order, []string{"B"}) {
		t.Errorf("order = %v", order)
	}
}

func TestOrder_Empty(t *testing.T) {
	order, err := Order(nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(order) != 0 {
		t.Errorf("order = %v, want empty", order)
	}
}

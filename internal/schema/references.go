package schema

import "sort"

// References walks a schema tree and collects the set of schema ids it
// references. Reference nodes are recorded and never descended into, so a
// schema's dependency set stays local to its own tree and cycles between
// named schemas cannot cause unbounded recursion. A visited set keyed on
// node identity short-circuits self-referential structures within a single
// tree.
//
// The result is sorted for deterministic iteration. Cost is linear in the
// size of one schema tree.
func References(n *Node) []string {
	seen := make(map[string]struct{})
	visited := make(map[*Node]struct{})
	collectRefs(n, seen, visited)

	if len(seen) == 0 {
		return nil
	}
	ids := make([]string, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func collectRefs(n *Node, seen map[string]struct{}, visited map[*Node]struct{}) {
	if n == nil {
		return
	}
	if _, ok := visited[n]; ok {
		return
	}
	visited[n] = struct{}{}

	if n.Kind == KindRef {
		if n.Ref != "" {
			seen[n.Ref] = struct{}{}
		}
		return
	}

	for _, name := range sortedFieldNames(n.Fields) {
		collectRefs(n.Fields[name], seen, visited)
	}
	collectRefs(n.Items, seen, visited)
	for _, variant := range n.Variants {
		collectRefs(variant, seen, visited)
	}
}

func sortedFieldNames(fields map[string]*Node) []string {
	if len(fields) == 0 {
		return nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

package schema

import (
	"fmt"
	"sort"
)

// FromValue decodes a parsed JSON or YAML document (maps, slices, scalars)
// into a node tree. The document shape follows JSON Schema conventions:
// "$id", "type", "properties", "required", "additionalProperties", "items",
// "anyOf"/"oneOf", and "$ref". Unrecognized keywords are carried through as
// constraints so Document can render them back.
func FromValue(v any) (*Node, error) {
	m, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("schema document must be an object, got %T", v)
	}
	return fromMap(m)
}

func fromMap(m map[string]any) (*Node, error) {
	n := &Node{}
	if id, ok := m["$id"].(string); ok {
		n.ID = id
	}
	if title, ok := m["title"].(string); ok {
		n.Title = title
	}
	if desc, ok := m["description"].(string); ok {
		n.Description = desc
	}
	if comment, ok := m["$comment"].(string); ok {
		n.Comment = comment
	}
	if examples, ok := m["examples"].([]any); ok {
		n.Examples = examples
	}
	if def, ok := m["default"]; ok {
		n.Default = def
	}

	if ref, ok := m["$ref"].(string); ok {
		n.Kind = KindRef
		n.Ref = ref
		return n, nil
	}

	switch {
	case hasKey(m, "properties") || m["type"] == "object":
		n.Kind = KindObject
		n.Open = true
		if props, ok := m["properties"].(map[string]any); ok {
			n.Fields = make(map[string]*Node, len(props))
			for name, raw := range props {
				child, ok := raw.(map[string]any)
				if !ok {
					return nil, fmt.Errorf("property %q: schema must be an object, got %T", name, raw)
				}
				field, err := fromMap(child)
				if err != nil {
					return nil, fmt.Errorf("property %q: %w", name, err)
				}
				n.Fields[name] = field
			}
		}
		if required, ok := m["required"].([]any); ok {
			for _, r := range required {
				if s, ok := r.(string); ok {
					n.Required = append(n.Required, s)
				}
			}
		}
		if ap, ok := m["additionalProperties"].(bool); ok {
			n.Open = ap
		}
		collectConstraints(n, m, "properties", "required", "additionalProperties")
		return n, nil

	case hasKey(m, "items") || m["type"] == "array":
		n.Kind = KindArray
		if raw, ok := m["items"].(map[string]any); ok {
			items, err := fromMap(raw)
			if err != nil {
				return nil, fmt.Errorf("items: %w", err)
			}
			n.Items = items
		}
		collectConstraints(n, m, "items")
		return n, nil

	case hasKey(m, "anyOf") || hasKey(m, "oneOf"):
		n.Kind = KindUnion
		branches, _ := m["anyOf"].([]any)
		if branches == nil {
			branches, _ = m["oneOf"].([]any)
		}
		for i, raw := range branches {
			branch, ok := raw.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("union branch %d: schema must be an object, got %T", i, raw)
			}
			variant, err := fromMap(branch)
			if err != nil {
				return nil, fmt.Errorf("union branch %d: %w", i, err)
			}
			n.Variants = append(n.Variants, variant)
		}
		if ordered, ok := m["x-ordered"].(bool); ok {
			n.Ordered = ordered
		}
		collectConstraints(n, m, "anyOf", "oneOf", "x-ordered")
		return n, nil
	}

	typ, _ := m["type"].(string)
	switch typ {
	case "string", "number", "integer", "boolean", "null":
		n.Kind = Kind(typ)
	case "":
		return nil, fmt.Errorf("schema document has no type, $ref, properties, items, or union branches")
	default:
		return nil, fmt.Errorf("unsupported schema type: %s", typ)
	}
	collectConstraints(n, m)
	return n, nil
}

// collectConstraints copies every keyword that is neither metadata nor one of
// the kind's structural keywords into the node's constraint map, so keywords
// like "minProperties" or "uniqueItems" survive a decode/render round trip.
func collectConstraints(n *Node, m map[string]any, structural ...string) {
	for k, v := range m {
		switch k {
		case "$id", "type", "title", "description", "$comment", "examples", "default":
			continue
		}
		if containsKey(structural, k) {
			continue
		}
		if n.Constraints == nil {
			n.Constraints = make(map[string]any)
		}
		n.Constraints[k] = v
	}
}

func containsKey(keys []string, key string) bool {
	for _, k := range keys {
		if k == key {
			return true
		}
	}
	return false
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}

// Document renders the node as a JSON Schema document suitable for the
// validation engine. Reference nodes become bare-name "$ref" values; the
// engine is expected to register every committed schema as a resource
// under its id so those references resolve.
func Document(n *Node) map[string]any {
	if n == nil {
		return nil
	}
	doc := make(map[string]any)
	if n.ID != "" {
		doc["$id"] = n.ID
	}
	if n.Title != "" {
		doc["title"] = n.Title
	}
	if n.Description != "" {
		doc["description"] = n.Description
	}
	if n.Comment != "" {
		doc["$comment"] = n.Comment
	}
	if len(n.Examples) > 0 {
		doc["examples"] = n.Examples
	}
	if n.Default != nil {
		doc["default"] = n.Default
	}

	switch n.Kind {
	case KindRef:
		// $id and $ref are mutually exclusive in a rendered document.
		delete(doc, "$id")
		doc["$ref"] = n.Ref
	case KindObject:
		doc["type"] = "object"
		if len(n.Fields) > 0 {
			props := make(map[string]any, len(n.Fields))
			for name, field := range n.Fields {
				props[name] = documentChild(field)
			}
			doc["properties"] = props
		}
		if len(n.Required) > 0 {
			required := append([]string(nil), n.Required...)
			sort.Strings(required)
			doc["required"] = required
		}
		if !n.Open {
			doc["additionalProperties"] = false
		}
		renderConstraints(doc, n)
	case KindArray:
		doc["type"] = "array"
		if n.Items != nil {
			doc["items"] = documentChild(n.Items)
		}
		renderConstraints(doc, n)
	case KindUnion:
		branches := make([]any, len(n.Variants))
		for i, v := range n.Variants {
			branches[i] = documentChild(v)
		}
		doc["anyOf"] = branches
		if n.Ordered {
			doc["x-ordered"] = true
		}
		renderConstraints(doc, n)
	default:
		doc["type"] = string(n.Kind)
		renderConstraints(doc, n)
	}
	return doc
}

func renderConstraints(doc map[string]any, n *Node) {
	for k, v := range n.Constraints {
		doc[k] = v
	}
}

// documentChild renders a nested node without its own "$id": nested ids
// would make the engine treat the subtree as a separate resource.
func documentChild(n *Node) map[string]any {
	doc := Document(n)
	delete(doc, "$id")
	return doc
}

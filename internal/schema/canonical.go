package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// Canonical returns a deterministic serialization of the node: object keys
// sorted alphabetically at every level, stable number formatting. Two nodes
// serialize identically exactly when their trees are structurally equal.
func Canonical(n *Node) string {
	return canonicalValue(nodeValue(n))
}

// Fingerprint returns a hex-encoded SHA-256 over the canonical form.
func Fingerprint(n *Node) string {
	sum := sha256.Sum256([]byte(Canonical(n)))
	return hex.EncodeToString(sum[:])
}

// nodeValue converts a node tree into plain maps and slices so the
// canonical serializer only deals with JSON-shaped values. Zero-valued
// fields are omitted so equivalent trees built by different callers do not
// diverge on empty slices versus nil.
func nodeValue(n *Node) any {
	if n == nil {
		return nil
	}
	m := map[string]any{"kind": string(n.Kind)}
	if n.ID != "" {
		m["id"] = n.ID
	}
	if n.Title != "" {
		m["title"] = n.Title
	}
	if n.Description != "" {
		m["description"] = n.Description
	}
	if len(n.Examples) > 0 {
		m["examples"] = n.Examples
	}
	if n.Default != nil {
		m["default"] = n.Default
	}
	if n.Comment != "" {
		m["comment"] = n.Comment
	}
	if len(n.Fields) > 0 {
		fields := make(map[string]any, len(n.Fields))
		for name, child := range n.Fields {
			fields[name] = nodeValue(child)
		}
		m["fields"] = fields
	}
	if len(n.Required) > 0 {
		required := append([]string(nil), n.Required...)
		sort.Strings(required)
		values := make([]any, len(required))
		for i, r := range required {
			values[i] = r
		}
		m["required"] = values
	}
	if n.Open {
		m["open"] = true
	}
	if n.Items != nil {
		m["items"] = nodeValue(n.Items)
	}
	if len(n.Variants) > 0 {
		variants := make([]any, len(n.Variants))
		for i, v := range n.Variants {
			variants[i] = nodeValue(v)
		}
		m["variants"] = variants
	}
	if n.Ordered {
		m["ordered"] = true
	}
	if n.Ref != "" {
		m["ref"] = n.Ref
	}
	if len(n.Constraints) > 0 {
		constraints := make(map[string]any, len(n.Constraints))
		for k, v := range n.Constraints {
			constraints[k] = v
		}
		m["constraints"] = constraints
	}
	return m
}

// canonicalValue renders a JSON-shaped value with sorted keys.
func canonicalValue(v any) string {
	switch val := v.(type) {
	case nil:
		return "null"
	case bool:
		if val {
			return "true"
		}
		return "false"
	case float64:
		if val == float64(int64(val)) {
			return fmt.Sprintf("%d", int64(val))
		}
		return fmt.Sprintf("%g", val)
	case int:
		return fmt.Sprintf("%d", val)
	case int64:
		return fmt.Sprintf("%d", val)
	case string:
		b, _ := json.Marshal(val)
		return string(b)
	case []any:
		parts := make([]string, len(val))
		for i, item := range val {
			parts[i] = canonicalValue(item)
		}
		return "[" + strings.Join(parts, ",") + "]"
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			keyStr, _ := json.Marshal(k)
			parts = append(parts, string(keyStr)+":"+canonicalValue(val[k]))
		}
		return "{" + strings.Join(parts, ",") + "}"
	default:
		b, _ := json.Marshal(v)
		return string(b)
	}
}

// Package interpolation resolves {{...}} placeholders in node parameters
// against the outputs of previously executed nodes.
package interpolation

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/weftwork/weft/pkg/models"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*(.+?)\s*\}\}`)

// Resolve returns a copy of parameters with every resolvable placeholder
// substituted. The first segment of a dotted path names the source node by
// id or by display name; the rest walks into that node's output.
//
// A parameter whose entire value is a single placeholder takes the resolved
// value's native type. Placeholders embedded in larger strings substitute
// their stringified value. Unresolvable references (unknown source, missing
// path segment) are left as literal placeholder text; resolution never
// fails. Inputs are not mutated.
func Resolve(parameters map[string]any, nodeOutputs map[string]map[string]any, nodes []*models.Node) map[string]any {
	resolved := deepCopy(parameters)

	nameToID := make(map[string]string, len(nodes))
	for _, node := range nodes {
		nameToID[node.Name] = node.ID
	}

	for key, value := range resolved {
		str, ok := value.(string)
		if !ok {
			continue
		}

		matches := placeholderPattern.FindAllStringSubmatch(str, -1)
		if matches == nil {
			continue
		}

		final := any(str)

		for _, match := range matches {
			full, path := match[0], match[1]

			replacement, found := lookup(path, nodeOutputs, nameToID)
			if !found {
				continue
			}

			// A parameter that is exactly one placeholder keeps the
			// resolved value's native type.
			if str == full {
				final = replacement

				break
			}

			if current, ok := final.(string); ok {
				final = strings.Replace(current, full, stringify(replacement), 1)
			}
		}

		resolved[key] = final
	}

	return resolved
}

// lookup walks a dotted path such as "AI Agent.output.text" into the output
// map. The leading segment is tried as a node id first, then as a node name.
func lookup(path string, nodeOutputs map[string]map[string]any, nameToID map[string]string) (any, bool) {
	segments := strings.Split(path, ".")
	source := segments[0]

	output, ok := nodeOutputs[source]
	if !ok {
		id, named := nameToID[source]
		if !named {
			return nil, false
		}

		output, ok = nodeOutputs[id]
		if !ok {
			return nil, false
		}
	}

	var current any = output

	for _, segment := range segments[1:] {
		object, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = object[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case map[string]any, []any:
		encoded, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprint(v)
		}

		return string(encoded)
	default:
		return fmt.Sprint(v)
	}
}

// deepCopy round-trips through JSON so nested maps are never shared with the
// caller's parameters.
func deepCopy(parameters map[string]any) map[string]any {
	copied := make(map[string]any, len(parameters))

	encoded, err := json.Marshal(parameters)
	if err == nil && json.Unmarshal(encoded, &copied) == nil {
		return copied
	}

	for k, v := range parameters {
		copied[k] = v
	}

	return copied
}

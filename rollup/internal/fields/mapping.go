package fields

import (
	"encoding/json"
	"fmt"
	"sort"
)

// Property is one node of an index mapping tree.
type Property struct {
	Type       string              `json:"type,omitempty"`
	Properties map[string]Property `json:"properties,omitempty"`
	Fields     map[string]Property `json:"fields,omitempty"`
}

// Mapping is the mappings section of one concrete index.
type Mapping struct {
	Properties map[string]Property `json:"properties,omitempty"`
}

// ParseMappings decodes a GET /<pattern>/_mapping response body into
// index name -> mapping.
func ParseMappings(body []byte) (map[string]Mapping, error) {
	var raw map[string]struct {
		Mappings Mapping `json:"mappings"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode mappings: %w", err)
	}

	out := make(map[string]Mapping, len(raw))
	for index, entry := range raw {
		out[index] = entry.Mappings
	}
	return out, nil
}

// Flatten walks a mapping and returns one descriptor per addressable path.
// Object nodes are emitted alongside their children; multi-fields expand to
// <path>.<name>. Output is sorted.
func Flatten(m Mapping) []FieldDescriptor {
	var out []FieldDescriptor
	flattenProperties("", m.Properties, &out)
	Sort(out)
	return out
}

func flattenProperties(prefix string, props map[string]Property, out *[]FieldDescriptor) {
	names := make([]string, 0, len(props))
	for name := range props {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		prop := props[name]
		path := name
		if prefix != "" {
			path = prefix + "." + name
		}

		if len(prop.Properties) > 0 || prop.Type == "object" || prop.Type == "nested" {
			raw := prop.Type
			if raw == "" {
				raw = "object"
			}
			*out = append(*out, FieldDescriptor{Path: path, Type: TypeObject, Raw: raw})
			flattenProperties(path, prop.Properties, out)
			continue
		}

		*out = append(*out, FieldDescriptor{Path: path, Type: Classify(prop.Type), Raw: prop.Type})

		// Multi-fields: text + keyword pairs and friends.
		subs := make([]string, 0, len(prop.Fields))
		for sub := range prop.Fields {
			subs = append(subs, sub)
		}
		sort.Strings(subs)
		for _, sub := range subs {
			sp := prop.Fields[sub]
			*out = append(*out, FieldDescriptor{
				Path: path + "." + sub,
				Type: Classify(sp.Type),
				Raw:  sp.Type,
			})
		}
	}
}

package querykeys

import (
	"encoding/json"
	"strings"
)

// Trace captures, for one dotted path, how each fragment of a merge
// contributed to the effective value.
type Trace struct {
	Path   string       `json:"path"`
	Layers []Provenance `json:"layers"`
	// Winner is the index of the fragment whose value survives at Path, or -1
	// when the merged schema has nothing there.
	Winner int `json:"winner"`
}

// Provenance details how a single fragment touched a traced path.
type Provenance struct {
	Fragment int      `json:"fragment"`
	Path     string   `json:"path"`
	Kind     NodeKind `json:"kind"`
	Found    bool     `json:"found"`
	// Shadowed is set when the fragment placed a leaf on an ancestor of Path,
	// discarding whatever earlier fragments had below it.
	Shadowed bool `json:"shadowed,omitempty"`
}

// Trace explains which fragments define path and which one wins when the
// fragments are merged in order.
func (m *Merger) Trace(path string, fragments ...Schema) Trace {
	segments := splitPath(path)
	trace := Trace{
		Path:   path,
		Layers: make([]Provenance, 0, len(fragments)),
		Winner: -1,
	}

	for i, fragment := range fragments {
		layer := Provenance{Fragment: i, Path: path}
		var current any = fragment
		for depth, segment := range segments {
			entries, ok := namespaceEntries(current)
			if !ok {
				break
			}
			value, exists := entries[segment]
			if !exists {
				break
			}
			if depth == len(segments)-1 {
				layer.Found = true
				layer.Kind = kindOf(value)
				trace.Winner = i
				break
			}
			if !isMergeable(value) {
				layer.Shadowed = true
				layer.Kind = kindOf(value)
				trace.Winner = -1
				break
			}
			current = value
		}
		trace.Layers = append(trace.Layers, layer)
	}
	return trace
}

// Found reports whether the merged schema holds a value at the traced path.
func (t Trace) Found() bool {
	return t.Winner >= 0
}

// ToJSON serialises the trace for logging or transport helpers.
func (t Trace) ToJSON() ([]byte, error) {
	type alias Trace
	return json.Marshal(alias(t))
}

// TraceFromJSON deserialises a payload produced by ToJSON.
func TraceFromJSON(payload []byte) (Trace, error) {
	type alias Trace
	var trace alias
	if err := json.Unmarshal(payload, &trace); err != nil {
		return Trace{}, err
	}
	return Trace(trace), nil
}

func splitPath(path string) []string {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil
	}
	return strings.Split(path, ".")
}

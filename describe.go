package querykeys

import "sort"

// Descriptor describes one compiled node by dotted path. For factories Key is
// the path prefix every call starts from.
type Descriptor struct {
	Path string   `json:"path"`
	Kind NodeKind `json:"kind"`
	Key  Key      `json:"key,omitempty"`
}

// Describe flattens the compiled tree into descriptors sorted by path.
// Namespaces are only listed when empty, so every entry is addressable.
func (n *Namespace) Describe() []Descriptor {
	if n == nil {
		return []Descriptor{}
	}
	descriptors := []Descriptor{}
	n.Walk(func(node Node) bool {
		path := node.Path()
		switch typed := node.(type) {
		case *Query:
			descriptors = append(descriptors, Descriptor{
				Path: displayPath(path),
				Kind: KindQuery,
				Key:  typed.Key(),
			})
		case *Factory:
			descriptors = append(descriptors, Descriptor{
				Path: displayPath(path),
				Kind: KindFactory,
				Key:  keyFromPath(path, nil),
			})
		case *Namespace:
			if typed.Len() == 0 {
				descriptors = append(descriptors, Descriptor{
					Path: displayPath(path),
					Kind: KindNamespace,
				})
			}
		}
		return true
	})
	sort.SliceStable(descriptors, func(i, j int) bool {
		return descriptors[i].Path < descriptors[j].Path
	})
	return descriptors
}

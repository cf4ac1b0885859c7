package querykeys

type marker struct {
	name string
}

// definitionMarker is compared by identity; a field named alike on some other
// value can never satisfy IsDefinition.
var definitionMarker = &marker{name: "querykeys.definition"}

// Definition marks a schema position as a fetchable query.
type Definition struct {
	marker  *marker
	options QueryOptions
}

// Define wraps options as a query definition. Fields are not validated; the
// payload is copied so later edits by the caller do not reach the schema.
func Define(options QueryOptions) *Definition {
	return &Definition{
		marker:  definitionMarker,
		options: options.clone(),
	}
}

// IsDefinition reports whether value was produced by Define.
func IsDefinition(value any) bool {
	def, ok := value.(*Definition)
	return ok && def.valid()
}

func (d *Definition) valid() bool {
	return d != nil && d.marker == definitionMarker
}

// Options returns a copy of the wrapped payload.
func (d *Definition) Options() QueryOptions {
	if d == nil {
		return QueryOptions{}
	}
	return d.options.clone()
}

// HasExplicitKey reports whether the definition opts out of key derivation.
func (d *Definition) HasExplicitKey() bool {
	return d.valid() && len(d.options.QueryKey) > 0
}

package querykeys

import (
	"fmt"

	"github.com/goliatone/go-querykeys/internal/hydrate"
)

// DecodeMeta decodes the metadata passthrough of q into T. With strict set,
// metadata keys T does not declare are rejected. The query is not modified.
func DecodeMeta[T any](q *Query, strict bool) (T, error) {
	var zero T
	if q == nil {
		return zero, fmt.Errorf("querykeys: decode meta: query is nil")
	}
	opts := []hydrate.DecoderOption[T]{}
	if strict {
		opts = append(opts, hydrate.WithDisallowUnknownFields[T]())
	}
	src := hydrate.Source{Path: displayPath(q.path), Key: q.options.QueryKey.String()}
	out, err := hydrate.NewDecoder[T](opts...).Decode(src, q.options.Meta)
	if err != nil {
		return zero, fmt.Errorf("querykeys: %w", err)
	}
	return out, nil
}

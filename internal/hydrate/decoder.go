package hydrate

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Source identifies the query whose metadata is being decoded.
type Source struct {
	Path string
	Key  string
}

// DecoderOption configures a Decoder instance.
type DecoderOption[T any] func(*Decoder[T])

// Decoder converts untyped metadata maps into T with a JSON round trip.
type Decoder[T any] struct {
	disallowUnknown bool
}

// WithDisallowUnknownFields rejects metadata keys T does not declare.
func WithDisallowUnknownFields[T any]() DecoderOption[T] {
	return func(d *Decoder[T]) {
		d.disallowUnknown = true
	}
}

// NewDecoder returns a Decoder for T. Without options unknown metadata keys
// are ignored.
func NewDecoder[T any](opts ...DecoderOption[T]) *Decoder[T] {
	d := &Decoder[T]{}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Decode converts payload into T. payload is only read. A nil payload decodes
// to the zero value of T.
func (d *Decoder[T]) Decode(src Source, payload map[string]any) (T, error) {
	var zero T
	if payload == nil {
		return zero, nil
	}

	buffer, err := json.Marshal(payload)
	if err != nil {
		return zero, fmt.Errorf("hydrate: marshal metadata for %q: %w", src.Path, err)
	}
	decoder := json.NewDecoder(bytes.NewReader(buffer))
	if d.disallowUnknown {
		decoder.DisallowUnknownFields()
	}
	var result T
	if err := decoder.Decode(&result); err != nil {
		return zero, fmt.Errorf("hydrate: decode metadata for %q: %w", src.Path, err)
	}
	return result, nil
}

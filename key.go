package querykeys

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
)

// Key is an ordered sequence of segments identifying a query instance. Path
// segments are strings; factory arguments keep their original values.
type Key []any

// KeyOf builds a Key from segments.
func KeyOf(segments ...any) Key {
	if len(segments) == 0 {
		return nil
	}
	return append(Key(nil), segments...)
}

func keyFromPath(path []string, args []any) Key {
	key := make(Key, 0, len(path)+len(args))
	for _, segment := range path {
		key = append(key, segment)
	}
	return append(key, args...)
}

// Len returns the number of segments.
func (k Key) Len() int {
	return len(k)
}

// Clone returns a copy that does not share the backing array.
func (k Key) Clone() Key {
	if k == nil {
		return nil
	}
	out := make(Key, len(k))
	copy(out, k)
	return out
}

// Equal reports element-wise value equality.
func (k Key) Equal(other Key) bool {
	if len(k) != len(other) {
		return false
	}
	for i := range k {
		if !reflect.DeepEqual(k[i], other[i]) {
			return false
		}
	}
	return true
}

// HasPrefix reports whether prefix matches the leading segments of k. An empty
// prefix matches every key.
func (k Key) HasPrefix(prefix Key) bool {
	if len(prefix) > len(k) {
		return false
	}
	return k[:len(prefix)].Equal(prefix)
}

// String renders the key as dotted segments, for logs only.
func (k Key) String() string {
	parts := make([]string, len(k))
	for i, segment := range k {
		parts[i] = fmt.Sprint(segment)
	}
	return strings.Join(parts, ".")
}

// Fingerprint returns a deterministic digest for string-keyed caches.
// Format: qk:<first 16 hex chars of SHA-256(JSON(key))>. encoding/json sorts
// map keys, so map-valued arguments hash identically regardless of order.
func (k Key) Fingerprint() (string, error) {
	if len(k) == 0 {
		return "", fmt.Errorf("querykeys: cannot fingerprint an empty key")
	}
	canonical, err := json.Marshal([]any(k))
	if err != nil {
		return "", fmt.Errorf("querykeys: canonicalize key %s: %w", k, err)
	}
	sum := sha256.Sum256(canonical)
	return "qk:" + hex.EncodeToString(sum[:8]), nil
}

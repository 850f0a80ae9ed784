// Package types provides small value types shared across attest packages.
package types

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"maps"
	"sort"
)

// Metadata limits. Metadata describes a record; it must never be large
// enough to carry the record itself.
const (
	MaxMetadataKeys     = 32
	MaxMetadataKeyLen   = 64
	MaxMetadataValueLen = 256
)

// Metadata is an optional set of non-sensitive string attributes attached to
// a block. It is part of the hashed content.
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receiver for Scan.
type Metadata map[string]string

// Clone returns an independent copy. A nil Metadata clones to nil.
func (m Metadata) Clone() Metadata {
	if m == nil {
		return nil
	}
	return maps.Clone(m)
}

// Keys returns the keys in sorted order.
func (m Metadata) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the value for key, or "" if absent.
func (m Metadata) Get(key string) string {
	return m[key]
}

// Validate checks the size limits.
func (m Metadata) Validate() error {
	if len(m) > MaxMetadataKeys {
		return fmt.Errorf("metadata: %d keys exceeds limit of %d", len(m), MaxMetadataKeys)
	}
	for k, v := range m {
		if k == "" {
			return fmt.Errorf("metadata: empty key")
		}
		if len(k) > MaxMetadataKeyLen {
			return fmt.Errorf("metadata: key %q exceeds %d bytes", k, MaxMetadataKeyLen)
		}
		if len(v) > MaxMetadataValueLen {
			return fmt.Errorf("metadata: value for %q exceeds %d bytes", k, MaxMetadataValueLen)
		}
	}
	return nil
}

// Value implements driver.Valuer, storing metadata as a JSON object.
func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]string(m))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src any) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	default:
		return fmt.Errorf("metadata: cannot scan %T", src)
	}

	var out map[string]string
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("metadata: scan: %w", err)
	}
	if len(out) == 0 {
		*m = nil
		return nil
	}
	*m = out
	return nil
}

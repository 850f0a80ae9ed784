package types_test

import (
	"fmt"
	"strings"
	"testing"

	"github.com/xraph/attest/types"
)

func TestMetadataValidate(t *testing.T) {
	tooMany := types.Metadata{}
	for i := 0; i <= types.MaxMetadataKeys; i++ {
		tooMany[fmt.Sprintf("k%02d", i)] = "v"
	}

	tests := []struct {
		name    string
		md      types.Metadata
		wantErr bool
	}{
		{"nil", nil, false},
		{"small", types.Metadata{"region": "eu-west"}, false},
		{"empty key", types.Metadata{"": "v"}, true},
		{"long key", types.Metadata{strings.Repeat("k", 65): "v"}, true},
		{"long value", types.Metadata{"k": strings.Repeat("v", 257)}, true},
		{"too many keys", tooMany, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.md.Validate()
			if tt.wantErr && err == nil {
				t.Fatal("expected error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestMetadataCloneIndependent(t *testing.T) {
	orig := types.Metadata{"a": "1"}
	c := orig.Clone()
	c["a"] = "2"
	if orig["a"] != "1" {
		t.Errorf("clone shares storage with original")
	}

	var nilMD types.Metadata
	if nilMD.Clone() != nil {
		t.Error("expected nil clone of nil metadata")
	}
}

func TestMetadataKeysSorted(t *testing.T) {
	md := types.Metadata{"c": "3", "a": "1", "b": "2"}
	got := strings.Join(md.Keys(), ",")
	if got != "a,b,c" {
		t.Errorf("expected sorted keys, got %q", got)
	}
}

func TestMetadataValueScan(t *testing.T) {
	md := types.Metadata{"window_start": "2025-01-01"}
	val, err := md.Value()
	if err != nil {
		t.Fatalf("Value failed: %v", err)
	}

	var back types.Metadata
	if err := back.Scan(val); err != nil {
		t.Fatalf("Scan failed: %v", err)
	}
	if back["window_start"] != "2025-01-01" {
		t.Errorf("mismatch after scan: %v", back)
	}

	var empty types.Metadata
	if err := empty.Scan("{}"); err != nil {
		t.Fatalf("Scan({}) failed: %v", err)
	}
	if empty != nil {
		t.Errorf("expected nil metadata for empty object, got %v", empty)
	}
}

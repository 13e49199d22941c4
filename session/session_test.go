package session

import (
	"strings"
	"testing"
)

func TestNewID(t *testing.T) {
	id, err := NewID(16)
	if err != nil {
		t.Fatalf("NewID failed: %v", err)
	}
	if len(id) != 32 {
		t.Errorf("Expected 32 hex characters, got %d", len(id))
	}
	if !ValidID(id, 16) {
		t.Errorf("Generated id %s should be valid", id)
	}

	other, _ := NewID(16)
	if id == other {
		t.Error("Two generated ids should differ")
	}
}

func TestValidID(t *testing.T) {
	tests := []struct {
		name  string
		id    string
		valid bool
	}{
		{"empty", "", false},
		{"too short", "abc", false},
		{"hex", strings.Repeat("a1", 16), true},
		{"allowed punctuation", strings.Repeat("a-_.", 8), true},
		{"space", strings.Repeat("a", 31) + " ", false},
		{"semicolon", strings.Repeat("a", 31) + ";", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ValidID(tt.id, 16); got != tt.valid {
				t.Errorf("ValidID(%q): expected %v, got %v", tt.id, tt.valid, got)
			}
		})
	}
}

func TestDefaultValidatorUsesByteLength(t *testing.T) {
	validate := DefaultValidator(4)
	if !validate("abcdefgh") {
		t.Error("8 characters should satisfy 4 id bytes")
	}
	if validate("abcdefg") {
		t.Error("7 characters should not satisfy 4 id bytes")
	}
}

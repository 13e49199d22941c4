package test

import (
	"bytes"
	"testing"
)

// Equal reports a test error when expected and actual differ.
func Equal(t *testing.T, expected, actual any) bool {
	t.Helper()

	if eb, ok := expected.([]byte); ok {
		if ab, ok := actual.([]byte); ok {
			if !bytes.Equal(eb, ab) {
				t.Errorf(""+
					"Not equal: \n"+
					"Expected: %q\n"+
					"Actual: %q", eb, ab)
				return false
			}
			return true
		}
	}

	if expected != actual {
		t.Errorf(""+
			"Not equal: \n"+
			"Expected: %v\n"+
			"Actual: %v", expected, actual)
		return false
	}

	return true
}

func True(t *testing.T, value bool, msg string) bool {
	t.Helper()

	if !value {
		t.Errorf("Expected true: %s", msg)
		return false
	}

	return true
}

func NoError(t *testing.T, err error) bool {
	t.Helper()

	if err != nil {
		t.Errorf("Unexpected error: %v", err)
		return false
	}

	return true
}

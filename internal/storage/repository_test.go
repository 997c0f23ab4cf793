package storage

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		ok   bool
	}{
		{"canonical", "3f1c2a9e-7b4d-4c1e-9a2f-5d6e7f8a9b0c", "3f1c2a9e-7b4d-4c1e-9a2f-5d6e7f8a9b0c", true},
		{"upper case", "3F1C2A9E-7B4D-4C1E-9A2F-5D6E7F8A9B0C", "3f1c2a9e-7b4d-4c1e-9a2f-5d6e7f8a9b0c", true},
		{"urn form", "urn:uuid:3f1c2a9e-7b4d-4c1e-9a2f-5d6e7f8a9b0c", "3f1c2a9e-7b4d-4c1e-9a2f-5d6e7f8a9b0c", true},
		{"word", "abc", "", false},
		{"empty", "", "", false},
		{"truncated", "3f1c2a9e-7b4d-4c1e-9a2f", "", false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ParseID(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.want, got)
		})
	}
}

package idmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"P50053", "P50053"},
		{"P50053-1", "P50053"},
		{"P50053-12", "P50053"},
		{"B_ID-1", "B_ID"},
		{"A-B-C", "A"},
		{"-1", ""},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got := Normalize(tt.in)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, got, Normalize(got), "normalize must be idempotent")
		})
	}
}

package repository

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLike(t *testing.T) {
	tests := map[string]string{
		"tea":        "tea",
		"100%":       `100\%`,
		"snake_case": `snake\_case`,
		`C:\tmp`:     `C:\\tmp`,
	}
	for in, want := range tests {
		assert.Equal(t, want, escapeLike(in), in)
	}
}

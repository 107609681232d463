package utils_test

import (
	"testing"

	"github.com/robalyx/isero/pkg/utils"
	"github.com/stretchr/testify/assert"
)

func TestTextNormalizer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		want     string
		contains string
		hasMatch bool
	}{
		{
			name:     "empty string",
			input:    "",
			want:     "",
			contains: "test",
			hasMatch: false,
		},
		{
			name:     "basic string",
			input:    "Hello World",
			want:     "hello world",
			contains: "world",
			hasMatch: true,
		},
		{
			name:     "hungarian diacritics",
			input:    "Köszönöm, LEZÁRHATJÁTOK",
			want:     "koszonom, lezarhatjatok",
			contains: "lezárhatjátok",
			hasMatch: true,
		},
		{
			name:     "double acute",
			input:    "Őszintén  ŰRHAJÓ",
			want:     "oszinten urhajo",
			contains: "urhajo",
			hasMatch: true,
		},
		{
			name:     "no match",
			input:    "még nem végeztünk",
			want:     "meg nem vegeztunk",
			contains: "lezárható",
			hasMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			n := utils.NewTextNormalizer()
			assert.Equal(t, tt.want, n.Normalize(tt.input))
			assert.Equal(t, tt.hasMatch, n.ContainsAny(tt.input, tt.contains))
		})
	}
}

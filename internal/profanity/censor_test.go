package profanity_test

import (
	"testing"

	"github.com/robalyx/isero/internal/profanity"
	"github.com/stretchr/testify/assert"
)

func TestRender(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		text  string
		spans []profanity.Span
		want  string
	}{
		{
			name:  "no spans",
			text:  "hello",
			spans: nil,
			want:  "hello",
		},
		{
			name:  "keeps first and last letter",
			text:  "kurva",
			spans: []profanity.Span{{Start: 0, End: 5}},
			want:  "k***a",
		},
		{
			name:  "preserves separators",
			text:  "k.u.r.v.a",
			spans: []profanity.Span{{Start: 0, End: 9}},
			want:  "k.*.*.*.a",
		},
		{
			name:  "two letters fully masked",
			text:  "az",
			spans: []profanity.Span{{Start: 0, End: 2}},
			want:  "**",
		},
		{
			name:  "one letter fully masked",
			text:  "x",
			spans: []profanity.Span{{Start: 0, End: 1}},
			want:  "*",
		},
		{
			name:  "two letters with separator",
			text:  "a b",
			spans: []profanity.Span{{Start: 0, End: 3}},
			want:  "* *",
		},
		{
			name:  "leet digits are not letters",
			text:  "k4rva",
			spans: []profanity.Span{{Start: 0, End: 5}},
			want:  "k4**a",
		},
		{
			name:  "inside sentence",
			text:  "hello kurva!",
			spans: []profanity.Span{{Start: 6, End: 11}},
			want:  "hello k***a!",
		},
		{
			name:  "accented letters",
			text:  "kúrva szar",
			spans: []profanity.Span{{Start: 0, End: 5}, {Start: 6, End: 10}},
			want:  "k***a s**r",
		},
		{
			name:  "out of range span is clamped",
			text:  "geci",
			spans: []profanity.Span{{Start: 0, End: 40}},
			want:  "g**i",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := profanity.Render(tt.text, tt.spans)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, len([]rune(tt.text)), len([]rune(got)))
		})
	}
}

package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSanitize tests the label-safe normalisation rules
func TestSanitize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "empty",
			input: "",
			want:  "",
		},
		{
			name:  "plain word is lower-cased",
			input: "Hello",
			want:  "hello",
		},
		{
			name:  "punctuation and spaces collapse to one dot",
			input: "Hello, World!",
			want:  "hello.world.0",
		},
		{
			name:  "dash runs collapse",
			input: "a---b",
			want:  "a-b",
		},
		{
			name:  "dot before dash is repaired",
			input: "a.-b",
			want:  "a.0-b",
		},
		{
			name:  "dash before dot is repaired",
			input: "a-.b",
			want:  "a-0.b",
		},
		{
			name:  "leading dot gets a zero",
			input: " abc",
			want:  "0.abc",
		},
		{
			name:  "leading dash gets a zero",
			input: "-abc",
			want:  "0-abc",
		},
		{
			name:  "trailing dash gets a zero",
			input: "abc-",
			want:  "abc-0",
		},
		{
			name:  "non ascii becomes a separator",
			input: "café au lait",
			want:  "caf.au.lait",
		},
		{
			name:  "dash between dots",
			input: "x . - . y",
			want:  "x.0-0.y",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Sanitize(tt.input))
		})
	}
}

// TestSplitEmpty tests that empty input yields no chunks
func TestSplitEmpty(t *testing.T) {
	assert.Empty(t, Split("", DefaultMaxLabelSetBytes))
}

// TestSplitRepeatedGreeting tests a multi-group input against the budget
func TestSplitRepeatedGreeting(t *testing.T) {
	input := strings.Repeat("Hello, World! ", 10)

	groups := Split(input, DefaultMaxLabelSetBytes)

	require.GreaterOrEqual(t, len(groups), 2)
	for _, g := range groups {
		assert.LessOrEqual(t, len(g), DefaultMaxLabelSetBytes, "group %q too long", g)
	}
	assert.True(t, strings.HasPrefix(groups[0], "hello.world."))
}

// TestSplitRoundTrip tests that joining the groups reproduces the sanitised text
func TestSplitRoundTrip(t *testing.T) {
	inputs := []string{
		"a",
		"The quick brown fox jumps over the lazy dog.",
		strings.Repeat("lorem ipsum dolor sit amet ", 40),
		"--weird...input--with//every;kind_of**separator--",
		strings.Repeat("x", 200),
		"line one\nline two\r\n\ttabbed",
	}

	for _, budget := range []int{1, 8, 20, DefaultMaxLabelSetBytes, 255} {
		for _, in := range inputs {
			groups := Split(in, budget)
			assert.Equal(t, Sanitize(in), strings.Join(groups, "."), "budget %d input %q", budget, in)

			for _, g := range groups {
				if len(g) > budget {
					// Only a lone oversized label may break the budget
					assert.NotContains(t, g, ".", "budget %d group %q", budget, g)
				}
			}
		}
	}
}

// TestSplitOversizedLabel tests that a label longer than the budget is not split
func TestSplitOversizedLabel(t *testing.T) {
	long := strings.Repeat("a", 100)

	groups := Split("ab "+long+" cd", DefaultMaxLabelSetBytes)

	assert.Equal(t, []string{"ab", long, "cd"}, groups)
}

// TestSplitPacksGreedily tests that labels fill a group up to the exact budget
func TestSplitPacksGreedily(t *testing.T) {
	// "aaa.bbb" is 7 characters, adding ".ccc" would make 11
	groups := Split("aaa bbb ccc", 7)

	assert.Equal(t, []string{"aaa.bbb", "ccc"}, groups)
}

// TestSplitDeterministic tests repeated calls give identical output
func TestSplitDeterministic(t *testing.T) {
	in := strings.Repeat("deterministic output please ", 9)
	assert.Equal(t, Split(in, 30), Split(in, 30))
}

package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skosovsky/plantool/domain"
)

func TestParseRatio(t *testing.T) {
	tests := []struct {
		in   any
		want int
	}{
		{"100", 100},
		{"0", 0},
		{"30%", 30},
		{" 40 % ", 40},
		{25, 25},
		{float64(60), 60},
	}
	for _, tt := range tests {
		got, err := ParseRatio(tt.in)
		require.NoError(t, err, "input %v", tt.in)
		assert.Equal(t, tt.want, got)
	}
}

func TestParseRatio_Errors(t *testing.T) {
	tests := []struct {
		in   any
		kind domain.Kind
	}{
		{"101", domain.KindRange},
		{"-1", domain.KindRange},
		{101, domain.KindRange},
		{float64(-3), domain.KindRange},
		{"thirty", domain.KindParse},
		{"30.5%", domain.KindParse},
		{"", domain.KindParse},
		{nil, domain.KindParse},
	}
	for _, tt := range tests {
		_, err := ParseRatio(tt.in)
		require.Error(t, err, "input %v", tt.in)
		assert.Equal(t, tt.kind, domain.KindOf(err), "input %v", tt.in)
	}
}

package normalize

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeLocation(t *testing.T) {
	assert.Equal(t, "서울특별시 동작구", NormalizeLocation("서울 동작구"))
	assert.Equal(t, "부산광역시 해운대구", NormalizeLocation("  부산   해운대구 "))
	assert.Equal(t, "제주 어딘가", NormalizeLocation("제주 어딘가"))
	assert.Empty(t, NormalizeLocation(""))
}

func TestLocations_ExtraAliasesWin(t *testing.T) {
	extra, err := LoadAliases(strings.NewReader(`
aliases:
  "서울 노원구": "서울특별시 노원구"
  "서울 동작구": "서울 동작구 (override)"
`))
	require.NoError(t, err)
	locs := NewLocations(extra)

	got, ok := locs.Normalize("서울 노원구")
	assert.True(t, ok)
	assert.Equal(t, "서울특별시 노원구", got)

	got, ok = locs.Normalize("서울 동작구")
	assert.True(t, ok)
	assert.Equal(t, "서울 동작구 (override)", got)

	// Built-in table is not mutated by extra aliases.
	assert.Equal(t, "서울특별시 동작구", NormalizeLocation("서울 동작구"))
}

func TestLoadAliases_Errors(t *testing.T) {
	_, err := LoadAliases(strings.NewReader("aliases: [1, 2"))
	require.Error(t, err)

	_, err = LoadAliases(strings.NewReader(`aliases: {"서울 노원구": ""}`))
	require.Error(t, err)

	got, err := LoadAliases(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, got)
}

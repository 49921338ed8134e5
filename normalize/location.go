package normalize

import (
	"fmt"
	"io"
	"maps"
	"strings"

	"gopkg.in/yaml.v3"
)

// defaultAliases maps district nicknames to full administrative names.
var defaultAliases = map[string]string{
	"서울 동작구":  "서울특별시 동작구",
	"서울 마포구":  "서울특별시 마포구",
	"서울 송파구":  "서울특별시 송파구",
	"서울 강남구":  "서울특별시 강남구",
	"서울 서초구":  "서울특별시 서초구",
	"서울 용산구":  "서울특별시 용산구",
	"서울 성동구":  "서울특별시 성동구",
	"부산 해운대구": "부산광역시 해운대구",
	"대구 수성구":  "대구광역시 수성구",
	"인천 연수구":  "인천광역시 연수구",
	"대전 유성구":  "대전광역시 유성구",
	"광주 서구":   "광주광역시 서구",
	"경기 분당구":  "경기도 성남시 분당구",
}

// Locations resolves district nicknames. The zero value is not usable; use NewLocations.
type Locations struct {
	aliases map[string]string
}

// NewLocations returns a table with the built-in aliases plus extra. Entries in extra win.
func NewLocations(extra map[string]string) *Locations {
	aliases := maps.Clone(defaultAliases)
	for k, v := range extra {
		aliases[collapseSpaces(k)] = strings.TrimSpace(v)
	}
	return &Locations{aliases: aliases}
}

// Normalize returns the full administrative name for s and true, or s unchanged and false when no
// alias matches. It never fails.
func (l *Locations) Normalize(s string) (string, bool) {
	if full, ok := l.aliases[collapseSpaces(s)]; ok {
		return full, true
	}
	return s, false
}

// Len returns the number of aliases.
func (l *Locations) Len() int { return len(l.aliases) }

var builtin = NewLocations(nil)

// NormalizeLocation resolves s against the built-in alias table.
func NormalizeLocation(s string) string {
	out, _ := builtin.Normalize(s)
	return out
}

type aliasFile struct {
	Aliases map[string]string `yaml:"aliases"`
}

// LoadAliases reads an alias file of the form
//
//	aliases:
//	  "서울 노원구": "서울특별시 노원구"
func LoadAliases(r io.Reader) (map[string]string, error) {
	var f aliasFile
	if err := yaml.NewDecoder(r).Decode(&f); err != nil {
		if err == io.EOF {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("decode alias file: %w", err)
	}
	out := make(map[string]string, len(f.Aliases))
	for k, v := range f.Aliases {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			return nil, fmt.Errorf("alias file: empty entry %q -> %q", k, v)
		}
		out[k] = v
	}
	return out, nil
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

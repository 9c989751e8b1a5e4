package geo

import (
	"sort"
	"strings"
	"unicode"

	"mutari/pkg/types"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

const DefaultSearchLimit = 10

// Index is an immutable lookup over the county and city tables.
type Index struct {
	counties []types.County
	byCounty map[string][]string
	entries  []entry
}

type entry struct {
	loc    types.Location
	folded string
}

func NewIndex() *Index {
	idx := &Index{
		byCounty: make(map[string][]string, len(counties)),
	}

	for _, c := range counties {
		cities := append([]string(nil), c.cities...)
		idx.counties = append(idx.counties, types.County{Name: c.name, Cities: cities})
		idx.byCounty[Fold(c.name)] = cities

		for _, city := range cities {
			idx.entries = append(idx.entries, entry{
				loc: types.Location{
					ID:     Slug(c.name) + "/" + Slug(city),
					Name:   city,
					County: c.name,
					Full:   city + ", " + c.name,
				},
				folded: Fold(city),
			})
		}
	}

	return idx
}

func (i *Index) Counties() []types.County {
	return i.counties
}

func (i *Index) CountyNames() []string {
	out := make([]string, len(i.counties))
	for n, c := range i.counties {
		out[n] = c.Name
	}
	return out
}

// Cities returns the cities of a county, matching the county name
// case and diacritic insensitively.
func (i *Index) Cities(county string) []string {
	return i.byCounty[Fold(county)]
}

func (i *Index) HasCity(county, city string) bool {
	want := Fold(city)
	for _, c := range i.Cities(county) {
		if Fold(c) == want {
			return true
		}
	}
	return false
}

// Search returns up to limit locations whose city name contains q.
// Prefix matches rank ahead of inner matches.
func (i *Index) Search(q string, limit int) []types.Location {
	q = Fold(strings.TrimSpace(q))
	if q == "" {
		return []types.Location{}
	}

	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	type hit struct {
		loc    types.Location
		prefix bool
	}

	hits := make([]hit, 0)
	for _, e := range i.entries {
		pos := strings.Index(e.folded, q)
		if pos < 0 {
			continue
		}
		hits = append(hits, hit{loc: e.loc, prefix: pos == 0})
	}

	sort.SliceStable(hits, func(a, b int) bool {
		if hits[a].prefix != hits[b].prefix {
			return hits[a].prefix
		}
		return hits[a].loc.Name < hits[b].loc.Name
	})

	if len(hits) > limit {
		hits = hits[:limit]
	}

	out := make([]types.Location, len(hits))
	for n, h := range hits {
		out[n] = h.loc
	}
	return out
}

// Fold lowercases s and strips diacritics, so "Brașov" and "brasov" compare equal.
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.ToLower(out)
}

func Slug(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range Fold(s) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

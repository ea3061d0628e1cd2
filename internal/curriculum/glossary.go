package curriculum

import (
	"encoding/json"
	"sort"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Glossary is the case-insensitive index of key term definitions.
// It is immutable once built.
type Glossary struct {
	defs  map[string]string
	terms []string
}

// NormalizeTerm returns the lookup key for a term.
func NormalizeTerm(term string) string {
	// Casers are stateful; one per call keeps lookups goroutine safe.
	return cases.Lower(language.Und).String(term)
}

// NewGlossary builds the index from a term → definition map. When two terms
// collide after lower-casing, the lexicographically smallest original wins.
func NewGlossary(raw map[string]string) *Glossary {
	originals := make([]string, 0, len(raw))
	for k := range raw {
		originals = append(originals, k)
	}
	sort.Strings(originals)

	g := &Glossary{defs: make(map[string]string, len(raw))}
	for _, orig := range originals {
		key := NormalizeTerm(orig)
		if _, dup := g.defs[key]; dup {
			continue
		}
		g.defs[key] = raw[orig]
		g.terms = append(g.terms, key)
	}

	sort.SliceStable(g.terms, func(i, j int) bool {
		li, lj := utf8.RuneCountInString(g.terms[i]), utf8.RuneCountInString(g.terms[j])
		if li != lj {
			return li > lj
		}
		return g.terms[i] < g.terms[j]
	})
	return g
}

// Lookup returns the definition for a term, ignoring case.
func (g *Glossary) Lookup(term string) (string, bool) {
	if g == nil {
		return "", false
	}
	d, ok := g.defs[NormalizeTerm(term)]
	return d, ok
}

// Terms returns every lower-cased term, longest first.
func (g *Glossary) Terms() []string {
	if g == nil {
		return nil
	}
	return append([]string(nil), g.terms...)
}

// Len returns the number of terms.
func (g *Glossary) Len() int {
	if g == nil {
		return 0
	}
	return len(g.terms)
}

// MarshalJSON encodes the glossary as a term → definition object.
func (g *Glossary) MarshalJSON() ([]byte, error) {
	if g == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(g.defs)
}

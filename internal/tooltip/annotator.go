// Package tooltip wraps glossary terms found in page text with definition spans.
package tooltip

import (
	"regexp"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// ClassName is the CSS class carried by every annotation span.
const ClassName = "tooltip-link"

// Definitions is the glossary view the annotator needs.
type Definitions interface {
	Lookup(term string) (string, bool)
	Terms() []string
}

type termPattern struct {
	term       string
	definition string
	re         *regexp.Regexp
}

// Annotator injects tooltip spans for glossary terms. It is safe for
// concurrent use once built.
type Annotator struct {
	patterns []termPattern
}

// New compiles one case-insensitive pattern per term, longest term first.
// Whole-word matching is enforced when a pattern is applied.
func New(defs Definitions) *Annotator {
	a := &Annotator{}
	if defs == nil {
		return a
	}
	for _, term := range defs.Terms() {
		def, ok := defs.Lookup(term)
		if !ok || term == "" {
			continue
		}
		a.patterns = append(a.patterns, termPattern{
			term:       strings.ToLower(term),
			definition: def,
			re:         regexp.MustCompile(`(?i)` + regexp.QuoteMeta(term)),
		})
	}
	return a
}

// Annotate returns text with every unannotated glossary term occurrence
// wrapped in a span. Markup already present in text is preserved byte for
// byte, and text inside existing annotation spans is never matched again.
func (a *Annotator) Annotate(text string) string {
	if a == nil || text == "" || len(a.patterns) == 0 {
		return text
	}

	segs := split(text)
	for _, p := range a.patterns {
		segs = p.apply(segs)
	}

	var b strings.Builder
	b.Grow(len(text))
	for _, s := range segs {
		s.writeTo(&b)
	}
	return b.String()
}

type segmentKind int

const (
	// segText is author text that may still receive annotations.
	segText segmentKind = iota
	// segOpaque is markup or protected text copied through unchanged.
	segOpaque
	// segSpan is an annotation added by this pass.
	segSpan
)

type segment struct {
	kind       segmentKind
	raw        string
	term       string
	definition string
}

func (s segment) writeTo(b *strings.Builder) {
	if s.kind != segSpan {
		b.WriteString(s.raw)
		return
	}
	b.WriteString(`<span class="`)
	b.WriteString(ClassName)
	b.WriteString(`" data-term="`)
	b.WriteString(html.EscapeString(s.term))
	b.WriteString(`" data-definition="`)
	b.WriteString(html.EscapeString(s.definition))
	b.WriteString(`">`)
	b.WriteString(s.raw)
	b.WriteString(`</span>`)
}

// apply scans every text segment left to right and wraps matches of p.
func (p termPattern) apply(segs []segment) []segment {
	out := make([]segment, 0, len(segs))
	for _, s := range segs {
		if s.kind != segText {
			out = append(out, s)
			continue
		}
		last := 0
		for _, m := range p.matches(s.raw) {
			if m[0] > last {
				out = append(out, segment{kind: segText, raw: s.raw[last:m[0]]})
			}
			out = append(out, segment{
				kind:       segSpan,
				raw:        s.raw[m[0]:m[1]],
				term:       p.term,
				definition: p.definition,
			})
			last = m[1]
		}
		if last < len(s.raw) {
			out = append(out, segment{kind: segText, raw: s.raw[last:]})
		}
	}
	return out
}

// matches returns raw byte ranges of whole-word occurrences of p in raw.
// Matching runs on the decoded text, so character references are never split
// and a term never matches the name or number inside one.
func (p termPattern) matches(raw string) [][2]int {
	text, rawAt := decode(raw)
	var found [][2]int
	for pos := 0; pos < len(text); {
		loc := p.re.FindStringIndex(text[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if end > start && rawAt[start] >= 0 && rawAt[end] >= 0 && wholeWord(text, start, end) {
			found = append(found, [2]int{rawAt[start], rawAt[end]})
			pos = end
			continue
		}
		_, size := utf8.DecodeRuneInString(text[start:])
		pos = start + max(size, 1)
	}
	return found
}

// wholeWord reports whether text[start:end] does not cut through a word on
// either side.
func wholeWord(text string, start, end int) bool {
	first, _ := utf8.DecodeRuneInString(text[start:])
	lastRune, _ := utf8.DecodeLastRuneInString(text[:end])
	if start > 0 {
		before, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(before) && isWordRune(first) {
			return false
		}
	}
	if end < len(text) {
		after, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(after) && isWordRune(lastRune) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

// charRef matches a character reference at the start of a string.
var charRef = regexp.MustCompile(`^&(?:#[xX][0-9a-fA-F]+|#[0-9]+|[A-Za-z][A-Za-z0-9]*);?`)

// decode unescapes raw. rawAt maps each offset in the decoded text to its raw
// offset, or -1 when the offset falls inside a decoded character reference.
func decode(raw string) (string, []int) {
	var b strings.Builder
	b.Grow(len(raw))
	rawAt := make([]int, 0, len(raw)+1)
	for i := 0; i < len(raw); {
		if raw[i] == '&' {
			if ref := charRef.FindString(raw[i:]); ref != "" {
				dec := html.UnescapeString(ref)
				rawAt = append(rawAt, i)
				for range len(dec) - 1 {
					rawAt = append(rawAt, -1)
				}
				b.WriteString(dec)
				i += len(ref)
				continue
			}
		}
		rawAt = append(rawAt, i)
		b.WriteByte(raw[i])
		i++
	}
	rawAt = append(rawAt, len(raw))
	return b.String(), rawAt
}

// protectedElements never have their text annotated.
var protectedElements = []string{"script", "style"}

// split tokenizes text into matchable text runs and opaque markup. The raw
// bytes of all segments concatenate back to text exactly.
func split(text string) []segment {
	var segs []segment
	appendOpaque := func(raw string) {
		if n := len(segs); n > 0 && segs[n-1].kind == segOpaque {
			segs[n-1].raw += raw
			return
		}
		segs = append(segs, segment{kind: segOpaque, raw: raw})
	}

	z := html.NewTokenizer(strings.NewReader(text))
	consumed := 0
	// protected tracks the element we are inside of and its nesting depth.
	protected, depth := "", 0

	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			break
		}
		raw := string(z.Raw())
		consumed += len(raw)

		switch tt {
		case html.TextToken:
			switch n := len(segs); {
			case depth > 0:
				appendOpaque(raw)
			case n > 0 && segs[n-1].kind == segText:
				segs[n-1].raw += raw
			default:
				segs = append(segs, segment{kind: segText, raw: raw})
			}
		case html.StartTagToken:
			name, hasAttr := z.TagName()
			tag := string(name)
			switch {
			case depth > 0 && tag == protected:
				depth++
			case depth == 0 && (isAnnotation(z, tag, hasAttr) || slices.Contains(protectedElements, tag)):
				protected, depth = tag, 1
			}
			appendOpaque(raw)
		case html.EndTagToken:
			name, _ := z.TagName()
			if depth > 0 && string(name) == protected {
				depth--
			}
			appendOpaque(raw)
		default:
			appendOpaque(raw)
		}
	}

	if consumed < len(text) {
		appendOpaque(text[consumed:])
	}
	return segs
}

// isAnnotation reports whether the current start tag is an annotation span.
func isAnnotation(z *html.Tokenizer, tag string, hasAttr bool) bool {
	if tag != "span" {
		return false
	}
	for hasAttr {
		var key, val []byte
		key, val, hasAttr = z.TagAttr()
		if string(key) == "class" && slices.Contains(strings.Fields(string(val)), ClassName) {
			return true
		}
	}
	return false
}

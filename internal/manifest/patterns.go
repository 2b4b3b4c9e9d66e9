package manifest

import (
	"fmt"
	"iter"
	"time"
	"unicode/utf8"

	"github.com/dlclark/regexp2"

	"manifestproxyd/internal/models"
)

// Pattern contracts shared with existing players and origins. They are
// evaluated with .NET regex semantics, so \w is Unicode-aware.
const (
	QualityLevelPattern = `(QualityLevels\(\d+\))`
	FragmentPattern     = `(Fragments\([\w\d=-]+,[\w\d=-]+\))`
	URLPattern          = `(")(https?:\/\/[\da-z\.-]+\.[a-z\.]{2,6}[\/\w \.,()=-]*\/?[\?&][^&="]+=[^&=#"]*(?:&[^&="]+=[^&=#"]*)*)(")`
)

// MatchTimeout bounds a single pattern evaluation over a manifest.
const MatchTimeout = 5 * time.Second

var (
	qualityLevelRe = mustCompile(QualityLevelPattern)
	fragmentRe     = mustCompile(FragmentPattern)
	urlRe          = mustCompile(URLPattern)
)

func mustCompile(expr string) *regexp2.Regexp {
	re := regexp2.MustCompile(expr, regexp2.None)
	re.MatchTimeout = MatchTimeout
	return re
}

// match is one located capture group, in byte offsets of the scanned text.
type match struct {
	start int
	end   int
}

// runeCursor converts the rune offsets reported by regexp2 into byte offsets.
// Offsets must be requested in non-decreasing order.
type runeCursor struct {
	text  string
	runes int
	bytes int
}

func (c *runeCursor) byteOffset(runeIdx int) int {
	for c.runes < runeIdx && c.bytes < len(c.text) {
		_, size := utf8.DecodeRuneInString(c.text[c.bytes:])
		c.bytes += size
		c.runes++
	}
	return c.bytes
}

// findAll yields capture group `group` of every match of re in text, left to right.
func findAll(re *regexp2.Regexp, text string, group int) iter.Seq2[match, error] {
	return func(yield func(match, error) bool) {
		cursor := &runeCursor{text: text}

		m, err := re.FindStringMatch(text)
		for {
			if err != nil {
				yield(match{}, fmt.Errorf("%w: evaluate %s: %v", models.ErrTransform, re.String(), err))
				return
			}
			if m == nil {
				return
			}

			g := m.GroupByNumber(group)
			start := cursor.byteOffset(g.Index)
			end := cursor.byteOffset(g.Index + g.Length)
			if !yield(match{start: start, end: end}, nil) {
				return
			}

			m, err = re.FindNextMatch(m)
		}
	}
}

package manifest

import "iter"

// Span is a quoted URL located in manifest text that is eligible for token
// injection. Start and End are byte offsets of the URL, quotes excluded.
type Span struct {
	Start int
	End   int
	URL   string
}

// Classify yields every double-quoted http(s) URL in text that already
// carries at least one key=value query parameter, left to right.
// URLs without a query component are not yielded.
func Classify(text string) iter.Seq2[Span, error] {
	return func(yield func(Span, error) bool) {
		for m, err := range findAll(urlRe, text, 2) {
			if err != nil {
				yield(Span{}, err)
				return
			}
			if !yield(Span{Start: m.start, End: m.end, URL: text[m.start:m.end]}, nil) {
				return
			}
		}
	}
}

package manifest

import "strings"

// ResolveFragments rewrites every relative "Fragments(<id>,<id>)" reference in
// doc.Text into BaseURL/QualityLevel/Fragments(...). It does nothing when the
// document has no quality level. References already preceded by '/' are part
// of a longer path and are left alone.
func ResolveFragments(doc Document) (string, int, error) {
	if doc.QualityLevel == "" {
		return doc.Text, 0, nil
	}

	prefix := doc.BaseURL + "/" + doc.QualityLevel + "/"
	text := doc.Text

	var b strings.Builder
	last, resolved := 0, 0
	for m, err := range findAll(fragmentRe, text, 0) {
		if err != nil {
			return "", 0, err
		}
		if m.start > 0 && text[m.start-1] == '/' {
			continue
		}

		b.WriteString(text[last:m.start])
		b.WriteString(prefix)
		b.WriteString(text[m.start:m.end])
		last = m.end
		resolved++
	}

	if resolved == 0 {
		return text, 0, nil
	}
	b.WriteString(text[last:])
	return b.String(), resolved, nil
}

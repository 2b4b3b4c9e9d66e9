package manifest

import "strings"

// TokenParam is the query parameter that carries the authorization token.
const TokenParam = "token"

// Inject appends "&token=<armoredToken>" before the closing quote of every
// URL yielded by Classify. Everything else in text is copied unchanged.
// URLs that already end in this exact token parameter are skipped, so
// injecting twice is a no-op. Any other token parameter is left in place and
// the caller's token is still appended. It returns the rewritten text and the
// number of URLs changed.
func Inject(text, armoredToken string) (string, int, error) {
	var b strings.Builder
	last, injected := 0, 0

	for span, err := range Classify(text) {
		if err != nil {
			return "", 0, err
		}
		if HasToken(span.URL, armoredToken) {
			continue
		}

		if injected == 0 {
			b.Grow(len(text) + 64)
		}
		b.WriteString(text[last:span.End])
		b.WriteString("&" + TokenParam + "=")
		b.WriteString(armoredToken)
		last = span.End
		injected++
	}

	if injected == 0 {
		return text, 0, nil
	}
	b.WriteString(text[last:])
	return b.String(), injected, nil
}

// HasToken reports whether rawURL already ends with the token parameter
// carrying armoredToken, as left behind by Inject.
func HasToken(rawURL, armoredToken string) bool {
	param := TokenParam + "=" + armoredToken
	return strings.HasSuffix(rawURL, "&"+param) || strings.HasSuffix(rawURL, "?"+param)
}

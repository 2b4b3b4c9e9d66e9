package token

import (
	"net/url"
	"strings"
)

// Pair is one key/value occurrence of a query string.
// Keyed is false for segments that carried no '=' at all.
type Pair struct {
	Key   string
	Value string
	Keyed bool
}

// Pairs is an ordered sequence of query string pairs.
type Pairs []Pair

type pairKey struct {
	key   string
	keyed bool
}

// ParsePairs decomposes a query string into pairs.
// Values are grouped under their key in order of the key's first appearance;
// every occurrence is kept. Empty segments are dropped.
func ParsePairs(query string) Pairs {
	var order []pairKey
	groups := make(map[pairKey][]string)

	for _, segment := range strings.Split(query, "&") {
		if segment == "" {
			continue
		}

		k := pairKey{}
		var value string
		if key, val, found := strings.Cut(segment, "="); found {
			k = pairKey{key: unescape(key), keyed: true}
			value = unescape(val)
		} else {
			value = unescape(segment)
		}

		if _, seen := groups[k]; !seen {
			order = append(order, k)
		}
		groups[k] = append(groups[k], value)
	}

	pairs := make(Pairs, 0, len(order))
	for _, k := range order {
		for _, v := range groups[k] {
			pairs = append(pairs, Pair{Key: k.key, Value: v, Keyed: k.keyed})
		}
	}
	return pairs
}

// Encode percent-encodes every key and value and joins the pairs with '&'.
func (p Pairs) Encode() string {
	segments := make([]string, 0, len(p))
	for _, pair := range p {
		if !pair.Keyed {
			segments = append(segments, url.QueryEscape(pair.Value))
			continue
		}
		segments = append(segments, url.QueryEscape(pair.Key)+"="+url.QueryEscape(pair.Value))
	}
	return strings.Join(segments, "&")
}

// unescape decodes a query component, keeping it verbatim when the escapes are malformed.
func unescape(s string) string {
	decoded, err := url.QueryUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

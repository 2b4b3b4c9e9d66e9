// Package fetch retrieves remote manifests over HTTP.
package fetch

import "net/url"

// Redact drops the query and user info from rawURL so it can be logged
// without leaking credentials.
func Redact(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "<unparseable url>"
	}
	u.User = nil
	u.RawQuery = ""
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

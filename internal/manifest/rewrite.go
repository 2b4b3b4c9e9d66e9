// Package manifest rewrites streaming manifests so that every fragment URL
// carries the caller's authorization token.
package manifest

// Rewritten is the outcome of a full rewrite pass.
type Rewritten struct {
	Text     string
	Injected int
	Resolved int
}

// Rewrite injects armoredToken into every eligible URL of text and, when
// playbackURL names a quality level, resolves relative fragment references
// against it. text is never modified in place.
func Rewrite(playbackURL, text, armoredToken string) (Rewritten, error) {
	injectedText, injected, err := Inject(text, armoredToken)
	if err != nil {
		return Rewritten{}, err
	}

	doc, err := NewDocument(playbackURL, injectedText)
	if err != nil {
		return Rewritten{}, err
	}

	resolvedText, resolved, err := ResolveFragments(doc)
	if err != nil {
		return Rewritten{}, err
	}

	return Rewritten{Text: resolvedText, Injected: injected, Resolved: resolved}, nil
}

package manifest

import (
	"strings"
	"unicode/utf8"
)

// smoothExtension marks the end of the base path in Smooth Streaming URLs.
const smoothExtension = ".ism"

// Document is a fetched manifest body together with the addressing
// information derived from the URL it was fetched from.
type Document struct {
	Text string
	// BaseURL is the playback URL truncated after its ".ism" segment.
	BaseURL string
	// QualityLevel is the "QualityLevels(<n>)" marker of the playback URL, or empty.
	QualityLevel string
}

// NewDocument derives BaseURL and QualityLevel from playbackURL.
func NewDocument(playbackURL, text string) (Document, error) {
	marker, err := QualityLevel(playbackURL)
	if err != nil {
		return Document{}, err
	}
	return Document{
		Text:         text,
		BaseURL:      BaseURL(playbackURL, marker),
		QualityLevel: marker,
	}, nil
}

// QualityLevel returns the first "QualityLevels(<digits>)" marker in
// playbackURL verbatim, or "" when there is none.
func QualityLevel(playbackURL string) (string, error) {
	for m, err := range findAll(qualityLevelRe, playbackURL, 0) {
		if err != nil {
			return "", err
		}
		return playbackURL[m.start:m.end], nil
	}
	return "", nil
}

// BaseURL returns playbackURL up to and including the first ".ism"
// (case-insensitive). Without one it falls back to the part before the
// quality level marker, or to the parent path of playbackURL.
func BaseURL(playbackURL, qualityLevel string) string {
	if i := indexFold(playbackURL, smoothExtension); i >= 0 {
		return playbackURL[:i+len(smoothExtension)]
	}
	if qualityLevel != "" {
		if i := strings.Index(playbackURL, qualityLevel); i >= 0 {
			return strings.TrimRight(playbackURL[:i], "/")
		}
	}
	if i := strings.LastIndexByte(playbackURL, '/'); i >= 0 {
		return playbackURL[:i]
	}
	return playbackURL
}

// indexFold is strings.Index with ASCII-insensitive matching of an ASCII substr.
func indexFold(s, substr string) int {
	for i := 0; i+len(substr) <= len(s); {
		if strings.EqualFold(s[i:i+len(substr)], substr) {
			return i
		}
		_, size := utf8.DecodeRuneInString(s[i:])
		i += size
	}
	return -1
}

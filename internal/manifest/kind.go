package manifest

import (
	"encoding/xml"
	"io"
	"strings"

	"manifestproxyd/internal/models"
)

const hlsSignature = "#EXTM3U"

// Sniff guesses the manifest format from the start of text. It only reads
// as far as the first XML element and never fails.
func Sniff(text string) models.ManifestKind {
	trimmed := strings.TrimLeft(strings.TrimPrefix(text, "\ufeff"), " \t\r\n")
	if strings.HasPrefix(trimmed, hlsSignature) {
		return models.KindHLS
	}
	if !strings.HasPrefix(trimmed, "<") {
		return models.KindUnknown
	}

	decoder := xml.NewDecoder(strings.NewReader(trimmed))
	// The body is already text; ignore declared encodings such as utf-16.
	decoder.CharsetReader = func(_ string, input io.Reader) (io.Reader, error) {
		return input, nil
	}
	for {
		tok, err := decoder.Token()
		if err != nil {
			return models.KindUnknown
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "SmoothStreamingMedia":
			return models.KindSmooth
		case "MPD":
			return models.KindDASH
		default:
			return models.KindUnknown
		}
	}
}

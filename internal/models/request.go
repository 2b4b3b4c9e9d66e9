package models

// ManifestContentType is the media type every rewritten manifest is served with.
const ManifestContentType = "application/vnd.apple.mpegurl"

// PlaybackRequest is a single inbound request to proxy a manifest.
// It is built per call and discarded once the response is produced.
type PlaybackRequest struct {
	// PlaybackURL is the absolute URL of the remote manifest.
	PlaybackURL string
	// RawToken is the opaque authorization token as received, possibly carrying a "Bearer=" prefix.
	RawToken string
}

// ManifestKind identifies the streaming format of a fetched manifest.
type ManifestKind string

const (
	KindHLS     ManifestKind = "hls"
	KindSmooth  ManifestKind = "smooth"
	KindDASH    ManifestKind = "dash"
	KindUnknown ManifestKind = "unknown"
)

// Result is the rewritten manifest returned to the caller.
type Result struct {
	// Body is the rewritten manifest text.
	Body string
	// ContentType is always ManifestContentType.
	ContentType string
	// Kind is the sniffed manifest format, used for logs and metrics only.
	Kind ManifestKind
	// Injected is the number of URLs that received the token parameter.
	Injected int
	// Resolved is the number of fragment references made absolute.
	Resolved int
}
